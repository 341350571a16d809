package types

// GNAP wire shapes exchanged with counterparty authorization and resource
// servers. Field names follow the grant-negotiation protocol, so a few are
// snake_case on the wire.

// AccessItem describes one scoped access being requested.
type AccessItem struct {
	Type       AccessType    `json:"type"`
	Actions    []string      `json:"actions"`
	Identifier string        `json:"identifier,omitempty"`
	Limits     *AccessLimits `json:"limits,omitempty"`
}

// AccessLimits bounds what the granted token may be used for.
type AccessLimits struct {
	DebitAmount   *Amount `json:"debitAmount,omitempty"`
	ReceiveAmount *Amount `json:"receiveAmount,omitempty"`
}

// GrantRequest is the body posted to an authorization server.
type GrantRequest struct {
	AccessToken AccessTokenRequest `json:"access_token"`
	Client      string             `json:"client"`
	Interact    *InteractRequest   `json:"interact,omitempty"`
}

// AccessTokenRequest carries the access array of a grant request.
type AccessTokenRequest struct {
	Access []AccessItem `json:"access"`
}

// InteractRequest asks the authorization server to start an interactive
// consent flow.
type InteractRequest struct {
	Start  []string        `json:"start"`
	Finish *InteractFinish `json:"finish,omitempty"`
}

// InteractFinish tells the authorization server how to hand control back
// once the human has decided.
type InteractFinish struct {
	Method string `json:"method"`
	URI    string `json:"uri,omitempty"`
	Nonce  string `json:"nonce"`
}

// GrantResponse is the authorization server's reply to a grant request or a
// continuation. A finalized grant carries AccessToken; a pending interactive
// grant carries Continue and Interact instead.
type GrantResponse struct {
	AccessToken *TokenValue       `json:"access_token,omitempty"`
	Continue    *ContinueResponse `json:"continue,omitempty"`
	Interact    *InteractResponse `json:"interact,omitempty"`
}

// TokenValue is a bearer access token.
type TokenValue struct {
	Value  string `json:"value"`
	Manage string `json:"manage,omitempty"`
}

// ContinueResponse is the continuation handle of a pending grant.
type ContinueResponse struct {
	URI         string     `json:"uri"`
	AccessToken TokenValue `json:"access_token"`
	Wait        int        `json:"wait,omitempty"`
}

// InteractResponse carries the consent redirect for the end user.
type InteractResponse struct {
	Redirect string `json:"redirect"`
	Finish   string `json:"finish,omitempty"`
}

// PaymentMetadata is free-form descriptive metadata attached to a resource.
type PaymentMetadata struct {
	Description string `json:"description,omitempty"`
}

// IncomingPaymentRequest creates an incoming payment on the receiver's
// resource server.
type IncomingPaymentRequest struct {
	WalletAddress  string           `json:"walletAddress"`
	IncomingAmount *Amount          `json:"incomingAmount,omitempty"`
	Metadata       *PaymentMetadata `json:"metadata,omitempty"`
}

// IncomingPayment is the created incoming-payment resource.
type IncomingPayment struct {
	ID             string           `json:"id"`
	WalletAddress  string           `json:"walletAddress"`
	IncomingAmount *Amount          `json:"incomingAmount,omitempty"`
	ReceivedAmount *Amount          `json:"receivedAmount,omitempty"`
	Completed      bool             `json:"completed"`
	Metadata       *PaymentMetadata `json:"metadata,omitempty"`
}

// QuoteRequest creates a quote on the sender's resource server.
type QuoteRequest struct {
	WalletAddress string  `json:"walletAddress"`
	Receiver      string  `json:"receiver"`
	Method        string  `json:"method"`
	ReceiveAmount *Amount `json:"receiveAmount,omitempty"`
}

// Quote is the negotiated debit/receive amount pair for one incoming
// payment.
type Quote struct {
	ID            string  `json:"id"`
	WalletAddress string  `json:"walletAddress"`
	Receiver      string  `json:"receiver"`
	Method        string  `json:"method"`
	DebitAmount   *Amount `json:"debitAmount"`
	ReceiveAmount *Amount `json:"receiveAmount"`
}

// OutgoingPaymentRequest creates an outgoing payment from a finalized quote.
type OutgoingPaymentRequest struct {
	WalletAddress string           `json:"walletAddress"`
	QuoteID       string           `json:"quoteId"`
	Metadata      *PaymentMetadata `json:"metadata,omitempty"`
}

// OutgoingPayment is the created outgoing-payment resource.
type OutgoingPayment struct {
	ID            string  `json:"id"`
	WalletAddress string  `json:"walletAddress"`
	QuoteID       string  `json:"quoteId"`
	Failed        bool    `json:"failed"`
	SentAmount    *Amount `json:"sentAmount,omitempty"`
}
