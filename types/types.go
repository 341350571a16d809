package types

import (
	"time"
)

// Role identifies which side of a payment a participant is on.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleMerchant Role = "merchant"
)

func (r Role) String() string {
	return string(r)
}

// AccessType represents the kinds of scoped access a grant can carry.
type AccessType string

const (
	AccessIncomingPayment AccessType = "incoming-payment"
	AccessQuote           AccessType = "quote"
	AccessOutgoingPayment AccessType = "outgoing-payment"
)

// Interactive reports whether a grant of this access type requires a human
// consent step before it can be finalized.
func (a AccessType) Interactive() bool {
	return a == AccessOutgoingPayment
}

func (a AccessType) String() string {
	return string(a)
}

// GrantState tracks a grant through its lifecycle.
type GrantState string

const (
	GrantRequested          GrantState = "REQUESTED"
	GrantInteractivePending GrantState = "INTERACTIVE_PENDING"
	GrantContinued          GrantState = "CONTINUED"
	GrantFinalized          GrantState = "FINALIZED"
	GrantFailed             GrantState = "FAILED"
)

// SessionStatus tracks a payment session through the flow. Transitions are
// strictly forward; Settled and Failed are terminal.
type SessionStatus string

const (
	StatusIdentified      SessionStatus = "IDENTIFIED"
	StatusAuthorized      SessionStatus = "AUTHORIZED"
	StatusWalletsResolved SessionStatus = "WALLETS_RESOLVED"
	StatusIncomingCreated SessionStatus = "INCOMING_CREATED"
	StatusQuoted          SessionStatus = "QUOTED"
	StatusConsentPending  SessionStatus = "CONSENT_PENDING"
	StatusSettled         SessionStatus = "SETTLED"
	StatusFailed          SessionStatus = "FAILED"
)

// Account holds the fields shared by both participant kinds. Records are
// owned by the external directory and read-only once loaded for a session.
type Account struct {
	ID         string `json:"id"`
	Email      string `json:"email,omitempty"`
	Name       string `json:"name,omitempty"`
	WalletURL  string `json:"walletUrl"`
	KeyID      string `json:"keyId,omitempty"`
	PrivateKey string `json:"-"`
	SecretHash string `json:"-"`
}

// Identifier returns the lookup identity of the account.
func (a *Account) Identifier() string { return a.ID }

// WalletAddress returns the discoverable wallet address URL.
func (a *Account) WalletAddress() string { return a.WalletURL }

// ActiveKeyID returns the participant's active signing key reference.
func (a *Account) ActiveKeyID() string { return a.KeyID }

// ActiveKey returns the participant's signing key material, if stored.
func (a *Account) ActiveKey() string { return a.PrivateKey }

// StoredSecret returns the hashed authorization secret for the account.
func (a *Account) StoredSecret() string { return a.SecretHash }

// Participant is the common view of a customer or merchant record.
type Participant interface {
	Role() Role
	Identifier() string
	WalletAddress() string
	ActiveKeyID() string
	ActiveKey() string
	StoredSecret() string
}

// Customer is the paying party.
type Customer struct {
	Account
}

func (c *Customer) Role() Role { return RoleCustomer }

// Merchant is the receiving party.
type Merchant struct {
	Account
}

func (m *Merchant) Role() Role { return RoleMerchant }

// Credentials is the signing material resolved for one participant for one
// session. Never persisted by the orchestrator.
type Credentials struct {
	WalletURL  string
	KeyID      string
	PrivateKey string
}

// Charge describes what the customer is being asked to pay.
type Charge struct {
	// AmountMinorUnits is a non-negative base-10 integer string in the
	// asset's minor units.
	AmountMinorUnits string `json:"amountMinorUnits" validate:"required"`

	// AssetCode and AssetScale override the receiving wallet's published
	// defaults when present.
	AssetCode  string `json:"assetCode,omitempty"`
	AssetScale *int   `json:"assetScale,omitempty"`

	Description string `json:"description,omitempty"`
}

// Amount is a monetary value in minor units with its asset code and scale.
type Amount struct {
	Value      string `json:"value"`
	AssetCode  string `json:"assetCode"`
	AssetScale int    `json:"assetScale"`
}

// Wallet is the discovery document published at a wallet address URL.
type Wallet struct {
	ID             string `json:"id"`
	AssetCode      string `json:"assetCode"`
	AssetScale     int    `json:"assetScale"`
	AuthServer     string `json:"authServer"`
	ResourceServer string `json:"resourceServer"`
}

// Continuation is the URI/token pair used to resume an interactive grant
// after the human has completed consent.
type Continuation struct {
	URI         string `json:"uri"`
	AccessToken string `json:"accessToken"`
}

// Grant is a scoped authorization obtained from a counterparty's
// authorization server. No protected resource call may be made without a
// finalized grant's access token.
type Grant struct {
	AccessType       AccessType    `json:"accessType"`
	State            GrantState    `json:"state"`
	AccessToken      string        `json:"accessToken,omitempty"`
	Continuation     *Continuation `json:"continuation,omitempty"`
	InteractRedirect string        `json:"interactRedirect,omitempty"`
}

// PaymentSession aggregates everything one flow invocation has produced so
// far. Discarded after reaching a terminal status.
type PaymentSession struct {
	ID                string        `json:"id"`
	Customer          *Customer     `json:"-"`
	Merchant          *Merchant     `json:"-"`
	Charge            Charge        `json:"charge"`
	IncomingPaymentID string        `json:"incomingPaymentId,omitempty"`
	QuoteID           string        `json:"quoteId,omitempty"`
	OutgoingPaymentID string        `json:"outgoingPaymentId,omitempty"`
	Status            SessionStatus `json:"status"`
}

// Config contains global configuration for the openpay library.
type Config struct {
	// DefaultTimeout bounds each network call to a counterparty.
	DefaultTimeout time.Duration `json:"defaultTimeout,omitempty"`

	// EnvPrefix namespaces the role-named credential fallback variables,
	// e.g. OPENPAY_CUSTOMER_WALLET_ADDRESS.
	EnvPrefix string `json:"envPrefix,omitempty"`

	LogLevel      string `json:"logLevel,omitempty"`
	EnableMetrics bool   `json:"enableMetrics,omitempty"`
}
