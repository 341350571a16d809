package flow

import (
	"encoding/json"

	"github.com/vitwit/openpay/types"
)

// ContextVersion is the current serialization version of Context.
const ContextVersion = 1

// Context is the serializable state threaded between the three resumable
// stages of a payment flow. The calling layer owns persisting it across the
// interactive-consent wait; the orchestrator holds nothing in memory between
// stages. It deliberately carries no signing material and no secrets:
// credentials are re-resolved by every stage.
type Context struct {
	Version   int                 `json:"version"`
	SessionID string              `json:"sessionId"`
	Status    types.SessionStatus `json:"status"`

	CustomerID string       `json:"customerId"`
	MerchantID string       `json:"merchantId"`
	Charge     types.Charge `json:"charge"`

	Amount         *types.Amount `json:"amount,omitempty"`
	SenderWallet   *types.Wallet `json:"senderWallet,omitempty"`
	ReceiverWallet *types.Wallet `json:"receiverWallet,omitempty"`

	IncomingPaymentID string        `json:"incomingPaymentId,omitempty"`
	ReceiveAmount     *types.Amount `json:"receiveAmount,omitempty"`

	QuoteID     string        `json:"quoteId,omitempty"`
	DebitAmount *types.Amount `json:"debitAmount,omitempty"`

	InteractRedirect string              `json:"interactRedirect,omitempty"`
	Continuation     *types.Continuation `json:"continuation,omitempty"`

	OutgoingPaymentID string `json:"outgoingPaymentId,omitempty"`
}

// Encode serializes the context for persistence between stages.
func (c *Context) Encode() ([]byte, error) {
	return json.Marshal(c)
}

// DecodeContext deserializes a previously encoded context, rejecting
// unknown versions.
func DecodeContext(data []byte) (*Context, error) {
	var c Context
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, types.NewValidationError("invalid flow context: %v", err)
	}
	if c.Version != ContextVersion {
		return nil, types.NewValidationError("unsupported flow context version %d", c.Version)
	}
	return &c, nil
}

// session rebuilds the in-memory aggregate for one invocation from the
// serialized subset.
func (c *Context) session(customer *types.Customer, merchant *types.Merchant) *types.PaymentSession {
	return &types.PaymentSession{
		ID:                c.SessionID,
		Customer:          customer,
		Merchant:          merchant,
		Charge:            c.Charge,
		IncomingPaymentID: c.IncomingPaymentID,
		QuoteID:           c.QuoteID,
		OutgoingPaymentID: c.OutgoingPaymentID,
		Status:            c.Status,
	}
}

// requireStatus enforces the strictly forward stage ordering and the
// presence of every field the stage dereferences.
func (c *Context) requireStatus(want types.SessionStatus, stage string) error {
	if c.Version != ContextVersion {
		return types.NewValidationError("unsupported flow context version %d", c.Version)
	}
	if c.Status != want {
		return types.NewValidationError("stage %s requires status %s, context is %s", stage, want, c.Status)
	}
	return c.requireFields(stage)
}

// requireFields rejects a context missing a field its stage needs. Contexts
// are caller-persisted between stages, so a truncated or hand-built blob is
// an expected input, not a programming error.
func (c *Context) requireFields(stage string) error {
	switch stage {
	case "request-authorization":
		if c.SenderWallet == nil {
			return types.NewValidationError("stage %s requires a resolved sender wallet", stage)
		}
		if c.IncomingPaymentID == "" {
			return types.NewValidationError("stage %s requires an incoming payment id", stage)
		}
	case "finalize":
		if c.SenderWallet == nil {
			return types.NewValidationError("stage %s requires a resolved sender wallet", stage)
		}
		if c.QuoteID == "" {
			return types.NewValidationError("stage %s requires a quote id", stage)
		}
		if c.Continuation == nil || c.Continuation.URI == "" || c.Continuation.AccessToken == "" {
			return types.NewValidationError("stage %s requires a grant continuation", stage)
		}
	}
	return nil
}
