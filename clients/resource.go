package clients

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/vitwit/openpay/types"
)

// QuoteMethod is the fixed settlement method tag used when creating quotes.
const QuoteMethod = "ilp"

// ResourceClient creates payment resources on a counterparty's resource
// server. Every call must be authenticated with the access token of a
// finalized grant matching the resource kind.
type ResourceClient struct {
	api *apiClient
}

// NewResourceClient builds a participant-authenticated resource client.
func NewResourceClient(creds *types.Credentials, httpClient *http.Client, timeout time.Duration) (*ResourceClient, error) {
	signer, err := newRequestSigner(creds)
	if err != nil {
		return nil, err
	}
	return &ResourceClient{api: newAPIClient(httpClient, timeout, signer)}, nil
}

// CreateIncomingPayment creates an incoming payment on the receiver's
// resource server.
func (c *ResourceClient) CreateIncomingPayment(ctx context.Context, resourceServer, token string, req *types.IncomingPaymentRequest) (*types.IncomingPayment, error) {
	if token == "" {
		return nil, types.NewValidationError("incoming-payment grant token is required")
	}

	var out types.IncomingPayment
	if err := c.api.postJSON(ctx, endpoint(resourceServer, "incoming-payments"), token, req, &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, types.NewProtocolError(nil, "%s: resource server returned no id", ErrIncomingCreateFailed)
	}
	return &out, nil
}

// CreateQuote creates a quote referencing an incoming payment on the
// sender's resource server.
func (c *ResourceClient) CreateQuote(ctx context.Context, resourceServer, token string, req *types.QuoteRequest) (*types.Quote, error) {
	if token == "" {
		return nil, types.NewValidationError("quote grant token is required")
	}

	var out types.Quote
	if err := c.api.postJSON(ctx, endpoint(resourceServer, "quotes"), token, req, &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, types.NewProtocolError(nil, "%s: resource server returned no id", ErrQuoteCreateFailed)
	}
	return &out, nil
}

// CreateOutgoingPayment creates an outgoing payment from a finalized quote
// on the sender's resource server.
func (c *ResourceClient) CreateOutgoingPayment(ctx context.Context, resourceServer, token string, req *types.OutgoingPaymentRequest) (*types.OutgoingPayment, error) {
	if token == "" {
		return nil, types.NewValidationError("outgoing-payment grant token is required")
	}

	var out types.OutgoingPayment
	if err := c.api.postJSON(ctx, endpoint(resourceServer, "outgoing-payments"), token, req, &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, types.NewProtocolError(nil, "%s: resource server returned no id", ErrOutgoingCreateFailed)
	}
	return &out, nil
}

func endpoint(resourceServer, path string) string {
	return strings.TrimRight(resourceServer, "/") + "/" + path
}
