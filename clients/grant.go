package clients

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/vitwit/openpay/types"
)

// Actions requested per access kind.
var grantActions = map[types.AccessType][]string{
	types.AccessIncomingPayment: {"create", "read"},
	types.AccessQuote:           {"create", "read"},
	types.AccessOutgoingPayment: {"create", "read", "list"},
}

// GrantClient negotiates grants against a counterparty's authorization
// server on behalf of one participant. Requests are signed with the
// participant's resolved key.
type GrantClient struct {
	api   *apiClient
	creds *types.Credentials
}

// NewGrantClient builds a participant-authenticated grant client. Fails if
// the resolved key material cannot be parsed.
func NewGrantClient(creds *types.Credentials, httpClient *http.Client, timeout time.Duration) (*GrantClient, error) {
	signer, err := newRequestSigner(creds)
	if err != nil {
		return nil, err
	}
	return &GrantClient{
		api:   newAPIClient(httpClient, timeout, signer),
		creds: creds,
	}, nil
}

// RequestGrant requests a grant for one access item. Non-interactive access
// kinds must come back finalized with a non-empty token; interactive kinds
// come back pending with a consent redirect and a continuation handle.
func (c *GrantClient) RequestGrant(ctx context.Context, authServer string, access types.AccessItem, interactive bool) (*types.Grant, error) {
	body := types.GrantRequest{
		AccessToken: types.AccessTokenRequest{Access: []types.AccessItem{access}},
		Client:      c.creds.WalletURL,
	}
	if len(access.Actions) == 0 {
		body.AccessToken.Access[0].Actions = grantActions[access.Type]
	}
	if interactive {
		body.Interact = &types.InteractRequest{
			Start:  []string{"redirect"},
			Finish: &types.InteractFinish{Method: "redirect", Nonce: uuid.NewString()},
		}
	}

	var resp types.GrantResponse
	if err := c.api.postJSON(ctx, authServer, "", body, &resp); err != nil {
		return nil, err
	}

	if interactive {
		return pendingGrantFrom(access.Type, &resp)
	}
	return finalizedGrantFrom(access.Type, &resp)
}

// ContinueGrant resumes a previously interactive grant using its
// continuation handle. Returns the finalized grant once the human has
// completed consent; until then, and for lapsed grants, it fails with a
// caller-retryable not-finalized error.
func (c *GrantClient) ContinueGrant(ctx context.Context, cont types.Continuation) (*types.Grant, error) {
	if cont.URI == "" || cont.AccessToken == "" {
		return nil, types.NewValidationError("grant continuation requires a uri and token")
	}

	var resp types.GrantResponse
	if err := c.api.postJSON(ctx, cont.URI, cont.AccessToken, struct{}{}, &resp); err != nil {
		// An expired or revoked continuation is rejected upstream with an
		// auth-class status; per the grant lifetime rules that is still
		// "not finalized" to the caller.
		switch statusOf(err) {
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusGone:
			return nil, types.NewGrantNotFinalizedError("%s: grant lapsed or consent not granted", ErrGrantContinuePending)
		}
		return nil, err
	}

	if resp.AccessToken == nil || resp.AccessToken.Value == "" {
		return nil, types.NewGrantNotFinalizedError("%s: consent still pending", ErrGrantContinuePending)
	}

	return &types.Grant{
		AccessType:  types.AccessOutgoingPayment,
		State:       types.GrantFinalized,
		AccessToken: resp.AccessToken.Value,
	}, nil
}

func finalizedGrantFrom(accessType types.AccessType, resp *types.GrantResponse) (*types.Grant, error) {
	if resp.AccessToken == nil || resp.AccessToken.Value == "" {
		return nil, types.NewProtocolError(nil, "%s: no access token for %s grant", ErrGrantMissingToken, accessType)
	}
	return &types.Grant{
		AccessType:  accessType,
		State:       types.GrantFinalized,
		AccessToken: resp.AccessToken.Value,
	}, nil
}

func pendingGrantFrom(accessType types.AccessType, resp *types.GrantResponse) (*types.Grant, error) {
	if resp.Interact == nil || resp.Interact.Redirect == "" {
		return nil, types.NewProtocolError(nil, "%s: no redirect for interactive %s grant", ErrGrantMissingInteract, accessType)
	}
	if resp.Continue == nil || resp.Continue.URI == "" || resp.Continue.AccessToken.Value == "" {
		return nil, types.NewProtocolError(nil, "%s: no continuation for interactive %s grant", ErrGrantMissingContinue, accessType)
	}
	return &types.Grant{
		AccessType:       accessType,
		State:            types.GrantInteractivePending,
		InteractRedirect: resp.Interact.Redirect,
		Continuation: &types.Continuation{
			URI:         resp.Continue.URI,
			AccessToken: resp.Continue.AccessToken.Value,
		},
	}, nil
}
