package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/vitwit/openpay/types"
)

const tokenScheme = "GNAP"

// apiClient is the shared JSON-over-HTTP transport for counterparty calls.
// Every call carries a bounded per-call deadline.
type apiClient struct {
	http    *http.Client
	timeout time.Duration
	signer  *requestSigner
}

func newAPIClient(httpClient *http.Client, timeout time.Duration, signer *requestSigner) *apiClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &apiClient{http: httpClient, timeout: timeout, signer: signer}
}

// getJSON issues an unauthenticated GET and decodes the response into out.
func (c *apiClient) getJSON(ctx context.Context, url string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return types.NewValidationError("invalid url %q: %v", url, err)
	}
	req.Header.Set("Accept", "application/json")

	return c.do(req, out)
}

// postJSON issues a POST with a JSON body. A non-empty token is attached as
// a GNAP authorization header, and the request is signed when a signer is
// configured.
func (c *apiClient) postJSON(ctx context.Context, url, token string, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	payload, err := json.Marshal(body)
	if err != nil {
		return types.NewValidationError("failed to encode request body: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return types.NewValidationError("invalid url %q: %v", url, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", tokenScheme+" "+token)
	}
	if c.signer != nil {
		if err := c.signer.sign(req); err != nil {
			return err
		}
	}

	return c.do(req, out)
}

func (c *apiClient) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return types.NewProtocolError(err, "request to %s failed: %v", req.URL, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return types.NewProtocolError(err, "failed to read response from %s: %v", req.URL, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return upstreamError(req.URL.String(), resp.StatusCode, data)
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return types.NewProtocolError(err, "invalid response from %s: %v", req.URL, err)
		}
	}
	return nil
}

// upstreamError maps a non-2xx counterparty response into a protocol error
// preserving the upstream status, code and description.
func upstreamError(url string, status int, body []byte) error {
	var payload struct {
		Error struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(body, &payload)

	description := payload.Error.Description
	if description == "" {
		description = payload.Message
	}

	perr := types.NewProtocolError(nil, "upstream %s responded %d: %s", url, status, description)
	perr.Upstream = &types.Upstream{
		Status:      status,
		Code:        payload.Error.Code,
		Description: description,
	}
	return perr
}

// statusOf extracts the upstream HTTP status from a domain error, or 0.
func statusOf(err error) int {
	if e, ok := types.AsError(err); ok && e.Upstream != nil {
		return e.Upstream.Status
	}
	return 0
}
