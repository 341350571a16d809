package clients

import (
	"context"
	"net/http"
	"time"

	"github.com/vitwit/openpay/types"
)

// WalletClient fetches the discovery document published at a wallet address
// URL. Discovery is public, so requests are unauthenticated.
type WalletClient struct {
	api *apiClient
}

// NewWalletClient creates a wallet discovery client.
func NewWalletClient(httpClient *http.Client, timeout time.Duration) *WalletClient {
	return &WalletClient{api: newAPIClient(httpClient, timeout, nil)}
}

// GetWallet resolves a wallet address URL into its asset and server
// endpoints.
func (c *WalletClient) GetWallet(ctx context.Context, walletURL string) (*types.Wallet, error) {
	if walletURL == "" {
		return nil, types.NewValidationError("wallet address is required")
	}

	var wallet types.Wallet
	if err := c.api.getJSON(ctx, walletURL, &wallet); err != nil {
		return nil, err
	}

	if wallet.AuthServer == "" || wallet.ResourceServer == "" {
		perr := types.NewProtocolError(nil, "%s: wallet %s has no auth/resource server", ErrWalletInvalidRecord, walletURL)
		return nil, perr
	}
	return &wallet, nil
}
