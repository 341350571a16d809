// Package directory is the boundary to the external participant store. The
// orchestrator only ever reads from it.
package directory

import (
	"context"

	"github.com/vitwit/openpay/types"
)

// Directory looks up participant records by identifier. Implementations
// must be safe for concurrent reads; misses are reported as not-found
// errors naming the party.
type Directory interface {
	FindCustomer(ctx context.Context, id string) (*types.Customer, error)
	FindMerchant(ctx context.Context, id string) (*types.Merchant, error)
}
