package directory

import (
	"context"
	"sync"

	"github.com/vitwit/openpay/types"
)

// MemoryDirectory is an in-memory Directory used by tests, examples and
// local development.
type MemoryDirectory struct {
	mu        sync.RWMutex
	customers map[string]*types.Customer
	merchants map[string]*types.Merchant
}

// NewMemoryDirectory creates an empty in-memory directory.
func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		customers: make(map[string]*types.Customer),
		merchants: make(map[string]*types.Merchant),
	}
}

// AddCustomer seeds a customer record.
func (d *MemoryDirectory) AddCustomer(c *types.Customer) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.customers[c.ID] = c
}

// AddMerchant seeds a merchant record.
func (d *MemoryDirectory) AddMerchant(m *types.Merchant) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.merchants[m.ID] = m
}

func (d *MemoryDirectory) FindCustomer(_ context.Context, id string) (*types.Customer, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	c, ok := d.customers[id]
	if !ok {
		return nil, types.NewNotFoundError("customer %s not found", id)
	}
	return c, nil
}

func (d *MemoryDirectory) FindMerchant(_ context.Context, id string) (*types.Merchant, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	m, ok := d.merchants[id]
	if !ok {
		return nil, types.NewNotFoundError("merchant %s not found", id)
	}
	return m, nil
}
