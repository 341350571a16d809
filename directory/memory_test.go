package directory

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitwit/openpay/types"
)

func TestMemoryDirectoryLookup(t *testing.T) {
	dir := NewMemoryDirectory()
	dir.AddCustomer(&types.Customer{Account: types.Account{ID: "alice@example.com"}})
	dir.AddMerchant(&types.Merchant{Account: types.Account{ID: "store@example.com"}})

	ctx := context.Background()

	c, err := dir.FindCustomer(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, types.RoleCustomer, c.Role())

	m, err := dir.FindMerchant(ctx, "store@example.com")
	require.NoError(t, err)
	assert.Equal(t, types.RoleMerchant, m.Role())
}

func TestMemoryDirectoryMissNamesParty(t *testing.T) {
	dir := NewMemoryDirectory()

	_, err := dir.FindMerchant(context.Background(), "ghost@example.com")
	require.Error(t, err)

	e, ok := types.AsError(err)
	require.True(t, ok)
	assert.Equal(t, types.CodeNotFound, e.Code)
	assert.Equal(t, http.StatusNotFound, e.Status)
	assert.Contains(t, e.Message, "merchant")
}
