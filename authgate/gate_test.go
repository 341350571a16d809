package authgate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/vitwit/openpay/types"
)

func TestVerifySecretArgon2(t *testing.T) {
	hash, err := HashSecret("1234")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(hash, "$argon2id$"))

	require.NoError(t, VerifySecret(hash, "1234"))

	err = VerifySecret(hash, "0000")
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.CodeAuthorization))
}

func TestVerifySecretBcrypt(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("1234"), bcrypt.MinCost)
	require.NoError(t, err)

	require.NoError(t, VerifySecret(string(hash), "1234"))

	err = VerifySecret(string(hash), "0000")
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.CodeAuthorization))
}

func TestVerifySecretLegacyPlaintext(t *testing.T) {
	require.NoError(t, VerifySecret("1234", "1234"))

	err := VerifySecret("1234", "12345")
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.CodeAuthorization))
}

func TestVerifySecretFailsClosed(t *testing.T) {
	for _, tc := range []struct{ stored, provided string }{
		{"", "1234"},
		{"1234", ""},
		{"", ""},
		{"$argon2id$garbage", "1234"},
		{"$2b$garbage", "1234"},
	} {
		err := VerifySecret(tc.stored, tc.provided)
		require.Error(t, err, "stored=%q provided=%q", tc.stored, tc.provided)
		assert.True(t, types.IsCode(err, types.CodeAuthorization))
	}
}

func TestHashSecretRequiresSecret(t *testing.T) {
	_, err := HashSecret("")
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.CodeValidation))
}

func TestHashSecretSalted(t *testing.T) {
	a, err := HashSecret("1234")
	require.NoError(t, err)
	b, err := HashSecret("1234")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
