// Package authgate verifies a submitted secret (PIN) against a stored hash,
// auto-detecting the hashing scheme from the stored value's prefix.
package authgate

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"

	"github.com/vitwit/openpay/types"
)

const argon2Prefix = "$argon2id$"

// Default argon2id parameters used when hashing new secrets.
const (
	argon2Memory  = 64 * 1024
	argon2Time    = 3
	argon2Threads = 2
	argon2KeyLen  = 32
	argon2SaltLen = 16
)

// VerifySecret checks provided against storedValue. An argon2id-encoded
// stored value verifies with argon2id, a bcrypt-encoded one with bcrypt, and
// anything else is treated as a legacy plaintext secret compared in constant
// time. Fails closed: an empty stored or provided secret, or any mismatch,
// yields an authorization error.
func VerifySecret(storedValue, provided string) error {
	if storedValue == "" || provided == "" {
		return types.NewAuthorizationError("invalid secret")
	}

	switch {
	case strings.HasPrefix(storedValue, argon2Prefix):
		return verifyArgon2id(storedValue, provided)
	case strings.HasPrefix(storedValue, "$2a$"),
		strings.HasPrefix(storedValue, "$2b$"),
		strings.HasPrefix(storedValue, "$2y$"):
		if err := bcrypt.CompareHashAndPassword([]byte(storedValue), []byte(provided)); err != nil {
			return types.NewAuthorizationError("invalid secret")
		}
		return nil
	default:
		// Legacy records store the secret in the clear.
		if subtle.ConstantTimeCompare([]byte(storedValue), []byte(provided)) != 1 {
			return types.NewAuthorizationError("invalid secret")
		}
		return nil
	}
}

// HashSecret produces an encoded argon2id hash suitable for storage. New
// enrollments always use the memory-hard scheme.
func HashSecret(secret string) (string, error) {
	if secret == "" {
		return "", types.NewValidationError("secret is required")
	}

	salt := make([]byte, argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	key := argon2.IDKey([]byte(secret), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)

	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		argon2Memory, argon2Time, argon2Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	)
	return encoded, nil
}

func verifyArgon2id(encoded, provided string) error {
	params := strings.Split(encoded, "$")
	// "", "argon2id", "v=19", "m=...,t=...,p=...", salt, hash
	if len(params) != 6 {
		return types.NewAuthorizationError("invalid secret")
	}

	var version int
	if _, err := fmt.Sscanf(params[2], "v=%d", &version); err != nil || version != argon2.Version {
		return types.NewAuthorizationError("invalid secret")
	}

	var memory, iterations uint32
	var threads uint8
	if _, err := fmt.Sscanf(params[3], "m=%d,t=%d,p=%d", &memory, &iterations, &threads); err != nil {
		return types.NewAuthorizationError("invalid secret")
	}

	salt, err := base64.RawStdEncoding.DecodeString(params[4])
	if err != nil {
		return types.NewAuthorizationError("invalid secret")
	}
	want, err := base64.RawStdEncoding.DecodeString(params[5])
	if err != nil {
		return types.NewAuthorizationError("invalid secret")
	}

	got := argon2.IDKey([]byte(provided), salt, iterations, memory, threads, uint32(len(want)))
	if subtle.ConstantTimeCompare(got, want) != 1 {
		return types.NewAuthorizationError("invalid secret")
	}
	return nil
}
