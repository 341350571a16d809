// Package credentials resolves per-participant signing material through an
// ordered fallback chain: the participant record first, then role-named
// environment variables, then a role-named key file. The chain is read-only;
// nothing here mutates the record or the environment.
package credentials

import (
	"os"
	"strings"

	"github.com/vitwit/openpay/types"
)

// DefaultEnvPrefix namespaces the fallback environment variables.
const DefaultEnvPrefix = "OPENPAY"

// Provider yields whatever subset of the credentials it knows for a role.
// A nil result with nil error means the provider has nothing for that role.
type Provider interface {
	Name() string
	Resolve(role types.Role) (*types.Credentials, error)
}

// Resolver tries providers in order, letting later providers fill fields
// earlier ones left empty.
type Resolver struct {
	providers []Provider
}

// NewResolver creates a resolver over the given provider chain.
func NewResolver(providers ...Provider) *Resolver {
	return &Resolver{providers: providers}
}

// ForParticipant builds the standard chain for one participant: stored
// record, then environment, then key file. An empty prefix falls back to
// DefaultEnvPrefix.
func ForParticipant(p types.Participant, envPrefix string) *Resolver {
	if envPrefix == "" {
		envPrefix = DefaultEnvPrefix
	}
	return NewResolver(
		&RecordProvider{Participant: p},
		&EnvProvider{Prefix: envPrefix},
		&FileProvider{Prefix: envPrefix},
	)
}

// Resolve returns the fully resolved credentials for the role, or an
// unprocessable error naming the first missing field.
func (r *Resolver) Resolve(role types.Role) (*types.Credentials, error) {
	merged := &types.Credentials{}

	for _, p := range r.providers {
		partial, err := p.Resolve(role)
		if err != nil {
			return nil, err
		}
		if partial == nil {
			continue
		}
		if merged.WalletURL == "" {
			merged.WalletURL = partial.WalletURL
		}
		if merged.KeyID == "" {
			merged.KeyID = partial.KeyID
		}
		if merged.PrivateKey == "" {
			merged.PrivateKey = partial.PrivateKey
		}
		if merged.WalletURL != "" && merged.KeyID != "" && merged.PrivateKey != "" {
			return merged, nil
		}
	}

	switch {
	case merged.WalletURL == "":
		return nil, types.NewUnprocessableError("missing wallet address for role %s", role)
	case merged.KeyID == "":
		return nil, types.NewUnprocessableError("missing key id for role %s", role)
	default:
		return nil, types.NewUnprocessableError("missing private key for role %s", role)
	}
}

// RecordProvider reads the active key bound to the participant record.
type RecordProvider struct {
	Participant types.Participant
}

func (p *RecordProvider) Name() string { return "record" }

func (p *RecordProvider) Resolve(role types.Role) (*types.Credentials, error) {
	if p.Participant == nil || p.Participant.Role() != role {
		return nil, nil
	}
	return &types.Credentials{
		WalletURL:  p.Participant.WalletAddress(),
		KeyID:      p.Participant.ActiveKeyID(),
		PrivateKey: p.Participant.ActiveKey(),
	}, nil
}

// EnvProvider reads role-named configuration values, e.g.
// OPENPAY_CUSTOMER_WALLET_ADDRESS, OPENPAY_CUSTOMER_KEY_ID and
// OPENPAY_CUSTOMER_PRIVATE_KEY.
type EnvProvider struct {
	Prefix string
}

func (p *EnvProvider) Name() string { return "env" }

func (p *EnvProvider) Resolve(role types.Role) (*types.Credentials, error) {
	creds := &types.Credentials{
		WalletURL:  os.Getenv(p.key(role, "WALLET_ADDRESS")),
		KeyID:      os.Getenv(p.key(role, "KEY_ID")),
		PrivateKey: os.Getenv(p.key(role, "PRIVATE_KEY")),
	}
	if creds.WalletURL == "" && creds.KeyID == "" && creds.PrivateKey == "" {
		return nil, nil
	}
	return creds, nil
}

func (p *EnvProvider) key(role types.Role, field string) string {
	return p.Prefix + "_" + strings.ToUpper(string(role)) + "_" + field
}

// FileProvider reads the private key from the file referenced by a
// role-named path value, e.g. OPENPAY_CUSTOMER_PRIVATE_KEY_PATH.
type FileProvider struct {
	Prefix string
}

func (p *FileProvider) Name() string { return "file" }

func (p *FileProvider) Resolve(role types.Role) (*types.Credentials, error) {
	path := os.Getenv(p.Prefix + "_" + strings.ToUpper(string(role)) + "_PRIVATE_KEY_PATH")
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, types.NewUnprocessableError("failed to read private key file for role %s: %v", role, err)
	}
	return &types.Credentials{PrivateKey: strings.TrimSpace(string(data))}, nil
}
