package clients

import (
	"crypto/ed25519"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"net/http"
	"time"

	"github.com/vitwit/openpay/types"
)

// requestSigner attaches HTTP message signatures derived from a
// participant's Ed25519 key, so counterparty servers can bind requests to
// the wallet's registered key id.
type requestSigner struct {
	keyID string
	key   ed25519.PrivateKey
}

func newRequestSigner(creds *types.Credentials) (*requestSigner, error) {
	key, err := parseEd25519Key(creds.PrivateKey)
	if err != nil {
		return nil, err
	}
	return &requestSigner{keyID: creds.KeyID, key: key}, nil
}

func (s *requestSigner) sign(req *http.Request) error {
	created := time.Now().Unix()
	params := fmt.Sprintf(`("@method" "@target-uri");created=%d;keyid=%q;alg="ed25519"`, created, s.keyID)
	base := fmt.Sprintf("\"@method\": %s\n\"@target-uri\": %s\n\"@signature-params\": %s",
		req.Method, req.URL.String(), params)

	sig := ed25519.Sign(s.key, []byte(base))

	req.Header.Set("Signature-Input", "sig1="+params)
	req.Header.Set("Signature", "sig1=:"+base64.StdEncoding.EncodeToString(sig)+":")
	return nil
}

// parseEd25519Key accepts PKCS#8 PEM, or base64 of either a 32-byte seed or
// a 64-byte expanded private key.
func parseEd25519Key(material string) (ed25519.PrivateKey, error) {
	if material == "" {
		return nil, types.NewUnprocessableError("private key is empty")
	}

	if block, _ := pem.Decode([]byte(material)); block != nil {
		parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if err != nil {
			return nil, types.NewUnprocessableError("%s: %v", ErrInvalidPrivateKey, err)
		}
		key, ok := parsed.(ed25519.PrivateKey)
		if !ok {
			return nil, types.NewUnprocessableError("%s: not an ed25519 key", ErrInvalidPrivateKey)
		}
		return key, nil
	}

	raw, err := base64.StdEncoding.DecodeString(material)
	if err != nil {
		return nil, types.NewUnprocessableError("%s: %v", ErrInvalidPrivateKey, err)
	}
	switch len(raw) {
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(raw), nil
	case ed25519.PrivateKeySize:
		return ed25519.PrivateKey(raw), nil
	default:
		return nil, types.NewUnprocessableError("%s: unexpected key length %d", ErrInvalidPrivateKey, len(raw))
	}
}
