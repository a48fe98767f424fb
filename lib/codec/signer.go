package codec

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
)

// SignatureHeader carries the signature of a signed envelope body.
const SignatureHeader = "X-Fract-Signature"

var (
	ErrInvalidFormat    = errors.New("invalid signature format")
	ErrSignatureInvalid = errors.New("signature verification failed")
)

// Signer authenticates envelope bodies with HMAC-SHA256.
//
// Servers sign the encoded body and send the signature in SignatureHeader;
// clients configured with the same key refuse to apply bodies that do not
// verify.
type Signer struct {
	key []byte
}

// NewSigner creates a signer. Keys shorter than 32 bytes are stretched with
// SHA-256.
func NewSigner(key []byte) (*Signer, error) {
	if len(key) == 0 {
		return nil, errors.New("codec: empty signing key")
	}
	if len(key) < 32 {
		h := sha256.Sum256(key)
		key = h[:]
	}
	return &Signer{key: key}, nil
}

// Sign returns the base64url signature of data.
func (s *Signer) Sign(data []byte) string {
	mac := hmac.New(sha256.New, s.key)
	mac.Write(data)
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil)[:16]) // 16 bytes = 128 bits
}

// Verify checks sig against data.
func (s *Signer) Verify(data []byte, sig string) error {
	if sig == "" {
		return ErrInvalidFormat
	}
	got, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil {
		return ErrInvalidFormat
	}

	mac := hmac.New(sha256.New, s.key)
	mac.Write(data)
	expected := mac.Sum(nil)[:16]

	if !hmac.Equal(got, expected) {
		return ErrSignatureInvalid
	}
	return nil
}
