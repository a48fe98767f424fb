package codec

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSigner(t *testing.T) {
	_, err := NewSigner(nil)
	assert.Error(t, err)

	short, err := NewSigner([]byte("short"))
	require.NoError(t, err)
	assert.Len(t, short.key, 32, "short keys are stretched")

	long := bytes.Repeat([]byte{7}, 48)
	s, err := NewSigner(long)
	require.NoError(t, err)
	assert.Equal(t, long, s.key)
}

func TestSignVerify(t *testing.T) {
	s, err := NewSigner([]byte("test-key-for-signing"))
	require.NoError(t, err)
	body := []byte(`{"components":{"cart":"<div>3</div>"}}`)

	sig := s.Sign(body)
	assert.NotEmpty(t, sig)
	assert.NotContains(t, sig, "=", "signature should be unpadded base64url")
	assert.Equal(t, sig, s.Sign(body), "signing is deterministic")
	assert.NoError(t, s.Verify(body, sig))
}

func TestVerifyFailures(t *testing.T) {
	s, err := NewSigner([]byte("test-key-for-signing"))
	require.NoError(t, err)
	other, err := NewSigner([]byte("another-key"))
	require.NoError(t, err)

	body := []byte(`{"redirect":"/home"}`)
	sig := s.Sign(body)

	tests := []struct {
		name string
		data []byte
		sig  string
		want error
	}{
		{"tampered body", []byte(`{"redirect":"/evil"}`), sig, ErrSignatureInvalid},
		{"missing signature", body, "", ErrInvalidFormat},
		{"not base64", body, "!!!not-base64!!!", ErrInvalidFormat},
		{"other key", body, other.Sign(body), ErrSignatureInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, s.Verify(tt.data, tt.sig), tt.want)
		})
	}
}
