package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

const (
	// SealerKeySize is the AES-256 key length in bytes.
	SealerKeySize = 32
	// SealerIVSize is the GCM nonce length used for sealed tokens.
	SealerIVSize = 16

	gcmTagSize = 16
)

var (
	ErrSealerKeySize = errors.New("cryptox: sealer key must be 32 bytes")
	ErrSealed        = errors.New("cryptox: sealed payload is malformed")
)

// Sealer wraps signed tokens in AES-256-GCM. The wire format is
// base64(iv(16) || tag(16) || ciphertext).
//
// A Sealer without a key passes payloads through as plain base64. That mode
// exists for local development only; Encrypting reports which mode is active.
type Sealer struct {
	aead cipher.AEAD
}

// NewSealer builds a Sealer. A nil or empty key yields the plain base64 mode.
func NewSealer(key []byte) (*Sealer, error) {
	if len(key) == 0 {
		return &Sealer{}, nil
	}
	if len(key) != SealerKeySize {
		return nil, ErrSealerKeySize
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCMWithNonceSize(block, SealerIVSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return &Sealer{aead: aead}, nil
}

// Encrypting reports whether payloads are encrypted.
func (s *Sealer) Encrypting() bool { return s.aead != nil }

// Seal encrypts payload and returns the encoded envelope.
func (s *Sealer) Seal(payload []byte) (string, error) {
	if s.aead == nil {
		return base64.StdEncoding.EncodeToString(payload), nil
	}

	iv := make([]byte, SealerIVSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", fmt.Errorf("failed to generate iv: %w", err)
	}

	// Seal returns ciphertext||tag; the envelope carries the tag first.
	sealed := s.aead.Seal(nil, iv, payload, nil)
	ct, tag := sealed[:len(sealed)-gcmTagSize], sealed[len(sealed)-gcmTagSize:]

	out := make([]byte, 0, SealerIVSize+gcmTagSize+len(ct))
	out = append(out, iv...)
	out = append(out, tag...)
	out = append(out, ct...)
	return base64.StdEncoding.EncodeToString(out), nil
}

// Open reverses Seal.
func (s *Sealer) Open(envelope string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(envelope)
	if err != nil {
		return nil, ErrSealed
	}
	if s.aead == nil {
		return raw, nil
	}
	if len(raw) < SealerIVSize+gcmTagSize {
		return nil, ErrSealed
	}

	iv := raw[:SealerIVSize]
	tag := raw[SealerIVSize : SealerIVSize+gcmTagSize]
	ct := raw[SealerIVSize+gcmTagSize:]

	buf := make([]byte, 0, len(ct)+gcmTagSize)
	buf = append(buf, ct...)
	buf = append(buf, tag...)

	plain, err := s.aead.Open(nil, iv, buf, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSealed, err)
	}
	return plain, nil
}
