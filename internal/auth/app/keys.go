package app

import (
	"encoding/base64"
	"fmt"
	"log/slog"

	"github.com/hollandstar/sportteams/pkg/cryptox"
	"github.com/hollandstar/sportteams/pkg/jwtx"
)

// Keys is the decoded key material of the service.
type Keys struct {
	Signing    []byte
	Encryption []byte // nil disables token encryption
}

// LoadKeys decodes the configured keys.
//
// Outside prod a missing signing key is replaced by a random one, so every
// restart invalidates issued tokens, and a missing encryption key leaves
// tokens signed but not encrypted. In prod both are required.
func LoadKeys(cfg Config, logger *slog.Logger) (Keys, error) {
	var keys Keys

	switch {
	case cfg.SigningKey != "":
		k, err := decodeKey(cfg.SigningKey)
		if err != nil {
			return Keys{}, fmt.Errorf("%w: AUTH_SIGNING_KEY: %w", ErrConfiguration, err)
		}
		if len(k) < jwtx.MinKeySize {
			return Keys{}, fmt.Errorf("%w: AUTH_SIGNING_KEY: %w", ErrConfiguration, jwtx.ErrWeakKey)
		}
		keys.Signing = k
	case cfg.IsProd():
		return Keys{}, fmt.Errorf("%w: AUTH_SIGNING_KEY is required in prod", ErrConfiguration)
	default:
		keys.Signing = []byte(cryptox.MustGenerateToken(cryptox.TokenSize256))
		logger.Warn("no signing key configured, generated an ephemeral one; tokens will not survive a restart")
	}

	switch {
	case cfg.EncryptionKey != "":
		k, err := decodeKey(cfg.EncryptionKey)
		if err != nil {
			return Keys{}, fmt.Errorf("%w: AUTH_ENCRYPTION_KEY: %w", ErrConfiguration, err)
		}
		if len(k) != cryptox.SealerKeySize {
			return Keys{}, fmt.Errorf("%w: AUTH_ENCRYPTION_KEY: %w", ErrConfiguration, cryptox.ErrSealerKeySize)
		}
		keys.Encryption = k
	case cfg.IsProd():
		return Keys{}, fmt.Errorf("%w: AUTH_ENCRYPTION_KEY is required in prod", ErrConfiguration)
	default:
		logger.Warn("token encryption disabled")
	}

	return keys, nil
}

func decodeKey(s string) ([]byte, error) {
	if k, err := base64.StdEncoding.DecodeString(s); err == nil {
		return k, nil
	}
	return base64.RawURLEncoding.DecodeString(s)
}
