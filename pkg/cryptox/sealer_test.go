package cryptox_test

import (
	"bytes"
	"encoding/base64"
	"testing"

	"github.com/hollandstar/sportteams/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func testKey() []byte {
	return bytes.Repeat([]byte{0x42}, cryptox.SealerKeySize)
}

func TestSealerRoundTrip(t *testing.T) {
	s, err := cryptox.NewSealer(testKey())
	require.NoError(t, err)
	require.True(t, s.Encrypting())

	payload := []byte("header.payload.signature")

	sealed, err := s.Seal(payload)
	require.NoError(t, err)
	require.NotContains(t, sealed, "header")

	opened, err := s.Open(sealed)
	require.NoError(t, err)
	require.Equal(t, payload, opened)
}

func TestSealerEnvelopeLayout(t *testing.T) {
	s, err := cryptox.NewSealer(testKey())
	require.NoError(t, err)

	payload := []byte("0123456789")
	sealed, err := s.Seal(payload)
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(sealed)
	require.NoError(t, err)
	require.Len(t, raw, cryptox.SealerIVSize+16+len(payload))
}

func TestSealerRandomIV(t *testing.T) {
	s, err := cryptox.NewSealer(testKey())
	require.NoError(t, err)

	a, err := s.Seal([]byte("same"))
	require.NoError(t, err)
	b, err := s.Seal([]byte("same"))
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestSealerRejectsTampering(t *testing.T) {
	s, err := cryptox.NewSealer(testKey())
	require.NoError(t, err)

	sealed, err := s.Seal([]byte("payload"))
	require.NoError(t, err)

	raw, _ := base64.StdEncoding.DecodeString(sealed)
	raw[len(raw)-1] ^= 0xff
	_, err = s.Open(base64.StdEncoding.EncodeToString(raw))
	require.ErrorIs(t, err, cryptox.ErrSealed)

	_, err = s.Open("not base64 !!")
	require.ErrorIs(t, err, cryptox.ErrSealed)

	_, err = s.Open(base64.StdEncoding.EncodeToString([]byte("short")))
	require.ErrorIs(t, err, cryptox.ErrSealed)
}

func TestSealerWrongKey(t *testing.T) {
	a, err := cryptox.NewSealer(testKey())
	require.NoError(t, err)
	b, err := cryptox.NewSealer(bytes.Repeat([]byte{0x01}, cryptox.SealerKeySize))
	require.NoError(t, err)

	sealed, err := a.Seal([]byte("payload"))
	require.NoError(t, err)

	_, err = b.Open(sealed)
	require.ErrorIs(t, err, cryptox.ErrSealed)
}

func TestSealerPlainMode(t *testing.T) {
	s, err := cryptox.NewSealer(nil)
	require.NoError(t, err)
	require.False(t, s.Encrypting())

	sealed, err := s.Seal([]byte("payload"))
	require.NoError(t, err)
	require.Equal(t, base64.StdEncoding.EncodeToString([]byte("payload")), sealed)

	opened, err := s.Open(sealed)
	require.NoError(t, err)
	require.Equal(t, []byte("payload"), opened)
}

func TestSealerKeySize(t *testing.T) {
	_, err := cryptox.NewSealer([]byte("too-short"))
	require.ErrorIs(t, err, cryptox.ErrSealerKeySize)
}
