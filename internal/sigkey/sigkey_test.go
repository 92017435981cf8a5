package sigkey

import (
	"crypto/ed25519"
	"encoding/hex"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerate_DerivesMatchingPublicKey(t *testing.T) {
	priv, pub, err := Generate()
	require.NoError(t, err)

	derived, err := PublicKeyFromPrivate(priv)
	require.NoError(t, err)
	require.Equal(t, pub, derived)
}

func TestPublicKeyFromPrivate_SeedAndFullKeyAgree(t *testing.T) {
	priv, pub, err := Generate()
	require.NoError(t, err)

	// The first 32 bytes of an Ed25519 private key are the seed.
	seed := priv[:ed25519.SeedSize*2]
	fromSeed, err := PublicKeyFromPrivate(seed)
	require.NoError(t, err)
	require.Equal(t, pub, fromSeed)
}

func TestPublicKeyFromPrivate_RejectsMalformedInput(t *testing.T) {
	tests := []struct {
		name string
		key  string
	}{
		{"not hex", "zz" + strings.Repeat("ab", 31)},
		{"too short", "abcd"},
		{"wrong length", strings.Repeat("ab", 48)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := PublicKeyFromPrivate(tt.key)
			require.ErrorIs(t, err, ErrInvalidKeyFormat)
		})
	}
}

func TestSignVerify_RoundTrip(t *testing.T) {
	priv, pub, err := Generate()
	require.NoError(t, err)

	sig, err := Sign(priv, "hello")
	require.NoError(t, err)
	require.True(t, Verify(pub, "hello", sig))
	require.False(t, Verify(pub, "tampered", sig))
}

func TestVerify_RejectsGarbage(t *testing.T) {
	_, pub, err := Generate()
	require.NoError(t, err)

	require.False(t, Verify("nothex", "msg", "nothex"))
	require.False(t, Verify(pub, "msg", hex.EncodeToString(make([]byte, 10))))
}

func TestSignRequest_HeadersVerifyAgainstURLPath(t *testing.T) {
	priv, pub, err := Generate()
	require.NoError(t, err)

	urlPath := "/upload/web/app.zip"
	hdr, err := SignRequest(priv, urlPath)
	require.NoError(t, err)
	require.NotEmpty(t, hdr.Timestamp)
	require.Len(t, hdr.Nonce, 32)

	// The receiver recomputes exactly this message.
	require.True(t, Verify(pub, hdr.Timestamp+hdr.Nonce+urlPath, hdr.Signature))
}

func TestSignRequest_InvalidKey(t *testing.T) {
	_, err := SignRequest("bogus", "/upload/web/app.zip")
	require.ErrorIs(t, err, ErrInvalidKeyFormat)
}
