// Package sigkey implements the Ed25519 signing scheme the receivers
// verify: hex-encoded keys, and a signature over timestamp + nonce + URL
// path carried in the X-Timestamp, X-Nonce and X-Signature headers.
package sigkey

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"
)

// ErrInvalidKeyFormat is returned for key material that is not valid hex or
// has the wrong length.
var ErrInvalidKeyFormat = errors.New("invalid private key format")

// Generate produces a fresh Ed25519 key pair, hex encoded. It does not
// persist anything.
func Generate() (privateKeyHex, publicKeyHex string, err error) {
	publicKey, privateKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return "", "", err
	}
	return hex.EncodeToString(privateKey), hex.EncodeToString(publicKey), nil
}

// decodePrivate accepts either a 64-byte full private key or a 32-byte seed.
func decodePrivate(privateKeyHex string) (ed25519.PrivateKey, error) {
	keyBytes, err := hex.DecodeString(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKeyFormat, err)
	}
	switch len(keyBytes) {
	case ed25519.PrivateKeySize:
		return ed25519.PrivateKey(keyBytes), nil
	case ed25519.SeedSize:
		return ed25519.NewKeyFromSeed(keyBytes), nil
	default:
		return nil, fmt.Errorf("%w: key must be 64 or 128 hex characters", ErrInvalidKeyFormat)
	}
}

// PublicKeyFromPrivate derives the hex public key from a hex private key.
// Pure function, no side effects.
func PublicKeyFromPrivate(privateKeyHex string) (string, error) {
	privateKey, err := decodePrivate(privateKeyHex)
	if err != nil {
		return "", err
	}
	publicKey := privateKey.Public().(ed25519.PublicKey)
	return hex.EncodeToString(publicKey), nil
}

// Sign signs message with the hex private key and returns the hex signature.
func Sign(privateKeyHex, message string) (string, error) {
	privateKey, err := decodePrivate(privateKeyHex)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(ed25519.Sign(privateKey, []byte(message))), nil
}

// Verify reports whether signatureHex is a valid signature of message under
// the hex public key.
func Verify(publicKeyHex, message, signatureHex string) bool {
	publicKey, err := hex.DecodeString(publicKeyHex)
	if err != nil || len(publicKey) != ed25519.PublicKeySize {
		return false
	}
	signature, err := hex.DecodeString(signatureHex)
	if err != nil || len(signature) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(publicKey, []byte(message), signature)
}

// Headers is the set of signed request headers a receiver verifies.
type Headers struct {
	Timestamp string
	Nonce     string
	Signature string
}

// SignRequest builds the signed headers for a request to urlPath. The
// receiver recomputes timestamp + nonce + urlPath and verifies the
// signature against the configured public key.
func SignRequest(privateKeyHex, urlPath string) (*Headers, error) {
	timestamp := fmt.Sprintf("%d", time.Now().Unix())
	nonce, err := newNonce()
	if err != nil {
		return nil, fmt.Errorf("cannot generate nonce: %w", err)
	}

	signature, err := Sign(privateKeyHex, timestamp+nonce+urlPath)
	if err != nil {
		return nil, err
	}
	return &Headers{Timestamp: timestamp, Nonce: nonce, Signature: signature}, nil
}

func newNonce() (string, error) {
	b := make([]byte, 16)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
