// Package signature checks Ed25519 signatures produced by wallets whose public
// keys and signatures travel as base-58 text.
package signature

import (
	"crypto/ed25519"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

var (
	// ErrMalformedKey indicates the public key is not valid base-58 or has the wrong length.
	ErrMalformedKey = errors.New("malformed public key")
	// ErrMalformedSignature indicates the signature is not valid base-58 or has the wrong length.
	ErrMalformedSignature = errors.New("malformed signature")
)

// Verifier validates a signature over a message for a claimed public key.
type Verifier interface {
	Verify(publicKey, message, signature string) (bool, error)
}

// Ed25519 verifies base-58 encoded Ed25519 keys and signatures.
type Ed25519 struct{}

// Verify returns false, nil for a well-formed but invalid signature and an
// error only when an encoding is malformed.
func (Ed25519) Verify(publicKey, message, signature string) (bool, error) {
	key, err := base58.Decode(publicKey)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrMalformedKey, err)
	}
	if len(key) != ed25519.PublicKeySize {
		return false, fmt.Errorf("%w: got %d bytes", ErrMalformedKey, len(key))
	}

	sig, err := base58.Decode(signature)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrMalformedSignature, err)
	}
	if len(sig) != ed25519.SignatureSize {
		return false, fmt.Errorf("%w: got %d bytes", ErrMalformedSignature, len(sig))
	}

	return ed25519.Verify(ed25519.PublicKey(key), []byte(message), sig), nil
}

// Sign is the client-side counterpart of Verify: it signs message with priv
// and returns the base-58 signature. Used by tooling and tests.
func Sign(priv ed25519.PrivateKey, message string) string {
	return base58.Encode(ed25519.Sign(priv, []byte(message)))
}

// EncodePublicKey renders pub as a base-58 wallet address.
func EncodePublicKey(pub ed25519.PublicKey) string {
	return base58.Encode(pub)
}
