package signature

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"testing"

	"github.com/mr-tron/base58"
)

func newKey(t *testing.T) (string, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return EncodePublicKey(pub), priv
}

func TestVerifyValidSignature(t *testing.T) {
	addr, priv := newKey(t)
	msg := "Nonce: n\nAddress: " + addr

	ok, err := Ed25519{}.Verify(addr, msg, Sign(priv, msg))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !ok {
		t.Fatal("expected signature to verify")
	}
}

func TestVerifyRejectsOtherKeyAndTamperedMessage(t *testing.T) {
	addr, priv := newKey(t)
	_, otherPriv := newKey(t)
	msg := "hello"

	ok, err := Ed25519{}.Verify(addr, msg, Sign(otherPriv, msg))
	if err != nil || ok {
		t.Fatalf("expected false without error for foreign signature, got %v %v", ok, err)
	}

	ok, err = Ed25519{}.Verify(addr, msg+"!", Sign(priv, msg))
	if err != nil || ok {
		t.Fatalf("expected false without error for tampered message, got %v %v", ok, err)
	}
}

func TestVerifyMalformedEncodings(t *testing.T) {
	addr, priv := newKey(t)
	sig := Sign(priv, "m")

	cases := []struct {
		name    string
		key     string
		sig     string
		wantErr error
	}{
		{"invalid base58 key", "0OIl", sig, ErrMalformedKey},
		{"short key", base58.Encode([]byte{1, 2, 3}), sig, ErrMalformedKey},
		{"invalid base58 signature", addr, "0OIl", ErrMalformedSignature},
		{"short signature", addr, base58.Encode(make([]byte, 10)), ErrMalformedSignature},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ok, err := Ed25519{}.Verify(tc.key, "m", tc.sig)
			if ok {
				t.Fatal("expected verification to fail")
			}
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}
