package challenge

import (
	"errors"
	"time"
)

var (
	// ErrNotFound indicates no challenge exists for the supplied nonce.
	ErrNotFound = errors.New("challenge not found")
	// ErrExists is returned when a nonce is already stored.
	ErrExists = errors.New("challenge exists")
)

// Challenge is a single-use login nonce with an absolute expiry.
type Challenge struct {
	Nonce     string
	ExpiresAt time.Time
}

// Expired reports whether the challenge is no longer valid at now.
func (c Challenge) Expired(now time.Time) bool {
	return !c.ExpiresAt.After(now)
}
