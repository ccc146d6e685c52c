package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/walletchat/walletchat/internal/identity"
)

// ErrUnauthorized covers every session validation failure. Callers never learn
// whether the token was missing, malformed or expired.
var ErrUnauthorized = errors.New("unauthorized")

// Claims is the payload of a session token.
type Claims struct {
	ID     string `json:"id"`
	Wallet string `json:"wallet"`
	jwt.RegisteredClaims
}

// Session is an issued session token.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      identity.User
}

// Sessions signs and verifies HS256 session tokens.
type Sessions struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSessions builds a token issuer with the given signing secret and validity window.
func NewSessions(secret string, ttl time.Duration) *Sessions {
	return &Sessions{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue signs a token binding the user's id and wallet.
func (s *Sessions) Issue(user identity.User) (Session, error) {
	now := s.now()
	exp := now.Add(s.ttl)
	claims := Claims{
		ID:     user.ID,
		Wallet: user.Wallet,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return Session{}, fmt.Errorf("sign session: %w", err)
	}
	return Session{Token: signed, ExpiresAt: exp, User: user}, nil
}

// Parse validates a token and returns its claims.
func (s *Sessions) Parse(token string) (*Claims, error) {
	if token == "" {
		return nil, ErrUnauthorized
	}
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid || claims.ID == "" || claims.Wallet == "" {
		return nil, ErrUnauthorized
	}
	return claims, nil
}
