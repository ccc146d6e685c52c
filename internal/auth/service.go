package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/walletchat/walletchat/internal/authmsg"
	"github.com/walletchat/walletchat/internal/challenge"
	"github.com/walletchat/walletchat/internal/identity"
	"github.com/walletchat/walletchat/internal/signature"
)

// Login rejections. Each one terminates the attempt; the client must request
// a fresh challenge before trying again.
var (
	ErrChallengeNotFound = errors.New("challenge not found")
	ErrChallengeExpired  = errors.New("challenge expired")
	ErrInvalidNonce      = errors.New("invalid nonce")
	ErrInvalidAddress    = errors.New("invalid address")
	ErrInvalidSignature  = errors.New("invalid signature")
)

// LoginInput is the client's answer to a challenge.
type LoginInput struct {
	Address   string
	Message   string
	Nonce     string
	Signature string
}

// Service runs the wallet challenge/response login.
type Service struct {
	challenges *challenge.Service
	users      *identity.Service
	verifier   signature.Verifier
	sessions   *Sessions
	now        func() time.Time
	logger     *slog.Logger
}

// NewService wires the login protocol.
func NewService(challenges *challenge.Service, users *identity.Service, verifier signature.Verifier, sessions *Sessions, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		challenges: challenges,
		users:      users,
		verifier:   verifier,
		sessions:   sessions,
		now:        time.Now,
		logger:     logger.With("component", "auth"),
	}
}

// RequestChallenge issues a fresh login challenge.
func (s *Service) RequestChallenge(ctx context.Context) (challenge.Challenge, error) {
	return s.challenges.Issue(ctx)
}

// Login verifies a signed challenge and issues a session for the wallet.
func (s *Service) Login(ctx context.Context, in LoginInput) (Session, error) {
	// The challenge is single use: it is removed whether or not the attempt succeeds.
	ch, err := s.challenges.Consume(ctx, in.Nonce)
	if err != nil {
		if errors.Is(err, challenge.ErrNotFound) {
			return Session{}, ErrChallengeNotFound
		}
		return Session{}, fmt.Errorf("load challenge: %w", err)
	}
	now := s.now()
	if ch.Expired(now) {
		return Session{}, ErrChallengeExpired
	}

	fields := authmsg.Decode(in.Message)
	if nonce := fields[authmsg.KeyNonce]; nonce == "" || nonce != in.Nonce {
		return Session{}, ErrInvalidNonce
	}
	if addr := fields[authmsg.KeyAddress]; addr == "" || addr != in.Address {
		return Session{}, ErrInvalidAddress
	}
	expiresAt, err := authmsg.ParseTime(fields[authmsg.KeyExpiresAt])
	if err != nil || !expiresAt.After(now) {
		return Session{}, ErrChallengeExpired
	}

	ok, err := s.verifier.Verify(in.Address, in.Message, in.Signature)
	if err != nil {
		s.logger.Debug("signature rejected", slog.Any("error", err))
	}
	if !ok {
		return Session{}, ErrInvalidSignature
	}

	user, err := s.users.FindOrCreate(ctx, in.Address)
	if err != nil {
		return Session{}, fmt.Errorf("resolve user: %w", err)
	}
	session, err := s.sessions.Issue(user)
	if err != nil {
		return Session{}, err
	}
	s.logger.Info("login succeeded", slog.String("user_id", user.ID))
	return session, nil
}

// Authenticate validates a session token and returns its claims.
func (s *Service) Authenticate(token string) (*Claims, error) {
	return s.sessions.Parse(token)
}
