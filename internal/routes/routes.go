package routes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/walletchat/walletchat/internal/assistant"
	"github.com/walletchat/walletchat/internal/auth"
	"github.com/walletchat/walletchat/internal/challenge"
	"github.com/walletchat/walletchat/internal/chat"
	"github.com/walletchat/walletchat/internal/config"
	"github.com/walletchat/walletchat/internal/conversation"
	"github.com/walletchat/walletchat/internal/identity"
	"github.com/walletchat/walletchat/internal/middleware"
	"github.com/walletchat/walletchat/internal/signature"
)

const (
	janitorInterval      = time.Minute
	limiterSweepInterval = 5 * time.Minute
)

// Deps aggregates shared dependencies required to wire routes. Nil DB or Cache
// selects the in-memory implementations.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
	// Model overrides the language model chosen from Cfg.
	Model assistant.Model
}

// Background runs the maintenance loops tied to the server's lifetime.
type Background struct {
	challenges *challenge.Service
	limiter    *middleware.LimiterStore
	retention  time.Duration
}

// Run starts the loops; they stop when ctx is done.
func (b *Background) Run(ctx context.Context) {
	go b.challenges.RunJanitor(ctx, janitorInterval, b.retention)
	if b.limiter != nil {
		go b.limiter.RunCleanup(ctx, limiterSweepInterval)
	}
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) (*Background, error) {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if !d.Cfg.IsDevelopment() {
		if d.DB == nil {
			return nil, fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return nil, fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	if d.Cfg.IsDevelopment() {
		app.Use(logger.New(logger.Config{
			Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
			TimeFormat: "15:04:05",
			TimeZone:   "Local",
		}))
	}
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)

	var (
		challengeRepo challenge.Repository
		identityRepo  identity.Repository
		convRepo      conversation.Repository
	)
	switch {
	case d.DB != nil:
		identityRepo = identity.NewPostgresRepository(d.DB)
		convRepo = conversation.NewPostgresRepository(d.DB)
	default:
		identityRepo = identity.NewMemoryRepository()
		convRepo = conversation.NewMemoryRepository(userExists(identityRepo))
	}
	switch {
	case d.Cache != nil:
		challengeRepo = challenge.NewRedisRepository(d.Cache, d.Cfg.ChallengeRetention)
	case d.DB != nil:
		challengeRepo = challenge.NewPostgresRepository(d.DB)
	default:
		challengeRepo = challenge.NewMemoryRepository()
	}

	model := d.Model
	if model == nil && d.Cfg.AssistantEnabled() {
		model = assistant.NewOpenAI(d.Cfg.OpenAIKey, d.Cfg.OpenAIModel, d.Cfg.OpenAIBaseURL)
	}
	if model == nil {
		d.Logger.Warn("no language model configured; AI replies are disabled")
	}

	challengeSvc := challenge.NewService(challengeRepo, d.Cfg.ChallengeTTL, d.Logger)
	identitySvc := identity.NewService(identityRepo)
	sessions := auth.NewSessions(d.Cfg.JWTSecret, d.Cfg.SessionTTL)
	authSvc := auth.NewService(challengeSvc, identitySvc, signature.Ed25519{}, sessions, d.Logger)
	convSvc := conversation.NewService(convRepo)
	orchestrator := chat.NewOrchestrator(convSvc, conversation.NewLocks(), model, d.Cfg.ModelTimeout, d.Logger)

	authHandler := auth.NewHandler(authSvc, d.Cfg.IsProduction(), d.Logger)
	identityHandler := identity.NewHandler(identitySvc)
	convHandler := conversation.NewHandler(convSvc, d.Logger)
	chatHandler := chat.NewHandler(orchestrator, d.Logger)

	var limiterStore *middleware.LimiterStore
	if d.Cache == nil {
		limiterStore = middleware.NewLimiterStore(d.Cfg.LoginRateLimit)
	}
	rateLimiter := middleware.LoginRateLimit(d.Cache, limiterStore, d.Cfg.LoginRateLimit, d.Logger)
	gate := middleware.RequireSession(sessions)
	var idempotency fiber.Handler
	if d.Cache != nil {
		idempotency = middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger)
	}

	RegisterAuthRoutes(app, authHandler, identityHandler, rateLimiter, gate)
	RegisterConversationRoutes(app, convHandler, chatHandler, gate, idempotency)

	return &Background{challenges: challengeSvc, limiter: limiterStore, retention: d.Cfg.ChallengeRetention}, nil
}

func userExists(users identity.Repository) conversation.OwnerCheck {
	return func(ctx context.Context, userID string) (bool, error) {
		_, err := users.FindByID(ctx, userID)
		switch {
		case err == nil:
			return true, nil
		case errors.Is(err, identity.ErrUserNotFound):
			return false, nil
		default:
			return false, err
		}
	}
}
