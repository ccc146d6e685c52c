package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/walletchat/walletchat/internal/config"
	"github.com/walletchat/walletchat/internal/middleware"
	"github.com/walletchat/walletchat/internal/routes"
)

// Server wraps the Fiber application and its background loops.
type Server struct {
	app        *fiber.App
	cfg        config.Config
	background *routes.Background
}

// New instantiates the HTTP server and delegates route wiring to routes.Setup.
func New(cfg config.Config, db *pgxpool.Pool, cache *redis.Client, logger *slog.Logger) (*Server, error) {
	app := fiber.New(fiber.Config{
		AppName:               cfg.AppName,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          cfg.WriteTimeout,
		DisableStartupMessage: !cfg.IsDevelopment(),
		ErrorHandler:          middleware.ErrorHandler(logger),
	})

	bg, err := routes.Setup(app, routes.Deps{Cfg: cfg, DB: db, Cache: cache, Logger: logger})
	if err != nil {
		return nil, err
	}

	return &Server{app: app, cfg: cfg, background: bg}, nil
}

// Listen starts the background loops and the HTTP server. The loops stop when
// ctx is done.
func (s *Server) Listen(ctx context.Context) error {
	s.background.Run(ctx)
	return s.app.Listen(s.cfg.Address())
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
