package server

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/cryptovault/cryptovault/internal/alerts"
	"github.com/cryptovault/cryptovault/internal/chain"
	"github.com/cryptovault/cryptovault/internal/config"
	"github.com/cryptovault/cryptovault/internal/middleware"
	"github.com/cryptovault/cryptovault/internal/routes"
)

// Server wraps the Fiber application, the alert checker and shared dependencies.
type Server struct {
	app     *fiber.App
	cfg     config.Config
	checker *alerts.Checker
	logger  *slog.Logger
}

// New instantiates the HTTP server and delegates route wiring to routes.Setup.
func New(cfg config.Config, db *pgxpool.Pool, cache *redis.Client, rpc chain.RPC, logger *slog.Logger) (*Server, error) {
	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		ErrorHandler: errorHandler(logger),
	})

	checker, err := routes.Setup(app, routes.Deps{Cfg: cfg, DB: db, Cache: cache, RPC: rpc, Logger: logger})
	if err != nil {
		return nil, err
	}

	return &Server{app: app, cfg: cfg, checker: checker, logger: logger}, nil
}

// errorHandler renders every error as {"error": message}.
func errorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
		}
		if code >= fiber.StatusInternalServerError {
			logger.Error("request failed", "path", c.Path(), "request_id", middleware.RequestIDFrom(c.UserContext()), "error", err)
		}
		return c.Status(code).JSON(fiber.Map{"error": err.Error()})
	}
}

// App exposes the underlying Fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen starts the alert checker and the HTTP server.
func (s *Server) Listen() error {
	s.checker.Start()
	return s.app.Listen(s.cfg.Address())
}

// Shutdown gracefully stops the HTTP server, then waits for a running alert
// check to finish.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.app.ShutdownWithContext(ctx)
	s.checker.Stop(ctx)
	return err
}
