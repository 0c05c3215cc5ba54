// Package main is the entrypoint for the usergraph API server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	graphql "github.com/graph-gophers/graphql-go"
	"github.com/graph-gophers/graphql-go/relay"
	"github.com/graph-gophers/graphql-transport-ws/graphqlws"

	"github.com/usergraph/usergraph/internal/bus"
	"github.com/usergraph/usergraph/internal/config"
	"github.com/usergraph/usergraph/internal/graph"
	"github.com/usergraph/usergraph/internal/handler"
	"github.com/usergraph/usergraph/internal/metrics"
	"github.com/usergraph/usergraph/internal/middleware"
	"github.com/usergraph/usergraph/internal/rates"
	"github.com/usergraph/usergraph/internal/repository"
	"github.com/usergraph/usergraph/internal/server"
)

func main() {
	ctx := context.Background()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := initLogger(cfg)

	// Load the static currency-rate table. Nothing in the serving path
	// uses it yet, but an unreadable table is still a boot failure.
	rateTable, err := rates.Load(cfg.RatesPath)
	if err != nil {
		logger.Error("failed to load rates file", "path", cfg.RatesPath, "error", err)
		os.Exit(1)
	}
	logger.Info("loaded currency rates", "path", cfg.RatesPath, "currencies", len(rateTable))

	// Initialize database
	repo, err := repository.New(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	defer repo.Close()
	logger.Info("connected to database")

	// Initialize event bus and resolvers
	metricsRecorder := metrics.NewNoop()
	eventBus := bus.New(logger, metricsRecorder)
	resolver := graph.NewResolver(repo, eventBus, logger, metricsRecorder)
	schema := graphql.MustParseSchema(graph.Schema, resolver)

	// Setup router
	healthHandler := handler.NewHealthHandler(repo)
	r := setupRouter(schema, handler.New(), healthHandler, logger)

	// Create and run server
	srv := server.New(
		r,
		cfg.AppPort,
		cfg.ReadHeaderTimeout,
		cfg.ShutdownTimeout,
		logger,
	)
	srv.OnShutdown("event bus", func(ctx context.Context) error {
		eventBus.Close()
		return nil
	})

	logger.Info("GraphQL running",
		"url", fmt.Sprintf("http://localhost:%d/graphql", cfg.AppPort),
		"env", cfg.AppEnv,
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	opts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// setupRouter configures the chi router with all routes and middleware.
// The /graphql endpoint serves queries and mutations over plain POST,
// and upgrades to the graphql-ws protocol for subscriptions.
func setupRouter(
	schema *graphql.Schema,
	h *handler.Handler,
	healthHandler *handler.HealthHandler,
	logger *slog.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))

	// Health endpoints
	r.Get("/healthz", healthHandler.Healthz)
	r.Get("/readyz", healthHandler.Readyz)

	// Root info endpoint
	r.Get("/", h.Hello)

	// GraphQL: websocket upgrades fall through to the relay handler for
	// ordinary query/mutation POSTs.
	graphqlHandler := graphqlws.NewHandlerFunc(schema, &relay.Handler{Schema: schema})
	r.Handle("/graphql", graphqlHandler)

	// 404 and 405 handlers
	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	return r
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
