package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"github.com/example/meeting-calendar/internal/adapters"
	"github.com/example/meeting-calendar/internal/application"
	"github.com/example/meeting-calendar/internal/config"
	"github.com/example/meeting-calendar/internal/events"
	httptransport "github.com/example/meeting-calendar/internal/http"
	"github.com/example/meeting-calendar/internal/maintenance"
	"github.com/example/meeting-calendar/internal/persistence"
	"github.com/example/meeting-calendar/internal/persistence/postgres"
	"github.com/example/meeting-calendar/internal/persistence/sqlite"
)

// backend is the storage surface shared by the SQLite and Postgres stores.
type backend interface {
	persistence.BookingStore
	persistence.UserRepository
	persistence.AuthSessionRepository
	Close() error
}

func loadConfig(c *cli.Context) (config.Config, *slog.Logger, error) {
	cfg, err := config.LoadFile(c.String(configFlagName))
	if err != nil {
		return config.Config{}, nil, err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	return cfg, logger, nil
}

// openBackend connects to the configured database and brings its schema up to date.
func openBackend(ctx context.Context, cfg config.Config, logger *slog.Logger) (backend, error) {
	switch cfg.DBType {
	case config.DBTypePostgres:
		version, err := postgres.Migrate(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, err
		}
		logger.Info("schema migrated", "db_type", cfg.DBType, "version", version)
		return postgres.Open(ctx, cfg.PostgresDSN)
	case config.DBTypeSQLite:
		store, err := sqlite.Open(cfg.SQLiteDSN)
		if err != nil {
			return nil, err
		}
		if err := store.Migrate(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to apply migrations: %w", err)
		}
		logger.Info("schema migrated", "db_type", cfg.DBType, "dsn", cfg.SQLiteDSN)
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported db type %q", cfg.DBType)
	}
}

// calendarServer holds the HTTP handler together with the background
// workers that live as long as it does.
type calendarServer struct {
	handler   http.Handler
	publisher *events.Publisher
	pruner    *maintenance.Pruner
}

func newCalendarServer(ctx context.Context, cfg config.Config, store backend, logger *slog.Logger) (*calendarServer, error) {
	now := time.Now
	idGenerator := uuid.NewString
	tokenGenerator := func() string { return randomHex(32) }

	publisher := events.NewPublisher(logger)
	if err := publisher.Subscribe(ctx, events.AuditLog(logger)); err != nil {
		_ = publisher.Close()
		return nil, fmt.Errorf("failed to subscribe audit log: %w", err)
	}

	opts := []application.ServiceOption{
		application.WithLinkGrace(cfg.LinkGrace),
		application.WithEventPublisher(publisher),
		application.WithLogger(logger),
	}
	if !cfg.BusinessHours.IsZero() {
		opts = append(opts, application.WithBusinessHours(cfg.BusinessHours))
	}

	bookingStore := adapters.NewBookingStore(store)
	bookingService := application.NewBookingService(bookingStore, idGenerator, now, opts...)
	blackoutService := application.NewBlackoutService(bookingStore, idGenerator, now, opts...)
	authService := application.NewAuthServiceWithLogger(
		adapters.NewCredentialStore(store),
		adapters.NewAuthSessionStore(store),
		application.VerifyPassword,
		tokenGenerator,
		now,
		cfg.SessionTTL,
		logger,
	)

	pruner := maintenance.NewPruner(authService, cfg.SessionPruneInterval, logger)
	if err := pruner.Start(ctx); err != nil {
		_ = publisher.Close()
		return nil, err
	}

	handler := httptransport.NewRouter(httptransport.RouterConfig{
		Auth:       httptransport.NewAuthHandler(authService, logger),
		Bookings:   httptransport.NewBookingHandler(bookingService, logger),
		Blackouts:  httptransport.NewBlackoutHandler(blackoutService, logger),
		Sessions:   authService,
		Logger:     logger,
		Middleware: []func(http.Handler) http.Handler{httptransport.RequestLogger(logger)},
	})

	return &calendarServer{handler: handler, publisher: publisher, pruner: pruner}, nil
}

// Close stops the background workers.
func (s *calendarServer) Close() error {
	s.pruner.Stop()
	return s.publisher.Close()
}

func serveAction(c *cli.Context) error {
	cfg, logger, err := loadConfig(c)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	app, err := newCalendarServer(ctx, cfg, store, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := app.Close(); cerr != nil {
			logger.Error("failed to stop background workers", "error", cerr)
		}
	}()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           app.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("calendar API listening", "addr", server.Addr, "business_hours", cfg.BusinessHours.String())
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server encountered error: %w", err)
	}
	return nil
}

func migrateAction(c *cli.Context) error {
	cfg, logger, err := loadConfig(c)
	if err != nil {
		return err
	}
	store, err := openBackend(c.Context, cfg, logger)
	if err != nil {
		return err
	}
	return store.Close()
}

func randomHex(bytes int) string {
	if bytes <= 0 {
		bytes = 16
	}
	buf := make([]byte, bytes)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return uuid.NewString()
	}
	return hex.EncodeToString(buf)
}
