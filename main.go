package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Billy-Davies-2/esccup-draft/internal/auth"
	"github.com/Billy-Davies-2/esccup-draft/internal/clickhouse"
	"github.com/Billy-Davies-2/esccup-draft/internal/config"
	"github.com/Billy-Davies-2/esccup-draft/internal/dal"
	"github.com/Billy-Davies-2/esccup-draft/internal/handlers"
	"github.com/Billy-Davies-2/esccup-draft/internal/logger"
	"github.com/Billy-Davies-2/esccup-draft/internal/models"
	"github.com/Billy-Davies-2/esccup-draft/internal/pubsub"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	logger.Init(cfg.LogLevel)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	logger.Info("Starting ESC CUP draft server", "environment", cfg.Environment, "db", cfg.DBDriver, "auth", cfg.AuthMode)

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	transport, err := openTransport(cfg)
	if err != nil {
		return err
	}
	events := pubsub.NewWithTransport(transport)
	defer events.Close()

	checks := map[string]handlers.Checker{
		"nats": func(context.Context) error { return transport.Ping() },
	}

	if cfg.ClickHouse.Addr != "" {
		ch, err := clickhouse.NewClient(ctx, clickhouse.Options{
			Addr:     cfg.ClickHouse.Addr,
			Database: cfg.ClickHouse.Database,
			Username: cfg.ClickHouse.User,
			Password: cfg.ClickHouse.Password,
		})
		if err != nil {
			return err
		}
		defer ch.Close()
		checks["clickhouse"] = ch.Ping

		syncer := clickhouse.NewSyncer(ch, store)
		syncer.OnUpdate(func(p models.Player) {
			events.Publish(pubsub.NewEvent(pubsub.TypePlayerUpdated, p))
		})
		go syncer.Run(ctx, cfg.TierSyncInterval)
	} else {
		logger.Info("Skipping tier sync (ClickHouse not configured)")
	}

	provider := newAuthProvider(cfg)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(handlers.RequestLogger)
	r.Use(middleware.Recoverer)
	r.Use(auth.Middleware(provider))

	provider.Routes(r)
	handlers.NewAPIHandlers(store, events).Routes(r)
	handlers.NewHealth(store.Ping, checks).Routes(r)

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		// streams end when ctx is cancelled so Shutdown can drain them
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return errors.Wrap(err, "listen")
	case <-ctx.Done():
	}

	logger.Info("Shutting down", "timeout", cfg.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return errors.Wrap(srv.Shutdown(shutdownCtx), "shutdown")
}

func openStore(ctx context.Context, cfg *config.Config) (dal.Store, error) {
	switch cfg.DBDriver {
	case "sqlite":
		s, err := dal.NewSQLiteDAL(ctx, cfg.SQLiteFile, cfg.SeedDemoData)
		if err != nil {
			return nil, errors.Wrap(err, "initialize SQLite")
		}
		logger.Info("Connected to SQLite database", "file", cfg.SQLiteFile)
		return s, nil
	case "postgres":
		s, err := dal.NewPostgresDAL(ctx, cfg.DatabaseURL, cfg.SeedDemoData)
		if err != nil {
			return nil, errors.Wrap(err, "initialize Postgres")
		}
		logger.Info("Connected to Postgres database")
		return s, nil
	default:
		logger.Info("Using in-memory data store")
		if cfg.SeedDemoData {
			return dal.NewMemoryDAL(), nil
		}
		return dal.NewEmptyMemoryDAL(), nil
	}
}

// openTransport uses an embedded NATS server in development and the
// configured JetStream cluster otherwise
func openTransport(cfg *config.Config) (*pubsub.NATSTransport, error) {
	if cfg.IsDevelopment() {
		opts := pubsub.DefaultEmbeddedOptions()
		opts.Subject = cfg.NATSSubject
		opts.Stream = cfg.NATSStream
		t, err := pubsub.StartEmbedded(opts)
		if err != nil {
			return nil, errors.Wrap(err, "start embedded NATS")
		}
		logger.Info("Embedded NATS server ready", "url", t.ClientURL())
		return t, nil
	}

	opts := pubsub.DefaultNATSOptions()
	opts.Subject = cfg.NATSSubject
	opts.Stream = cfg.NATSStream
	t, err := pubsub.ConnectNATS(cfg.NATSURL, opts)
	if err != nil {
		return nil, errors.Wrap(err, "connect NATS")
	}
	return t, nil
}

func newAuthProvider(cfg *config.Config) auth.Provider {
	switch cfg.AuthMode {
	case config.AuthPassword:
		logger.Info("Using password authentication")
		return auth.NewPasswordAuth(cfg.AdminPassword, cfg.JWTSecret, cfg.TokenTTL)
	case config.AuthAuthentik:
		logger.Info("Using Authentik authentication", "url", cfg.Authentik.BaseURL)
		return auth.NewAuthentikAuth(auth.AuthentikConfig{
			BaseURL:      cfg.Authentik.BaseURL,
			ClientID:     cfg.Authentik.ClientID,
			ClientSecret: cfg.Authentik.ClientSecret,
			RedirectURL:  cfg.Authentik.RedirectURL,
		})
	default:
		logger.Info("Using mock authentication for local development")
		return auth.NewMockAuth()
	}
}
