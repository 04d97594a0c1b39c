package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/starford/promptbox/internal/api"
	"github.com/starford/promptbox/internal/events"
	"github.com/starford/promptbox/internal/kvstore"
	"github.com/starford/promptbox/internal/promptservice"
	"github.com/starford/promptbox/internal/storage"
)

const defaultVersion = "dev"

// App is an opened promptbox: store, event bus and prompt service.
type App struct {
	Config  *Config
	Logger  *slog.Logger
	Version string
	KV      kvstore.Store
	Bus     *events.Bus
	Service *promptservice.Service
}

// Open applies opts, opens the store and loads the prompt service.
func Open(ctx context.Context, opts ...Option) (*App, error) {
	a := &application{}
	for _, opt := range opts {
		opt(a)
	}

	if a.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg := a.config

	logger := a.logger
	if logger == nil {
		out := a.logOut
		if out == nil {
			out = os.Stdout
		}
		logger = slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
			Level: cfg.App.LogLevel,
		}))
		slog.SetDefault(logger)
	}

	version := a.version
	if version == "" {
		version = defaultVersion
	}

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("store_path", cfg.Store.Path),
		slog.Int64("store_max_bytes", cfg.Store.MaxBytes),
		slog.String("inbox_path", cfg.Inbox.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	kv, err := kvstore.Open(cfg.Store.Path, cfg.Store.MaxBytes)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	bus := events.NewBus()
	store := storage.New(kv, bus, logger)

	svc, err := promptservice.New(ctx, store, bus, logger, cfg.Prompts.Service())
	if err != nil {
		bus.Close()
		_ = kv.Close()
		return nil, fmt.Errorf("init prompt service: %w", err)
	}

	return &App{
		Config:  cfg,
		Logger:  logger,
		Version: version,
		KV:      kv,
		Bus:     bus,
		Service: svc,
	}, nil
}

// Close stops the bus and closes the store.
func (a *App) Close() error {
	a.Bus.Close()
	return a.KV.Close()
}

// Handler builds the HTTP root router: health checks plus the API under /api.
func (a *App) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := a.KV.Usage(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", api.NewRouter(a.Service, a.Config.Auth.AuthEnabled(), a.Config.Auth.Token, a.Bus))

	return r
}

// logNotices mirrors user-facing notices into the log until ctx is done.
func (a *App) logNotices(ctx context.Context) {
	ch := a.Bus.Subscribe(events.Notice)
	defer a.Bus.Unsubscribe(ch)

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			n, ok := ev.Data.(events.NoticeData)
			if !ok {
				continue
			}
			level := slog.LevelInfo
			switch n.Level {
			case events.LevelWarn:
				level = slog.LevelWarn
			case events.LevelError:
				level = slog.LevelError
			}
			a.Logger.Log(ctx, level, "notice", slog.String("message", n.Message))
		}
	}
}

func ignoreClosed(err error) error {
	if errors.Is(err, http.ErrServerClosed) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
