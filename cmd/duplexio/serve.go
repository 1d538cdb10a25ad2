package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/duplex-dev/duplexio/internal/config"
	"github.com/duplex-dev/duplexio/internal/relay"
	"github.com/duplex-dev/duplexio/pkg/server"
)

func serveCmd() *cobra.Command {
	var (
		configPath string
		addr       string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the relay server",
		Long: `Start the relay server.

Clients connect over WebSocket at /ws. Prometheus metrics are
exposed at /metrics and a liveness probe at /healthz.

Examples:
  duplexio serve
  duplexio serve --config=duplexio.yaml
  duplexio serve --addr=:9000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath, addr)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "duplexio.yaml", "Path to the config file")
	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (overrides config)")

	return cmd
}

func runServe(configPath, addr string) error {
	// Local .env files override nothing already in the environment.
	godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Addr = addr
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)

	store, closeStore, err := newStore(cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	rt, err := relay.Router(store)
	if err != nil {
		return fmt.Errorf("build event table: %w", err)
	}

	srvConfig := &server.Config{
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		HeartbeatInterval: cfg.HeartbeatInterval,
		MaxMessageSize:    cfg.MaxMessageSize,
		MaxConnections:    cfg.MaxConnections,
	}
	if cfg.AllowAnyOrigin {
		srvConfig.CheckOrigin = server.AllowAllOrigins
	}
	ws := server.New(rt, srvConfig, server.WithLogger(logger))

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Handle("/ws", ws)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	httpSrv := &http.Server{
		Addr:    cfg.Addr,
		Handler: r,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", cfg.Addr, "events", rt.Events())
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		logger.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	ws.Shutdown(ctx)
	return httpSrv.Shutdown(ctx)
}

// newStore selects the transfer store from config: SQLite when a
// database path is set, in-memory otherwise.
func newStore(cfg *config.Config, logger *slog.Logger) (relay.Store, func(), error) {
	if cfg.Database == "" {
		logger.Info("using in-memory transfer store")
		return relay.NewMemoryStore(), func() {}, nil
	}
	s, err := relay.OpenSQLite(cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("using sqlite transfer store", "path", cfg.Database)
	return s, func() { s.Close() }, nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
