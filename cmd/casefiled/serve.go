package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"casefile/internal/adapters/httpapi"
	"casefile/internal/adapters/reports"
	"casefile/internal/auth"
	"casefile/internal/blob"
	"casefile/internal/core"
	"casefile/internal/entitymodel"
)

const shutdownTimeout = 10 * time.Second

var flagListenAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the case records API server",
	Long: `Serve the JSON API, the Prometheus /metrics endpoint, the entity-model
OpenAPI document at /openapi, and /healthz. Bootstrap roles, accounts, and the
statute catalog are seeded on startup; seeding is idempotent, so existing
records are left untouched.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagListenAddr, "addr", "", "listen address (overrides listen_addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := newLogger(cfg.GetString(cfgKeyLogLevel))

	secret := cfg.GetString(cfgKeyTokenSecret)
	if secret == "" {
		return fmt.Errorf("token_secret is required: set CASEFILE_TOKEN_SECRET or token_secret in the config file")
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("close store", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	blobs, err := blob.Open(ctx)
	if err != nil {
		return fmt.Errorf("open blob store: %w", err)
	}

	metrics, err := core.NewPrometheusMetricsRecorder(nil)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	svc := core.NewService(store,
		core.WithLogger(logger),
		core.WithAuditRecorder(auditLogger{log: logger}),
		core.WithMetricsRecorder(metrics),
		core.WithBlobStore(blobs),
	)
	if err := core.SeedDefaults(ctx, svc.Store()); err != nil {
		return fmt.Errorf("seed defaults: %w", err)
	}

	issuer := auth.NewTokenIssuer([]byte(secret), cfg.GetDuration(cfgKeyTokenTTL))
	worker := reports.NewWorker(svc, svc.Blobs(), auditLogger{log: logger})
	worker.Start()

	api := httpapi.NewHandler(svc, worker, issuer)
	api.Logger = logger

	mux := http.NewServeMux()
	mux.Handle("/api/v1/", api)
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/openapi", entitymodel.NewOpenAPIHandler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	addr := flagListenAddr
	if addr == "" {
		addr = cfg.GetString(cfgKeyListenAddr)
	}
	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()
	logger.Info("listening",
		"addr", addr,
		"storage_driver", cfg.GetString(cfgKeyStorageDriver),
		"blob_driver", string(blobs.Driver()),
	)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown", "error", err)
		}
		if err := worker.Stop(shutdownCtx); err != nil {
			logger.Warn("report worker shutdown", "error", err)
		}
	}
	return nil
}

// openStore selects the persistence backend from configuration.
func openStore(cfg *viper.Viper) (core.PersistentStore, error) {
	engine := core.NewDefaultRulesEngine()
	switch driver := cfg.GetString(cfgKeyStorageDriver); driver {
	case "memory":
		return core.NewMemoryStore(engine), nil
	case "sqlite":
		store, err := core.NewSQLiteStore(cfg.GetString(cfgKeySQLitePath), engine)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return store, nil
	case "postgres":
		store, err := core.NewPostgresStore(cfg.GetString(cfgKeyPostgresDSN), engine)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}
