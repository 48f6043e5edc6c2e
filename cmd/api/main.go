package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"oneai/backend/internal/config"
	"oneai/backend/internal/db"
	"oneai/backend/internal/httpapi"
	"oneai/backend/internal/ingest"
	"oneai/backend/internal/llm"
	"oneai/backend/internal/providers"
	"oneai/backend/internal/relay"
	"oneai/backend/internal/search"
	"oneai/backend/internal/store"
)

const appName = "oneai-api"

func main() {
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:           appName,
		Short:         "OneAI chat backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}
	root.AddCommand(
		&cobra.Command{Use: "serve", Short: "Run the HTTP API", RunE: runServe},
		&cobra.Command{Use: "migrate", Short: "Apply the database schema and exit", RunE: runMigrate},
	)

	if err := root.Execute(); err != nil {
		color.Red("%s: %v", appName, err)
		os.Exit(1)
	}
}

func newLogger(cfg config.Config) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.UsesSupabase() {
		color.Yellow("SUPABASE_URL is set; the schema is managed by Supabase, nothing to migrate")
		return nil
	}

	database, err := db.Open(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := db.Migrate(cmd.Context(), database); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	color.Green("schema applied to %s", cfg.DatabaseURL)
	return nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpClient := &http.Client{}

	backend, closeStore, err := openConversationBackend(ctx, cfg, httpClient)
	if err != nil {
		return err
	}
	defer closeStore()

	registry := providers.NewRegistry(cfg)
	if !registry.AnyAvailable() {
		color.Yellow("no AI provider keys configured; chat requests will fail until one is set")
	}
	clients := llm.NewClients(cfg, httpClient)

	var archiver *ingest.Archiver
	if cfg.GCSUploadBucket != "" {
		gcs, err := ingest.NewGCSStore(ctx, cfg.GCSUploadBucket)
		if err != nil {
			return fmt.Errorf("init upload archive: %w", err)
		}
		archiver = ingest.NewArchiver(gcs, cfg.GCSUploadPrefix)
		logger.Info("upload archive enabled", "backend", gcs.Backend(), "bucket", cfg.GCSUploadBucket, "prefix", cfg.GCSUploadPrefix)
	}

	handler := httpapi.NewHandler(httpapi.Deps{
		Config:        cfg,
		Logger:        logger,
		Registry:      registry,
		Clients:       clients,
		Conversations: store.NewConversations(backend, logger),
		Relay:         relay.New(logger, cfg.PersistTimeout),
		Search:        search.NewFromConfig(ctx, cfg, clients, registry, httpClient, logger),
		Archiver:      archiver,
		HTTPClient:    httpClient,
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddress(),
		Handler:           httpapi.NewRouter(handler, cfg.AllowedOrigins),
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 70*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		color.Green("%s listening on %s", appName, cfg.ListenAddress())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "err", err)
	}
	return nil
}

// openConversationBackend picks PostgREST when SUPABASE_URL is set and the
// SQL store otherwise. The SQL schema is applied on every start.
func openConversationBackend(ctx context.Context, cfg config.Config, httpClient *http.Client) (store.Backend, func(), error) {
	if cfg.UsesSupabase() {
		return store.NewRESTStore(cfg.SupabaseURL, cfg.SupabaseServiceKey, httpClient), func() {}, nil
	}

	database, err := db.Open(cfg)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Migrate(ctx, database); err != nil {
		_ = database.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	return store.NewSQLStore(database), closeDB(database), nil
}

func closeDB(database *sql.DB) func() {
	return func() { _ = database.Close() }
}
