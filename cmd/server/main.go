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

	"cloud.google.com/go/firestore"
	gcsstorage "cloud.google.com/go/storage"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"github.com/castlemilk/demobank/internal/cache"
	"github.com/castlemilk/demobank/internal/config"
	"github.com/castlemilk/demobank/internal/logger"
	"github.com/castlemilk/demobank/internal/provider"
	"github.com/castlemilk/demobank/internal/search"
	"github.com/castlemilk/demobank/internal/service"
	"github.com/castlemilk/demobank/internal/session"
	"github.com/castlemilk/demobank/internal/store"
	"github.com/castlemilk/demobank/internal/synth"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "demobank: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	storeImpl, closeStore, err := openStore(ctx, cfg.Store, log)
	if err != nil {
		return err
	}
	defer closeStore()

	generator := synth.NewGenerator(synth.Options{
		Seed:        cfg.Dataset.Seed,
		HistoryDays: cfg.Dataset.HistoryDays,
	})
	datasetCache := cache.New(storeImpl, generator.Generate, cache.WithLogger(log.With().Str("component", "cache").Logger()))
	sessions := session.New(storeImpl, log.With().Str("component", "session").Logger())
	p := provider.New(datasetCache, sessions, provider.WithLogger(log.With().Str("component", "provider").Logger()))

	var searcher search.Searcher
	if cfg.Algolia.Enabled() {
		algolia, err := search.NewAlgoliaClient(search.Config{
			AppID:     cfg.Algolia.AppID,
			APIKey:    cfg.Algolia.APIKey,
			IndexName: cfg.Algolia.IndexName,
		}, log.With().Str("component", "algolia").Logger())
		if err != nil {
			return err
		}
		reindexer := search.NewReindexer(algolia, log)
		cancel := p.Subscribe(func(s provider.State) { reindexer.Observe(s.Dataset) })
		defer cancel()
		// Runs after the server has shut down so an in-flight reindex completes.
		defer reindexer.Wait()
		searcher = algolia
		log.Info().Str("index", cfg.Algolia.IndexName).Msg("using Algolia transaction search")
	}

	if err := p.Mount(ctx); err != nil {
		// The server still starts; clients see the data-unavailable state.
		log.Error().Err(err).Msg("initial dataset load failed")
	}
	state := p.State()
	log.Info().
		Bool("first_run", state.Status.FirstRun).
		Str("selection", state.Selection.String()).
		Msg("provider mounted")

	bankService := service.NewBankService(p, searcher, log)
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: service.NewHTTPHandler(bankService, log, cfg.AllowedOrigins),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("store", cfg.Store.Backend).Msg("starting server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Info().Msg("shutting down")
	return srv.Shutdown(shutdownCtx)
}

// openStore builds the configured key-value backend and a func releasing it.
func openStore(ctx context.Context, cfg config.StoreConfig, log zerolog.Logger) (store.Store, func(), error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	switch cfg.Backend {
	case config.BackendMemory:
		log.Info().Int("quota_bytes", cfg.QuotaBytes).Msg("using in-memory store for local development")
		return store.NewMemoryStore(store.WithQuota(cfg.QuotaBytes)), func() {}, nil

	case config.BackendFile:
		s, err := store.NewFileStore(cfg.FilePath)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("path", cfg.FilePath).Msg("using file store")
		return s, func() {}, nil

	case config.BackendSQLite:
		s, err := store.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		log.Info().Str("path", cfg.SQLitePath).Msg("using sqlite store")
		return s, func() { _ = s.Close() }, nil

	case config.BackendFirestore:
		client, err := firestore.NewClient(ctx, cfg.ProjectID, opts...)
		if err != nil {
			return nil, nil, fmt.Errorf("create firestore client: %w", err)
		}
		log.Info().Str("project", cfg.ProjectID).Str("collection", cfg.Collection).Msg("using firestore store")
		return store.NewFirestoreStore(client, cfg.Collection), func() { _ = client.Close() }, nil

	case config.BackendGCS:
		client, err := gcsstorage.NewClient(ctx, opts...)
		if err != nil {
			return nil, nil, fmt.Errorf("create storage client: %w", err)
		}
		log.Info().Str("bucket", cfg.Bucket).Str("prefix", cfg.Prefix).Msg("using gcs store")
		return store.NewGCSStore(client.Bucket(cfg.Bucket), cfg.Prefix), func() { _ = client.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}
