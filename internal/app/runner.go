package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"

	"github.com/mercantile/storesearch/internal/cache"
	"github.com/mercantile/storesearch/internal/config"
	"github.com/mercantile/storesearch/internal/index"
	"github.com/mercantile/storesearch/internal/search"
)

// shutdownTimeout bounds the graceful HTTP shutdown on exit.
const shutdownTimeout = 10 * time.Second

// RunParams contains dependencies for the run function
type RunParams struct {
	LoadSettings  func(*pflag.FlagSet) (*config.Settings, error)
	ValidSettings func(*config.Settings) error
	CreateService func(context.Context, *config.Settings) (*search.Service, func(), error)
	NewServer     func(*config.Settings, SearchService) (*http.Server, error)
}

// DefaultRunParams returns production dependencies
func DefaultRunParams() RunParams {
	return RunParams{
		LoadSettings:  config.LoadSettingsWithFlags,
		ValidSettings: config.ValidateSettings,
		CreateService: CreateSearchService,
		NewServer:     NewServer,
	}
}

// RunWithDeps executes the sidecar with the provided dependencies
func RunWithDeps(ctx context.Context, params RunParams, flags *pflag.FlagSet, version string) error {
	// Load settings
	settings, err := params.LoadSettings(flags)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	// Validate settings for conflicting configurations
	if err := params.ValidSettings(settings); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Configure logging - always use stderr to avoid interleaving with responses
	handler := slog.NewTextHandler(os.Stderr, nil)
	slog.SetDefault(slog.New(handler))

	slog.Info("Starting storesearch sidecar", "version", version)
	config.Log(settings)

	svc, cleanup, err := params.CreateService(ctx, settings)
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}

	srv, err := params.NewServer(settings, svc)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server listening (HTTP)", "addr", srv.Addr, "auth_type", settings.Auth.Type)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown failed: %w", err)
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// CreateSearchService wires the cache, worker, bridge and sync client into
// a started search service. The returned cleanup releases the worker and
// the cache database.
func CreateSearchService(ctx context.Context, settings *config.Settings) (*search.Service, func(), error) {
	dataDir := settings.Search.DataDir
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	// A failed cache open degrades to a cacheless service rather than
	// preventing startup; the nil store reads empty and drops writes.
	store, err := cache.Open(filepath.Join(dataDir, cache.Filename))
	if err != nil {
		slog.Warn("Persistent cache unavailable, continuing without it", "error", err)
		store = nil
	}

	worker, err := index.StartWorker(filepath.Join(dataDir, "engines"))
	if err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("failed to start index worker: %w", err)
	}
	client := index.NewClient(worker)

	var syncer search.Syncer
	if settings.Search.SyncURL != "" {
		syncer = search.NewSyncClient(settings.Search.SyncURL)
	}

	svc := search.NewService(store, client, syncer)
	cleanup := func() {
		worker.Close()
		if err := store.Close(); err != nil {
			slog.Error("Failed to close cache", "error", err)
		}
	}

	if err := svc.Start(ctx, settings.Search.SyncInterval); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to initialize search service: %w", err)
	}

	return svc, cleanup, nil
}
