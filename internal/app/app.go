// Package app builds the bill service from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dvloznov/billed/internal/config"
	infraBQ "github.com/dvloznov/billed/internal/infra/bigquery"
	"github.com/dvloznov/billed/internal/infra/sqlite"
	"github.com/dvloznov/billed/internal/receipts"
	"github.com/dvloznov/billed/internal/store"
	"github.com/dvloznov/billed/internal/store/inmemory"
	"github.com/rs/zerolog"
)

// DefaultReceiptsURL is where local receipts are served when no base URL is set.
const DefaultReceiptsURL = "/receipts"

// App holds the configured backends.
type App struct {
	Bills    *store.Service
	Repo     store.BillRepository
	Receipts receipts.Storage

	closers []io.Closer
}

// Open creates the repository and receipt storage selected by cfg.
func Open(ctx context.Context, cfg config.Config, log zerolog.Logger) (*App, error) {
	a := &App{}

	repo, err := a.openRepository(ctx, cfg.Store)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("Open: %w", err)
	}
	a.Repo = repo

	storage, err := a.openReceipts(ctx, cfg.Receipts)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("Open: %w", err)
	}
	a.Receipts = storage

	a.Bills = store.NewService(repo, storage)

	log.Info().
		Str("store", cfg.Store.Backend).
		Str("receipts", cfg.Receipts.Backend).
		Msg("Backends ready")
	return a, nil
}

func (a *App) openRepository(ctx context.Context, cfg config.StoreConfig) (store.BillRepository, error) {
	switch cfg.Backend {
	case config.StoreMemory:
		return inmemory.NewRepository(), nil
	case config.StoreSQLite:
		db, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("sqlite store: %w", err)
		}
		a.closers = append(a.closers, db)
		return db, nil
	case config.StoreBigQuery:
		repo, err := infraBQ.NewBigQueryBillRepository(ctx, cfg.BigQueryProject, cfg.BigQueryDataset)
		if err != nil {
			return nil, fmt.Errorf("bigquery store: %w", err)
		}
		a.closers = append(a.closers, repo)
		return repo, nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
}

func (a *App) openReceipts(ctx context.Context, cfg config.ReceiptsConfig) (receipts.Storage, error) {
	switch cfg.Backend {
	case config.ReceiptsLocal:
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = DefaultReceiptsURL
		}
		s, err := receipts.NewLocalStorage(cfg.Dir, baseURL)
		if err != nil {
			return nil, fmt.Errorf("local receipts: %w", err)
		}
		return s, nil
	case config.ReceiptsGCS:
		s, err := receipts.NewGCSStorage(ctx, cfg.Bucket, cfg.Prefix, cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("gcs receipts: %w", err)
		}
		a.closers = append(a.closers, s)
		return s, nil
	}
	return nil, fmt.Errorf("unknown receipts backend %q", cfg.Backend)
}

// Close releases every backend client.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
