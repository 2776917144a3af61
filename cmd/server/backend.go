package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"adherence-tracker/internal/config"
	"adherence-tracker/internal/database"
	"adherence-tracker/internal/repository"
	"adherence-tracker/internal/repository/pgstore"
	"adherence-tracker/internal/services"
)

// backend is the storage selected by DATABASE_DRIVER
type backend struct {
	meds    services.MedicationStore
	doses   services.DoseStore
	audit   services.AuditStore
	ping    func(ctx context.Context) error
	migrate func(ctx context.Context) error
	close   func()
}

func openBackend(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*backend, error) {
	switch cfg.Database.Driver {
	case "postgres":
		store, err := pgstore.Open(ctx, pgstore.Config{
			URL:      cfg.Database.URL,
			MaxConns: cfg.Database.MaxConns,
			MinConns: cfg.Database.MinConns,
		}, logger)
		if err != nil {
			return nil, err
		}
		return &backend{
			meds:    store.Medications(),
			doses:   store.Doses(),
			audit:   store.Audit(),
			ping:    store.Ping,
			migrate: store.Migrate,
			close:   store.Close,
		}, nil

	default:
		if dir := filepath.Dir(cfg.Database.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return nil, fmt.Errorf("failed to create data directory: %w", err)
			}
		}
		db, err := database.Open(cfg.Database.Path, logger)
		if err != nil {
			return nil, err
		}
		return &backend{
			meds:    repository.NewMedicationRepository(db),
			doses:   repository.NewDoseRepository(db),
			audit:   repository.NewAuditRepository(db),
			ping:    db.PingContext,
			migrate: db.RunMigrations,
			close:   func() { db.Close() },
		}, nil
	}
}
