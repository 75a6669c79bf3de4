// Package container wires the export service from configuration and manages
// its lifecycle.
package container

import (
	"context"
	"fmt"
	"io"

	"github.com/garyjia/resident-payroll/internal/config"
	"github.com/garyjia/resident-payroll/internal/payroll"
	"github.com/garyjia/resident-payroll/internal/repository"
	"github.com/garyjia/resident-payroll/internal/storage"
	"github.com/garyjia/resident-payroll/internal/transferorder"
	"github.com/garyjia/resident-payroll/pkg/database"
	"go.uber.org/zap"
)

// RepositoryBundle groups all repositories for convenient access.
type RepositoryBundle struct {
	Residents  *repository.ResidentRepository
	Payments   *repository.PaymentRepository
	Rappels    *repository.RappelRepository
	ExportRuns *repository.ExportRunRepository
}

// StorageBundle holds the output storage and its closer, if any.
type StorageBundle struct {
	FileStorage storage.FileStorage
	Closer      io.Closer
}

// ProvideDatabase opens the database and runs any pending migrations.
func ProvideDatabase(cfg *config.DatabaseConfig, logger *zap.Logger) (*database.DB, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	db, err := database.New(cfg.ToDatabaseConfig(), logger)
	if err != nil {
		return nil, err
	}

	if err := database.NewMigrator(db, logger).Run(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

// ProvideRepositories creates all repositories from a database connection.
func ProvideRepositories(db *database.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &RepositoryBundle{
		Residents:  repository.NewResidentRepository(db, logger),
		Payments:   repository.NewPaymentRepository(db, logger),
		Rappels:    repository.NewRappelRepository(db, logger),
		ExportRuns: repository.NewExportRunRepository(db, logger),
	}, nil
}

// ProvideStorage creates the configured output backend.
func ProvideStorage(ctx context.Context, cfg *config.OutputConfig, logger *zap.Logger) (*StorageBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("output config is required")
	}

	switch cfg.Backend {
	case config.BackendLocal:
		return &StorageBundle{FileStorage: storage.NewLocalFileStorage(cfg.Dir, logger)}, nil
	case config.BackendGCS:
		gcs, err := storage.NewGCSStorage(ctx, cfg.Bucket, cfg.Prefix, logger)
		if err != nil {
			return nil, err
		}
		return &StorageBundle{FileStorage: gcs, Closer: gcs}, nil
	}
	return nil, fmt.Errorf("unsupported output backend %q", cfg.Backend)
}

// ProvideRenderers creates one renderer per output format.
func ProvideRenderers(cfg *config.ExportConfig, logger *zap.Logger) []transferorder.Renderer {
	return []transferorder.Renderer{
		transferorder.NewExcelRenderer(cfg.Excel.PlanOptions(), logger),
		transferorder.NewPDFRenderer(cfg.PDF.PlanOptions(), logger),
	}
}

// ExporterDeps holds the dependencies of ProvideExporter.
type ExporterDeps struct {
	Repos   *RepositoryBundle
	Storage storage.FileStorage
	Config  *config.ExportConfig
	Logger  *zap.Logger
}

// ProvideExporter creates the transfer order exporter.
func ProvideExporter(deps *ExporterDeps) (*transferorder.Exporter, error) {
	if deps == nil || deps.Repos == nil || deps.Config == nil {
		return nil, fmt.Errorf("exporter dependencies are required")
	}

	speller, err := payroll.NewNumeralSpeller(deps.Config.Language)
	if err != nil {
		return nil, err
	}

	return transferorder.NewExporter(transferorder.Dependencies{
		Source:    transferorder.NewRepositorySource(deps.Repos.Payments, deps.Repos.Rappels),
		Templates: transferorder.NewTemplateStore(deps.Config.TemplateDir, deps.Logger),
		Renderers: ProvideRenderers(deps.Config, deps.Logger),
		Speller:   speller,
		Storage:   deps.Storage,
		Runs:      deps.Repos.ExportRuns,
		Mentions: map[transferorder.Kind]string{
			transferorder.KindPayment: deps.Config.PaymentMention,
			transferorder.KindRappel:  deps.Config.RappelMention,
		},
		Logger: deps.Logger,
	})
}
