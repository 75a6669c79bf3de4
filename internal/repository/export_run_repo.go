package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/garyjia/resident-payroll/internal/models"
	"github.com/garyjia/resident-payroll/pkg/database"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ExportRunRepository handles export history database operations
type ExportRunRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewExportRunRepository creates a new export run repository
func NewExportRunRepository(db *database.DB, logger *zap.Logger) *ExportRunRepository {
	return &ExportRunRepository{
		db:     db,
		logger: logger,
	}
}

const exportRunColumns = `id, kind, format, month, year, search, status, file_name, location,
	template_name, template_version, beneficiaries, entries, skipped, pages,
	grand_total, error_message, created_at`

// Create records an export run
func (r *ExportRunRepository) Create(ctx context.Context, run *models.ExportRun) error {
	query := `INSERT INTO export_runs (` + exportRunColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, r.db.Rebind(query),
		run.ID,
		run.Kind,
		run.Format,
		run.Month,
		run.Year,
		run.Search,
		run.Status,
		run.FileName,
		run.Location,
		run.TemplateName,
		run.TemplateVersion,
		run.Beneficiaries,
		run.Entries,
		run.Skipped,
		run.Pages,
		run.GrandTotal.StringFixed(2),
		run.ErrorMessage,
		run.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create export run", zap.String("id", run.ID), zap.Error(err))
		return fmt.Errorf("failed to create export run: %w", err)
	}
	return nil
}

// GetByID retrieves an export run, or nil when it does not exist
func (r *ExportRunRepository) GetByID(ctx context.Context, id string) (*models.ExportRun, error) {
	query := `SELECT ` + exportRunColumns + ` FROM export_runs WHERE id = ?`

	run, err := scanExportRun(r.db.QueryRowContext(ctx, r.db.Rebind(query), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get export run", zap.String("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get export run: %w", err)
	}
	return run, nil
}

// List returns the most recent export runs, newest first
func (r *ExportRunRepository) List(ctx context.Context, limit int) ([]*models.ExportRun, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + exportRunColumns + ` FROM export_runs ORDER BY created_at DESC, id LIMIT ?`

	rows, err := r.db.QueryContext(ctx, r.db.Rebind(query), limit)
	if err != nil {
		r.logger.Error("Failed to list export runs", zap.Error(err))
		return nil, fmt.Errorf("failed to list export runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.ExportRun
	for rows.Next() {
		run, err := scanExportRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan export run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExportRun(row rowScanner) (*models.ExportRun, error) {
	var run models.ExportRun
	var grandTotal string

	err := row.Scan(
		&run.ID,
		&run.Kind,
		&run.Format,
		&run.Month,
		&run.Year,
		&run.Search,
		&run.Status,
		&run.FileName,
		&run.Location,
		&run.TemplateName,
		&run.TemplateVersion,
		&run.Beneficiaries,
		&run.Entries,
		&run.Skipped,
		&run.Pages,
		&grandTotal,
		&run.ErrorMessage,
		&run.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	run.GrandTotal, err = decimal.NewFromString(grandTotal)
	if err != nil {
		return nil, fmt.Errorf("invalid grand total %q: %w", grandTotal, err)
	}
	return &run, nil
}
