package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/garyjia/resident-payroll/internal/models"
	"github.com/garyjia/resident-payroll/pkg/database"
	"github.com/garyjia/resident-payroll/pkg/utils"
	"go.uber.org/zap"
)

// RappelRepository handles annual back-pay (rappel) database operations
type RappelRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewRappelRepository creates a new rappel repository
func NewRappelRepository(db *database.DB, logger *zap.Logger) *RappelRepository {
	return &RappelRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a rappel and returns its ID
func (r *RappelRepository) Create(ctx context.Context, rp models.NewAnnualRappel) (int64, error) {
	if err := utils.ValidateAmount(rp.Amount); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	if rp.DurationDays < 0 {
		return 0, fmt.Errorf("%w: negative duration %d", ErrInvalidRecord, rp.DurationDays)
	}

	query := `
		INSERT INTO annual_rappels (resident_id, fiscal_year, duration_days, amount, generation_date)
		VALUES (?, ?, ?, ?, ?)
	`

	id, err := r.db.InsertID(ctx, query,
		rp.ResidentID,
		rp.FiscalYear,
		rp.DurationDays,
		rp.Amount.StringFixed(2),
		dateArg(r.db, rp.GenerationDate),
	)
	if err != nil {
		r.logger.Error("Failed to create rappel", zap.Int64("resident_id", rp.ResidentID), zap.Error(err))
		return 0, fmt.Errorf("failed to create rappel: %w", err)
	}
	return id, nil
}

// List returns rappels matching the filter ordered by resident name, then
// fiscal year
func (r *RappelRepository) List(ctx context.Context, filter Filter) ([]*models.AnnualRappel, error) {
	query := `
		SELECT a.id, a.resident_id, r.last_name, r.first_name,
			COALESCE(b.name, ''), r.rib, a.fiscal_year, a.duration_days,
			a.amount, a.generation_date, a.created_at
		FROM annual_rappels a
		JOIN residents r ON r.id = a.resident_id
		LEFT JOIN banks b ON b.id = r.bank_id`

	where, args := filter.where(r.db, "a.generation_date")
	query += where + " ORDER BY r.last_name, r.first_name, a.fiscal_year, a.id"

	rows, err := r.db.QueryContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		r.logger.Error("Failed to list rappels", zap.Error(err))
		return nil, fmt.Errorf("failed to list rappels: %w", err)
	}
	defer rows.Close()

	var rappels []*models.AnnualRappel
	for rows.Next() {
		var rp models.AnnualRappel
		var lastName, firstName string
		var duration sql.NullInt64
		var amount, date sql.NullString
		var createdAt sql.NullTime

		if err := rows.Scan(
			&rp.ID,
			&rp.ResidentID,
			&lastName,
			&firstName,
			&rp.BankName,
			&rp.RIB,
			&rp.FiscalYear,
			&duration,
			&amount,
			&date,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan rappel: %w", err)
		}

		resident := models.Resident{LastName: lastName, FirstName: firstName}
		rp.ResidentName = resident.FullName()
		if duration.Valid {
			days := int(duration.Int64)
			rp.DurationDays = &days
		}
		rp.Amount = amount.String
		rp.GenerationDate = date.String
		if createdAt.Valid {
			rp.CreatedAt = createdAt.Time
		}
		rappels = append(rappels, &rp)
	}

	return rappels, rows.Err()
}

// ListDates returns the distinct generation dates, used to build period filters
func (r *RappelRepository) ListDates(ctx context.Context) ([]string, error) {
	return listDistinctDates(ctx, r.db, "annual_rappels", "generation_date")
}
