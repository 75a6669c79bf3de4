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

// ResidentRepository handles resident and bank database operations
type ResidentRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewResidentRepository creates a new resident repository
func NewResidentRepository(db *database.DB, logger *zap.Logger) *ResidentRepository {
	return &ResidentRepository{
		db:     db,
		logger: logger,
	}
}

// CreateBank inserts a bank and sets its ID
func (r *ResidentRepository) CreateBank(ctx context.Context, bank *models.Bank) error {
	id, err := r.db.InsertID(ctx, "INSERT INTO banks (name) VALUES (?)", bank.Name)
	if err != nil {
		r.logger.Error("Failed to create bank", zap.String("name", bank.Name), zap.Error(err))
		return fmt.Errorf("failed to create bank: %w", err)
	}
	bank.ID = id
	return nil
}

// Create inserts a resident and sets its ID
func (r *ResidentRepository) Create(ctx context.Context, resident *models.Resident) error {
	if err := utils.ValidateRIB(resident.RIB); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}

	query := `
		INSERT INTO residents (last_name, first_name, rib, bank_id)
		VALUES (?, ?, ?, ?)
	`

	var bankID sql.NullInt64
	if resident.BankID != nil {
		bankID = sql.NullInt64{Int64: *resident.BankID, Valid: true}
	}

	id, err := r.db.InsertID(ctx, query, resident.LastName, resident.FirstName, resident.RIB, bankID)
	if err != nil {
		r.logger.Error("Failed to create resident", zap.String("last_name", resident.LastName), zap.Error(err))
		return fmt.Errorf("failed to create resident: %w", err)
	}

	resident.ID = id
	return nil
}
