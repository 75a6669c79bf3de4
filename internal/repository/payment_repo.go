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

// PaymentRepository handles monthly payment database operations
type PaymentRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(db *database.DB, logger *zap.Logger) *PaymentRepository {
	return &PaymentRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a monthly payment and returns its ID
func (r *PaymentRepository) Create(ctx context.Context, p models.NewMonthlyPayment) (int64, error) {
	if err := utils.ValidateAmount(p.Amount); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}

	query := `
		INSERT INTO monthly_payments (resident_id, amount, payment_date)
		VALUES (?, ?, ?)
	`

	id, err := r.db.InsertID(ctx, query, p.ResidentID, p.Amount.StringFixed(2), dateArg(r.db, p.PaymentDate))
	if err != nil {
		r.logger.Error("Failed to create payment", zap.Int64("resident_id", p.ResidentID), zap.Error(err))
		return 0, fmt.Errorf("failed to create payment: %w", err)
	}
	return id, nil
}

// List returns payments matching the filter ordered by resident name, then
// payment date
func (r *PaymentRepository) List(ctx context.Context, filter Filter) ([]*models.MonthlyPayment, error) {
	query := `
		SELECT p.id, p.resident_id, r.last_name, r.first_name,
			COALESCE(b.name, ''), r.rib, p.amount, p.payment_date, p.created_at
		FROM monthly_payments p
		JOIN residents r ON r.id = p.resident_id
		LEFT JOIN banks b ON b.id = r.bank_id`

	where, args := filter.where(r.db, "p.payment_date")
	query += where + " ORDER BY r.last_name, r.first_name, p.payment_date, p.id"

	rows, err := r.db.QueryContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		r.logger.Error("Failed to list payments", zap.Error(err))
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	var payments []*models.MonthlyPayment
	for rows.Next() {
		var p models.MonthlyPayment
		var lastName, firstName string
		var amount, date sql.NullString
		var createdAt sql.NullTime

		if err := rows.Scan(
			&p.ID,
			&p.ResidentID,
			&lastName,
			&firstName,
			&p.BankName,
			&p.RIB,
			&amount,
			&date,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}

		resident := models.Resident{LastName: lastName, FirstName: firstName}
		p.ResidentName = resident.FullName()
		p.Amount = amount.String
		p.PaymentDate = date.String
		if createdAt.Valid {
			p.CreatedAt = createdAt.Time
		}
		payments = append(payments, &p)
	}

	return payments, rows.Err()
}

// ListDates returns the distinct payment dates, used to build period filters
func (r *PaymentRepository) ListDates(ctx context.Context) ([]string, error) {
	return listDistinctDates(ctx, r.db, "monthly_payments", "payment_date")
}

func listDistinctDates(ctx context.Context, db *database.DB, table, column string) ([]string, error) {
	query := fmt.Sprintf("SELECT DISTINCT %s FROM %s ORDER BY %s", column, table, column)

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s dates: %w", table, err)
	}
	defer rows.Close()

	var dates []string
	for rows.Next() {
		var d sql.NullString
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("failed to scan %s date: %w", table, err)
		}
		if d.Valid {
			dates = append(dates, d.String)
		}
	}
	return dates, rows.Err()
}
