package transferorder

import (
	"context"

	"github.com/garyjia/resident-payroll/internal/models"
	"github.com/garyjia/resident-payroll/internal/payroll"
	"github.com/garyjia/resident-payroll/internal/repository"
)

// RecordSource fetches the raw entries of a transfer order
type RecordSource interface {
	// Fetch returns the entries of kind matching filter, in beneficiary order
	Fetch(ctx context.Context, kind Kind, filter repository.Filter) ([]payroll.RawEntry, error)

	// Dates returns the raw payment or generation dates of kind
	Dates(ctx context.Context, kind Kind) ([]string, error)
}

// TemplateLoader loads the spreadsheet template of a kind
type TemplateLoader interface {
	Load(kind Kind) (*Template, error)
}

// Renderer turns a page plan into a binary document
type Renderer interface {
	Format() Format

	// Geometry is the page geometry the plan must be computed with
	Geometry() payroll.PlanOptions

	// NeedsTemplate reports whether Render requires Document.Template
	NeedsTemplate() bool

	Render(ctx context.Context, doc *Document) ([]byte, error)
}

// ExportLog records export attempts
type ExportLog interface {
	Create(ctx context.Context, run *models.ExportRun) error
	List(ctx context.Context, limit int) ([]*models.ExportRun, error)
	GetByID(ctx context.Context, id string) (*models.ExportRun, error)
}

// PaymentLister for dependency injection
type PaymentLister interface {
	List(ctx context.Context, filter repository.Filter) ([]*models.MonthlyPayment, error)
	ListDates(ctx context.Context) ([]string, error)
}

// RappelLister for dependency injection
type RappelLister interface {
	List(ctx context.Context, filter repository.Filter) ([]*models.AnnualRappel, error)
	ListDates(ctx context.Context) ([]string, error)
}
