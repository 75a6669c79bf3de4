package transferorder

import (
	"github.com/garyjia/resident-payroll/internal/payroll"
)

// Document is everything a renderer needs. The plan is the single source of
// truth for content and totals.
type Document struct {
	Kind     Kind
	Month    int
	Year     int
	Plan     *payroll.Plan
	Template *Template // nil for renderers that do not use one
	Mention  string    // closing line printed below the grand total
}

// Title returns the document heading
func (d *Document) Title() string {
	if d.Kind == KindRappel {
		return "ORDRE DE VIREMENT - RAPPEL"
	}
	return "ORDRE DE VIREMENT"
}

// PeriodLabel returns "Mars 2024"
func (d *Document) PeriodLabel() string {
	return PeriodLabel(d.Month, d.Year)
}

// Signatories printed at the bottom of the last page
const (
	SignatoryOrderingOfficer = "L'ORDONNATEUR"
	SignatoryProxy           = "LE FONDE DE POUVOIRS"
)
