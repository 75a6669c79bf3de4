// Package payroll turns payment and back-pay records into a paginated,
// running-total transfer order plan.
package payroll

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryKind distinguishes monthly payments from back-pay (rappel) entries
type EntryKind string

const (
	EntryKindPayment EntryKind = "payment"
	EntryKindBackPay EntryKind = "backpay"
)

// Carry-forward labels
const (
	LabelCarryOut = "TOTAL A REPORTER"
	LabelCarryIn  = "TOTAL REPORTE"
)

// RawEntry is one payment or back-pay unit exactly as fetched from the record source
type RawEntry struct {
	Kind            EntryKind
	BeneficiaryID   int64
	BeneficiaryName string
	BankName        string
	RIB             string
	Amount          string // decimal string as stored
	DurationDays    *int   // back-pay only
	FiscalYear      int    // back-pay only (exercice)
	Date            string // ISO-8601 payment or generation date
}

// Entry is a validated RawEntry
type Entry struct {
	Kind            EntryKind
	BeneficiaryID   int64
	BeneficiaryName string
	BankName        string
	RIB             string
	Amount          decimal.Decimal
	DurationDays    int
	FiscalYear      int
	Date            time.Time
}

// ResidentAggregate groups all entries of one beneficiary
type ResidentAggregate struct {
	BeneficiaryID   int64
	BeneficiaryName string
	BankName        string // from the last entry
	RIB             string // from the last entry
	Entries         []Entry
	Subtotal        decimal.Decimal
	TotalDays       int
}

// ReportRow is one line of a transfer order. The set of implementations is
// closed: DataRow, SubtotalRow, CarryForwardRow and GrandTotalRow.
type ReportRow interface {
	reportRow()
}

// DataRow is a single entry with its own formatted period
type DataRow struct {
	Entry  Entry
	Period string
}

// SubtotalRow closes a beneficiary block
type SubtotalRow struct {
	Aggregate ResidentAggregate
	Period    string
}

// CarryForwardRow marks the running total at a page boundary
type CarryForwardRow struct {
	Amount decimal.Decimal
	Label  string
}

// GrandTotalRow closes the last page
type GrandTotalRow struct {
	Amount        decimal.Decimal
	AmountInWords string
}

func (DataRow) reportRow()         {}
func (SubtotalRow) reportRow()     {}
func (CarryForwardRow) reportRow() {}
func (GrandTotalRow) reportRow()   {}

// Amount returns the entry amount
func (r DataRow) Amount() decimal.Decimal { return r.Entry.Amount }

// Amount returns the beneficiary subtotal
func (r SubtotalRow) Amount() decimal.Decimal { return r.Aggregate.Subtotal }

// Page is one physical page of the transfer order
type Page struct {
	Number     int
	Rows       []ReportRow
	Height     float64
	CarryIn    decimal.Decimal // running total entering the page
	PageAmount decimal.Decimal // sum of the data rows printed on this page
}

// Plan is the complete page layout of one export
type Plan struct {
	Pages         []Page
	GrandTotal    decimal.Decimal
	AmountInWords string
}

// Subtotals returns every subtotal row of the plan in order
func (p *Plan) Subtotals() []SubtotalRow {
	var out []SubtotalRow
	for _, page := range p.Pages {
		for _, row := range page.Rows {
			if st, ok := row.(SubtotalRow); ok {
				out = append(out, st)
			}
		}
	}
	return out
}

// RowCount returns the number of data and subtotal rows across all pages
func (p *Plan) RowCount() int {
	n := 0
	for _, page := range p.Pages {
		for _, row := range page.Rows {
			switch row.(type) {
			case DataRow, SubtotalRow:
				n++
			}
		}
	}
	return n
}
