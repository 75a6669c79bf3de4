package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExportRun records one transfer order export attempt
type ExportRun struct {
	ID              string          `json:"id"` // uuid
	Kind            string          `json:"kind"`
	Format          string          `json:"format"`
	Month           int             `json:"month"`
	Year            int             `json:"year"`
	Search          string          `json:"search,omitempty"`
	Status          string          `json:"status"`
	FileName        string          `json:"file_name,omitempty"`
	Location        string          `json:"location,omitempty"`
	TemplateName    string          `json:"template_name,omitempty"`
	TemplateVersion string          `json:"template_version,omitempty"`
	Beneficiaries   int             `json:"beneficiaries"`
	Entries         int             `json:"entries"`
	Skipped         int             `json:"skipped"`
	Pages           int             `json:"pages"`
	GrandTotal      decimal.Decimal `json:"grand_total"`
	ErrorMessage    string          `json:"error_message,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Export run status constants
const (
	ExportStatusSucceeded = "SUCCEEDED"
	ExportStatusFailed    = "FAILED"
)
