package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AnnualRappel is a back-pay (rappel) line for one resident and fiscal year
type AnnualRappel struct {
	ID             int64     `json:"id"`
	ResidentID     int64     `json:"resident_id"`
	ResidentName   string    `json:"resident_name"`
	BankName       string    `json:"bank_name"`
	RIB            string    `json:"rib"`
	FiscalYear     int       `json:"fiscal_year"` // exercice
	DurationDays   *int      `json:"duration_days,omitempty"`
	Amount         string    `json:"amount"`
	GenerationDate string    `json:"generation_date"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewAnnualRappel is the input of RappelRepository.Create
type NewAnnualRappel struct {
	ResidentID     int64
	FiscalYear     int
	DurationDays   int
	Amount         decimal.Decimal
	GenerationDate time.Time
}
