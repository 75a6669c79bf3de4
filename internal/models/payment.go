package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bank is a paying bank
type Bank struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Resident is a medical resident receiving payments
type Resident struct {
	ID        int64     `json:"id"`
	LastName  string    `json:"last_name"`
	FirstName string    `json:"first_name"`
	RIB       string    `json:"rib"`
	BankID    *int64    `json:"bank_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// FullName returns "LASTNAME Firstname" as printed on transfer orders
func (r *Resident) FullName() string {
	if r.FirstName == "" {
		return r.LastName
	}
	return r.LastName + " " + r.FirstName
}

// MonthlyPayment is a monthly allowance payment joined with its resident and bank.
// Amount and PaymentDate are kept as stored; they are validated by the export engine.
type MonthlyPayment struct {
	ID           int64     `json:"id"`
	ResidentID   int64     `json:"resident_id"`
	ResidentName string    `json:"resident_name"`
	BankName     string    `json:"bank_name"`
	RIB          string    `json:"rib"`
	Amount       string    `json:"amount"`
	PaymentDate  string    `json:"payment_date"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewMonthlyPayment is the input of PaymentRepository.Create
type NewMonthlyPayment struct {
	ResidentID  int64
	Amount      decimal.Decimal
	PaymentDate time.Time
}
