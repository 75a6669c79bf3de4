package transferorder

import (
	"context"
	"fmt"

	"github.com/garyjia/resident-payroll/internal/payroll"
	"github.com/garyjia/resident-payroll/internal/repository"
)

// RepositorySource reads entries from the payment and rappel repositories
type RepositorySource struct {
	payments PaymentLister
	rappels  RappelLister
}

// NewRepositorySource creates a new RepositorySource
func NewRepositorySource(payments PaymentLister, rappels RappelLister) *RepositorySource {
	return &RepositorySource{
		payments: payments,
		rappels:  rappels,
	}
}

// Fetch implements RecordSource
func (s *RepositorySource) Fetch(ctx context.Context, kind Kind, filter repository.Filter) ([]payroll.RawEntry, error) {
	switch kind {
	case KindPayment:
		payments, err := s.payments.List(ctx, filter)
		if err != nil {
			return nil, err
		}
		entries := make([]payroll.RawEntry, 0, len(payments))
		for _, p := range payments {
			entries = append(entries, payroll.RawEntry{
				Kind:            kind.EntryKind(),
				BeneficiaryID:   p.ResidentID,
				BeneficiaryName: p.ResidentName,
				BankName:        p.BankName,
				RIB:             p.RIB,
				Amount:          p.Amount,
				Date:            p.PaymentDate,
			})
		}
		return entries, nil

	case KindRappel:
		rappels, err := s.rappels.List(ctx, filter)
		if err != nil {
			return nil, err
		}
		entries := make([]payroll.RawEntry, 0, len(rappels))
		for _, r := range rappels {
			entries = append(entries, payroll.RawEntry{
				Kind:            kind.EntryKind(),
				BeneficiaryID:   r.ResidentID,
				BeneficiaryName: r.ResidentName,
				BankName:        r.BankName,
				RIB:             r.RIB,
				Amount:          r.Amount,
				DurationDays:    r.DurationDays,
				FiscalYear:      r.FiscalYear,
				Date:            r.GenerationDate,
			})
		}
		return entries, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

// Dates implements RecordSource
func (s *RepositorySource) Dates(ctx context.Context, kind Kind) ([]string, error) {
	switch kind {
	case KindPayment:
		return s.payments.ListDates(ctx)
	case KindRappel:
		return s.rappels.ListDates(ctx)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}
