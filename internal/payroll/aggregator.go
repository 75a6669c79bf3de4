package payroll

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Accepted date layouts for RawEntry.Date
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
}

// SkippedEntry reports an entry left out of the aggregation
type SkippedEntry struct {
	Index           int // position in the input sequence
	BeneficiaryName string
	Reason          string
	Err             error
}

// Aggregation is the output of Aggregate
type Aggregation struct {
	Rows    []ReportRow
	Groups  []ResidentAggregate
	Skipped []SkippedEntry
}

// Total returns the sum of all group subtotals
func (a *Aggregation) Total() decimal.Decimal {
	total := decimal.Zero
	for _, g := range a.Groups {
		total = total.Add(g.Subtotal)
	}
	return total
}

// EntryCount returns the number of entries kept in the aggregation
func (a *Aggregation) EntryCount() int {
	n := 0
	for _, g := range a.Groups {
		n += len(g.Entries)
	}
	return n
}

// Aggregate groups entries by beneficiary and emits, per beneficiary in
// first-seen order, one DataRow per entry followed by one SubtotalRow.
// Invalid entries are excluded and reported in Skipped.
func Aggregate(entries []RawEntry) Aggregation {
	var result Aggregation

	order := make([]string, 0)
	groups := make(map[string][]Entry)

	for i, raw := range entries {
		entry, err := ValidateEntry(raw)
		if err != nil {
			result.Skipped = append(result.Skipped, SkippedEntry{
				Index:           i,
				BeneficiaryName: strings.TrimSpace(raw.BeneficiaryName),
				Reason:          strings.TrimPrefix(err.Error(), ErrMalformedEntry.Error()+": "),
				Err:             err,
			})
			continue
		}

		key := beneficiaryKey(entry)
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], entry)
	}

	for _, key := range order {
		group := newResidentAggregate(groups[key])
		for _, entry := range group.Entries {
			result.Rows = append(result.Rows, DataRow{
				Entry:  entry,
				Period: FormatPeriod(entry.DurationDays),
			})
		}
		result.Rows = append(result.Rows, SubtotalRow{
			Aggregate: group,
			Period:    FormatPeriod(group.TotalDays),
		})
		result.Groups = append(result.Groups, group)
	}

	return result
}

// newResidentAggregate sums a beneficiary's entries. The bank details of the
// last entry are considered current.
func newResidentAggregate(entries []Entry) ResidentAggregate {
	last := entries[len(entries)-1]
	group := ResidentAggregate{
		BeneficiaryID:   last.BeneficiaryID,
		BeneficiaryName: entries[0].BeneficiaryName,
		BankName:        last.BankName,
		RIB:             last.RIB,
		Entries:         entries,
		Subtotal:        decimal.Zero,
	}
	for _, e := range entries {
		group.Subtotal = group.Subtotal.Add(e.Amount)
		group.TotalDays += e.DurationDays
	}
	return group
}

func beneficiaryKey(e Entry) string {
	if e.BeneficiaryID != 0 {
		return "id:" + strconv.FormatInt(e.BeneficiaryID, 10)
	}
	return "name:" + e.BeneficiaryName
}

// ValidateEntry parses and checks a RawEntry. Errors wrap ErrMalformedEntry.
func ValidateEntry(raw RawEntry) (Entry, error) {
	name := strings.TrimSpace(raw.BeneficiaryName)
	if name == "" {
		return Entry{}, fmt.Errorf("%w: missing beneficiary name", ErrMalformedEntry)
	}

	amount, err := ParseAmount(raw.Amount)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: %v", ErrMalformedEntry, err)
	}

	date, err := ParseDate(raw.Date)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: %v", ErrMalformedEntry, err)
	}

	if strings.TrimSpace(raw.RIB) == "" {
		return Entry{}, fmt.Errorf("%w: missing bank account reference", ErrMalformedEntry)
	}
	if strings.TrimSpace(raw.BankName) == "" {
		return Entry{}, fmt.Errorf("%w: missing bank name", ErrMalformedEntry)
	}

	days := 0
	if raw.DurationDays != nil {
		days = *raw.DurationDays
	}
	if raw.Kind == EntryKindBackPay && raw.DurationDays == nil {
		return Entry{}, fmt.Errorf("%w: missing back-pay duration", ErrMalformedEntry)
	}
	if days < 0 {
		return Entry{}, fmt.Errorf("%w: negative duration %d", ErrMalformedEntry, days)
	}

	return Entry{
		Kind:            raw.Kind,
		BeneficiaryID:   raw.BeneficiaryID,
		BeneficiaryName: name,
		BankName:        strings.TrimSpace(raw.BankName),
		RIB:             strings.TrimSpace(raw.RIB),
		Amount:          amount,
		DurationDays:    days,
		FiscalYear:      raw.FiscalYear,
		Date:            date,
	}, nil
}

// ParseAmount parses a non-negative decimal amount. Both "12.34" and "12,34"
// are accepted.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("missing amount")
	}
	s = strings.ReplaceAll(s, ",", ".")

	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", s)
	}
	if amount.IsNegative() {
		return decimal.Zero, fmt.Errorf("negative amount %s", s)
	}
	return amount, nil
}

// ParseDate parses an ISO-8601 date or timestamp
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("missing date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}
