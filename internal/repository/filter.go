package repository

import (
	"strings"
	"time"

	"github.com/garyjia/resident-payroll/pkg/database"
)

const isoDate = "2006-01-02"

// Filter restricts payment and rappel listings
type Filter struct {
	From   time.Time // inclusive, zero means unbounded
	To     time.Time // exclusive, zero means unbounded
	Search string    // case-insensitive match on the resident's full name
}

// PeriodFilter builds a Filter for a calendar month. month 0 selects the
// whole year and year 0 selects every record.
func PeriodFilter(year, month int, search string) Filter {
	f := Filter{Search: search}
	switch {
	case year == 0:
	case month == 0:
		f.From = time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		f.To = f.From.AddDate(1, 0, 0)
	default:
		f.From = time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
		f.To = f.From.AddDate(0, 1, 0)
	}
	return f
}

// where appends the filter predicates on dateColumn to a query ending in a WHERE-less FROM/JOIN clause
func (f Filter) where(db *database.DB, dateColumn string) (string, []any) {
	var clauses []string
	var args []any

	if !f.From.IsZero() {
		clauses = append(clauses, dateColumn+" >= ?")
		args = append(args, dateArg(db, f.From))
	}
	if !f.To.IsZero() {
		clauses = append(clauses, dateColumn+" < ?")
		args = append(args, dateArg(db, f.To))
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		clauses = append(clauses, "LOWER(r.last_name || ' ' || r.first_name) LIKE ?")
		args = append(args, "%"+strings.ToLower(s)+"%")
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// dateArg binds a calendar date. Dates are TEXT columns on sqlite and DATE on postgres.
func dateArg(db *database.DB, t time.Time) any {
	if db.IsPostgres() {
		return t
	}
	return t.Format(isoDate)
}
