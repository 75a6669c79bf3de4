package payroll

import (
	"fmt"
	"strings"
)

// Day counts used to decompose a duration
const (
	daysPerYear  = 365
	daysPerMonth = 30
)

// FormatPeriod renders a day count as years, months and days ("1 an 1 mois").
// Zero components are omitted and 0 yields the empty string.
// totalDays must not be negative.
func FormatPeriod(totalDays int) string {
	if totalDays < 0 {
		panic(fmt.Sprintf("payroll: FormatPeriod called with negative day count %d", totalDays))
	}

	years := totalDays / daysPerYear
	months := (totalDays % daysPerYear) / daysPerMonth
	days := (totalDays % daysPerYear) % daysPerMonth

	parts := make([]string, 0, 3)
	if years > 0 {
		parts = append(parts, fmt.Sprintf("%d %s", years, plural(years, "an", "ans")))
	}
	if months > 0 {
		parts = append(parts, fmt.Sprintf("%d mois", months))
	}
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%d %s", days, plural(days, "jour", "jours")))
	}

	return strings.Join(parts, " ")
}

func plural(n int, one, many string) string {
	if n > 1 {
		return many
	}
	return one
}
