package utils

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ribRegex     = regexp.MustCompile(`^[0-9]{20}$`)
	controlChars = regexp.MustCompile(`[\x00-\x1f\x7f]`)
)

// maxSearchLength bounds free-text search filters
const maxSearchLength = 100

// ValidateRIB validates a 20-digit bank account identifier (relevé d'identité bancaire)
func ValidateRIB(rib string) error {
	if !ribRegex.MatchString(rib) {
		return fmt.Errorf("RIB must be 20 digits: %q", rib)
	}
	return nil
}

// ValidateAmount validates a payment amount
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("amount must be positive: %s", amount.StringFixed(2))
	}
	if amount.Exponent() < -2 && !amount.Equal(amount.Round(2)) {
		return fmt.Errorf("amount has more than two decimals: %s", amount.String())
	}
	return nil
}

// SanitizeString removes control characters
func SanitizeString(s string) string {
	return controlChars.ReplaceAllString(s, "")
}

// SanitizeSearch cleans a user-supplied search filter
func SanitizeSearch(s string) string {
	s = strings.TrimSpace(SanitizeString(s))
	if r := []rune(s); len(r) > maxSearchLength {
		s = string(r[:maxSearchLength])
	}
	return s
}
