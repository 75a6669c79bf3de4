package payroll

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	ntw "moul.io/number-to-words"
)

// Speller converts a non-negative amount to words
type Speller interface {
	Spell(amount decimal.Decimal) (string, error)
}

type numeralLocale struct {
	integer   func(int) string
	zero      string
	separator string
}

var supportedLocales = []language.Tag{
	language.French,
	language.English,
}

// indexed like supportedLocales
var numeralLocales = []numeralLocale{
	{
		integer:   ntw.IntegerToFrFr,
		zero:      "zéro",
		separator: "virgule",
	},
	{
		integer:   ntw.IntegerToEnUs,
		zero:      "zero",
		separator: "point",
	},
}

var localeMatcher = language.NewMatcher(supportedLocales)

// NumeralSpeller spells amounts in French or English. The fractional part is
// read digit group by digit group after the separator word, trailing zeros
// dropped: 350.50 is "trois cent cinquante virgule cinq".
type NumeralSpeller struct {
	tag    language.Tag
	locale numeralLocale
}

// NewNumeralSpeller resolves tag ("fr", "fr-DZ", "en-US", ...) to a supported
// language
func NewNumeralSpeller(tag string) (*NumeralSpeller, error) {
	requested, err := language.Parse(tag)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrUnsupportedLanguage, tag, err)
	}

	_, index, confidence := localeMatcher.Match(requested)
	if confidence == language.No {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, tag)
	}

	return &NumeralSpeller{
		tag:    supportedLocales[index],
		locale: numeralLocales[index],
	}, nil
}

// maxSpellable is the largest integer part the numeral library accepts
var maxSpellable = decimal.NewFromInt(math.MaxInt)

// Language returns the resolved language tag
func (s *NumeralSpeller) Language() language.Tag {
	return s.tag
}

// Spell implements Speller. Amounts are rounded to cents first.
func (s *NumeralSpeller) Spell(amount decimal.Decimal) (string, error) {
	if amount.IsNegative() {
		return "", fmt.Errorf("%w: %s", ErrNegativeAmount, amount.String())
	}

	amount = amount.Round(2)
	integer := amount.Truncate(0)
	if integer.GreaterThan(maxSpellable) {
		return "", fmt.Errorf("%w: %s", ErrAmountTooLarge, amount.String())
	}
	cents := amount.Sub(integer).Shift(2).IntPart()

	words := s.spellInteger(integer.IntPart())
	if cents == 0 {
		return words, nil
	}

	fraction := fmt.Sprintf("%02d", cents)
	fraction = strings.TrimRight(fraction, "0")

	parts := []string{words, s.locale.separator}
	// leading zeros are read out one by one: 0.05 -> "zéro virgule zéro cinq"
	for strings.HasPrefix(fraction, "0") {
		parts = append(parts, s.locale.zero)
		fraction = fraction[1:]
	}
	rest, err := strconv.ParseInt(fraction, 10, 64)
	if err != nil {
		return "", fmt.Errorf("failed to spell fraction of %s: %w", amount.String(), err)
	}
	parts = append(parts, s.spellInteger(rest))

	return strings.Join(parts, " "), nil
}

func (s *NumeralSpeller) spellInteger(n int64) string {
	if n == 0 {
		return s.locale.zero
	}
	return strings.TrimSpace(s.locale.integer(int(n)))
}
