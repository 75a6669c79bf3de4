package payroll

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatPeriod(t *testing.T) {
	tests := []struct {
		name string
		days int
		want string
	}{
		{"zero", 0, ""},
		{"single day", 1, "1 jour"},
		{"days only", 29, "29 jours"},
		{"one month", 30, "1 mois"},
		{"months and days", 45, "1 mois 15 jours"},
		{"one year", 365, "1 an"},
		{"year and month", 395, "1 an 1 mois"},
		{"years", 730, "2 ans"},
		{"all units", 365*2 + 30*3 + 4, "2 ans 3 mois 4 jours"},
		{"year and day", 366, "1 an 1 jour"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatPeriod(tt.days))
		})
	}
}

func TestFormatPeriod_NegativePanics(t *testing.T) {
	assert.Panics(t, func() { FormatPeriod(-1) })
}

func TestFormatPeriod_RoundTrip(t *testing.T) {
	units := map[string]int{
		"an": daysPerYear, "ans": daysPerYear,
		"mois": daysPerMonth,
		"jour": 1, "jours": 1,
	}

	for d := 0; d <= 3*daysPerYear+40; d++ {
		out := FormatPeriod(d)
		if d == 0 {
			require.Empty(t, out)
			continue
		}

		fields := strings.Fields(out)
		require.Equal(t, 0, len(fields)%2, "odd field count for %d: %q", d, out)

		total := 0
		for i := 0; i < len(fields); i += 2 {
			n, err := strconv.Atoi(fields[i])
			require.NoError(t, err)
			require.Positive(t, n, "zero unit emitted for %d: %q", d, out)

			size, ok := units[fields[i+1]]
			require.True(t, ok, "unknown unit %q", fields[i+1])
			total += n * size
		}
		require.Equal(t, d, total, "round trip of %q", out)
	}
}
