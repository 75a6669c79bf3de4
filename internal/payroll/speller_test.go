package payroll

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestNewNumeralSpeller(t *testing.T) {
	tests := []struct {
		tag     string
		want    language.Tag
		wantErr bool
	}{
		{tag: "fr", want: language.French},
		{tag: "fr-DZ", want: language.French},
		{tag: "en", want: language.English},
		{tag: "en-GB", want: language.English},
		{tag: "ja", wantErr: true},
		{tag: "not a tag!", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			speller, err := NewNumeralSpeller(tt.tag)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedLanguage)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, speller.Language())
		})
	}
}

func TestNumeralSpeller_Spell(t *testing.T) {
	fr, err := NewNumeralSpeller("fr")
	require.NoError(t, err)
	en, err := NewNumeralSpeller("en")
	require.NoError(t, err)

	t.Run("zero", func(t *testing.T) {
		words, err := fr.Spell(decimal.Zero)
		require.NoError(t, err)
		assert.Equal(t, "zéro", words)

		words, err = en.Spell(decimal.Zero)
		require.NoError(t, err)
		assert.Equal(t, "zero", words)
	})

	t.Run("fraction drops trailing zeros", func(t *testing.T) {
		words, err := fr.Spell(decimal.RequireFromString("350.50"))
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(words, " virgule cinq"), "got %q", words)
	})

	t.Run("leading fractional zero", func(t *testing.T) {
		words, err := fr.Spell(decimal.RequireFromString("0.05"))
		require.NoError(t, err)
		assert.Equal(t, "zéro virgule zéro cinq", words)

		words, err = en.Spell(decimal.RequireFromString("0.05"))
		require.NoError(t, err)
		assert.Equal(t, "zero point zero five", words)
	})

	t.Run("whole amounts have no separator", func(t *testing.T) {
		words, err := fr.Spell(decimal.RequireFromString("1200.00"))
		require.NoError(t, err)
		assert.NotContains(t, words, "virgule")
		assert.NotEmpty(t, words)
	})

	t.Run("rounds to cents", func(t *testing.T) {
		a, err := en.Spell(decimal.RequireFromString("10.004"))
		require.NoError(t, err)
		b, err := en.Spell(decimal.NewFromInt(10))
		require.NoError(t, err)
		assert.Equal(t, b, a)
	})

	t.Run("negative", func(t *testing.T) {
		_, err := fr.Spell(decimal.NewFromInt(-1))
		assert.ErrorIs(t, err, ErrNegativeAmount)
	})
	t.Run("integer part beyond int range", func(t *testing.T) {
		words, err := fr.Spell(decimal.RequireFromString("99999999999999999999"))
		assert.ErrorIs(t, err, ErrAmountTooLarge)
		assert.Empty(t, words)

		_, err = en.Spell(decimal.RequireFromString("9223372036854775808.50"))
		assert.ErrorIs(t, err, ErrAmountTooLarge)
	})
}
