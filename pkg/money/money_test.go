package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBRL(t *testing.T) {
	t.Run("parses plain comma decimal", func(t *testing.T) {
		d, err := ParseBRL("480,00")
		require.NoError(t, err)
		assert.True(t, d.Equal(decimal.RequireFromString("480.00")))
	})

	t.Run("parses thousands separator", func(t *testing.T) {
		d, err := ParseBRL("1.234,56")
		require.NoError(t, err)
		assert.True(t, d.Equal(decimal.RequireFromString("1234.56")))
	})

	t.Run("strips currency symbol and spaces", func(t *testing.T) {
		d, err := ParseBRL("R$ 1.234,56")
		require.NoError(t, err)
		assert.True(t, d.Equal(decimal.RequireFromString("1234.56")))
	})

	t.Run("accepts dot-decimal input", func(t *testing.T) {
		d, err := ParseBRL("1234.56")
		require.NoError(t, err)
		assert.True(t, d.Equal(decimal.RequireFromString("1234.56")))
	})

	t.Run("rejects empty input", func(t *testing.T) {
		_, err := ParseBRL("  ")
		assert.Error(t, err)
	})

	t.Run("rejects non-numeric input", func(t *testing.T) {
		_, err := ParseBRL("N/D")
		assert.Error(t, err)
	})
}

func TestNormalizeBRL(t *testing.T) {
	t.Run("unparsable normalizes to zero", func(t *testing.T) {
		d, ok := NormalizeBRL("N/D")
		assert.False(t, ok)
		assert.True(t, d.IsZero())
	})

	t.Run("negative normalizes to zero", func(t *testing.T) {
		d, ok := NormalizeBRL("-10,00")
		assert.False(t, ok)
		assert.True(t, d.IsZero())
	})

	t.Run("valid amount passes through", func(t *testing.T) {
		d, ok := NormalizeBRL("150,75")
		assert.True(t, ok)
		assert.True(t, d.Equal(decimal.RequireFromString("150.75")))
	})
}

func TestFormatBRL(t *testing.T) {
	got := FormatBRL(decimal.RequireFromString("1234.56"))
	assert.Contains(t, got, "1.234,56")
}

func TestCents(t *testing.T) {
	assert.Equal(t, int64(48000), Cents(decimal.RequireFromString("480.00")))
	assert.Equal(t, int64(2001), Cents(decimal.RequireFromString("20.005")))
}
