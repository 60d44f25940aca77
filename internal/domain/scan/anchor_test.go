package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnchorFallbackOrder(t *testing.T) {
	a := NewAnchor("provider",
		`Prestador:\s*(\d{5,})\s*-\s*(.+)`,
		`Prestador:\s*(.+)`,
	)

	t.Run("first pattern wins when it matches", func(t *testing.T) {
		m, ok := a.FindLines([]string{"Prestador: 12345 - HOSPITAL CENTRAL"})
		require.True(t, ok)
		assert.Equal(t, "12345", m[1])
		assert.Equal(t, "HOSPITAL CENTRAL", m[2])
	})

	t.Run("falls back when the strict form is absent", func(t *testing.T) {
		m, ok := a.FindLines([]string{"Prestador: HOSPITAL CENTRAL"})
		require.True(t, ok)
		assert.Equal(t, "HOSPITAL CENTRAL", m[1])
	})

	t.Run("earlier pattern beats later line", func(t *testing.T) {
		m, ok := a.FindLines([]string{
			"Prestador: SEM CODIGO",
			"Prestador: 99999 - COM CODIGO",
		})
		require.True(t, ok)
		assert.Equal(t, "99999", m[1])
	})

	t.Run("no match reports false", func(t *testing.T) {
		_, ok := a.FindLines([]string{"nothing here"})
		assert.False(t, ok)
	})
}

func TestLines(t *testing.T) {
	got := Lines([]string{"a\n\n  b  \n", "", "c"})
	assert.Equal(t, []string{"a", "b", "c"}, got)
}
