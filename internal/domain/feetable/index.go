// Package feetable loads the CBHPM reference fee table into an in-memory
// index mapping procedure code to role-specific amounts. The index is
// immutable after load and safe to share across concurrent parses.
package feetable

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/medcheck-br/medcheck/internal/domain/role"
)

// Entry is one reference row: a procedure and its role-keyed amounts.
type Entry struct {
	Code             string
	Description      string
	Surgeon          decimal.Decimal
	Anesthesiologist decimal.Decimal
	FirstAssistant   decimal.Decimal
}

// LoadWarning records a cell that failed to normalize during load. The
// affected value defaults to zero; the load itself never fails on a cell.
type LoadWarning struct {
	Row    int
	Column string
	Raw    string
}

// LoadResult is the outcome of a table load.
type LoadResult struct {
	Index       *Index
	Warnings    []LoadWarning
	RowsTotal   int
	RowsLoaded  int
	RowsSkipped int
}

// Index is the read-only code lookup.
type Index struct {
	entries map[string]Entry
}

// NewIndex builds an index directly from entries, mainly for tests and
// callers that already hold normalized data.
func NewIndex(entries []Entry) *Index {
	m := make(map[string]Entry, len(entries))
	for _, e := range entries {
		if code, ok := NormalizeCode(e.Code); ok {
			e.Code = code
			m[code] = e
		}
	}
	return &Index{entries: m}
}

// Len returns the number of indexed procedures.
func (ix *Index) Len() int { return len(ix.entries) }

// Lookup returns the entry for a procedure code.
func (ix *Index) Lookup(code string) (Entry, bool) {
	key, ok := NormalizeCode(code)
	if !ok {
		return Entry{}, false
	}
	e, ok := ix.entries[key]
	return e, ok
}

// Value returns the reference amount for a code under a given role.
// Second and generic assistants are paid from the first-assistant column,
// matching the reference table layout. Unrecognized roles have no
// reference amount.
func (ix *Index) Value(code string, r role.Role) (decimal.Decimal, bool) {
	e, ok := ix.Lookup(code)
	if !ok {
		return decimal.Zero, false
	}
	switch r {
	case role.Surgeon:
		return e.Surgeon, true
	case role.Anesthesiologist:
		return e.Anesthesiologist, true
	case role.FirstAssistant, role.SecondAssistant, role.GenericAssistant:
		return e.FirstAssistant, true
	default:
		return decimal.Zero, false
	}
}

// NormalizeCode coerces a raw code cell to its canonical digit form.
// Spreadsheet cells often surface integer codes as floats ("30602010.0");
// anything that is not integer-coercible is rejected.
func NormalizeCode(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", false
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsInteger() || d.IsNegative() {
		return "", false
	}
	return d.String(), true
}
