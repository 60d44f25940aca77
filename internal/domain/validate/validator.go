// Package validate compares approved payment values against the fee
// table reference value for the role the doctor exercised.
package validate

import (
	"github.com/shopspring/decimal"

	"github.com/medcheck-br/medcheck/internal/domain/feetable"
	"github.com/medcheck-br/medcheck/internal/domain/role"
)

// Status classifies one value comparison.
type Status string

const (
	// StatusValid means the paid value is within tolerance of the
	// fee table value for the exercised role.
	StatusValid Status = "VALID"
	// StatusInvalidValue means the code is known but the paid value
	// falls outside the tolerance band.
	StatusInvalidValue Status = "INVALID_VALUE"
	// StatusNotInFeeTable means the procedure code has no fee table
	// entry, so no value judgement is possible.
	StatusNotInFeeTable Status = "NOT_IN_FEE_TABLE"
)

// Result is the outcome of validating one payment.
type Result struct {
	Status     Status          `json:"status"`
	IsValid    bool            `json:"is_valid"`
	Expected   decimal.Decimal `json:"expected"`
	Paid       decimal.Decimal `json:"paid"`
	Difference decimal.Decimal `json:"difference"`
	Tolerance  decimal.Decimal `json:"tolerance"`
}

// Validator checks paid values against a fee table index with a
// percentage tolerance.
type Validator struct {
	index        *feetable.Index
	tolerancePct decimal.Decimal
}

// New returns a validator over the given index. tolerancePercent is the
// allowed deviation in percent of the expected value; 1.0 means a paid
// value within ±1% of the fee table value is accepted.
func New(index *feetable.Index, tolerancePercent float64) *Validator {
	return &Validator{
		index:        index,
		tolerancePct: decimal.NewFromFloat(tolerancePercent),
	}
}

var hundred = decimal.NewFromInt(100)

// Validate compares the paid value for a procedure code against the fee
// table value of the exercised role. The tolerance band is inclusive on
// both ends. An expected value of zero accepts only a zero payment.
func (v *Validator) Validate(code string, paid decimal.Decimal, r role.Role) Result {
	expected, ok := v.index.Value(code, r)
	if !ok {
		return Result{
			Status: StatusNotInFeeTable,
			Paid:   paid,
		}
	}

	tolerance := expected.Mul(v.tolerancePct).Div(hundred).Round(2)
	diff := paid.Sub(expected)

	res := Result{
		Expected:   expected,
		Paid:       paid,
		Difference: diff,
		Tolerance:  tolerance,
	}
	if diff.Abs().LessThanOrEqual(tolerance) {
		res.Status = StatusValid
		res.IsValid = true
	} else {
		res.Status = StatusInvalidValue
	}
	return res
}
