// Package reconcile joins guide procedures against statement payments
// and classifies every record on either side. The join is outer: records
// present on both sides become matched rows, records present on only one
// side are surfaced as guide-only or statement-only rows so that nothing
// a document said simply disappears from the report.
package reconcile

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/medcheck-br/medcheck/internal/domain/feetable"
	"github.com/medcheck-br/medcheck/internal/domain/guide"
	"github.com/medcheck-br/medcheck/internal/domain/role"
	"github.com/medcheck-br/medcheck/internal/domain/statement"
	"github.com/medcheck-br/medcheck/internal/domain/validate"
	"github.com/medcheck-br/medcheck/pkg/money"
)

// Provenance tells which side(s) of the join produced a row.
type Provenance string

const (
	SourceMatched       Provenance = "matched"
	SourceGuideOnly     Provenance = "guide_only"
	SourceStatementOnly Provenance = "statement_only"
)

// Row is one reconciled record. Matched rows always carry a Validation;
// guide-only and statement-only rows carry one only when the code is
// absent from the fee table, so an unknown code is never mistaken for a
// known code whose reference fee is zero. A guide-only row with a known
// code still carries the expected fee table value so the reader can see
// what went unpaid.
type Row struct {
	Provenance   Provenance       `json:"provenance"`
	GuideNumber  string           `json:"guide_number"`
	Code         string           `json:"code"`
	Description  string           `json:"description"`
	Date         string           `json:"date"`
	PatientName  string           `json:"patient_name,omitempty"`
	Role         role.Role        `json:"role,omitempty"`
	Quantity     int              `json:"quantity"`
	Expected     decimal.Decimal  `json:"expected"`
	Approved     decimal.Decimal  `json:"approved"`
	Denied       decimal.Decimal  `json:"denied"`
	DenialCode   string           `json:"denial_code,omitempty"`
	DenialReason string           `json:"denial_reason,omitempty"`
	Validation   *validate.Result `json:"validation,omitempty"`
}

// Summary aggregates the reconciliation outcome.
type Summary struct {
	Matched       int `json:"matched"`
	GuideOnly     int `json:"guide_only"`
	StatementOnly int `json:"statement_only"`

	Valid         int `json:"valid"`
	InvalidValue  int `json:"invalid_value"`
	NotInFeeTable int `json:"not_in_fee_table"`

	// duplicate join keys are reported, never silently deduplicated:
	// a doubled key is exactly the kind of anomaly an audit is for
	DuplicateGuideKeys   int `json:"duplicate_guide_keys"`
	DuplicatePaymentKeys int `json:"duplicate_payment_keys"`

	TotalExpected   decimal.Decimal `json:"total_expected"`
	TotalApproved   decimal.Decimal `json:"total_approved"`
	TotalDifference decimal.Decimal `json:"total_difference"`
}

// TotalsDisplay renders the financial totals in the payer display
// convention, for logs and terminal output.
func (s Summary) TotalsDisplay() string {
	return fmt.Sprintf("expected %s, approved %s, difference %s",
		money.FormatBRL(s.TotalExpected),
		money.FormatBRL(s.TotalApproved),
		money.FormatBRL(s.TotalDifference),
	)
}

// Result is the full reconciliation output.
type Result struct {
	Rows    []Row
	Summary Summary
}

// Reconciler joins the two document sides and validates matched values.
type Reconciler struct {
	index     *feetable.Index
	validator *validate.Validator
}

// New returns a reconciler over the given fee table index and validator.
func New(index *feetable.Index, validator *validate.Validator) *Reconciler {
	return &Reconciler{index: index, validator: validator}
}

// joinKey identifies a procedure across both document kinds. Statements
// carry no role or registration at line level, so guide number plus
// normalized code is the finest key both sides share.
type joinKey struct {
	guide string
	code  string
}

func keyOf(guideNumber, code string) joinKey {
	k := joinKey{guide: strings.TrimSpace(guideNumber)}
	if norm, ok := feetable.NormalizeCode(code); ok {
		k.code = norm
	} else {
		k.code = strings.TrimSpace(code)
	}
	return k
}

// Reconcile outer-joins guide procedures against payment records.
// Row order is deterministic: payment-side rows in statement order, then
// unmatched guide rows in guide order. Every payment record contributes
// exactly one row; the join is many-to-one from the guide side, so
// duplicate guide procedures under a matched key are surfaced through
// DuplicateGuideKeys rather than extra rows.
func (r *Reconciler) Reconcile(procs []guide.Procedure, payments []statement.PaymentRecord) *Result {
	result := &Result{}

	guidesByKey := make(map[joinKey][]*guide.Procedure)
	for i := range procs {
		k := keyOf(procs[i].GuideNumber, procs[i].Code)
		guidesByKey[k] = append(guidesByKey[k], &procs[i])
		if len(guidesByKey[k]) == 2 {
			result.Summary.DuplicateGuideKeys++
		}
	}

	paymentKeySeen := make(map[joinKey]int)
	matchedGuideKeys := make(map[joinKey]bool)

	for i := range payments {
		pay := &payments[i]
		k := keyOf(pay.GuideNumber, pay.Code)

		paymentKeySeen[k]++
		if paymentKeySeen[k] == 2 {
			result.Summary.DuplicatePaymentKeys++
		}

		result.Summary.TotalApproved = result.Summary.TotalApproved.Add(pay.Approved)

		if gs, ok := guidesByKey[k]; ok {
			matchedGuideKeys[k] = true
			row := r.matchedRow(k, gs[0], pay)
			switch row.Validation.Status {
			case validate.StatusValid:
				result.Summary.Valid++
			case validate.StatusInvalidValue:
				result.Summary.InvalidValue++
			case validate.StatusNotInFeeTable:
				result.Summary.NotInFeeTable++
			}
			if row.Validation.Status != validate.StatusNotInFeeTable {
				result.Summary.TotalExpected = result.Summary.TotalExpected.Add(row.Expected)
				result.Summary.TotalDifference = result.Summary.TotalDifference.Add(row.Validation.Difference)
			}
			result.Rows = append(result.Rows, row)
			result.Summary.Matched++
			continue
		}

		row := r.statementOnlyRow(k, pay)
		if row.Validation != nil {
			result.Summary.NotInFeeTable++
		}
		result.Rows = append(result.Rows, row)
		result.Summary.StatementOnly++
	}

	for i := range procs {
		k := keyOf(procs[i].GuideNumber, procs[i].Code)
		if matchedGuideKeys[k] {
			continue
		}
		row := r.guideOnlyRow(k, &procs[i])
		if row.Validation != nil {
			result.Summary.NotInFeeTable++
		}
		result.Rows = append(result.Rows, row)
		result.Summary.GuideOnly++
	}

	return result
}

func (r *Reconciler) matchedRow(k joinKey, proc *guide.Procedure, pay *statement.PaymentRecord) Row {
	v := r.validator.Validate(k.code, pay.Approved, proc.ExercisedRole)

	row := Row{
		Provenance:   SourceMatched,
		GuideNumber:  k.guide,
		Code:         k.code,
		Description:  pay.Description,
		Date:         pay.Date,
		PatientName:  pay.PatientName,
		Role:         proc.ExercisedRole,
		Quantity:     pay.Quantity,
		Expected:     v.Expected,
		Approved:     pay.Approved,
		Denied:       pay.Denied,
		DenialCode:   pay.DenialCode,
		DenialReason: pay.DenialReason,
		Validation:   &v,
	}
	return row
}

func (r *Reconciler) statementOnlyRow(k joinKey, pay *statement.PaymentRecord) Row {
	row := Row{
		Provenance:   SourceStatementOnly,
		GuideNumber:  k.guide,
		Code:         k.code,
		Description:  pay.Description,
		Date:         pay.Date,
		PatientName:  pay.PatientName,
		Quantity:     pay.Quantity,
		Approved:     pay.Approved,
		Denied:       pay.Denied,
		DenialCode:   pay.DenialCode,
		DenialReason: pay.DenialReason,
	}
	if _, ok := r.index.Lookup(k.code); !ok {
		row.Validation = &validate.Result{Status: validate.StatusNotInFeeTable, Paid: pay.Approved}
	}
	return row
}

func (r *Reconciler) guideOnlyRow(k joinKey, proc *guide.Procedure) Row {
	row := Row{
		Provenance:  SourceGuideOnly,
		GuideNumber: k.guide,
		Code:        k.code,
		Description: proc.Description,
		Date:        proc.ExecutionDate,
		PatientName: proc.BeneficiaryName,
		Role:        proc.ExercisedRole,
		Quantity:    proc.Quantity,
	}
	if expected, ok := r.index.Value(k.code, proc.ExercisedRole); ok {
		row.Expected = expected
	} else {
		row.Validation = &validate.Result{Status: validate.StatusNotInFeeTable}
	}
	return row
}
