package reconcile

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medcheck-br/medcheck/internal/domain/feetable"
	"github.com/medcheck-br/medcheck/internal/domain/guide"
	"github.com/medcheck-br/medcheck/internal/domain/role"
	"github.com/medcheck-br/medcheck/internal/domain/statement"
	"github.com/medcheck-br/medcheck/internal/domain/validate"
)

func brl(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newReconciler() *Reconciler {
	index := feetable.NewIndex([]feetable.Entry{
		{Code: "30602010", Surgeon: brl("480.00"), Anesthesiologist: brl("150.00"), FirstAssistant: brl("144.00")},
		{Code: "30602030", Surgeon: brl("300.00"), FirstAssistant: brl("90.00")},
		{Code: "30602050", Surgeon: decimal.Zero},
	})
	return New(index, validate.New(index, 1.0))
}

func proc(guideNumber, code string, r role.Role) guide.Procedure {
	return guide.Procedure{
		GuideNumber:   guideNumber,
		Code:          code,
		ExecutionDate: "01/10/2024",
		Description:   "PROCEDIMENTO",
		Quantity:      1,
		ExercisedRole: r,
	}
}

func payment(guideNumber, code, approved string) statement.PaymentRecord {
	return statement.PaymentRecord{
		GuideNumber: guideNumber,
		Code:        code,
		Date:        "01/10/2024",
		PatientName: "PACIENTE",
		Description: "PROCEDIMENTO",
		Quantity:    1,
		Presented:   brl(approved),
		Approved:    brl(approved),
	}
}

func TestReconcile_MatchedValidation(t *testing.T) {
	r := newReconciler()

	res := r.Reconcile(
		[]guide.Procedure{proc("10696456", "30602010", role.Surgeon)},
		[]statement.PaymentRecord{payment("10696456", "30602010", "480.00")},
	)

	require.Len(t, res.Rows, 1)
	row := res.Rows[0]
	assert.Equal(t, SourceMatched, row.Provenance)
	assert.Equal(t, role.Surgeon, row.Role)
	require.NotNil(t, row.Validation)
	assert.Equal(t, validate.StatusValid, row.Validation.Status)
	assert.True(t, row.Expected.Equal(brl("480.00")))

	assert.Equal(t, 1, res.Summary.Matched)
	assert.Equal(t, 1, res.Summary.Valid)
	assert.True(t, res.Summary.TotalExpected.Equal(brl("480.00")))
	assert.True(t, res.Summary.TotalApproved.Equal(brl("480.00")))
	assert.True(t, res.Summary.TotalDifference.IsZero())
}

func TestReconcile_RoleDrivesExpectedValue(t *testing.T) {
	r := newReconciler()

	// the doctor assisted, so the surgeon value would be an overpayment
	res := r.Reconcile(
		[]guide.Procedure{proc("10696456", "30602010", role.FirstAssistant)},
		[]statement.PaymentRecord{payment("10696456", "30602010", "480.00")},
	)

	require.Len(t, res.Rows, 1)
	row := res.Rows[0]
	assert.Equal(t, validate.StatusInvalidValue, row.Validation.Status)
	assert.True(t, row.Expected.Equal(brl("144.00")))
	assert.True(t, row.Validation.Difference.Equal(brl("336.00")))
	assert.Equal(t, 1, res.Summary.InvalidValue)
}

func TestReconcile_OuterJoinCompleteness(t *testing.T) {
	r := newReconciler()

	procs := []guide.Procedure{
		proc("10696456", "30602010", role.Surgeon), // matched
		proc("10696457", "30602030", role.Surgeon), // guide only
	}
	payments := []statement.PaymentRecord{
		payment("10696456", "30602010", "480.00"), // matched
		payment("10696458", "30602030", "300.00"), // statement only
	}

	res := r.Reconcile(procs, payments)

	// every input record contributes exactly one row
	require.Len(t, res.Rows, 3)
	assert.Equal(t, 1, res.Summary.Matched)
	assert.Equal(t, 1, res.Summary.GuideOnly)
	assert.Equal(t, 1, res.Summary.StatementOnly)

	byProvenance := map[Provenance]int{}
	for _, row := range res.Rows {
		byProvenance[row.Provenance]++
	}
	assert.Equal(t, len(payments), byProvenance[SourceMatched]+byProvenance[SourceStatementOnly])
	assert.Equal(t, len(procs), byProvenance[SourceMatched]+byProvenance[SourceGuideOnly])
}

func TestReconcile_GuideOnlyCarriesExpected(t *testing.T) {
	r := newReconciler()

	res := r.Reconcile(
		[]guide.Procedure{proc("10696457", "30602030", role.Surgeon)},
		nil,
	)

	require.Len(t, res.Rows, 1)
	row := res.Rows[0]
	assert.Equal(t, SourceGuideOnly, row.Provenance)
	assert.True(t, row.Expected.Equal(brl("300.00")))
	assert.Nil(t, row.Validation)
}

func TestReconcile_CodeNormalizationJoinsFloatCodes(t *testing.T) {
	r := newReconciler()

	// spreadsheet-style float code on one side still joins
	res := r.Reconcile(
		[]guide.Procedure{proc("10696456", "30602010.0", role.Surgeon)},
		[]statement.PaymentRecord{payment("10696456", "30602010", "480.00")},
	)

	require.Len(t, res.Rows, 1)
	assert.Equal(t, SourceMatched, res.Rows[0].Provenance)
	assert.Equal(t, "30602010", res.Rows[0].Code)
}

func TestReconcile_DuplicatesSurfacedNotDeduplicated(t *testing.T) {
	r := newReconciler()

	procs := []guide.Procedure{
		proc("10696456", "30602010", role.Surgeon),
		proc("10696456", "30602010", role.Surgeon),
	}
	payments := []statement.PaymentRecord{
		payment("10696456", "30602010", "480.00"),
		payment("10696456", "30602010", "480.00"),
	}

	res := r.Reconcile(procs, payments)

	// both payments produce a matched row; duplicates are metrics
	assert.Equal(t, 2, res.Summary.Matched)
	assert.Equal(t, 1, res.Summary.DuplicateGuideKeys)
	assert.Equal(t, 1, res.Summary.DuplicatePaymentKeys)
	assert.True(t, res.Summary.TotalApproved.Equal(brl("960.00")))
}

func TestReconcile_UnknownCode(t *testing.T) {
	r := newReconciler()

	res := r.Reconcile(
		[]guide.Procedure{proc("10696456", "99999999", role.Surgeon)},
		[]statement.PaymentRecord{payment("10696456", "99999999", "100.00")},
	)

	require.Len(t, res.Rows, 1)
	assert.Equal(t, validate.StatusNotInFeeTable, res.Rows[0].Validation.Status)
	assert.Equal(t, 1, res.Summary.NotInFeeTable)
	// unknown codes contribute nothing to the expected totals
	assert.True(t, res.Summary.TotalExpected.IsZero())
}

func TestReconcile_UnmatchedRowsFlagUnknownCodes(t *testing.T) {
	r := newReconciler()

	procs := []guide.Procedure{
		proc("10696457", "99999999", role.Surgeon), // not in the fee table
		proc("10696458", "30602050", role.Surgeon), // known, reference fee is zero
	}
	payments := []statement.PaymentRecord{
		payment("10696459", "88888888", "100.00"), // paid, not in the fee table
	}

	res := r.Reconcile(procs, payments)
	require.Len(t, res.Rows, 3)

	paid := res.Rows[0]
	assert.Equal(t, SourceStatementOnly, paid.Provenance)
	require.NotNil(t, paid.Validation)
	assert.Equal(t, validate.StatusNotInFeeTable, paid.Validation.Status)
	assert.True(t, paid.Validation.Paid.Equal(brl("100.00")))

	unknown := res.Rows[1]
	assert.Equal(t, SourceGuideOnly, unknown.Provenance)
	require.NotNil(t, unknown.Validation)
	assert.Equal(t, validate.StatusNotInFeeTable, unknown.Validation.Status)
	assert.True(t, unknown.Expected.IsZero())

	// a known zero-fee code must stay distinguishable from an unknown one
	zeroFee := res.Rows[2]
	assert.Equal(t, SourceGuideOnly, zeroFee.Provenance)
	assert.Nil(t, zeroFee.Validation)
	assert.True(t, zeroFee.Expected.IsZero())

	assert.Equal(t, 2, res.Summary.NotInFeeTable)
}

func TestSummaryTotalsDisplay(t *testing.T) {
	s := Summary{
		TotalExpected:   brl("1234.56"),
		TotalApproved:   brl("1230.00"),
		TotalDifference: brl("-4.56"),
	}

	got := s.TotalsDisplay()
	assert.Contains(t, got, "expected")
	assert.Contains(t, got, "1.234,56")
	assert.Contains(t, got, "1.230,00")
}

func TestReconcile_EmptyInputs(t *testing.T) {
	res := newReconciler().Reconcile(nil, nil)
	assert.Empty(t, res.Rows)
	assert.Zero(t, res.Summary.Matched)
}
