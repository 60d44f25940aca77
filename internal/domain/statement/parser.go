// Package statement parses payer payment statements ("demonstrativos"):
// the honoraria line items, the document header, and the denial (glosa)
// annotations that explain withheld amounts.
//
// The honoraria section has no stable column grid across payers, so each
// line is tokenized on whitespace and pivoted on the accommodation-type
// token (ENF/APT/INT/UTI): everything left of the pivot is lot, account,
// guide, date, wallet and patient name; everything right is code,
// description and the five trailing quantity/amount fields.
package statement

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/medcheck-br/medcheck/internal/domain/extract"
	"github.com/medcheck-br/medcheck/internal/domain/scan"
	"github.com/medcheck-br/medcheck/pkg/money"
)

// Header is the document-level metadata from page one.
type Header struct {
	Period     string `json:"period"`
	DoctorName string `json:"doctor_name"`
	DoctorCRM  string `json:"doctor_crm"`
	DoctorCPF  string `json:"doctor_cpf"`
}

// PaymentRecord is one honoraria line item. DenialCode and DenialReason
// are filled from the inline glosa annotation or backfilled from the
// detailed glosa section; both empty means nothing was denied or the
// payer gave no reason.
type PaymentRecord struct {
	Lot           string
	Account       string
	GuideNumber   string
	Date          string
	Wallet        string
	PatientName   string
	Accommodation string
	Code          string
	Description   string
	Quantity      int
	Presented     decimal.Decimal
	Approved      decimal.Decimal
	ProRata       decimal.Decimal
	Denied        decimal.Decimal
	DenialCode    string
	DenialReason  string
}

// ParseError records a line that failed extraction or a value that was
// normalized away. The line is excluded (or the value zeroed); parsing
// continues.
type ParseError struct {
	Line    int
	Message string
	Raw     string
}

func (e ParseError) Error() string {
	return fmt.Sprintf("line %d: %s (%q)", e.Line, e.Message, e.Raw)
}

// Result is the outcome of parsing one statement document.
type Result struct {
	Header       Header
	Payments     []PaymentRecord
	Errors       []ParseError
	LinesTotal   int
	LinesParsed  int
	LinesSkipped int
}

// Summary aggregates the statement totals.
type Summary struct {
	Period         string
	TotalPresented decimal.Decimal
	TotalApproved  decimal.Decimal
	TotalDenied    decimal.Decimal
	Procedures     int
}

var (
	periodAnchor = scan.NewAnchor("period",
		`(?i)Per[íi]odo:\s*(.+)`,
	)
	doctorAnchor = scan.NewAnchor("doctor",
		`(?i)Nome:\s*(.+?)\s+CRM:\s*(\d+)\s+CPF:\s*(\d+)`,
	)

	sectionStartRE = regexp.MustCompile(`(?i)\[PM\]\s*HONOR[ÁA]RIOS`)
	sectionEndRE   = regexp.MustCompile(`(?i)^(\[[A-ZÁÉÍÓÚÂÊÔÃÕÇ]|TOTALIZADORES|P[áa]gina|T\s?otal\s+Procedimentos)`)

	headerLineRE = regexp.MustCompile(`(?i)(^\[PM\]|Lote\s+Conta\s+Guia|T\s?otal\s+Procedimentos)`)

	inlineDenialRE = regexp.MustCompile(`^Glosa\s+(\d{4})\s+(.+)$`)

	detailSectionRE = regexp.MustCompile(`(?i)DESCRI[ÇC][ÃA]O DETALHADA DE GLOSA`)
	detailProcRE    = regexp.MustCompile(`^(\d+)\s+(\d+)\s+(\d{2}/\d{2}/\d{4})\s+(.+?)\s+(\d{8})\s+(.+)$`)
	detailHeaderRE  = regexp.MustCompile(`(?i)^Conta\s+Guia\s+Data\s+Nome`)
)

// accommodation-type tokens used as the tokenization pivot
var pivotTokens = map[string]bool{"ENF": true, "APT": true, "INT": true, "UTI": true}

// Parser extracts payment records from statement documents.
type Parser struct{}

// NewParser returns a statement parser.
func NewParser() *Parser { return &Parser{} }

// ParseFile extracts the PDF at path and parses it.
func (p *Parser) ParseFile(path string) (*Result, error) {
	res, err := extract.ExtractFile(path)
	if err != nil {
		return nil, err
	}
	return p.ParseText(res.Pages), nil
}

// ParseText parses page texts already extracted from a statement.
// A document with no recognizable honoraria lines yields an empty
// result, not an error.
func (p *Parser) ParseText(pages []string) *Result {
	b := &builder{}
	b.parseHeader(pages)
	b.parseHonoraria(collectHonorariaLines(pages))
	b.parseDenialDetails(pages)
	b.backfillDenials()
	return b.result()
}

// builder accumulates one parse invocation's state. It is owned by a
// single ParseText call; the Result it produces is never mutated after
// being returned.
type builder struct {
	header   Header
	payments []PaymentRecord
	errors   []ParseError
	details  map[denialKey]denialDetail

	linesTotal   int
	linesParsed  int
	linesSkipped int
}

type denialKey struct {
	guide string
	code  string
	date  string
}

type denialDetail struct {
	code   string
	reason string
}

func (b *builder) result() *Result {
	return &Result{
		Header:       b.header,
		Payments:     b.payments,
		Errors:       b.errors,
		LinesTotal:   b.linesTotal,
		LinesParsed:  b.linesParsed,
		LinesSkipped: b.linesSkipped,
	}
}

func (b *builder) parseHeader(pages []string) {
	if len(pages) == 0 {
		return
	}
	first := pages[0]
	if m, ok := periodAnchor.FindString(first); ok {
		b.header.Period = strings.TrimSpace(m[1])
	}
	if m, ok := doctorAnchor.FindString(first); ok {
		b.header.DoctorName = strings.TrimSpace(m[1])
		b.header.DoctorCRM = m[2]
		b.header.DoctorCPF = m[3]
	}
}

// collectHonorariaLines isolates the honoraria section of every page and
// concatenates the lines in document order.
func collectHonorariaLines(pages []string) []string {
	var out []string
	for _, page := range pages {
		lines := strings.Split(page, "\n")
		inSection := false
		for _, raw := range lines {
			line := strings.TrimSpace(raw)
			if line == "" {
				continue
			}
			if !inSection {
				if sectionStartRE.MatchString(line) {
					inSection = true
				}
				continue
			}
			if sectionEndRE.MatchString(line) {
				break
			}
			out = append(out, line)
		}
	}
	return out
}

func (b *builder) parseHonoraria(lines []string) {
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		if headerLineRE.MatchString(line) {
			continue
		}
		b.linesTotal++

		record, perr := b.parseLine(i+1, line)
		if perr != nil {
			b.linesSkipped++
			b.errors = append(b.errors, *perr)
			continue
		}

		// a denied amount may be explained on the very next line
		if record.Denied.IsPositive() && i+1 < len(lines) {
			if m := inlineDenialRE.FindStringSubmatch(strings.TrimSpace(lines[i+1])); m != nil {
				record.DenialCode = m[1]
				record.DenialReason = strings.TrimSpace(m[2])
				i++ // consume the glosa line
			}
		}

		b.payments = append(b.payments, *record)
		b.linesParsed++
	}
}

// parseLine tokenizes one honoraria line around the accommodation pivot.
func (b *builder) parseLine(lineNum int, line string) (*PaymentRecord, *ParseError) {
	parts := strings.Fields(line)

	pivot := -1
	for j, tok := range parts {
		if pivotTokens[tok] {
			pivot = j
			break
		}
	}
	if pivot < 0 {
		return nil, &ParseError{Line: lineNum, Message: "no accommodation pivot", Raw: line}
	}
	if pivot < 6 || len(parts) < pivot+7 {
		return nil, &ParseError{Line: lineNum, Message: "too few fields around pivot", Raw: line}
	}

	record := &PaymentRecord{
		Lot:           parts[0],
		Account:       parts[1],
		GuideNumber:   parts[2],
		Date:          parts[3],
		Wallet:        parts[4],
		PatientName:   strings.Join(parts[5:pivot], " "),
		Accommodation: parts[pivot],
		Code:          parts[pivot+1],
		Description:   strings.Join(parts[pivot+2:len(parts)-5], " "),
	}

	qty, err := strconv.Atoi(parts[len(parts)-5])
	if err != nil {
		return nil, &ParseError{Line: lineNum, Message: "bad quantity", Raw: line}
	}
	record.Quantity = qty

	amounts := make([]decimal.Decimal, 4)
	names := []string{"presented", "approved", "pro-rata", "denied"}
	for j := 0; j < 4; j++ {
		raw := parts[len(parts)-4+j]
		d, err := money.ParseBRL(raw)
		if err != nil {
			return nil, &ParseError{Line: lineNum, Message: "bad " + names[j] + " amount", Raw: line}
		}
		if d.IsNegative() {
			// negative parses are layout artifacts; zero the value and warn
			b.errors = append(b.errors, ParseError{
				Line:    lineNum,
				Message: "negative " + names[j] + " amount normalized to zero",
				Raw:     raw,
			})
			d = decimal.Zero
		}
		amounts[j] = d
	}
	record.Presented, record.Approved, record.ProRata, record.Denied = amounts[0], amounts[1], amounts[2], amounts[3]

	return record, nil
}

// parseDenialDetails scans the detailed glosa section and indexes the
// reasons by (guide, code, date) for backfill.
func (b *builder) parseDenialDetails(pages []string) {
	for _, page := range pages {
		if !detailSectionRE.MatchString(page) {
			continue
		}
		lines := strings.Split(page, "\n")
		inSection := false
		var last *denialKey
		for _, raw := range lines {
			line := strings.TrimSpace(raw)
			if detailSectionRE.MatchString(line) {
				inSection = true
				continue
			}
			if !inSection || line == "" || detailHeaderRE.MatchString(line) {
				continue
			}
			if m := detailProcRE.FindStringSubmatch(line); m != nil {
				last = &denialKey{guide: m[2], code: m[5], date: m[3]}
				continue
			}
			if m := inlineDenialRE.FindStringSubmatch(line); m != nil && last != nil {
				if b.details == nil {
					b.details = make(map[denialKey]denialDetail)
				}
				b.details[*last] = denialDetail{code: m[1], reason: strings.TrimSpace(m[2])}
				last = nil
			}
		}
	}
}

// backfillDenials attaches detailed glosa reasons to records that were
// denied without an inline annotation. This is the single post-hoc
// mutation of payment records, done within the same parse pass.
func (b *builder) backfillDenials() {
	if len(b.details) == 0 {
		return
	}
	for i := range b.payments {
		rec := &b.payments[i]
		if !rec.Denied.IsPositive() || rec.DenialCode != "" {
			continue
		}
		key := denialKey{guide: rec.GuideNumber, code: rec.Code, date: rec.Date}
		if detail, ok := b.details[key]; ok {
			rec.DenialCode = detail.code
			rec.DenialReason = detail.reason
		}
	}
}

// ByGuideAndCode returns the first payment for a guide/code pair, or nil.
func (r *Result) ByGuideAndCode(guide, code string) *PaymentRecord {
	for i := range r.Payments {
		if r.Payments[i].GuideNumber == guide && r.Payments[i].Code == code {
			return &r.Payments[i]
		}
	}
	return nil
}

// ByPatient returns all payments whose patient name contains the given
// substring, case-insensitively.
func (r *Result) ByPatient(substr string) []PaymentRecord {
	needle := strings.ToLower(substr)
	var out []PaymentRecord
	for _, rec := range r.Payments {
		if strings.Contains(strings.ToLower(rec.PatientName), needle) {
			out = append(out, rec)
		}
	}
	return out
}

// Summary aggregates the statement's financial totals.
func (r *Result) Summary() Summary {
	s := Summary{Period: r.Header.Period, Procedures: len(r.Payments)}
	for _, rec := range r.Payments {
		s.TotalPresented = s.TotalPresented.Add(rec.Presented)
		s.TotalApproved = s.TotalApproved.Add(rec.Approved)
		s.TotalDenied = s.TotalDenied.Add(rec.Denied)
	}
	return s
}
