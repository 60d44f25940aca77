// Package guide parses TISS execution guides: PDFs listing performed
// procedures, each with the participating doctors and their roles. The
// parser is doctor-scoped: only procedures in which the queried
// registration number (CRM) participated are emitted.
//
// Two layouts exist in the wild for the same guide: one with the whole
// procedure on a single line, and one where every field sits on its own
// line. Each block is tried against the inline form first and falls back
// to the line-per-field form.
package guide

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/medcheck-br/medcheck/internal/domain/extract"
	"github.com/medcheck-br/medcheck/internal/domain/role"
	"github.com/medcheck-br/medcheck/internal/domain/scan"
)

// Participation is one doctor's involvement in a procedure.
type Participation struct {
	Role         role.Role
	RawRole      string
	Registration string
	DoctorName   string
	Start        string
	End          string
	Status       string
}

// Procedure is one performed procedure from a guide, already scoped to
// the queried doctor. ExercisedRole is derived, never parsed: it is the
// highest-priority role the doctor holds among the participations.
type Procedure struct {
	GuideNumber     string
	Code            string
	ExecutionDate   string
	Description     string
	Quantity        int
	Status          string
	BeneficiaryName string
	ProviderName    string
	Participations  []Participation
	ExercisedRole   role.Role
}

// ParseError records a block that failed field extraction. The block is
// skipped; parsing continues.
type ParseError struct {
	Block   int
	Message string
	Raw     string
}

func (e ParseError) Error() string {
	return fmt.Sprintf("block %d: %s (%q)", e.Block, e.Message, e.Raw)
}

// ParseResult is the outcome of parsing one guide document.
type ParseResult struct {
	Procedures    []Procedure
	Errors        []ParseError
	BlocksTotal   int
	BlocksParsed  int
	BlocksSkipped int
}

var (
	providerAnchor = scan.NewAnchor("provider",
		`(?i)Prestador:\s*(\d{5,})\s*-\s*([^|]+)`,
		`(?i)Prestador:\s*([^|]+)`,
	)
	beneficiaryAnchor = scan.NewAnchor("beneficiary",
		`(?i)Benefici[áa]rio:\s*\d+\s*-\s*(.+)`,
		`(?i)Benefici[áa]rio:\s*(.+)`,
	)

	blockStartRE = regexp.MustCompile(`^(\d{8})\s+(\d{2}/\d{2}/\d{4})\b`)
	bareGuideRE  = regexp.MustCompile(`^\d{8}$`)
	dateRE       = regexp.MustCompile(`^\d{2}/\d{2}/\d{4}$`)
	intRE        = regexp.MustCompile(`^\d+$`)
	codeRE       = regexp.MustCompile(`^\d{8}$`)

	procInlineRE = regexp.MustCompile(
		`^(\d{8})\s+(\d{2}/\d{2}/\d{4})\s+(\d{8})\s+(.+?)\s+(\d+)\s+` +
			`(Gerado pela execu\S*|Gerado|Fechada)`)

	partInlineRE = regexp.MustCompile(
		`(?i)^(Cirurgi[ãa]o|Primeiro Auxiliar|Segundo Auxiliar|Auxiliar|Anestesista)\s+` +
			`(\d+)\s*-\s*(.*?)\s+(\d{2}/\d{2}/\d{4})\s+(\d{2}:\d{2})\s+` +
			`(?:(\d{2}/\d{2}/\d{4})\s+)?(\d{2}:\d{2})\s+(Fechada|Aberta)`)

	roleTokenRE = regexp.MustCompile(
		`(?i)^(Cirurgi[ãa]o|Primeiro Auxiliar|Segundo Auxiliar|Auxiliar|Anestesista)$`)

	crmNameRE = regexp.MustCompile(`^(\d+)\s*-\s*(.+)$`)
)

// Parser extracts doctor-scoped procedures from guide documents.
type Parser struct {
	registration string
}

// NewParser returns a parser filtering to the given registration number.
func NewParser(registration string) *Parser {
	return &Parser{registration: strings.TrimSpace(registration)}
}

// ParseFile extracts the PDF at path and parses it.
func (p *Parser) ParseFile(path string) (*ParseResult, error) {
	res, err := extract.ExtractFile(path)
	if err != nil {
		return nil, err
	}
	return p.ParseText(res.Pages), nil
}

// ParseText parses page texts already extracted from a guide.
func (p *Parser) ParseText(pages []string) *ParseResult {
	lines := scan.Lines(pages)
	result := &ParseResult{}

	providerCode, providerName := findProvider(lines)
	beneficiary := findBeneficiary(lines)

	blocks := segmentBlocks(lines, providerCode)
	result.BlocksTotal = len(blocks)

	var procedures []Procedure
	for i, block := range blocks {
		proc, err := parseBlock(block)
		if err != nil {
			result.BlocksSkipped++
			result.Errors = append(result.Errors, ParseError{
				Block:   i + 1,
				Message: err.Error(),
				Raw:     block[0],
			})
			continue
		}
		proc.ProviderName = providerName
		proc.BeneficiaryName = beneficiary
		procedures = append(procedures, proc)
		result.BlocksParsed++
	}

	// doctor filter: only procedures with a participation by the queried
	// registration survive, tagged with the exercised role
	for _, proc := range procedures {
		if exercised, ok := p.exercisedRole(proc.Participations); ok {
			proc.ExercisedRole = exercised
			result.Procedures = append(result.Procedures, proc)
		}
	}

	return result
}

func findProvider(lines []string) (code, name string) {
	m, ok := providerAnchor.FindLines(lines)
	if !ok {
		return "", ""
	}
	if len(m) == 3 {
		return m[1], strings.TrimSpace(m[2])
	}
	return "", strings.TrimSpace(m[1])
}

func findBeneficiary(lines []string) string {
	m, ok := beneficiaryAnchor.FindLines(lines)
	if !ok {
		return ""
	}
	return strings.TrimSpace(m[1])
}

// segmentBlocks splits the body into procedure blocks. A block starts at
// a "guide-number date" line, or at a bare guide-number line immediately
// followed by a date line (the line-per-field layout). Guide numbers and
// provider identifiers share a numeric format; a candidate equal to the
// header's provider code is not a block start.
func segmentBlocks(lines []string, providerCode string) [][]string {
	var starts []int
	for i := range lines {
		if isBlockStart(lines, i, providerCode) {
			starts = append(starts, i)
		}
	}

	blocks := make([][]string, 0, len(starts))
	for i, start := range starts {
		end := len(lines)
		if i+1 < len(starts) {
			end = starts[i+1]
		}
		blocks = append(blocks, lines[start:end])
	}
	return blocks
}

func isBlockStart(lines []string, i int, providerCode string) bool {
	line := lines[i]
	if m := blockStartRE.FindStringSubmatch(line); m != nil {
		return m[1] != providerCode
	}
	if bareGuideRE.MatchString(line) && i+1 < len(lines) && dateRE.MatchString(lines[i+1]) {
		return line != providerCode
	}
	return false
}

// parseBlock extracts one procedure from its block, trying the inline
// layout before the line-per-field layout. Participations are collected
// from the remaining block lines either way.
func parseBlock(block []string) (Procedure, error) {
	proc, rest, err := parseProcedureHead(block)
	if err != nil {
		return Procedure{}, err
	}
	proc.Participations = parseParticipations(rest)
	return proc, nil
}

func parseProcedureHead(block []string) (Procedure, []string, error) {
	if m := procInlineRE.FindStringSubmatch(block[0]); m != nil {
		qty, err := strconv.Atoi(m[5])
		if err != nil {
			return Procedure{}, nil, fmt.Errorf("bad quantity %q", m[5])
		}
		return Procedure{
			GuideNumber:   m[1],
			ExecutionDate: m[2],
			Code:          m[3],
			Description:   strings.TrimSpace(m[4]),
			Quantity:      qty,
			Status:        m[6],
		}, block[1:], nil
	}
	return parseProcedureLines(block)
}

// parseProcedureLines handles the layout where each field occupies its
// own line: guide, date, code, description (possibly wrapped), quantity,
// status. The guide and date may share the first line.
func parseProcedureLines(block []string) (Procedure, []string, error) {
	var proc Procedure
	i := 0

	if m := blockStartRE.FindStringSubmatch(block[0]); m != nil {
		proc.GuideNumber = m[1]
		proc.ExecutionDate = m[2]
		i = 1
	} else if bareGuideRE.MatchString(block[0]) {
		proc.GuideNumber = block[0]
		if len(block) < 2 || !dateRE.MatchString(block[1]) {
			return Procedure{}, nil, fmt.Errorf("missing execution date after guide number")
		}
		proc.ExecutionDate = block[1]
		i = 2
	} else {
		return Procedure{}, nil, fmt.Errorf("unrecognized block start")
	}

	if i >= len(block) || !codeRE.MatchString(block[i]) {
		return Procedure{}, nil, fmt.Errorf("missing procedure code")
	}
	proc.Code = block[i]
	i++

	// description wraps until the quantity line
	var desc []string
	for i < len(block) && !intRE.MatchString(block[i]) {
		desc = append(desc, block[i])
		i++
	}
	if len(desc) == 0 || i >= len(block) {
		return Procedure{}, nil, fmt.Errorf("missing description or quantity")
	}
	proc.Description = strings.Join(desc, " ")

	qty, err := strconv.Atoi(block[i])
	if err != nil {
		return Procedure{}, nil, fmt.Errorf("bad quantity %q", block[i])
	}
	proc.Quantity = qty
	i++

	if i >= len(block) {
		return Procedure{}, nil, fmt.Errorf("missing status")
	}
	proc.Status = block[i]
	i++

	return proc, block[i:], nil
}

// parseParticipations collects participation entries from block lines,
// accepting the inline form and the five-line form.
func parseParticipations(lines []string) []Participation {
	var parts []Participation

	for i := 0; i < len(lines); i++ {
		line := lines[i]

		if m := partInlineRE.FindStringSubmatch(line); m != nil {
			endDate := m[6]
			if endDate == "" {
				endDate = m[4]
			}
			parts = append(parts, Participation{
				Role:         role.Canonical(m[1]),
				RawRole:      m[1],
				Registration: m[2],
				DoctorName:   strings.TrimSpace(m[3]),
				Start:        m[4] + " " + m[5],
				End:          endDate + " " + m[7],
				Status:       m[8],
			})
			continue
		}

		if roleTokenRE.MatchString(line) && i+4 < len(lines) {
			part := Participation{
				Role:    role.Canonical(line),
				RawRole: line,
				Start:   lines[i+2],
				End:     lines[i+3],
				Status:  lines[i+4],
			}
			if m := crmNameRE.FindStringSubmatch(lines[i+1]); m != nil {
				part.Registration = m[1]
				part.DoctorName = strings.TrimSpace(m[2])
			} else {
				part.DoctorName = strings.TrimSpace(lines[i+1])
			}
			parts = append(parts, part)
			i += 4
		}
	}
	return parts
}

// exercisedRole selects the queried doctor's role in a procedure. When
// the doctor appears under several roles the highest priority wins;
// equal priority keeps the first-seen role.
func (p *Parser) exercisedRole(parts []Participation) (role.Role, bool) {
	var exercised role.Role
	found := false
	for _, part := range parts {
		if part.Registration != p.registration {
			continue
		}
		if !found || role.Priority(part.Role) > role.Priority(exercised) {
			exercised = part.Role
			found = true
		}
	}
	return exercised, found
}
