package feetable

import (
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/medcheck-br/medcheck/pkg/money"
)

// Candidate header patterns per field, tried in order. Payer and reference
// table exports disagree on column naming, so each field carries a chain
// of fallbacks instead of one fixed name.
var (
	codePatterns        = []string{"codigo", "código", "code"}
	descriptionPatterns = []string{"procedimento", "descricao", "descrição", "description"}
	surgeonPatterns     = []string{"cirurgiao", "cirurgião", "surgeon"}
	anesthesiaPatterns  = []string{"anestesista", "anesthesiologist"}
	firstAssistPatterns = []string{"primeiro_auxiliar", "primeiro auxiliar", "first_assistant", "auxiliar", "assistant"}
)

type columnMap struct {
	code        int
	description int
	surgeon     int
	anesthesia  int
	firstAssist int
}

// LoadXLSX loads a fee table workbook from disk. The configured sheet is
// preferred; when absent the first sheet is used.
func LoadXLSX(path, sheet string) (*LoadResult, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open fee table %s: %w", path, err)
	}
	defer f.Close()
	return loadWorkbook(f, sheet)
}

// LoadXLSXReader loads a fee table workbook from a reader.
func LoadXLSXReader(r io.Reader, sheet string) (*LoadResult, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open fee table: %w", err)
	}
	defer f.Close()
	return loadWorkbook(f, sheet)
}

func loadWorkbook(f *excelize.File, sheet string) (*LoadResult, error) {
	name := resolveSheet(f, sheet)
	if name == "" {
		return nil, fmt.Errorf("fee table workbook has no sheets")
	}

	rows, err := f.GetRows(name)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", name, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %s is empty", name)
	}

	cols, err := resolveColumns(rows[0])
	if err != nil {
		return nil, err
	}

	result := &LoadResult{}
	entries := make(map[string]Entry)

	for i, row := range rows[1:] {
		rowNum := i + 2 // 1-indexed, after header
		result.RowsTotal++

		code, ok := NormalizeCode(cell(row, cols.code))
		if !ok {
			result.RowsSkipped++
			result.Warnings = append(result.Warnings, LoadWarning{
				Row: rowNum, Column: "code", Raw: cell(row, cols.code),
			})
			continue
		}

		entry := Entry{
			Code:        code,
			Description: strings.TrimSpace(cell(row, cols.description)),
		}
		entry.Surgeon = normalizeMoney(cell(row, cols.surgeon), rowNum, "surgeon", result)
		entry.Anesthesiologist = normalizeMoney(cell(row, cols.anesthesia), rowNum, "anesthesiologist", result)
		entry.FirstAssistant = normalizeMoney(cell(row, cols.firstAssist), rowNum, "first_assistant", result)

		entries[code] = entry
		result.RowsLoaded++
	}

	result.Index = &Index{entries: entries}
	return result, nil
}

func resolveSheet(f *excelize.File, preferred string) string {
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return ""
	}
	for _, s := range sheets {
		if strings.EqualFold(s, preferred) {
			return s
		}
	}
	return sheets[0]
}

func resolveColumns(headers []string) (columnMap, error) {
	cols := columnMap{code: -1, description: -1, surgeon: -1, anesthesia: -1, firstAssist: -1}

	for i, header := range headers {
		h := strings.ToLower(strings.TrimSpace(header))
		if cols.code < 0 && matchesAny(h, codePatterns) {
			cols.code = i
			continue
		}
		if cols.surgeon < 0 && matchesAny(h, surgeonPatterns) {
			cols.surgeon = i
			continue
		}
		if cols.anesthesia < 0 && matchesAny(h, anesthesiaPatterns) {
			cols.anesthesia = i
			continue
		}
		if cols.firstAssist < 0 && matchesAny(h, firstAssistPatterns) {
			cols.firstAssist = i
			continue
		}
		if cols.description < 0 && matchesAny(h, descriptionPatterns) {
			cols.description = i
		}
	}

	if cols.code < 0 {
		return cols, fmt.Errorf("fee table header missing code column (tried %v) in %v", codePatterns, headers)
	}
	return cols, nil
}

func matchesAny(header string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(header, p) {
			return true
		}
	}
	return false
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// normalizeMoney defaults a bad cell to zero and records a warning; an
// empty cell is a legitimate zero and produces no warning.
func normalizeMoney(raw string, rowNum int, column string, result *LoadResult) (d decimal.Decimal) {
	if strings.TrimSpace(raw) == "" {
		return decimal.Zero
	}
	d, ok := money.NormalizeBRL(raw)
	if !ok {
		result.Warnings = append(result.Warnings, LoadWarning{Row: rowNum, Column: column, Raw: raw})
	}
	return d
}
