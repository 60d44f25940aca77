package feetable

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gocarina/gocsv"
)

// feeTableRow mirrors one CSV row. Tag aliases absorb the column-name
// drift between reference table exports (gocsv matches by header name).
type feeTableRow struct {
	Codigo string `csv:"codigo"`
	Code   string `csv:"code"`

	Procedimento string `csv:"procedimento"`
	Descricao    string `csv:"descricao"`
	Description  string `csv:"description"`

	ValorCirurgiao string `csv:"valor_cirurgiao"`
	SurgeonValue   string `csv:"surgeon_value"`

	ValorAnestesista      string `csv:"valor_anestesista"`
	AnesthesiologistValue string `csv:"anesthesiologist_value"`

	ValorPrimeiroAuxiliar string `csv:"valor_primeiro_auxiliar"`
	FirstAssistantValue   string `csv:"first_assistant_value"`
}

// LoadCSVFile loads a fee table exported as CSV from disk.
func LoadCSVFile(path string) (*LoadResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fee table %s: %w", path, err)
	}
	defer f.Close()
	return LoadCSV(f)
}

// LoadCSV loads a fee table exported as CSV.
func LoadCSV(r io.Reader) (*LoadResult, error) {
	var rows []feeTableRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("parse fee table csv: %w", err)
	}

	result := &LoadResult{}
	entries := make(map[string]Entry)

	for i, row := range rows {
		rowNum := i + 2 // 1-indexed, after header
		result.RowsTotal++

		rawCode := coalesce(row.Codigo, row.Code)
		code, ok := NormalizeCode(rawCode)
		if !ok {
			result.RowsSkipped++
			result.Warnings = append(result.Warnings, LoadWarning{Row: rowNum, Column: "code", Raw: rawCode})
			continue
		}

		entry := Entry{
			Code:        code,
			Description: strings.TrimSpace(coalesce(row.Procedimento, row.Descricao, row.Description)),
		}
		entry.Surgeon = normalizeMoney(coalesce(row.ValorCirurgiao, row.SurgeonValue), rowNum, "surgeon", result)
		entry.Anesthesiologist = normalizeMoney(coalesce(row.ValorAnestesista, row.AnesthesiologistValue), rowNum, "anesthesiologist", result)
		entry.FirstAssistant = normalizeMoney(coalesce(row.ValorPrimeiroAuxiliar, row.FirstAssistantValue), rowNum, "first_assistant", result)

		entries[code] = entry
		result.RowsLoaded++
	}

	result.Index = &Index{entries: entries}
	return result, nil
}

func coalesce(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
