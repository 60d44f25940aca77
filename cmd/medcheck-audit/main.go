// medcheck-audit reconciles a payer payment statement against the
// doctor's execution guides and the CBHPM fee table, emitting the full
// audit report as JSON.
//
// Usage:
//
//	medcheck-audit -crm 6091 -statement demonstrativo.pdf guia1.pdf guia2.pdf
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/medcheck-br/medcheck/internal/domain/audit"
	"github.com/medcheck-br/medcheck/internal/domain/feetable"
	"github.com/medcheck-br/medcheck/pkg/config"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "medcheck-audit:", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		registration  = flag.String("crm", "", "doctor registration number (required)")
		statementPath = flag.String("statement", "", "payment statement PDF (required)")
		feeTablePath  = flag.String("feetable", "", "fee table file (.xlsx or .csv); overrides FEE_TABLE_PATH")
		outPath       = flag.String("o", "", "write the report to this file instead of stdout")
		verbose       = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	if *registration == "" || *statementPath == "" {
		flag.Usage()
		return fmt.Errorf("both -crm and -statement are required")
	}
	guidePaths := flag.Args()
	if len(guidePaths) == 0 {
		return fmt.Errorf("at least one guide PDF is required")
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if *feeTablePath != "" {
		cfg.FeeTable.Path = *feeTablePath
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	index, err := loadFeeTable(logger, cfg.FeeTable)
	if err != nil {
		return err
	}

	service := audit.NewService(logger, index, cfg.Audit.TolerancePercent, cfg.Audit.ParseWorkers)
	report, err := service.Run(ctx, audit.RunInput{
		StatementPath: *statementPath,
		GuidePaths:    guidePaths,
		Registration:  *registration,
	})
	if err != nil {
		return err
	}

	out := os.Stdout
	if *outPath != "" {
		f, err := os.Create(*outPath)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	fmt.Fprintln(os.Stderr, report.Summary.TotalsDisplay())

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// loadFeeTable picks the loader by file extension and logs any cell
// warnings instead of failing the run.
func loadFeeTable(logger *slog.Logger, cfg config.FeeTableConfig) (*feetable.Index, error) {
	var (
		result *feetable.LoadResult
		err    error
	)
	switch strings.ToLower(filepath.Ext(cfg.Path)) {
	case ".csv":
		result, err = feetable.LoadCSVFile(cfg.Path)
	default:
		result, err = feetable.LoadXLSX(cfg.Path, cfg.Sheet)
	}
	if err != nil {
		return nil, fmt.Errorf("load fee table %s: %w", cfg.Path, err)
	}

	for _, w := range result.Warnings {
		logger.Warn("fee table cell normalized",
			slog.Int("row", w.Row),
			slog.String("column", w.Column),
			slog.String("raw", w.Raw),
		)
	}
	logger.Info("fee table loaded",
		slog.String("path", cfg.Path),
		slog.Int("procedures", result.Index.Len()),
		slog.Int("rows_skipped", result.RowsSkipped),
	)
	return result.Index, nil
}
