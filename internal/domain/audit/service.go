// Package audit orchestrates a full reconciliation run: it parses the
// payment statement, parses every execution guide, joins both sides and
// produces the final report. Guide parsing is fanned out over a small
// worker pool since runs regularly carry dozens of guide PDFs.
package audit

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/medcheck-br/medcheck/internal/domain/feetable"
	"github.com/medcheck-br/medcheck/internal/domain/guide"
	"github.com/medcheck-br/medcheck/internal/domain/reconcile"
	"github.com/medcheck-br/medcheck/internal/domain/statement"
	"github.com/medcheck-br/medcheck/internal/domain/validate"
)

// DocumentStatus reports how one input document fared.
type DocumentStatus struct {
	Path           string `json:"path"`
	Kind           string `json:"kind"`
	Error          string `json:"error,omitempty"`
	RecordsParsed  int    `json:"records_parsed"`
	RecordsSkipped int    `json:"records_skipped"`
}

// RunInput names the documents of one audit run.
type RunInput struct {
	StatementPath string
	GuidePaths    []string
	Registration  string
}

// Report is the complete outcome of a run.
type Report struct {
	ID           uuid.UUID         `json:"id"`
	GeneratedAt  time.Time         `json:"generated_at"`
	Registration string            `json:"registration"`
	Header       statement.Header  `json:"header"`
	Rows         []reconcile.Row   `json:"rows"`
	Summary      reconcile.Summary `json:"summary"`
	Documents    []DocumentStatus  `json:"documents"`
}

// Service wires the parsers, the fee table and the reconciler together.
type Service struct {
	logger     *slog.Logger
	reconciler *reconcile.Reconciler
	workers    int
}

// NewService builds an audit service over a loaded fee table index.
// tolerancePercent is the accepted deviation from the fee table value;
// workers bounds guide-parsing concurrency (<=0 means GOMAXPROCS).
func NewService(logger *slog.Logger, index *feetable.Index, tolerancePercent float64, workers int) *Service {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Service{
		logger:     logger,
		reconciler: reconcile.New(index, validate.New(index, tolerancePercent)),
		workers:    workers,
	}
}

// guideJob and guideOutcome carry work across the parsing pool. The
// index keeps guide order stable regardless of completion order.
type guideJob struct {
	index int
	path  string
}

type guideOutcome struct {
	index  int
	path   string
	result *guide.ParseResult
	err    error
}

// Run executes one audit. The statement is required; a guide that fails
// to parse is reported in the document statuses and the run continues
// with the remaining guides.
func (s *Service) Run(ctx context.Context, in RunInput) (*Report, error) {
	started := time.Now()

	stmtParser := statement.NewParser()
	stmtResult, err := stmtParser.ParseFile(in.StatementPath)
	if err != nil {
		return nil, fmt.Errorf("parse statement %s: %w", in.StatementPath, err)
	}
	s.logger.InfoContext(ctx, "statement parsed",
		slog.String("path", in.StatementPath),
		slog.Int("payments", len(stmtResult.Payments)),
		slog.Int("lines_skipped", stmtResult.LinesSkipped),
	)

	outcomes, err := s.parseGuides(ctx, in)
	if err != nil {
		return nil, err
	}

	report := &Report{
		ID:           uuid.New(),
		GeneratedAt:  time.Now().UTC(),
		Registration: in.Registration,
		Header:       stmtResult.Header,
	}
	report.Documents = append(report.Documents, DocumentStatus{
		Path:           in.StatementPath,
		Kind:           "statement",
		RecordsParsed:  stmtResult.LinesParsed,
		RecordsSkipped: stmtResult.LinesSkipped,
	})

	var procedures []guide.Procedure
	for _, out := range outcomes {
		status := DocumentStatus{Path: out.path, Kind: "guide"}
		if out.err != nil {
			status.Error = out.err.Error()
			s.logger.WarnContext(ctx, "guide skipped",
				slog.String("path", out.path),
				slog.Any("error", out.err),
			)
		} else {
			status.RecordsParsed = out.result.BlocksParsed
			status.RecordsSkipped = out.result.BlocksSkipped
			procedures = append(procedures, out.result.Procedures...)
		}
		report.Documents = append(report.Documents, status)
	}

	reconciled := s.reconciler.Reconcile(procedures, stmtResult.Payments)
	report.Rows = reconciled.Rows
	report.Summary = reconciled.Summary

	s.logger.InfoContext(ctx, "audit complete",
		slog.String("run_id", report.ID.String()),
		slog.Int("matched", report.Summary.Matched),
		slog.Int("guide_only", report.Summary.GuideOnly),
		slog.Int("statement_only", report.Summary.StatementOnly),
		slog.Int("invalid_value", report.Summary.InvalidValue),
		slog.String("totals", report.Summary.TotalsDisplay()),
		slog.Duration("elapsed", time.Since(started)),
	)

	return report, nil
}

// parseGuides fans guide paths out over the worker pool and collects the
// outcomes back into input order.
func (s *Service) parseGuides(ctx context.Context, in RunInput) ([]guideOutcome, error) {
	parser := guide.NewParser(in.Registration)

	jobs := make(chan guideJob)
	results := make(chan guideOutcome, len(in.GuidePaths))

	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				res, err := parser.ParseFile(job.path)
				select {
				case results <- guideOutcome{index: job.index, path: job.path, result: res, err: err}:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	var dispatchErr error
dispatch:
	for i, path := range in.GuidePaths {
		select {
		case jobs <- guideJob{index: i, path: path}:
		case <-ctx.Done():
			dispatchErr = ctx.Err()
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()
	close(results)

	if dispatchErr != nil {
		return nil, dispatchErr
	}

	outcomes := make([]guideOutcome, len(in.GuidePaths))
	for out := range results {
		outcomes[out.index] = out
	}
	return outcomes, nil
}
