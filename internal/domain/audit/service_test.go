package audit

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medcheck-br/medcheck/internal/domain/feetable"
)

func testService(t *testing.T, workers int) *Service {
	t.Helper()
	index := feetable.NewIndex([]feetable.Entry{
		{Code: "30602010", Surgeon: decimal.RequireFromString("480.00")},
	})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(logger, index, 1.0, workers)
}

func TestNewService_DefaultWorkers(t *testing.T) {
	s := testService(t, 0)
	assert.Equal(t, runtime.GOMAXPROCS(0), s.workers)

	s = testService(t, 3)
	assert.Equal(t, 3, s.workers)
}

func TestRun_MissingStatement(t *testing.T) {
	s := testService(t, 2)

	_, err := s.Run(context.Background(), RunInput{
		StatementPath: filepath.Join(t.TempDir(), "missing.pdf"),
		Registration:  "6091",
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse statement")
}

func TestParseGuides_PreservesOrderAndReportsErrors(t *testing.T) {
	s := testService(t, 2)
	dir := t.TempDir()
	paths := []string{
		filepath.Join(dir, "guia-a.pdf"),
		filepath.Join(dir, "guia-b.pdf"),
		filepath.Join(dir, "guia-c.pdf"),
	}

	outcomes, err := s.parseGuides(context.Background(), RunInput{
		GuidePaths:   paths,
		Registration: "6091",
	})

	require.NoError(t, err)
	require.Len(t, outcomes, len(paths))
	for i, out := range outcomes {
		assert.Equal(t, paths[i], out.path, "outcomes must keep input order")
		assert.Error(t, out.err, "missing file must surface as a per-document error")
	}
}

func TestParseGuides_NoGuides(t *testing.T) {
	s := testService(t, 2)

	outcomes, err := s.parseGuides(context.Background(), RunInput{Registration: "6091"})

	require.NoError(t, err)
	assert.Empty(t, outcomes)
}
