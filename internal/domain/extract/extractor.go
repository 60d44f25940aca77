// Package extract turns PDF files into page-ordered plain text and
// best-effort row grids. Extraction is a single attempt per document:
// an unreadable file fails the whole document, while an unreadable page
// yields an empty string so the rest of the document still parses.
package extract

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Error is a document-level extraction failure: the file could not be
// opened or read at all. Page-level problems never produce an Error.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("pdf extraction failed: %v", e.Err)
	}
	return fmt.Sprintf("pdf extraction failed for %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Grid is one table-like grid extracted from a page: text rows split
// into word cells, in reading order.
type Grid [][]string

// Result holds everything extracted from one document.
type Result struct {
	Pages []string
	Grids []Grid
}

// Text returns the page texts joined in document order.
func (r *Result) Text() string {
	return strings.Join(r.Pages, "\n")
}

// ExtractFile opens and extracts a PDF from the filesystem.
func ExtractFile(path string) (res *Result, err error) {
	// the reader panics on some malformed cross-reference tables
	defer func() {
		if p := recover(); p != nil {
			res, err = nil, &Error{Path: path, Err: fmt.Errorf("malformed document: %v", p)}
		}
	}()

	f, reader, oerr := pdf.Open(path)
	if oerr != nil {
		return nil, &Error{Path: path, Err: oerr}
	}
	defer f.Close()
	return extractAll(reader), nil
}

// ExtractReader extracts a PDF from an in-memory reader.
func ExtractReader(r io.ReaderAt, size int64) (res *Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			res, err = nil, &Error{Err: fmt.Errorf("malformed document: %v", p)}
		}
	}()

	reader, nerr := pdf.NewReader(r, size)
	if nerr != nil {
		return nil, &Error{Err: nerr}
	}
	return extractAll(reader), nil
}

// ExtractBytes extracts a PDF held fully in memory.
func ExtractBytes(data []byte) (*Result, error) {
	return ExtractReader(bytes.NewReader(data), int64(len(data)))
}

// ExtractFileBuffered reads the whole file first; some malformed xref
// tables only parse through the in-memory path.
func ExtractFileBuffered(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Path: path, Err: err}
	}
	res, err := ExtractBytes(data)
	if err != nil {
		if e, ok := err.(*Error); ok {
			e.Path = path
		}
		return nil, err
	}
	return res, nil
}

func extractAll(reader *pdf.Reader) *Result {
	n := reader.NumPage()
	res := &Result{Pages: make([]string, 0, n)}

	for i := 1; i <= n; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			res.Pages = append(res.Pages, "")
			continue
		}
		res.Pages = append(res.Pages, pageText(page))
		if grid := pageGrid(page); len(grid) > 0 {
			res.Grids = append(res.Grids, grid)
		}
	}
	return res
}

// pageText extracts plain text from one page. The underlying library
// panics on some malformed content streams; those pages degrade to "".
func pageText(page pdf.Page) (text string) {
	defer func() {
		if recover() != nil {
			text = ""
		}
	}()

	rows, err := page.GetTextByRow()
	if err != nil || len(rows) == 0 {
		// fall back to unpositioned text
		plain, perr := page.GetPlainText(nil)
		if perr != nil {
			return ""
		}
		return plain
	}

	var b strings.Builder
	for _, row := range rows {
		for i, word := range row.Content {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(word.S)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// pageGrid builds a best-effort grid of word cells per text row. A page
// with no positioned text yields no grid.
func pageGrid(page pdf.Page) (grid Grid) {
	defer func() {
		if recover() != nil {
			grid = nil
		}
	}()

	rows, err := page.GetTextByRow()
	if err != nil {
		return nil
	}
	for _, row := range rows {
		cells := make([]string, 0, len(row.Content))
		for _, word := range row.Content {
			if s := strings.TrimSpace(word.S); s != "" {
				cells = append(cells, s)
			}
		}
		if len(cells) > 0 {
			grid = append(grid, cells)
		}
	}
	return grid
}
