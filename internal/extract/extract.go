// Package extract turns PDF documents into plain text.
package extract

import (
	"bytes"
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"slices"
	"strings"

	pdf "github.com/ledongthuc/pdf"
)

const (
	// rowTolerance is how far apart, in points, two baselines may be and still
	// count as the same line.
	rowTolerance = 2.0
	// wordGap is the horizontal gap, as a share of the font size, that
	// separates two words.
	wordGap = 0.15
)

var (
	// ErrNotFound is returned when the document path does not resolve to a file.
	ErrNotFound = errors.New("extract: document not found")
	// ErrUnreadable is returned when the bytes cannot be parsed as a PDF.
	ErrUnreadable = errors.New("extract: document is not a readable PDF")
)

// Extractor converts a document into text.
type Extractor interface {
	Extract(path string) (string, error)
}

// PDF extracts text from PDF files page by page.
type PDF struct{}

// Extract reads the PDF at path and returns the text of every page in order,
// one line of output per line of text on the page.
func (PDF) Extract(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return ExtractBytes(data)
}

// ExtractBytes returns the text of an in-memory PDF.
func ExtractBytes(data []byte) (text string, err error) {
	if !isPDF(data) {
		return "", fmt.Errorf("%w: missing %%PDF header", ErrUnreadable)
	}

	// The reader panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("%w: %v", ErrUnreadable, r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnreadable, err)
	}

	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		for _, line := range textLines(page.Content().Text) {
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	return b.String(), nil
}

// textLines rebuilds the lines of a page from positioned glyphs. Glyphs whose
// baselines lie within rowTolerance of each other form one line, read left to
// right, and lines are returned top to bottom. A space is inserted wherever
// the gap to the previous glyph is wider than a fraction of the font size.
func textLines(glyphs []pdf.Text) []string {
	if len(glyphs) == 0 {
		return nil
	}

	sorted := slices.Clone(glyphs)
	slices.SortStableFunc(sorted, func(a, b pdf.Text) int {
		return cmp.Compare(b.Y, a.Y)
	})

	var rows [][]pdf.Text
	for _, g := range sorted {
		if n := len(rows); n > 0 && math.Abs(rows[n-1][0].Y-g.Y) <= rowTolerance {
			rows[n-1] = append(rows[n-1], g)
			continue
		}
		rows = append(rows, []pdf.Text{g})
	}

	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		slices.SortStableFunc(row, func(a, b pdf.Text) int {
			return cmp.Compare(a.X, b.X)
		})

		var line strings.Builder
		for j, g := range row {
			if j > 0 {
				prev := row[j-1]
				gap := g.X - (prev.X + prev.W)
				if gap > wordGap*max(prev.FontSize, 1) && !strings.HasSuffix(prev.S, " ") && !strings.HasPrefix(g.S, " ") {
					line.WriteByte(' ')
				}
			}
			line.WriteString(g.S)
		}
		lines = append(lines, line.String())
	}
	return lines
}

func isPDF(b []byte) bool {
	// PDF starts with "%PDF-"
	return len(b) >= 5 && string(b[:5]) == "%PDF-"
}
