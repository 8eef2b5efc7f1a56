// Package parsers converts bank-statement documents into normalized
// transaction rows, driven entirely by a declarative bank profile.
//
// Four format pipelines share one row pipeline:
//   - ParseDelimited: charset-decoded CSV-style text
//   - ParseXLS / ParseXLSX: spreadsheets exposed through a cell grid
//     with merged-region awareness
//   - ParsePDF: text-layer extraction with regex line matching
//
// Header resolution (FIXED or SEARCH mode) produces a semantic-field
// to column mapping; the row pipeline then parses numbers and dates,
// derives the signed amount, splits the reference string and
// classifies each row as a pay-in. Per-row problems drop the row
// silently; structural problems abort the whole invocation with a
// typed error.
package parsers

import (
	"strings"
)

// Grid is the minimal row/column text source the header resolver and
// the row readers operate over. Row and column indices are zero-based;
// out-of-range reads return the empty string.
type Grid interface {
	// Rows returns the number of rows in the source.
	Rows() int
	// Cols returns the number of columns present in row r.
	Cols(r int) int
	// Cell returns the trimmed text at (r, c), empty when absent.
	Cell(r, c int) string
}

// MergeRegion is one merged cell block, bounds inclusive.
type MergeRegion struct {
	FirstRow, LastRow int
	FirstCol, LastCol int
}

// Contains reports whether (r, c) lies inside the region.
func (m MergeRegion) Contains(r, c int) bool {
	return r >= m.FirstRow && r <= m.LastRow && c >= m.FirstCol && c <= m.LastCol
}

// ContainsCol reports whether column c lies inside the region's span.
func (m MergeRegion) ContainsCol(c int) bool {
	return c >= m.FirstCol && c <= m.LastCol
}

// SpreadsheetGrid extends Grid with the merged-region table that
// spreadsheet formats carry. The XLS grid returns an empty table; the
// binary format reader does not expose merges.
type SpreadsheetGrid interface {
	Grid
	// Regions returns every merged cell block in the sheet.
	Regions() []MergeRegion
}

// sliceGrid adapts an in-memory [][]string, used by the delimited
// pipeline and by tests.
type sliceGrid [][]string

func (g sliceGrid) Rows() int { return len(g) }

func (g sliceGrid) Cols(r int) int {
	if r < 0 || r >= len(g) {
		return 0
	}
	return len(g[r])
}

func (g sliceGrid) Cell(r, c int) string {
	if r < 0 || r >= len(g) || c < 0 || c >= len(g[r]) {
		return ""
	}
	return strings.TrimSpace(g[r][c])
}

// normalize casefolds a header cell for synonym comparison: no-break
// spaces become spaces, the text is trimmed and lowered, and internal
// whitespace runs collapse to a single space.
func normalize(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Join(strings.Fields(s), " ")
}

// rowIsBlank reports whether every cell in row r is empty.
func rowIsBlank(g Grid, r int) bool {
	for c := 0; c < g.Cols(r); c++ {
		if g.Cell(r, c) != "" {
			return false
		}
	}
	return true
}

// rowLine joins every cell in row r with single spaces, for row-stop
// regex matching.
func rowLine(g Grid, r int) string {
	var parts []string
	for c := 0; c < g.Cols(r); c++ {
		if v := g.Cell(r, c); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " ")
}
