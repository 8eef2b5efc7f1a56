package parsers

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/extrame/xls"

	"golang-statement-engine/internal/models"
	"golang-statement-engine/internal/profile"
	"golang-statement-engine/pkg/errors"
)

// ParseXLS runs the spreadsheet pipeline over a binary BIFF workbook.
// The reader library exposes no merged-region table, so the flexible
// read degrades to direct cells and neighbor probes.
func ParseXLS(r io.Reader, fp *profile.FormatProfile) ([]models.ParsedRow, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.IoFailure("buffering xls stream", err).
			WithContext("parser_key", fp.ParserKey)
	}

	grid, err := newXLSGrid(data, fp)
	if err != nil {
		return nil, err
	}
	return parseSpreadsheet(grid, fp)
}

// xlsGrid snapshots one BIFF worksheet into cell texts.
type xlsGrid struct {
	cells [][]string
}

func (g *xlsGrid) Rows() int { return len(g.cells) }

func (g *xlsGrid) Cols(r int) int {
	if r < 0 || r >= len(g.cells) {
		return 0
	}
	return len(g.cells[r])
}

func (g *xlsGrid) Cell(r, c int) string {
	if r < 0 || r >= len(g.cells) || c < 0 || c >= len(g.cells[r]) {
		return ""
	}
	return strings.TrimSpace(g.cells[r][c])
}

func (g *xlsGrid) Regions() []MergeRegion { return nil }

func newXLSGrid(data []byte, fp *profile.FormatProfile) (*xlsGrid, error) {
	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, errors.IoFailure("opening xls workbook", err).
			WithContext("parser_key", fp.ParserKey)
	}

	if fp.SheetIndex >= wb.NumSheets() {
		return nil, errors.New(errors.CategoryIO, errors.CodeIoFailure,
			fmt.Sprintf("sheet index %d out of range, workbook has %d sheets", fp.SheetIndex, wb.NumSheets())).
			WithContext("parser_key", fp.ParserKey).
			WithContext("sheet_index", fp.SheetIndex)
	}
	sheet := wb.GetSheet(fp.SheetIndex)
	if sheet == nil {
		return nil, errors.New(errors.CategoryIO, errors.CodeIoFailure,
			fmt.Sprintf("xls sheet %d could not be read", fp.SheetIndex)).
			WithContext("parser_key", fp.ParserKey)
	}

	cells := make([][]string, int(sheet.MaxRow)+1)
	for r := 0; r <= int(sheet.MaxRow); r++ {
		row := sheet.Row(r)
		if row == nil {
			cells[r] = nil
			continue
		}
		n := row.LastCol()
		line := make([]string, n)
		for c := 0; c < n; c++ {
			line[c] = row.Col(c)
		}
		cells[r] = line
	}

	return &xlsGrid{cells: cells}, nil
}
