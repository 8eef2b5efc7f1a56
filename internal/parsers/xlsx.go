package parsers

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"golang-statement-engine/internal/models"
	"golang-statement-engine/internal/profile"
	"golang-statement-engine/pkg/errors"
)

// ParseXLSX runs the spreadsheet pipeline over a zipped-XML workbook.
// The stream is buffered in full; the format needs random access to
// cells, styles and the merged-region table.
func ParseXLSX(r io.Reader, fp *profile.FormatProfile) ([]models.ParsedRow, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.IoFailure("buffering xlsx stream", err).
			WithContext("parser_key", fp.ParserKey)
	}

	grid, err := newXLSXGrid(data, fp)
	if err != nil {
		return nil, err
	}
	return parseSpreadsheet(grid, fp)
}

// xlsxGrid is an immutable snapshot of one worksheet: cell texts with
// native numeric and date cells already converted, plus the merged
// regions. Snapshotting keeps the excelize handle out of the row loop.
type xlsxGrid struct {
	cells   [][]string
	regions []MergeRegion
}

func (g *xlsxGrid) Rows() int { return len(g.cells) }

func (g *xlsxGrid) Cols(r int) int {
	if r < 0 || r >= len(g.cells) {
		return 0
	}
	return len(g.cells[r])
}

func (g *xlsxGrid) Cell(r, c int) string {
	if r < 0 || r >= len(g.cells) || c < 0 || c >= len(g.cells[r]) {
		return ""
	}
	return strings.TrimSpace(g.cells[r][c])
}

func (g *xlsxGrid) Regions() []MergeRegion { return g.regions }

func newXLSXGrid(data []byte, fp *profile.FormatProfile) (*xlsxGrid, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.IoFailure("opening xlsx workbook", err).
			WithContext("parser_key", fp.ParserKey)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if fp.SheetIndex >= len(sheets) {
		return nil, errors.New(errors.CategoryIO, errors.CodeIoFailure,
			fmt.Sprintf("sheet index %d out of range, workbook has %d sheets", fp.SheetIndex, len(sheets))).
			WithContext("parser_key", fp.ParserKey).
			WithContext("sheet_index", fp.SheetIndex)
	}
	sheet := sheets[fp.SheetIndex]

	raw, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, errors.IoFailure("reading xlsx rows", err).
			WithContext("parser_key", fp.ParserKey)
	}

	cells := make([][]string, len(raw))
	for r, row := range raw {
		cells[r] = make([]string, len(row))
		for c, v := range row {
			cells[r][c] = renderXLSXCell(f, sheet, r, c, v)
		}
	}

	merges, err := f.GetMergeCells(sheet)
	if err != nil {
		return nil, errors.IoFailure("reading xlsx merged regions", err).
			WithContext("parser_key", fp.ParserKey)
	}
	regions := make([]MergeRegion, 0, len(merges))
	for _, m := range merges {
		startCol, startRow, err1 := excelize.CellNameToCoordinates(m.GetStartAxis())
		endCol, endRow, err2 := excelize.CellNameToCoordinates(m.GetEndAxis())
		if err1 != nil || err2 != nil {
			continue
		}
		regions = append(regions, MergeRegion{
			FirstRow: startRow - 1, LastRow: endRow - 1,
			FirstCol: startCol - 1, LastCol: endCol - 1,
		})
	}

	return &xlsxGrid{cells: cells, regions: regions}, nil
}

// renderXLSXCell converts a raw stored cell value into the engine's
// textual form: date-formatted numerics become ISO local date-times,
// other numerics the shortest exact decimal, and everything else
// passes through unchanged.
func renderXLSXCell(f *excelize.File, sheet string, r, c int, raw string) string {
	v := strings.TrimSpace(raw)
	if v == "" {
		return ""
	}
	serial, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return v
	}

	if cellIsDateFormatted(f, sheet, r, c) {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return v
		}
		return t.Format(models.WallClockLayout)
	}

	return strconv.FormatFloat(serial, 'f', -1, 64)
}

// Built-in number format ids Excel renders as dates or times.
var builtInDateNumFmts = map[int]bool{
	14: true, 15: true, 16: true, 17: true, 18: true, 19: true,
	20: true, 21: true, 22: true, 45: true, 46: true, 47: true,
}

// cellIsDateFormatted checks the cell's number format for date
// semantics: a built-in date id, or a custom format carrying date
// tokens outside quoted literals.
func cellIsDateFormatted(f *excelize.File, sheet string, r, c int) bool {
	axis, err := excelize.CoordinatesToCellName(c+1, r+1)
	if err != nil {
		return false
	}
	styleID, err := f.GetCellStyle(sheet, axis)
	if err != nil {
		return false
	}
	style, err := f.GetStyle(styleID)
	if err != nil || style == nil {
		return false
	}
	if builtInDateNumFmts[style.NumFmt] {
		return true
	}
	if style.CustomNumFmt != nil {
		return customFmtIsDate(*style.CustomNumFmt)
	}
	return false
}

func customFmtIsDate(fmtCode string) bool {
	inQuote := false
	inBracket := false
	for i := 0; i < len(fmtCode); i++ {
		ch := fmtCode[i]
		switch {
		case ch == '"':
			inQuote = !inQuote
		case ch == '[':
			inBracket = true
		case ch == ']':
			inBracket = false
		case ch == '\\':
			i++
		case inQuote || inBracket:
		case ch == 'y' || ch == 'm' || ch == 'd' || ch == 'h' || ch == 's' ||
			ch == 'Y' || ch == 'M' || ch == 'D' || ch == 'H' || ch == 'S':
			return true
		}
	}
	return false
}
