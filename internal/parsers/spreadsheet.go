package parsers

import (
	"golang-statement-engine/internal/models"
	"golang-statement-engine/internal/profile"
	"golang-statement-engine/pkg/logger"
)

// neighborProbeRadius is how many columns the flexible read probes to
// each side of the mapped column before giving up. Probing stops early
// at any column owned by another field or by an unmapped header.
const neighborProbeRadius = 3

// parseSpreadsheet is the pipeline shared by the XLS and XLSX grids:
// expect-aware header resolution, then per-row flexible cell reads
// feeding the common row pipeline.
func parseSpreadsheet(g SpreadsheetGrid, fp *profile.FormatProfile) ([]models.ParsedRow, error) {
	log := logger.GetGlobalLogger().WithComponent("spreadsheet_parser").
		WithField("parser_key", fp.ParserKey)

	hdr, err := resolveHeaders(g, fp, true)
	if err != nil {
		return nil, err
	}

	log.WithFields(logger.Fields{
		"format":     string(fp.Kind),
		"data_start": hdr.DataStart,
		"mapped":     mappedFieldNames(hdr.Mapping),
	}).Debug("Spreadsheet header resolved")

	var rows []models.ParsedRow
	for r := hdr.DataStart; r < g.Rows(); r++ {
		if g.Cols(r) == 0 {
			continue
		}
		if stopRow(g, r, fp.RowStop) {
			break
		}

		values := make(RowValues, len(hdr.Mapping))
		for f, c := range hdr.Mapping {
			if v, ok := readFlexible(g, r, c, f, hdr, fp.Numeric); ok {
				values[f] = v
			}
		}
		if row := materializeRow(values, fp); row != nil {
			rows = append(rows, *row)
		}
	}

	log.WithField("rows", len(rows)).Debug("Spreadsheet parse complete")
	return rows, nil
}

// readFlexible reads the value of field f for row r whose header maps
// to column c. The direct cell wins; an empty cell inside a merged
// region yields the region's top-left value; as a last resort nearby
// columns are probed right then left. Probing in a direction stops the
// moment it reaches a column owned by another field, so adjacent
// unmapped columns never leak their values. ok is false when nothing
// acceptable was found, which keeps the field counted as mapped-but-
// empty by callers that saw the mapping.
func readFlexible(g SpreadsheetGrid, r, c int, f models.Field, hdr *headerContext, num profile.Numeric) (string, bool) {
	if v := readCellOrMergedTopLeft(g, r, c); acceptable(v, f, num) {
		return v, true
	}

	for probe := c + 1; probe <= c+neighborProbeRadius; probe++ {
		if forbiddenNeighbor(g, r, probe, f, hdr) {
			break
		}
		if v := readCellOrMergedTopLeft(g, r, probe); acceptable(v, f, num) {
			return v, true
		}
	}

	for probe := c - 1; probe >= c-neighborProbeRadius; probe-- {
		if forbiddenNeighbor(g, r, probe, f, hdr) {
			break
		}
		if v := readCellOrMergedTopLeft(g, r, probe); acceptable(v, f, num) {
			return v, true
		}
	}

	return "", true
}

// forbiddenNeighbor reports whether the probed column belongs to a
// field other than f: it is another field's mapped column, it sits in
// a merged region spanning another mapped column, or its header-band
// text is non-empty and matches none of f's synonyms. Negative columns
// are forbidden outright.
func forbiddenNeighbor(g SpreadsheetGrid, r, probe int, f models.Field, hdr *headerContext) bool {
	if probe < 0 {
		return true
	}

	if hdr.HeaderByCol != nil && probe < len(hdr.HeaderByCol) {
		if text := normalize(hdr.HeaderByCol[probe]); text != "" {
			if !headerMatchesField(text, f, hdr.Expect) {
				return true
			}
		}
	}

	region, hasRegion := regionAt(g, r, probe)
	for other, otherCol := range hdr.Mapping {
		if other == f {
			continue
		}
		if otherCol == probe {
			return true
		}
		if hasRegion && region.ContainsCol(otherCol) {
			return true
		}
	}
	return false
}

// readCellOrMergedTopLeft reads (r, c) directly, falling back to the
// top-left value of any merged region covering the cell.
func readCellOrMergedTopLeft(g SpreadsheetGrid, r, c int) string {
	if c < 0 {
		return ""
	}
	if v := g.Cell(r, c); v != "" {
		return v
	}
	if region, ok := regionAt(g, r, c); ok {
		return g.Cell(region.FirstRow, region.FirstCol)
	}
	return ""
}

func regionAt(g SpreadsheetGrid, r, c int) (MergeRegion, bool) {
	for _, region := range g.Regions() {
		if region.Contains(r, c) {
			return region, true
		}
	}
	return MergeRegion{}, false
}

// acceptable decides whether a probed value can stand in for field f:
// numeric fields must parse as a decimal, anything else just needs to
// be non-empty.
func acceptable(v string, f models.Field, num profile.Numeric) bool {
	if v == "" {
		return false
	}
	if f.IsNumeric() {
		return readDecimal(v, num) != nil
	}
	return true
}
