package parsers

import (
	"strings"

	"golang-statement-engine/internal/models"
	"golang-statement-engine/internal/profile"
	"golang-statement-engine/pkg/errors"
)

// headerContext is the transient result of header resolution for one
// parse invocation. HeaderByCol holds the resolved band text per
// column (spreadsheet SEARCH mode only); the flexible row reader uses
// it to keep probes out of foreign columns.
type headerContext struct {
	Mapping     map[models.Field]int
	DataStart   int
	HeaderByCol []string
	Expect      map[models.Field][]string
}

// sufficient applies the mapping gate: date, reference and one of
// amount, credit, debit must be mapped before any row materializes.
func sufficient(mapping map[models.Field]int) bool {
	_, hasDate := mapping[models.FieldDate]
	_, hasRef := mapping[models.FieldReference]
	_, hasAmount := mapping[models.FieldAmount]
	_, hasCredit := mapping[models.FieldCredit]
	_, hasDebit := mapping[models.FieldDebit]
	return hasDate && hasRef && (hasAmount || hasCredit || hasDebit)
}

func mappedFieldNames(mapping map[models.Field]int) []string {
	var names []string
	for _, f := range models.AllFields {
		if _, ok := mapping[f]; ok {
			names = append(names, string(f))
		}
	}
	return names
}

// resolveHeaders locates the header band and produces the field to
// column mapping for delimited and spreadsheet sources. spreadsheet
// selects the expect-aware merge with rightward propagation instead of
// the plain joined-text merge.
func resolveHeaders(g Grid, fp *profile.FormatProfile, spreadsheet bool) (*headerContext, error) {
	h := fp.Headers
	if h.Mode == profile.HeaderModeFixed {
		return resolveFixedHeaders(fp)
	}
	return resolveSearchHeaders(g, fp, spreadsheet)
}

func resolveFixedHeaders(fp *profile.FormatProfile) (*headerContext, error) {
	mapping := make(map[models.Field]int, len(fp.Headers.Columns))
	for f, c := range fp.Headers.Columns {
		mapping[f] = c
	}
	if !sufficient(mapping) {
		return nil, errors.HeaderMappingInsufficient(fp.ParserKey, string(fp.Kind), mappedFieldNames(mapping))
	}
	return &headerContext{
		Mapping:   mapping,
		DataStart: fp.Headers.RowStart,
	}, nil
}

func resolveSearchHeaders(g Grid, fp *profile.FormatProfile, spreadsheet bool) (*headerContext, error) {
	h := fp.Headers

	merge := mergeDelimitedHeader
	if spreadsheet {
		merge = mergeSpreadsheetHeader
	}

	if h.FixedBand {
		from := h.BandFrom
		to := from + h.MultiRowCount - 1
		merged := merge(g, from, to, h.MergeSeparator, h.Expect)
		mapping := mapMergedHeader(merged, h.Expect)
		if !sufficient(mapping) {
			return nil, errors.HeaderMappingInsufficient(fp.ParserKey, string(fp.Kind), mappedFieldNames(mapping)).AtRow(from)
		}
		return &headerContext{
			Mapping:     mapping,
			DataStart:   to + h.RowStartOffset,
			HeaderByCol: merged,
			Expect:      h.Expect,
		}, nil
	}

	for start := h.ScanFrom; start <= h.ScanTo-(h.MultiRowCount-1); start++ {
		end := start + h.MultiRowCount - 1
		merged := merge(g, start, end, h.MergeSeparator, h.Expect)
		mapping := mapMergedHeader(merged, h.Expect)
		if sufficient(mapping) {
			return &headerContext{
				Mapping:     mapping,
				DataStart:   end + h.RowStartOffset,
				HeaderByCol: merged,
				Expect:      h.Expect,
			}, nil
		}
	}
	return nil, errors.HeaderNotFound(fp.ParserKey, string(fp.Kind), h.ScanFrom, h.ScanTo)
}

// mergeDelimitedHeader joins the non-blank cell texts of each column
// down the band [from, to] with the configured separator. The expect
// map is unused here; delimited matching compares the joined text.
func mergeDelimitedHeader(g Grid, from, to int, join string, _ map[models.Field][]string) []string {
	maxCols := 0
	for r := from; r <= to && r < g.Rows(); r++ {
		if n := g.Cols(r); n > maxCols {
			maxCols = n
		}
	}

	merged := make([]string, maxCols)
	for c := 0; c < maxCols; c++ {
		var parts []string
		for r := from; r <= to && r < g.Rows(); r++ {
			if v := g.Cell(r, c); v != "" {
				parts = append(parts, v)
			}
		}
		merged[c] = strings.Join(parts, join)
	}
	return merged
}

// mergeSpreadsheetHeader produces the expect-aware header band for
// spreadsheet sources. Each column's band cells are joined top to
// bottom with the separator; the joined text is replaced by the longest
// synonym it matches, or kept verbatim when nothing matches so the
// neighbor guard still sees foreign header text. Non-empty text then
// propagates rightward into empty columns so visually merged bands
// keep their span.
func mergeSpreadsheetHeader(g Grid, from, to int, join string, expect map[models.Field][]string) []string {
	maxCols := 0
	for r := from; r <= to && r < g.Rows(); r++ {
		if n := g.Cols(r); n > maxCols {
			maxCols = n
		}
	}

	merged := make([]string, maxCols)
	for c := 0; c < maxCols; c++ {
		var parts []string
		for r := from; r <= to && r < g.Rows(); r++ {
			if cell := normalize(g.Cell(r, c)); cell != "" {
				parts = append(parts, cell)
			}
		}
		joined := strings.Join(parts, join)
		if best := bestSynonym(joined, expect); best != "" {
			merged[c] = best
		} else {
			merged[c] = joined
		}
	}

	propagateRight(merged)
	return merged
}

// bestSynonym returns the longest normalized synonym the cell matches,
// by equality or substring containment. Empty when nothing matches.
func bestSynonym(cell string, expect map[models.Field][]string) string {
	best := ""
	for _, f := range models.AllFields {
		for _, syn := range expect[f] {
			ns := normalize(syn)
			if ns == "" {
				continue
			}
			if (cell == ns || strings.Contains(cell, ns)) && len(ns) > len(best) {
				best = ns
			}
		}
	}
	return best
}

// propagateRight fills empty columns with the nearest non-empty header
// text to their left, stopping at the next non-empty column.
func propagateRight(headerByCol []string) {
	last := ""
	for i, h := range headerByCol {
		if h != "" {
			last = h
		} else if last != "" {
			headerByCol[i] = last
		}
	}
}

// mapMergedHeader maps semantic fields onto columns by comparing the
// merged header text against each field's synonyms. First field in
// canonical order and first column left-to-right win ties; a field
// already mapped never moves.
func mapMergedHeader(merged []string, expect map[models.Field][]string) map[models.Field]int {
	mapping := make(map[models.Field]int)
	for c, text := range merged {
		col := normalize(text)
		if col == "" {
			continue
		}
		for _, f := range models.AllFields {
			if _, done := mapping[f]; done {
				continue
			}
			for _, syn := range expect[f] {
				if col == normalize(syn) {
					mapping[f] = c
					break
				}
			}
		}
	}
	return mapping
}

// headerMatchesField reports whether a header-band text belongs to the
// given field, used by the neighbor guard during flexible reads.
func headerMatchesField(headerText string, f models.Field, expect map[models.Field][]string) bool {
	for _, syn := range expect[f] {
		if headerText == normalize(syn) {
			return true
		}
	}
	return false
}
