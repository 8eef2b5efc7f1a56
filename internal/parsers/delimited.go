package parsers

import (
	"encoding/csv"
	"io"

	"golang.org/x/text/transform"

	"golang-statement-engine/internal/models"
	"golang-statement-engine/internal/profile"
	"golang-statement-engine/pkg/errors"
	"golang-statement-engine/pkg/logger"
)

// ParseDelimited runs the delimited pipeline: decode the stream with
// the profile charset, read every record up front (header scanning
// needs the whole document), resolve the header band and materialize
// the data rows in document order.
func ParseDelimited(r io.Reader, fp *profile.FormatProfile) ([]models.ParsedRow, error) {
	log := logger.GetGlobalLogger().WithComponent("delimited_parser").
		WithField("parser_key", fp.ParserKey)

	reader := csv.NewReader(transform.NewReader(r, fp.Encoding.NewDecoder()))
	reader.Comma = fp.Delimiter
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.IoFailure("reading delimited records", err).
			WithContext("parser_key", fp.ParserKey).
			WithContext("format", string(fp.Kind))
	}

	grid := sliceGrid(records)
	hdr, err := resolveHeaders(grid, fp, false)
	if err != nil {
		return nil, err
	}

	log.WithFields(logger.Fields{
		"records":    len(records),
		"data_start": hdr.DataStart,
		"mapped":     mappedFieldNames(hdr.Mapping),
	}).Debug("Delimited header resolved")

	start := hdr.DataStart
	if fp.SkipRows > start {
		start = fp.SkipRows
	}

	var rows []models.ParsedRow
	for r := start; r < grid.Rows(); r++ {
		if stopRow(grid, r, fp.RowStop) {
			break
		}
		values := make(RowValues, len(hdr.Mapping))
		for f, c := range hdr.Mapping {
			values[f] = grid.Cell(r, c)
		}
		if row := materializeRow(values, fp); row != nil {
			rows = append(rows, *row)
		}
	}

	log.WithField("rows", len(rows)).Debug("Delimited parse complete")
	return rows, nil
}
