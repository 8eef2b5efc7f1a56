package parsers

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	"golang-statement-engine/internal/models"
	"golang-statement-engine/internal/profile"
	"golang-statement-engine/pkg/errors"
	"golang-statement-engine/pkg/logger"
)

// ParsePDF extracts the text layer of a textual PDF and matches the
// profile's line pattern against it. There is no header resolution
// step; the pattern's named groups are the field mapping.
func ParsePDF(r io.Reader, fp *profile.FormatProfile) ([]models.ParsedRow, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.IoFailure("buffering pdf stream", err).
			WithContext("parser_key", fp.ParserKey)
	}

	text, err := extractPDFText(data)
	if err != nil {
		return nil, errors.IoFailure("extracting pdf text layer", err).
			WithContext("parser_key", fp.ParserKey).
			WithContext("format", string(fp.Kind))
	}

	return parsePDFText(text, fp), nil
}

// extractPDFText walks every page row by row, joining row fragments
// with spaces and rows with newlines. The pdf library panics on some
// malformed documents; the recover turns that into an error.
func extractPDFText(data []byte) (text string, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("pdf reader panic: %v", p)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var lines []string
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			continue
		}
		for _, row := range rows {
			var parts []string
			for _, word := range row.Content {
				parts = append(parts, word.S)
			}
			if line := strings.TrimSpace(strings.Join(parts, " ")); line != "" {
				lines = append(lines, line)
			}
		}
	}
	return strings.Join(lines, "\n"), nil
}

// parsePDFText clips the extracted text between the start and stop
// regexes, then materializes one row per line that matches the
// profile's line pattern. Non-matching lines are skipped silently.
func parsePDFText(text string, fp *profile.FormatProfile) []models.ParsedRow {
	log := logger.GetGlobalLogger().WithComponent("pdf_parser").
		WithField("parser_key", fp.ParserKey)

	body := text
	if fp.StartAfter != nil {
		if loc := fp.StartAfter.FindStringIndex(body); loc != nil {
			body = body[loc[1]:]
		}
	}
	if fp.StopBefore != nil {
		if loc := fp.StopBefore.FindStringIndex(body); loc != nil {
			body = body[:loc[0]]
		}
	}

	var rows []models.ParsedRow
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		match := fp.LinePattern.FindStringSubmatchIndex(line)
		if match == nil {
			continue
		}

		values := make(RowValues, len(fp.LineFields))
		for group, field := range fp.LineFields {
			start, end := match[2*group], match[2*group+1]
			if start < 0 {
				// Optional group that did not participate: the field
				// stays unmapped for this line.
				continue
			}
			values[field] = strings.TrimSpace(line[start:end])
		}

		if row := materializeRow(values, fp); row != nil {
			rows = append(rows, *row)
		}
	}

	log.WithField("rows", len(rows)).Debug("PDF parse complete")
	return rows
}
