// Package engine is the facade over the statement parsers: it detects
// the document format, resolves the per-format bank profile and runs
// the matching pipeline, returning the normalized rows in document
// order. One invocation is single-threaded and shares nothing mutable;
// callers run invocations concurrently against the same profile tree.
package engine

import (
	"strings"

	"golang-statement-engine/internal/models"
	"golang-statement-engine/pkg/errors"
)

// extensionKinds maps filename suffixes to format kinds. Extension
// matching wins over the MIME hint.
var extensionKinds = []struct {
	suffix string
	kind   models.FormatKind
}{
	{".csv", models.FormatCSV},
	{".xlsx", models.FormatXLSX},
	{".xls", models.FormatXLS},
	{".pdf", models.FormatPDF},
}

// mimeKinds maps MIME-hint substrings to format kinds. The generic
// "excel" hint selects XLSX; legacy BIFF uploads carry the .xls
// extension, which is checked first.
var mimeKinds = []struct {
	substring string
	kind      models.FormatKind
}{
	{"csv", models.FormatCSV},
	{"excel", models.FormatXLSX},
	{"spreadsheetml", models.FormatXLSX},
	{"pdf", models.FormatPDF},
}

// DetectFormat classifies the input from its filename and MIME hint,
// never reading the stream. Extension matching is case-insensitive;
// when no extension matches, the lowered MIME hint is searched for
// known substrings. Both unhelpful yields UnsupportedFormat.
func DetectFormat(filename, contentType string) (models.FormatKind, error) {
	name := strings.ToLower(strings.TrimSpace(filename))
	for _, e := range extensionKinds {
		if strings.HasSuffix(name, e.suffix) {
			return e.kind, nil
		}
	}

	ct := strings.ToLower(strings.TrimSpace(contentType))
	if ct != "" {
		for _, m := range mimeKinds {
			if strings.Contains(ct, m.substring) {
				return m.kind, nil
			}
		}
	}

	return "", errors.UnsupportedFormat(filename, contentType)
}
