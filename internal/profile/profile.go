// Package profile loads and resolves declarative bank profiles. A
// profile tree is parsed from YAML once at startup, every defaulted
// option is materialized to its concrete value, and the result is
// immutable: engine code reads unconditional values and never applies
// defaults at row time.
package profile

import (
	"regexp"
	"sort"

	"golang.org/x/text/encoding"

	"golang-statement-engine/internal/models"
)

// HeaderMode selects how the header band is located
type HeaderMode string

const (
	// HeaderModeFixed takes declared column indices directly
	HeaderModeFixed HeaderMode = "FIXED"
	// HeaderModeSearch scans rows and matches synonyms
	HeaderModeSearch HeaderMode = "SEARCH"
)

// PartsCountMode validates the number of parts a reference splits into
type PartsCountMode string

const (
	PartsCountNone  PartsCountMode = "NONE"
	PartsCountExact PartsCountMode = "EXACT"
	PartsCountOneOf PartsCountMode = "ONE_OF"
)

// PayInMode discriminates the credit/debit classification rule
type PayInMode string

const (
	PayInAmountPositive    PayInMode = "AMOUNT_POSITIVE"
	PayInCreditColumn      PayInMode = "CREDIT_COLUMN"
	PayInOrderIDNoSpace    PayInMode = "ORDER_ID_NO_SPACE"
	PayInUTRNoSpace        PayInMode = "UTR_NO_SPACE"
	PayInNarrationContains PayInMode = "NARRATION_CONTAINS"
)

// RowStopMode decides when data-row iteration halts early
type RowStopMode string

const (
	RowStopNone       RowStopMode = "NONE"
	RowStopBlankRow   RowStopMode = "BLANK_ROW"
	RowStopUntilRegex RowStopMode = "UNTIL_REGEX"
)

// Tree is an immutable set of bank profiles keyed by parser key.
// Lookups trim and casefold the key.
type Tree struct {
	banks map[string]*Bank
}

// Bank is one bank's profile with up to four format sub-profiles.
// Disabled banks and formats stay in the tree for listing but are
// invisible to Resolve.
type Bank struct {
	Key     string
	Enabled bool
	CSV     *FormatProfile
	XLS     *FormatProfile
	XLSX    *FormatProfile
	PDF     *FormatProfile
}

// FormatProfile is one fully materialized per-format parsing schema.
// Option groups that do not apply to the profile's kind hold their
// zero values and are never read.
type FormatProfile struct {
	ParserKey string
	Kind      models.FormatKind
	Enabled   bool

	Headers   Headers
	Numeric   Numeric
	DateParse DateParse
	Reference Reference
	PayIn     PayInRule
	RowStop   RowStop

	// Delimited options. Encoding is the charset resolved once at
	// load; the delimited reader decodes through it.
	Charset   string
	Encoding  encoding.Encoding
	Delimiter rune
	SkipRows  int

	// Spreadsheet options
	SheetIndex int

	// PDF options
	StartAfter  *regexp.Regexp
	StopBefore  *regexp.Regexp
	LinePattern *regexp.Regexp
	// LineFields maps capture-group positions of LinePattern to
	// semantic fields; group names are resolved once at load.
	LineFields map[int]models.Field
}

// Headers describes how to locate the header band and map columns.
type Headers struct {
	Mode HeaderMode

	// FIXED mode: declared indices, data starts at RowStart.
	RowStart int
	Columns  map[models.Field]int

	// SEARCH mode. Scan bounds are zero-based and inclusive after
	// materialization; FixedBand pins the band start instead of
	// scanning.
	ScanFrom       int
	ScanTo         int
	FixedBand      bool
	BandFrom       int
	MultiRowCount  int
	MergeSeparator string
	RowStartOffset int
	Expect         map[models.Field][]string
}

// Numeric carries the localized number separators.
type Numeric struct {
	ThousandsSeparator string
	DecimalSeparator   string
}

// DateParse carries the date and time layouts, already translated to
// Go reference layouts by the loader.
type DateParse struct {
	Format      string
	TimeFormat  string
	ExcelSerial bool
}

// PartExtract selects one part of a split reference.
type PartExtract struct {
	Index           int
	CleanDigitsOnly bool
}

// Reference describes how to split the reference string into order-id
// and UTR components.
type Reference struct {
	Splitter    string
	PartsMode   PartsCountMode
	PartsValues []int
	OrderID     *PartExtract
	UTR         *PartExtract
	UTRFallback *regexp.Regexp
}

// PayInRule classifies rows as credits to the account.
type PayInRule struct {
	Mode  PayInMode
	AnyOf []string
}

// RowStop halts data-row iteration early.
type RowStop struct {
	Mode  RowStopMode
	Until *regexp.Regexp
}

// Bank returns the bank profile for a parser key. Keys are trimmed
// and compared case-insensitively.
func (t *Tree) Bank(parserKey string) (*Bank, bool) {
	b, ok := t.banks[normalizeKey(parserKey)]
	return b, ok
}

// Keys returns every parser key in the tree, sorted.
func (t *Tree) Keys() []string {
	keys := make([]string, 0, len(t.banks))
	for k := range t.banks {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Format returns the sub-profile for a format kind, nil when the bank
// does not carry it.
func (b *Bank) Format(kind models.FormatKind) *FormatProfile {
	switch kind {
	case models.FormatCSV:
		return b.CSV
	case models.FormatXLS:
		return b.XLS
	case models.FormatXLSX:
		return b.XLSX
	case models.FormatPDF:
		return b.PDF
	}
	return nil
}

// EnabledFormats returns the format kinds this bank accepts.
func (b *Bank) EnabledFormats() []models.FormatKind {
	var kinds []models.FormatKind
	for _, kind := range []models.FormatKind{models.FormatCSV, models.FormatXLS, models.FormatXLSX, models.FormatPDF} {
		if fp := b.Format(kind); fp != nil && fp.Enabled {
			kinds = append(kinds, kind)
		}
	}
	return kinds
}
