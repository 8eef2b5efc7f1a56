package profile

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"gopkg.in/yaml.v3"

	"golang-statement-engine/internal/models"
	"golang-statement-engine/pkg/errors"
	"golang-statement-engine/pkg/logger"
)

// Profile defaults. Materialization writes these into every field the
// document leaves unset, in this one place.
const (
	DefaultCharset        = "UTF-8"
	DefaultDelimiter      = ','
	DefaultThousandsSep   = ","
	DefaultDecimalSep     = "."
	DefaultDateFormat     = "dd/MM/yyyy"
	DefaultTimeFormat     = "HH:mm:ss"
	DefaultMergeSeparator = " "
	DefaultRowStartOffset = 1
	DefaultMultiRowCount  = 1
)

// Raw document shape. Every defaultable leaf is a pointer so absence
// is distinguishable from an explicit zero.

type rawTree struct {
	Banks map[string]*rawBank `yaml:"banks"`
}

type rawBank struct {
	Enabled *bool      `yaml:"enabled"`
	CSV     *rawFormat `yaml:"csv"`
	XLS     *rawFormat `yaml:"xls"`
	XLSX    *rawFormat `yaml:"xlsx"`
	PDF     *rawFormat `yaml:"pdf"`
}

type rawFormat struct {
	Enabled *bool `yaml:"enabled"`

	Charset    *string `yaml:"charset"`
	Delimiter  *string `yaml:"delimiter"`
	SkipRows   *int    `yaml:"skipRows"`
	SheetIndex *int    `yaml:"sheetIndex"`

	StartAfterRegex *string `yaml:"startAfterRegex"`
	StopBeforeRegex *string `yaml:"stopBeforeRegex"`
	LinePattern     *string `yaml:"linePattern"`

	Headers   *rawHeaders   `yaml:"headers"`
	Numeric   *rawNumeric   `yaml:"numeric"`
	DateParse *rawDateParse `yaml:"dateParse"`
	Reference *rawReference `yaml:"reference"`
	PayInRule *rawPayInRule `yaml:"payInRule"`
	RowStop   *rawRowStop   `yaml:"rowStop"`
}

type rawHeaders struct {
	Mode                string         `yaml:"mode"`
	RowStart            *int           `yaml:"rowStart"`
	Columns             map[string]int `yaml:"columns"`
	ScanRange           *rawRange      `yaml:"scanRange"`
	FixedHeaderRows     *rawRange      `yaml:"fixedHeaderRows"`
	UseOneBasedRowIndex *bool          `yaml:"useOneBasedRowIndex"`
	MultiRowCount       *int           `yaml:"multiRowCount"`
	MergeSeparator      *string        `yaml:"mergeSeparator"`
	RowStartOffset      *int           `yaml:"rowStartOffset"`
	Expect              map[string][]string `yaml:"expect"`
}

type rawRange struct {
	From int `yaml:"from"`
	To   int `yaml:"to"`
}

type rawNumeric struct {
	ThousandsSeparator *string `yaml:"thousandsSeparator"`
	DecimalSeparator   *string `yaml:"decimalSeparator"`
}

type rawDateParse struct {
	Format     *string `yaml:"format"`
	TimeFormat *string `yaml:"timeFormat"`
	Input      *string `yaml:"input"`
}

type rawReference struct {
	Splitter    *string        `yaml:"splitter"`
	PartsCount  *rawPartsCount `yaml:"partsCount"`
	OrderID     *rawPart       `yaml:"orderId"`
	UTR         *rawPart       `yaml:"utr"`
	UTRFallback *rawRegex      `yaml:"utrFallback"`
}

type rawPartsCount struct {
	Mode   string `yaml:"mode"`
	Values []int  `yaml:"values"`
}

type rawPart struct {
	Index           int  `yaml:"index"`
	CleanDigitsOnly bool `yaml:"cleanDigitsOnly"`
}

type rawRegex struct {
	Regex string `yaml:"regex"`
}

type rawPayInRule struct {
	Mode  string   `yaml:"mode"`
	AnyOf []string `yaml:"anyOf"`
}

type rawRowStop struct {
	Mode       string `yaml:"mode"`
	UntilRegex string `yaml:"untilRegex"`
}

// LoadFile loads and materializes a profile tree from a YAML file.
func LoadFile(path string) (*Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.FileError(errors.CodeFileNotFound, path, err)
	}
	return Load(data)
}

// Load parses, validates and materializes a profile tree from YAML.
// All structural validation happens here; a Tree that loads without
// error never fails structurally at parse time.
func Load(data []byte) (*Tree, error) {
	log := logger.GetGlobalLogger().WithComponent("profile")

	var raw rawTree
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, errors.MalformedProfile("banks", "document is not valid YAML", err)
	}
	if raw.Banks == nil {
		return nil, errors.MalformedProfile("banks", "top-level banks section is missing", nil)
	}

	tree := &Tree{banks: make(map[string]*Bank, len(raw.Banks))}
	for key, rawBank := range raw.Banks {
		normalized := normalizeKey(key)
		if normalized == "" {
			return nil, errors.MalformedProfile("banks", "parser key must not be blank", nil)
		}
		if _, exists := tree.banks[normalized]; exists {
			return nil, errors.MalformedProfile("banks."+normalized, "duplicate parser key after case folding", nil)
		}
		if rawBank == nil {
			return nil, errors.MalformedProfile("banks."+normalized, "bank profile is empty", nil)
		}

		bank, err := materializeBank(normalized, rawBank)
		if err != nil {
			return nil, err
		}
		tree.banks[normalized] = bank
	}

	log.WithField("banks", len(tree.banks)).Debug("Profile tree loaded")
	return tree, nil
}

func normalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

func materializeBank(key string, raw *rawBank) (*Bank, error) {
	bank := &Bank{
		Key:     key,
		Enabled: boolOrDefault(raw.Enabled, true),
	}

	formats := []struct {
		kind models.FormatKind
		raw  *rawFormat
		dst  **FormatProfile
	}{
		{models.FormatCSV, raw.CSV, &bank.CSV},
		{models.FormatXLS, raw.XLS, &bank.XLS},
		{models.FormatXLSX, raw.XLSX, &bank.XLSX},
		{models.FormatPDF, raw.PDF, &bank.PDF},
	}

	for _, f := range formats {
		if f.raw == nil {
			continue
		}
		path := fmt.Sprintf("banks.%s.%s", key, strings.ToLower(string(f.kind)))
		fp, err := materializeFormat(key, f.kind, path, f.raw)
		if err != nil {
			return nil, err
		}
		*f.dst = fp
	}

	return bank, nil
}

func materializeFormat(key string, kind models.FormatKind, path string, raw *rawFormat) (*FormatProfile, error) {
	fp := &FormatProfile{
		ParserKey: key,
		Kind:      kind,
		Enabled:   boolOrDefault(raw.Enabled, true),
	}

	if err := materializeNumeric(fp, raw.Numeric); err != nil {
		return nil, errors.MalformedProfile(path+".numeric", err.Error(), nil)
	}
	if err := materializeDateParse(fp, raw.DateParse, path); err != nil {
		return nil, err
	}
	if err := materializeReference(fp, raw.Reference, path); err != nil {
		return nil, err
	}
	if err := materializePayIn(fp, raw.PayInRule, path); err != nil {
		return nil, err
	}
	if err := materializeRowStop(fp, raw.RowStop, path); err != nil {
		return nil, err
	}

	switch kind {
	case models.FormatCSV:
		if err := materializeDelimited(fp, raw, path); err != nil {
			return nil, err
		}
		if err := materializeHeaders(fp, raw.Headers, path); err != nil {
			return nil, err
		}
	case models.FormatXLS, models.FormatXLSX:
		fp.SheetIndex = intOrDefault(raw.SheetIndex, 0)
		if fp.SheetIndex < 0 {
			return nil, errors.MalformedProfile(path+".sheetIndex", "sheet index must not be negative", nil)
		}
		if err := materializeHeaders(fp, raw.Headers, path); err != nil {
			return nil, err
		}
	case models.FormatPDF:
		if err := materializePDF(fp, raw, path); err != nil {
			return nil, err
		}
	}

	return fp, nil
}

func materializeDelimited(fp *FormatProfile, raw *rawFormat, path string) error {
	fp.Charset = stringOrDefault(raw.Charset, DefaultCharset)
	enc, err := resolveCharset(fp.Charset)
	if err != nil {
		return errors.MalformedProfile(path+".charset", fmt.Sprintf("unknown charset %q", fp.Charset), err)
	}
	fp.Encoding = enc

	delim := stringOrDefault(raw.Delimiter, string(DefaultDelimiter))
	runes := []rune(delim)
	if len(runes) != 1 {
		return errors.MalformedProfile(path+".delimiter", "delimiter must be a single character", nil)
	}
	fp.Delimiter = runes[0]

	fp.SkipRows = intOrDefault(raw.SkipRows, 0)
	if fp.SkipRows < 0 {
		return errors.MalformedProfile(path+".skipRows", "skipRows must not be negative", nil)
	}
	return nil
}

func resolveCharset(name string) (encoding.Encoding, error) {
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, err
	}
	return enc, nil
}

func materializeNumeric(fp *FormatProfile, raw *rawNumeric) error {
	fp.Numeric = Numeric{
		ThousandsSeparator: DefaultThousandsSep,
		DecimalSeparator:   DefaultDecimalSep,
	}
	if raw == nil {
		return nil
	}
	if raw.ThousandsSeparator != nil {
		if *raw.ThousandsSeparator == "" {
			return fmt.Errorf("thousandsSeparator must not be empty")
		}
		fp.Numeric.ThousandsSeparator = *raw.ThousandsSeparator
	}
	if raw.DecimalSeparator != nil {
		if *raw.DecimalSeparator == "" {
			return fmt.Errorf("decimalSeparator must not be empty")
		}
		fp.Numeric.DecimalSeparator = *raw.DecimalSeparator
	}
	return nil
}

func materializeDateParse(fp *FormatProfile, raw *rawDateParse, path string) error {
	format := DefaultDateFormat
	timeFormat := DefaultTimeFormat
	excelSerial := false

	if raw != nil {
		if raw.Format != nil {
			if strings.TrimSpace(*raw.Format) == "" {
				return errors.MalformedProfile(path+".dateParse.format", "format must not be blank", nil)
			}
			format = *raw.Format
		}
		if raw.TimeFormat != nil {
			if strings.TrimSpace(*raw.TimeFormat) == "" {
				return errors.MalformedProfile(path+".dateParse.timeFormat", "timeFormat must not be blank", nil)
			}
			timeFormat = *raw.TimeFormat
		}
		if raw.Input != nil && *raw.Input != "" {
			if !strings.EqualFold(*raw.Input, "excelSerial") {
				return errors.MalformedProfile(path+".dateParse.input",
					fmt.Sprintf("unknown input modifier %q, only excelSerial is supported", *raw.Input), nil)
			}
			excelSerial = true
		}
	}

	fp.DateParse = DateParse{
		Format:      TranslateDateTokens(format),
		TimeFormat:  TranslateDateTokens(timeFormat),
		ExcelSerial: excelSerial,
	}
	return nil
}

func materializeReference(fp *FormatProfile, raw *rawReference, path string) error {
	fp.Reference = Reference{PartsMode: PartsCountNone}
	if raw == nil {
		return nil
	}

	if raw.Splitter != nil {
		fp.Reference.Splitter = *raw.Splitter
	}

	if raw.PartsCount != nil {
		mode := PartsCountMode(strings.ToUpper(strings.TrimSpace(raw.PartsCount.Mode)))
		switch mode {
		case PartsCountNone, "":
			fp.Reference.PartsMode = PartsCountNone
		case PartsCountExact:
			if len(raw.PartsCount.Values) != 1 {
				return errors.MalformedProfile(path+".reference.partsCount",
					"EXACT mode requires exactly one value", nil)
			}
			fp.Reference.PartsMode = PartsCountExact
			fp.Reference.PartsValues = raw.PartsCount.Values
		case PartsCountOneOf:
			if len(raw.PartsCount.Values) == 0 {
				return errors.MalformedProfile(path+".reference.partsCount",
					"ONE_OF mode requires at least one value", nil)
			}
			fp.Reference.PartsMode = PartsCountOneOf
			fp.Reference.PartsValues = raw.PartsCount.Values
		default:
			return errors.MalformedProfile(path+".reference.partsCount",
				fmt.Sprintf("unknown partsCount mode %q", raw.PartsCount.Mode), nil)
		}
		for _, v := range fp.Reference.PartsValues {
			if v < 0 {
				return errors.MalformedProfile(path+".reference.partsCount", "part counts must not be negative", nil)
			}
		}
	}

	if raw.OrderID != nil {
		if fp.Reference.Splitter == "" {
			return errors.MalformedProfile(path+".reference.orderId", "orderId extraction requires a non-empty splitter", nil)
		}
		if raw.OrderID.Index < 0 {
			return errors.MalformedProfile(path+".reference.orderId", "index must not be negative", nil)
		}
		fp.Reference.OrderID = &PartExtract{Index: raw.OrderID.Index, CleanDigitsOnly: raw.OrderID.CleanDigitsOnly}
	}
	if raw.UTR != nil {
		if fp.Reference.Splitter == "" {
			return errors.MalformedProfile(path+".reference.utr", "utr extraction requires a non-empty splitter", nil)
		}
		if raw.UTR.Index < 0 {
			return errors.MalformedProfile(path+".reference.utr", "index must not be negative", nil)
		}
		fp.Reference.UTR = &PartExtract{Index: raw.UTR.Index, CleanDigitsOnly: raw.UTR.CleanDigitsOnly}
	}

	if raw.UTRFallback != nil {
		if strings.TrimSpace(raw.UTRFallback.Regex) == "" {
			return errors.MalformedProfile(path+".reference.utrFallback", "regex must not be blank", nil)
		}
		re, err := regexp.Compile(raw.UTRFallback.Regex)
		if err != nil {
			return errors.MalformedProfile(path+".reference.utrFallback", "regex does not compile", err)
		}
		fp.Reference.UTRFallback = re
	}

	return nil
}

func materializePayIn(fp *FormatProfile, raw *rawPayInRule, path string) error {
	fp.PayIn = PayInRule{Mode: PayInAmountPositive}
	if raw == nil {
		return nil
	}

	mode := PayInMode(strings.ToUpper(strings.TrimSpace(raw.Mode)))
	switch mode {
	case "", PayInAmountPositive:
		fp.PayIn.Mode = PayInAmountPositive
	case PayInCreditColumn, PayInOrderIDNoSpace, PayInUTRNoSpace:
		fp.PayIn.Mode = mode
	case PayInNarrationContains:
		fp.PayIn.Mode = mode
		fp.PayIn.AnyOf = raw.AnyOf
	default:
		return errors.MalformedProfile(path+".payInRule", fmt.Sprintf("unknown payIn mode %q", raw.Mode), nil)
	}
	return nil
}

func materializeRowStop(fp *FormatProfile, raw *rawRowStop, path string) error {
	fp.RowStop = RowStop{Mode: RowStopNone}
	if raw == nil {
		return nil
	}

	mode := RowStopMode(strings.ToUpper(strings.TrimSpace(raw.Mode)))
	switch mode {
	case "", RowStopNone:
		fp.RowStop.Mode = RowStopNone
	case RowStopBlankRow:
		fp.RowStop.Mode = RowStopBlankRow
	case RowStopUntilRegex:
		if strings.TrimSpace(raw.UntilRegex) == "" {
			return errors.MalformedProfile(path+".rowStop", "UNTIL_REGEX mode requires untilRegex", nil)
		}
		re, err := regexp.Compile(raw.UntilRegex)
		if err != nil {
			return errors.MalformedProfile(path+".rowStop.untilRegex", "regex does not compile", err)
		}
		fp.RowStop.Mode = RowStopUntilRegex
		fp.RowStop.Until = re
	default:
		return errors.MalformedProfile(path+".rowStop", fmt.Sprintf("unknown rowStop mode %q", raw.Mode), nil)
	}
	return nil
}

func materializeHeaders(fp *FormatProfile, raw *rawHeaders, path string) error {
	if raw == nil {
		return errors.MalformedProfile(path+".headers", "headers section is required", nil)
	}

	mode := HeaderMode(strings.ToUpper(strings.TrimSpace(raw.Mode)))
	switch mode {
	case HeaderModeFixed:
		return materializeFixedHeaders(fp, raw, path)
	case HeaderModeSearch:
		return materializeSearchHeaders(fp, raw, path)
	default:
		return errors.MalformedProfile(path+".headers.mode", fmt.Sprintf("unknown header mode %q", raw.Mode), nil)
	}
}

func materializeFixedHeaders(fp *FormatProfile, raw *rawHeaders, path string) error {
	if len(raw.Columns) == 0 {
		return errors.MalformedProfile(path+".headers.columns", "FIXED mode requires declared columns", nil)
	}
	if raw.RowStart == nil || *raw.RowStart < 0 {
		return errors.MalformedProfile(path+".headers.rowStart", "FIXED mode requires a non-negative rowStart", nil)
	}

	columns := make(map[models.Field]int, len(raw.Columns))
	for name, idx := range raw.Columns {
		field, ok := models.ParseField(name)
		if !ok {
			return errors.MalformedProfile(path+".headers.columns", fmt.Sprintf("unknown semantic field %q", name), nil)
		}
		if idx < 0 {
			return errors.MalformedProfile(path+".headers.columns", fmt.Sprintf("column index for %s must not be negative", field), nil)
		}
		if _, dup := columns[field]; dup {
			return errors.MalformedProfile(path+".headers.columns", fmt.Sprintf("field %s is declared twice", field), nil)
		}
		columns[field] = idx
	}

	fp.Headers = Headers{
		Mode:     HeaderModeFixed,
		RowStart: *raw.RowStart,
		Columns:  columns,
	}
	return nil
}

func materializeSearchHeaders(fp *FormatProfile, raw *rawHeaders, path string) error {
	if len(raw.Expect) == 0 {
		return errors.MalformedProfile(path+".headers.expect", "SEARCH mode requires an expect synonym map", nil)
	}

	expect := make(map[models.Field][]string, len(raw.Expect))
	for name, synonyms := range raw.Expect {
		field, ok := models.ParseField(name)
		if !ok {
			return errors.MalformedProfile(path+".headers.expect", fmt.Sprintf("unknown semantic field %q", name), nil)
		}
		if len(synonyms) == 0 {
			return errors.MalformedProfile(path+".headers.expect", fmt.Sprintf("field %s has no synonyms", field), nil)
		}
		for _, syn := range synonyms {
			if strings.TrimSpace(syn) == "" {
				return errors.MalformedProfile(path+".headers.expect", fmt.Sprintf("field %s has a blank synonym", field), nil)
			}
		}
		expect[field] = synonyms
	}

	h := Headers{
		Mode:           HeaderModeSearch,
		MultiRowCount:  intOrDefault(raw.MultiRowCount, DefaultMultiRowCount),
		MergeSeparator: stringOrDefault(raw.MergeSeparator, DefaultMergeSeparator),
		RowStartOffset: intOrDefault(raw.RowStartOffset, DefaultRowStartOffset),
		Expect:         expect,
	}
	if h.MultiRowCount < 1 {
		return errors.MalformedProfile(path+".headers.multiRowCount", "multiRowCount must be at least 1", nil)
	}
	if h.RowStartOffset < 0 {
		return errors.MalformedProfile(path+".headers.rowStartOffset", "rowStartOffset must not be negative", nil)
	}

	oneBased := boolOrDefault(raw.UseOneBasedRowIndex, true)
	base := 0
	if oneBased {
		base = 1
	}

	switch {
	case raw.FixedHeaderRows != nil && raw.ScanRange != nil:
		return errors.MalformedProfile(path+".headers", "scanRange and fixedHeaderRows are mutually exclusive", nil)
	case raw.FixedHeaderRows != nil:
		from := raw.FixedHeaderRows.From - base
		to := raw.FixedHeaderRows.To - base
		if from < 0 || to < from {
			return errors.MalformedProfile(path+".headers.fixedHeaderRows", "band bounds are out of order", nil)
		}
		// Without an explicit multiRowCount the band rows define it.
		if raw.MultiRowCount == nil {
			h.MultiRowCount = to - from + 1
		}
		h.FixedBand = true
		h.BandFrom = from
	case raw.ScanRange != nil:
		from := raw.ScanRange.From - base
		to := raw.ScanRange.To - base
		if from < 0 || to < from {
			return errors.MalformedProfile(path+".headers.scanRange", "scan bounds are out of order", nil)
		}
		h.ScanFrom = from
		h.ScanTo = to
	default:
		return errors.MalformedProfile(path+".headers", "SEARCH mode requires scanRange or fixedHeaderRows", nil)
	}

	fp.Headers = h
	return nil
}

func materializePDF(fp *FormatProfile, raw *rawFormat, path string) error {
	if raw.LinePattern == nil || strings.TrimSpace(*raw.LinePattern) == "" {
		return errors.MalformedProfile(path+".linePattern", "pdf profiles require a linePattern", nil)
	}

	// The pattern must match whole lines; anchor it once here.
	line, err := regexp.Compile("^(?:" + *raw.LinePattern + ")$")
	if err != nil {
		return errors.MalformedProfile(path+".linePattern", "regex does not compile", err)
	}
	fp.LinePattern = line

	fp.LineFields = make(map[int]models.Field)
	seen := make(map[models.Field]bool)
	for i, name := range line.SubexpNames() {
		if name == "" {
			continue
		}
		field, ok := models.ParseField(name)
		if !ok {
			// Unrecognized named groups are ignored.
			continue
		}
		if !seen[field] {
			seen[field] = true
			fp.LineFields[i] = field
		}
	}

	// The named groups are the header mapping; they must satisfy the
	// sufficiency gate before any document is parsed.
	if !seen[models.FieldDate] || !seen[models.FieldReference] ||
		!(seen[models.FieldAmount] || seen[models.FieldCredit] || seen[models.FieldDebit]) {
		return errors.MalformedProfile(path+".linePattern",
			"named groups must include date, ref and one of amount, credit, debit", nil)
	}

	if raw.StartAfterRegex != nil && strings.TrimSpace(*raw.StartAfterRegex) != "" {
		re, err := regexp.Compile("(?m)" + *raw.StartAfterRegex)
		if err != nil {
			return errors.MalformedProfile(path+".startAfterRegex", "regex does not compile", err)
		}
		fp.StartAfter = re
	}
	if raw.StopBeforeRegex != nil && strings.TrimSpace(*raw.StopBeforeRegex) != "" {
		re, err := regexp.Compile("(?m)" + *raw.StopBeforeRegex)
		if err != nil {
			return errors.MalformedProfile(path+".stopBeforeRegex", "regex does not compile", err)
		}
		fp.StopBefore = re
	}

	return nil
}

func boolOrDefault(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func intOrDefault(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}

func stringOrDefault(v *string, def string) string {
	if v == nil {
		return def
	}
	return *v
}
