package profile

import (
	"strings"
	"testing"

	"golang-statement-engine/internal/models"
	"golang-statement-engine/pkg/errors"
)

const sampleProfileYAML = `
banks:
  HDFC:
    csv:
      delimiter: ","
      skipRows: 1
      headers:
        mode: SEARCH
        scanRange: { from: 1, to: 20 }
        multiRowCount: 2
        expect:
          date: ["Date", "Txn Date"]
          reference: ["Narration"]
          credit: ["Credit"]
          debit: ["Debit"]
          balance: ["Balance"]
      reference:
        splitter: "/"
        partsCount: { mode: ONE_OF, values: [3] }
        orderId: { index: 2 }
        utr: { index: 1, cleanDigitsOnly: true }
        utrFallback: { regex: "UTR[0-9]{12}" }
      payInRule: { mode: NARRATION_CONTAINS, anyOf: ["NEFT CR"] }
      rowStop: { mode: UNTIL_REGEX, untilRegex: "^Opening Balance" }
    xlsx:
      sheetIndex: 1
      dateParse: { format: "dd-MM-yyyy", input: excelSerial }
      numeric: { thousandsSeparator: ".", decimalSeparator: "," }
      headers:
        mode: SEARCH
        fixedHeaderRows: { from: 1, to: 2 }
        expect:
          date: ["Date"]
          reference: ["Narration"]
          amount: ["Amount"]
    pdf:
      enabled: false
      linePattern: '(?P<date>\d{2}/\d{2}/\d{4})\s+(?P<ref>.+?)\s+(?P<amount>[\d,.]+)'
  axis:
    enabled: false
    csv:
      headers:
        mode: FIXED
        rowStart: 5
        columns: { date: 0, reference: 1, amount: 2 }
`

func loadSampleTree(t *testing.T) *Tree {
	t.Helper()
	tree, err := Load([]byte(sampleProfileYAML))
	if err != nil {
		t.Fatalf("failed to load sample profile: %v", err)
	}
	return tree
}

func TestLoadMaterializesDefaults(t *testing.T) {
	tree := loadSampleTree(t)

	keys := tree.Keys()
	if len(keys) != 2 || keys[0] != "axis" || keys[1] != "hdfc" {
		t.Fatalf("unexpected keys: %v", keys)
	}

	bank, ok := tree.Bank("hdfc")
	if !ok {
		t.Fatal("expected hdfc bank to load")
	}
	if !bank.Enabled {
		t.Error("expected hdfc to default to enabled")
	}

	csv := bank.CSV
	if csv == nil {
		t.Fatal("expected csv sub-profile")
	}
	if csv.Charset != DefaultCharset || csv.Encoding == nil {
		t.Errorf("expected default charset, got %q", csv.Charset)
	}
	if csv.Delimiter != ',' {
		t.Errorf("expected comma delimiter, got %q", csv.Delimiter)
	}
	if csv.SkipRows != 1 {
		t.Errorf("expected skipRows 1, got %d", csv.SkipRows)
	}
	if csv.Numeric.ThousandsSeparator != "," || csv.Numeric.DecimalSeparator != "." {
		t.Errorf("expected default separators, got %+v", csv.Numeric)
	}
	if csv.DateParse.Format != "02/01/2006" {
		t.Errorf("expected default date layout, got %q", csv.DateParse.Format)
	}
	if csv.DateParse.TimeFormat != "15:04:05" {
		t.Errorf("expected default time layout, got %q", csv.DateParse.TimeFormat)
	}
	if csv.DateParse.ExcelSerial {
		t.Error("expected excelSerial to default to false")
	}
}

func TestLoadSearchHeaders(t *testing.T) {
	tree := loadSampleTree(t)
	bank, _ := tree.Bank("hdfc")

	h := bank.CSV.Headers
	if h.Mode != HeaderModeSearch {
		t.Fatalf("expected SEARCH mode, got %s", h.Mode)
	}
	// scanRange is one-based by default.
	if h.ScanFrom != 0 || h.ScanTo != 19 {
		t.Errorf("expected zero-based scan range [0,19], got [%d,%d]", h.ScanFrom, h.ScanTo)
	}
	if h.MultiRowCount != 2 {
		t.Errorf("expected multiRowCount 2, got %d", h.MultiRowCount)
	}
	if h.MergeSeparator != " " {
		t.Errorf("expected default merge separator, got %q", h.MergeSeparator)
	}
	if h.RowStartOffset != 1 {
		t.Errorf("expected default rowStartOffset 1, got %d", h.RowStartOffset)
	}
	if len(h.Expect) != 5 {
		t.Errorf("expected 5 expect entries, got %d", len(h.Expect))
	}
	if syns := h.Expect[models.FieldDate]; len(syns) != 2 || syns[0] != "Date" {
		t.Errorf("unexpected date synonyms: %v", syns)
	}
}

func TestLoadFixedBandHeaders(t *testing.T) {
	tree := loadSampleTree(t)
	bank, _ := tree.Bank("hdfc")

	xlsx := bank.XLSX
	if xlsx.SheetIndex != 1 {
		t.Errorf("expected sheetIndex 1, got %d", xlsx.SheetIndex)
	}
	if !xlsx.DateParse.ExcelSerial {
		t.Error("expected excelSerial to be enabled")
	}
	if xlsx.DateParse.Format != "02-01-2006" {
		t.Errorf("expected translated layout, got %q", xlsx.DateParse.Format)
	}
	if xlsx.Numeric.ThousandsSeparator != "." || xlsx.Numeric.DecimalSeparator != "," {
		t.Errorf("expected european separators, got %+v", xlsx.Numeric)
	}

	h := xlsx.Headers
	if !h.FixedBand {
		t.Fatal("expected fixed header band")
	}
	if h.BandFrom != 0 {
		t.Errorf("expected zero-based band start 0, got %d", h.BandFrom)
	}
	// multiRowCount was not declared; the band rows define it.
	if h.MultiRowCount != 2 {
		t.Errorf("expected band-derived multiRowCount 2, got %d", h.MultiRowCount)
	}
}

func TestLoadReferenceAndRules(t *testing.T) {
	tree := loadSampleTree(t)
	bank, _ := tree.Bank("hdfc")
	csv := bank.CSV

	ref := csv.Reference
	if ref.Splitter != "/" {
		t.Errorf("expected splitter /, got %q", ref.Splitter)
	}
	if ref.PartsMode != PartsCountOneOf || len(ref.PartsValues) != 1 || ref.PartsValues[0] != 3 {
		t.Errorf("unexpected partsCount: %s %v", ref.PartsMode, ref.PartsValues)
	}
	if ref.OrderID == nil || ref.OrderID.Index != 2 || ref.OrderID.CleanDigitsOnly {
		t.Errorf("unexpected orderId extract: %+v", ref.OrderID)
	}
	if ref.UTR == nil || ref.UTR.Index != 1 || !ref.UTR.CleanDigitsOnly {
		t.Errorf("unexpected utr extract: %+v", ref.UTR)
	}
	if ref.UTRFallback == nil || !ref.UTRFallback.MatchString("UTR123456789012") {
		t.Error("expected utrFallback to compile and match")
	}

	if csv.PayIn.Mode != PayInNarrationContains || len(csv.PayIn.AnyOf) != 1 {
		t.Errorf("unexpected payIn rule: %+v", csv.PayIn)
	}
	if csv.RowStop.Mode != RowStopUntilRegex || csv.RowStop.Until == nil {
		t.Errorf("unexpected rowStop: %+v", csv.RowStop)
	}
}

func TestLoadFixedColumnsAndDisabledFlags(t *testing.T) {
	tree := loadSampleTree(t)

	axis, ok := tree.Bank("axis")
	if !ok {
		t.Fatal("expected axis bank to load")
	}
	if axis.Enabled {
		t.Error("expected axis to be disabled")
	}

	h := axis.CSV.Headers
	if h.Mode != HeaderModeFixed {
		t.Fatalf("expected FIXED mode, got %s", h.Mode)
	}
	if h.RowStart != 5 {
		t.Errorf("expected rowStart 5, got %d", h.RowStart)
	}
	if len(h.Columns) != 3 || h.Columns[models.FieldDate] != 0 || h.Columns[models.FieldAmount] != 2 {
		t.Errorf("unexpected fixed columns: %v", h.Columns)
	}

	hdfc, _ := tree.Bank("hdfc")
	if hdfc.PDF == nil || hdfc.PDF.Enabled {
		t.Error("expected hdfc pdf sub-profile to be present but disabled")
	}
}

func TestLoadPDFLineFields(t *testing.T) {
	tree := loadSampleTree(t)
	bank, _ := tree.Bank("hdfc")

	pdf := bank.PDF
	if pdf.LinePattern == nil {
		t.Fatal("expected linePattern to compile")
	}

	fields := make(map[models.Field]bool)
	for _, f := range pdf.LineFields {
		fields[f] = true
	}
	for _, want := range []models.Field{models.FieldDate, models.FieldReference, models.FieldAmount} {
		if !fields[want] {
			t.Errorf("expected line field %s to be mapped", want)
		}
	}

	// The anchored pattern must reject partial-line matches.
	if pdf.LinePattern.MatchString("x 01/04/2025 NEFT 100.00") {
		t.Error("expected anchored pattern to reject prefixed line")
	}
	if !pdf.LinePattern.MatchString("01/04/2025 NEFT CR 1000.00") {
		t.Error("expected pattern to match a full line")
	}
}

func TestEnabledFormats(t *testing.T) {
	tree := loadSampleTree(t)
	bank, _ := tree.Bank("hdfc")

	kinds := bank.EnabledFormats()
	if len(kinds) != 2 {
		t.Fatalf("expected 2 enabled formats, got %v", kinds)
	}
	if kinds[0] != models.FormatCSV || kinds[1] != models.FormatXLSX {
		t.Errorf("unexpected enabled formats: %v", kinds)
	}
}

func TestLoadRejectsMalformedProfiles(t *testing.T) {
	tests := []struct {
		name     string
		yaml     string
		wantPath string
	}{
		{
			name:     "missing banks section",
			yaml:     `other: {}`,
			wantPath: "banks",
		},
		{
			name: "search without expect",
			yaml: `
banks:
  b:
    csv:
      headers:
        mode: SEARCH
        scanRange: { from: 1, to: 5 }
`,
			wantPath: "headers.expect",
		},
		{
			name: "search without range",
			yaml: `
banks:
  b:
    csv:
      headers:
        mode: SEARCH
        expect: { date: ["Date"] }
`,
			wantPath: "headers",
		},
		{
			name: "both scan range and fixed band",
			yaml: `
banks:
  b:
    csv:
      headers:
        mode: SEARCH
        scanRange: { from: 1, to: 5 }
        fixedHeaderRows: { from: 1, to: 2 }
        expect: { date: ["Date"] }
`,
			wantPath: "headers",
		},
		{
			name: "fixed without columns",
			yaml: `
banks:
  b:
    csv:
      headers:
        mode: FIXED
        rowStart: 3
`,
			wantPath: "headers.columns",
		},
		{
			name: "fixed without row start",
			yaml: `
banks:
  b:
    csv:
      headers:
        mode: FIXED
        columns: { date: 0 }
`,
			wantPath: "headers.rowStart",
		},
		{
			name: "unknown expect field",
			yaml: `
banks:
  b:
    csv:
      headers:
        mode: SEARCH
        scanRange: { from: 1, to: 5 }
        expect: { narration: ["Narration"] }
`,
			wantPath: "headers.expect",
		},
		{
			name: "multi character delimiter",
			yaml: `
banks:
  b:
    csv:
      delimiter: ";;"
      headers:
        mode: SEARCH
        scanRange: { from: 1, to: 5 }
        expect: { date: ["Date"] }
`,
			wantPath: "delimiter",
		},
		{
			name: "exact parts count with two values",
			yaml: `
banks:
  b:
    csv:
      headers:
        mode: SEARCH
        scanRange: { from: 1, to: 5 }
        expect: { date: ["Date"] }
      reference:
        splitter: "/"
        partsCount: { mode: EXACT, values: [2, 3] }
`,
			wantPath: "partsCount",
		},
		{
			name: "order id without splitter",
			yaml: `
banks:
  b:
    csv:
      headers:
        mode: SEARCH
        scanRange: { from: 1, to: 5 }
        expect: { date: ["Date"] }
      reference:
        orderId: { index: 0 }
`,
			wantPath: "reference.orderId",
		},
		{
			name: "bad utr fallback regex",
			yaml: `
banks:
  b:
    csv:
      headers:
        mode: SEARCH
        scanRange: { from: 1, to: 5 }
        expect: { date: ["Date"] }
      reference:
        splitter: "/"
        utrFallback: { regex: "(" }
`,
			wantPath: "utrFallback",
		},
		{
			name: "unknown pay in mode",
			yaml: `
banks:
  b:
    csv:
      headers:
        mode: SEARCH
        scanRange: { from: 1, to: 5 }
        expect: { date: ["Date"] }
      payInRule: { mode: SOMETHING }
`,
			wantPath: "payInRule",
		},
		{
			name: "until regex row stop without regex",
			yaml: `
banks:
  b:
    csv:
      headers:
        mode: SEARCH
        scanRange: { from: 1, to: 5 }
        expect: { date: ["Date"] }
      rowStop: { mode: UNTIL_REGEX }
`,
			wantPath: "rowStop",
		},
		{
			name: "pdf without line pattern",
			yaml: `
banks:
  b:
    pdf:
      startAfterRegex: "^Date"
`,
			wantPath: "linePattern",
		},
		{
			name: "pdf line pattern without date group",
			yaml: `
banks:
  b:
    pdf:
      linePattern: '(?P<ref>.+?)\s+(?P<amount>[\d,.]+)'
`,
			wantPath: "linePattern",
		},
		{
			name: "unknown charset",
			yaml: `
banks:
  b:
    csv:
      charset: KLINGON-8
      headers:
        mode: SEARCH
        scanRange: { from: 1, to: 5 }
        expect: { date: ["Date"] }
`,
			wantPath: "charset",
		},
		{
			name: "negative sheet index",
			yaml: `
banks:
  b:
    xlsx:
      sheetIndex: -1
      headers:
        mode: SEARCH
        scanRange: { from: 1, to: 5 }
        expect: { date: ["Date"] }
`,
			wantPath: "sheetIndex",
		},
		{
			name: "unknown date input modifier",
			yaml: `
banks:
  b:
    csv:
      dateParse: { input: julian }
      headers:
        mode: SEARCH
        scanRange: { from: 1, to: 5 }
        expect: { date: ["Date"] }
`,
			wantPath: "dateParse.input",
		},
		{
			name: "duplicate key after case folding",
			yaml: `
banks:
  HDFC:
    csv:
      headers:
        mode: SEARCH
        scanRange: { from: 1, to: 5 }
        expect: { date: ["Date"] }
  hdfc:
    csv:
      headers:
        mode: SEARCH
        scanRange: { from: 1, to: 5 }
        expect: { date: ["Date"] }
`,
			wantPath: "banks.hdfc",
		},
		{
			name: "spreadsheet without headers",
			yaml: `
banks:
  b:
    xlsx:
      sheetIndex: 0
`,
			wantPath: "headers",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load([]byte(tt.yaml))
			if err == nil {
				t.Fatal("expected load to fail")
			}
			if !errors.HasCode(err, errors.CodeMalformedProfile) {
				t.Fatalf("expected malformed profile error, got %v", err)
			}
			engineErr, _ := errors.AsEngineError(err)
			pathValue, _ := engineErr.Context["profile_path"].(string)
			if !strings.Contains(pathValue, tt.wantPath) {
				t.Errorf("expected profile path containing %q, got %q", tt.wantPath, pathValue)
			}
		})
	}
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile("/nonexistent/profiles.yaml")
	if err == nil {
		t.Fatal("expected missing file to fail")
	}
	if !errors.HasCode(err, errors.CodeFileNotFound) {
		t.Errorf("expected file_not_found, got %v", err)
	}
}
