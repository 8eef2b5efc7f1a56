package parsers

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"golang-statement-engine/internal/models"
	"golang-statement-engine/internal/profile"
)

// fakeGrid backs the spreadsheet pipeline tests without a real
// workbook.
type fakeGrid struct {
	cells   sliceGrid
	regions []MergeRegion
}

func (g fakeGrid) Rows() int              { return g.cells.Rows() }
func (g fakeGrid) Cols(r int) int         { return g.cells.Cols(r) }
func (g fakeGrid) Cell(r, c int) string   { return g.cells.Cell(r, c) }
func (g fakeGrid) Regions() []MergeRegion { return g.regions }

const spreadsheetYAML = `
banks:
  testbank:
    xlsx:
      headers:
        mode: SEARCH
        scanRange: { from: 1, to: 8 }
        multiRowCount: 2
        expect:
          date: ["Txn Date", "Transaction Details Date"]
          reference: ["Narration", "Transaction Details Narration"]
          credit: ["Credit"]
          debit: ["Debit"]
          balance: ["Balance"]
      dateParse:
        input: excelSerial
`

func TestParseSpreadsheetMergedBand(t *testing.T) {
	fp := searchProfile(t, spreadsheetYAML, models.FormatXLSX)

	// Two-row band: "Transaction Details" merged over the date and
	// narration columns, leaf captions underneath.
	g := fakeGrid{
		cells: sliceGrid{
			{"Statement of Account"},
			{"Transaction Details", "", "Credit", "Debit", "Balance"},
			{"Date", "Narration", "", "", ""},
			{"45748.5", "NEFT CR", "1000.00", "", "15000.00"},
			{"45749", "NEFT DR", "", "500.50", "14499.50"},
		},
		regions: []MergeRegion{{FirstRow: 1, LastRow: 1, FirstCol: 0, LastCol: 1}},
	}

	rows, err := parseSpreadsheet(g, fp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}

	want0 := time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)
	if !rows[0].TransactionDateTime.Equal(want0) {
		t.Errorf("serial 45748.5 = %s, want %s", rows[0].TransactionDateTime, want0)
	}
	if !rows[0].Amount.Equal(decimal.RequireFromString("1000.00")) {
		t.Errorf("row 0 amount = %s", rows[0].Amount)
	}
	if !rows[1].Amount.Equal(decimal.RequireFromString("-500.50")) {
		t.Errorf("row 1 amount = %s", rows[1].Amount)
	}
	if rows[1].Balance == nil || !rows[1].Balance.Equal(decimal.RequireFromString("14499.50")) {
		t.Errorf("row 1 balance = %v", rows[1].Balance)
	}
}

func TestParseSpreadsheetMergedDataCell(t *testing.T) {
	fp := searchProfile(t, `
banks:
  testbank:
    xlsx:
      headers:
        mode: SEARCH
        scanRange: { from: 1, to: 3 }
        expect:
          date: ["Date"]
          reference: ["Narration"]
          amount: ["Amount"]
`, models.FormatXLSX)

	// The narration on the data row is a merged cell whose value sits in
	// the top-left corner one row above.
	g := fakeGrid{
		cells: sliceGrid{
			{"Date", "Narration", "Amount"},
			{"2025-04-01", "IMPS settlement", "10.00"},
			{"2025-04-02", "", "20.00"},
		},
		regions: []MergeRegion{{FirstRow: 1, LastRow: 2, FirstCol: 1, LastCol: 1}},
	}

	rows, err := parseSpreadsheet(g, fp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[1].Reference != "IMPS settlement" {
		t.Errorf("merged narration = %q, want top-left value", rows[1].Reference)
	}
}

func TestReadFlexibleProbesNeighbors(t *testing.T) {
	fp := searchProfile(t, `
banks:
  testbank:
    xlsx:
      headers:
        mode: SEARCH
        scanRange: { from: 1, to: 3 }
        expect:
          date: ["Date"]
          reference: ["Narration"]
          amount: ["Amount"]
`, models.FormatXLSX)

	// The amount landed one column right of its header; the empty
	// neighbor column has no header text, so probing may cross it.
	g := fakeGrid{
		cells: sliceGrid{
			{"Date", "Narration", "Amount", ""},
			{"2025-04-01", "shifted", "", "42.00"},
		},
	}

	rows, err := parseSpreadsheet(g, fp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if !rows[0].Amount.Equal(decimal.RequireFromString("42.00")) {
		t.Errorf("probed amount = %s, want 42.00", rows[0].Amount)
	}
}

func TestReadFlexibleStopsAtForeignHeader(t *testing.T) {
	fp := searchProfile(t, `
banks:
  testbank:
    xlsx:
      headers:
        mode: SEARCH
        scanRange: { from: 1, to: 3 }
        expect:
          date: ["Date"]
          reference: ["Narration"]
          amount: ["Amount"]
`, models.FormatXLSX)

	// The amount cell is blank and the neighboring column belongs to
	// "Instrument Id": its numeric value must never leak into the
	// amount, so the whole row is dropped.
	g := fakeGrid{
		cells: sliceGrid{
			{"Date", "Narration", "Amount", "Instrument Id"},
			{"2025-04-01", "cheque", "", "990011"},
		},
	}

	rows, err := parseSpreadsheet(g, fp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("amount must not leak from a foreign column, got %d rows", len(rows))
	}
}

func TestReadFlexibleStopsAtMappedColumn(t *testing.T) {
	fp := searchProfile(t, `
banks:
  testbank:
    xlsx:
      headers:
        mode: SEARCH
        scanRange: { from: 1, to: 3 }
        expect:
          date: ["Date"]
          reference: ["Narration"]
          credit: ["Credit"]
          debit: ["Debit"]
`, models.FormatXLSX)

	// Credit is blank; the debit column right next to it is mapped to
	// another field and must stop the probe.
	g := fakeGrid{
		cells: sliceGrid{
			{"Date", "Narration", "Credit", "Debit"},
			{"2025-04-01", "withdrawal", "", "250.00"},
		},
	}

	rows, err := parseSpreadsheet(g, fp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if !rows[0].Amount.Equal(decimal.RequireFromString("-250.00")) {
		t.Errorf("amount = %s, want -250.00 from the debit column alone", rows[0].Amount)
	}
}

func TestParseSpreadsheetSkipsEmptyRows(t *testing.T) {
	fp := searchProfile(t, `
banks:
  testbank:
    xlsx:
      headers:
        mode: SEARCH
        scanRange: { from: 1, to: 3 }
        expect:
          date: ["Date"]
          reference: ["Narration"]
          amount: ["Amount"]
`, models.FormatXLSX)

	g := fakeGrid{
		cells: sliceGrid{
			{"Date", "Narration", "Amount"},
			{"2025-04-01", "first", "10.00"},
			{},
			{"2025-04-02", "second", "20.00"},
		},
	}

	rows, err := parseSpreadsheet(g, fp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("zero-width rows are skipped, not a stop: got %d rows", len(rows))
	}
}

func TestParseSpreadsheetFixedBand(t *testing.T) {
	fp := searchProfile(t, `
banks:
  testbank:
    xlsx:
      headers:
        mode: SEARCH
        fixedHeaderRows: { from: 2, to: 3 }
        expect:
          date: ["Txn Date"]
          reference: ["Narration"]
          amount: ["Amount"]
`, models.FormatXLSX)

	g := fakeGrid{
		cells: sliceGrid{
			{"Bank Statement"},
			{"Txn", "", ""},
			{"Date", "Narration", "Amount"},
			{"2025-04-01", "row", "10.00"},
		},
	}

	rows, err := parseSpreadsheet(g, fp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
}

func TestAcceptableNumericGate(t *testing.T) {
	num := profile.Numeric{ThousandsSeparator: ",", DecimalSeparator: "."}

	if acceptable("not a number", models.FieldAmount, num) {
		t.Error("non-numeric text must not satisfy a numeric field")
	}
	if !acceptable("1,234.00", models.FieldAmount, num) {
		t.Error("localized number must satisfy a numeric field")
	}
	if !acceptable("anything", models.FieldReference, num) {
		t.Error("text fields accept any non-empty value")
	}
	if acceptable("", models.FieldReference, num) {
		t.Error("empty never acceptable")
	}
}
