package parsers

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"golang-statement-engine/internal/models"
	"golang-statement-engine/pkg/errors"
)

const settlementCSVYAML = `
banks:
  testbank:
    csv:
      headers:
        mode: SEARCH
        scanRange: { from: 1, to: 10 }
        expect:
          date: ["Txn Date", "Date"]
          reference: ["Narration"]
          credit: ["Credit"]
          debit: ["Debit"]
          balance: ["Balance"]
      reference:
        splitter: "/"
        partsCount: { mode: ONE_OF, values: [3] }
        orderId: { index: 2 }
        utr: { index: 1 }
`

const settlementCSV = `Statement of Account,,,,
Account No: 1234,,,,
Txn Date,Narration,Credit,Debit,Balance
01/04/2025,NEFT CR/UTR123456789012/ORD77,"1,000.00",,"15,000.00"
02/04/2025,NEFT DR,,500.50,"14,499.50"
`

func TestParseDelimitedSettlement(t *testing.T) {
	fp := searchProfile(t, settlementCSVYAML, models.FormatCSV)

	rows, err := ParseDelimited(strings.NewReader(settlementCSV), fp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}

	want := []models.ParsedRow{
		{
			TransactionDateTime: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
			Amount:              decimal.RequireFromString("1000.00"),
			Balance:             models.DecimalPtr(decimal.RequireFromString("15000.00")),
			Reference:           "NEFT CR/UTR123456789012/ORD77",
			OrderID:             models.StringPtr("ORD77"),
			UTR:                 models.StringPtr("UTR123456789012"),
			PayIn:               true,
		},
		{
			TransactionDateTime: time.Date(2025, 4, 2, 0, 0, 0, 0, time.UTC),
			Amount:              decimal.RequireFromString("-500.50"),
			Balance:             models.DecimalPtr(decimal.RequireFromString("14499.50")),
			Reference:           "NEFT DR",
			PayIn:               false,
		},
	}
	for i := range want {
		if !rows[i].Equals(&want[i]) {
			t.Errorf("row %d = %s, want %s", i, rows[i].String(), want[i].String())
		}
	}
}

func TestParseDelimitedDropsUnusableRows(t *testing.T) {
	fp := searchProfile(t, settlementCSVYAML, models.FormatCSV)

	// Both amount columns blank on the second data row, garbage date on
	// the third. Only the first row survives.
	doc := `Txn Date,Narration,Credit,Debit,Balance
01/04/2025,OK,100.00,,900.00
02/04/2025,TOTAL,,,
not a date,BAD,50.00,,950.00
`
	rows, err := ParseDelimited(strings.NewReader(doc), fp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].Reference != "OK" {
		t.Errorf("surviving row reference = %q", rows[0].Reference)
	}
}

func TestParseDelimitedRowStopUntilRegex(t *testing.T) {
	fp := searchProfile(t, `
banks:
  testbank:
    csv:
      headers:
        mode: SEARCH
        scanRange: { from: 1, to: 5 }
        expect:
          date: ["Date"]
          reference: ["Narration"]
          amount: ["Amount"]
      rowStop:
        mode: UNTIL_REGEX
        untilRegex: "(?i)closing balance"
`, models.FormatCSV)

	doc := `Date,Narration,Amount
01/04/2025,first,10.00
02/04/2025,second,20.00
Closing Balance,,30.00
03/04/2025,after the footer,40.00
`
	rows, err := ParseDelimited(strings.NewReader(doc), fp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("row stop should cut at the footer, got %d rows", len(rows))
	}
}

func TestParseDelimitedRowStopBlankRow(t *testing.T) {
	fp := searchProfile(t, `
banks:
  testbank:
    csv:
      headers:
        mode: SEARCH
        scanRange: { from: 1, to: 5 }
        expect:
          date: ["Date"]
          reference: ["Narration"]
          amount: ["Amount"]
      rowStop:
        mode: BLANK_ROW
`, models.FormatCSV)

	doc := `Date,Narration,Amount
01/04/2025,first,10.00
,,
02/04/2025,after the gap,20.00
`
	rows, err := ParseDelimited(strings.NewReader(doc), fp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("blank row should stop iteration, got %d rows", len(rows))
	}
}

func TestParseDelimitedCustomDelimiter(t *testing.T) {
	fp := searchProfile(t, `
banks:
  testbank:
    csv:
      delimiter: ";"
      numeric:
        thousandsSeparator: "."
        decimalSeparator: ","
      headers:
        mode: SEARCH
        scanRange: { from: 1, to: 3 }
        expect:
          date: ["Datum"]
          reference: ["Verwendungszweck"]
          amount: ["Betrag"]
`, models.FormatCSV)

	doc := `Datum;Verwendungszweck;Betrag
01/04/2025;Uberweisung;1.234,56
`
	rows, err := ParseDelimited(strings.NewReader(doc), fp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if !rows[0].Amount.Equal(decimal.RequireFromString("1234.56")) {
		t.Errorf("localized amount = %s, want 1234.56", rows[0].Amount)
	}
}

func TestParseDelimitedSkipRows(t *testing.T) {
	fp := searchProfile(t, `
banks:
  testbank:
    csv:
      skipRows: 3
      headers:
        mode: FIXED
        rowStart: 1
        columns: { date: 0, reference: 1, amount: 2 }
`, models.FormatCSV)

	// skipRows pushes the data start past the fixed rowStart.
	doc := `Date,Narration,Amount
junk row,skipped,1.00
more junk,skipped,2.00
01/04/2025,kept,3.00
`
	rows, err := ParseDelimited(strings.NewReader(doc), fp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].Reference != "kept" {
		t.Errorf("surviving row reference = %q", rows[0].Reference)
	}
}

func TestParseDelimitedHeaderNotFound(t *testing.T) {
	fp := searchProfile(t, settlementCSVYAML, models.FormatCSV)

	doc := "nothing,that,matches\n1,2,3\n"
	_, err := ParseDelimited(strings.NewReader(doc), fp)
	if !errors.HasCode(err, errors.CodeHeaderNotFound) {
		t.Fatalf("expected HeaderNotFound, got %v", err)
	}
}
