package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// FormatKind identifies a statement document format
type FormatKind string

const (
	// FormatCSV represents delimited text statements
	FormatCSV FormatKind = "CSV"
	// FormatXLS represents binary spreadsheet statements
	FormatXLS FormatKind = "XLS"
	// FormatXLSX represents zipped-XML spreadsheet statements
	FormatXLSX FormatKind = "XLSX"
	// FormatPDF represents textual PDF statements
	FormatPDF FormatKind = "PDF"
)

// String returns the string representation of FormatKind
func (k FormatKind) String() string {
	return string(k)
}

// IsValid checks if the format kind is valid
func (k FormatKind) IsValid() bool {
	switch k {
	case FormatCSV, FormatXLS, FormatXLSX, FormatPDF:
		return true
	}
	return false
}

// IsSpreadsheet reports whether the format carries native cell types
// and merged regions.
func (k FormatKind) IsSpreadsheet() bool {
	return k == FormatXLS || k == FormatXLSX
}

// Field is a semantic column name the engine understands
type Field string

const (
	FieldDate      Field = "date"
	FieldTime      Field = "time"
	FieldReference Field = "reference"
	FieldCredit    Field = "credit"
	FieldDebit     Field = "debit"
	FieldAmount    Field = "amount"
	FieldBalance   Field = "balance"
)

// AllFields lists every semantic field in canonical order. Code that
// walks field-keyed maps iterates this slice so resolution order is
// deterministic regardless of map layout.
var AllFields = []Field{
	FieldDate,
	FieldTime,
	FieldReference,
	FieldCredit,
	FieldDebit,
	FieldAmount,
	FieldBalance,
}

// String returns the string representation of Field
func (f Field) String() string {
	return string(f)
}

// IsValid checks if the field is one of the known semantic fields
func (f Field) IsValid() bool {
	for _, known := range AllFields {
		if f == known {
			return true
		}
	}
	return false
}

// IsNumeric reports whether values for this field must parse as
// decimals to be usable.
func (f Field) IsNumeric() bool {
	switch f {
	case FieldCredit, FieldDebit, FieldAmount, FieldBalance:
		return true
	}
	return false
}

// ParseField maps a string to a semantic field. The alias "ref" is
// accepted for reference, matching the named groups used by PDF line
// patterns.
func ParseField(s string) (Field, bool) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "ref" {
		return FieldReference, true
	}
	f := Field(name)
	if f.IsValid() {
		return f, true
	}
	return "", false
}

// WallClockLayout renders a local date-time without timezone. Parsed
// rows never carry zone information; whatever wall-clock time the
// statement shows is what callers get back.
const WallClockLayout = "2006-01-02T15:04:05"

// ParsedRow is one normalized statement transaction, produced in
// document order by the engine.
type ParsedRow struct {
	TransactionDateTime time.Time        `json:"transactionDateTime"`
	Amount              decimal.Decimal  `json:"amount"`
	Balance             *decimal.Decimal `json:"balance,omitempty"`
	Reference           string           `json:"reference"`
	OrderID             *string          `json:"orderId,omitempty"`
	UTR                 *string          `json:"utr,omitempty"`
	PayIn               bool             `json:"payIn"`
}

// Validate performs basic validation on the ParsedRow
func (r *ParsedRow) Validate() error {
	if r.TransactionDateTime.IsZero() {
		return fmt.Errorf("parsed row transaction time cannot be zero")
	}
	return nil
}

// String returns a string representation of the ParsedRow
func (r *ParsedRow) String() string {
	balance := "<nil>"
	if r.Balance != nil {
		balance = r.Balance.String()
	}
	return fmt.Sprintf("ParsedRow{Time: %s, Amount: %s, Balance: %s, Reference: %q, PayIn: %t}",
		r.TransactionDateTime.Format(WallClockLayout), r.Amount.String(), balance, r.Reference, r.PayIn)
}

// MarshalJSON implements custom JSON marshaling for ParsedRow
func (r *ParsedRow) MarshalJSON() ([]byte, error) {
	type Alias ParsedRow
	return json.Marshal(&struct {
		TransactionDateTime string `json:"transactionDateTime"`
		Amount              string `json:"amount"`
		Balance             string `json:"balance,omitempty"`
		*Alias
	}{
		TransactionDateTime: r.TransactionDateTime.Format(WallClockLayout),
		Amount:              r.Amount.String(),
		Balance:             stringOrEmpty(r.Balance),
		Alias:               (*Alias)(r),
	})
}

// UnmarshalJSON implements custom JSON unmarshaling for ParsedRow
func (r *ParsedRow) UnmarshalJSON(data []byte) error {
	type Alias ParsedRow
	aux := &struct {
		TransactionDateTime string `json:"transactionDateTime"`
		Amount              string `json:"amount"`
		Balance             string `json:"balance,omitempty"`
		*Alias
	}{
		Alias: (*Alias)(r),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	r.TransactionDateTime, err = time.Parse(WallClockLayout, aux.TransactionDateTime)
	if err != nil {
		return fmt.Errorf("invalid transaction time format: %w", err)
	}

	r.Amount, err = decimal.NewFromString(aux.Amount)
	if err != nil {
		return fmt.Errorf("invalid amount format: %w", err)
	}

	if aux.Balance != "" {
		balance, err := decimal.NewFromString(aux.Balance)
		if err != nil {
			return fmt.Errorf("invalid balance format: %w", err)
		}
		r.Balance = &balance
	}

	return nil
}

// Equals compares two ParsedRow instances for equality
func (r *ParsedRow) Equals(other *ParsedRow) bool {
	if other == nil {
		return false
	}

	return r.TransactionDateTime.Equal(other.TransactionDateTime) &&
		r.Amount.Equal(other.Amount) &&
		decimalPtrEqual(r.Balance, other.Balance) &&
		r.Reference == other.Reference &&
		stringPtrEqual(r.OrderID, other.OrderID) &&
		stringPtrEqual(r.UTR, other.UTR) &&
		r.PayIn == other.PayIn
}

// IsCredit returns true if the row amount is positive
func (r *ParsedRow) IsCredit() bool {
	return r.Amount.IsPositive()
}

// IsDebit returns true if the row amount is negative
func (r *ParsedRow) IsDebit() bool {
	return r.Amount.IsNegative()
}

// Pointer helpers for the nullable row fields

// StringPtr returns a pointer to s
func StringPtr(s string) *string {
	return &s
}

// DecimalPtr returns a pointer to d
func DecimalPtr(d decimal.Decimal) *decimal.Decimal {
	return &d
}

func stringOrEmpty(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return d.String()
}

func decimalPtrEqual(a, b *decimal.Decimal) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func stringPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
