package parsers

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"golang-statement-engine/internal/models"
	"golang-statement-engine/internal/profile"
)

// RowValues holds the raw cell texts extracted for one data row. A
// missing key means the field is not mapped for this document; a
// present key with an empty value means the mapped cell was blank.
// The distinction drives credit-minus-debit arithmetic.
type RowValues map[models.Field]string

// materializeRow runs the common row pipeline over the extracted cell
// values. It returns nil when the row must be dropped: amount not
// derivable or date not parseable.
func materializeRow(values RowValues, fp *profile.FormatProfile) *models.ParsedRow {
	reference := values[models.FieldReference]

	amount := deriveAmount(values, fp.Numeric)
	if amount == nil {
		return nil
	}

	dt, ok := parseDateTime(values[models.FieldDate], values[models.FieldTime], fp.DateParse)
	if !ok {
		return nil
	}

	balance := readDecimal(values[models.FieldBalance], fp.Numeric)
	orderID, utr := splitReference(reference, fp.Reference)
	payIn := computePayIn(*amount, orderID, utr, reference, fp.PayIn)

	return &models.ParsedRow{
		TransactionDateTime: dt,
		Amount:              *amount,
		Balance:             balance,
		Reference:           reference,
		OrderID:             orderID,
		UTR:                 utr,
		PayIn:               payIn,
	}
}

// deriveAmount computes the signed amount. When a credit or debit
// column is mapped the amount is credit minus debit with missing
// values zeroed; otherwise the amount column is parsed directly. A nil
// result drops the row.
func deriveAmount(values RowValues, num profile.Numeric) *decimal.Decimal {
	credit, creditMapped := values[models.FieldCredit]
	debit, debitMapped := values[models.FieldDebit]

	if creditMapped || debitMapped {
		cr := readDecimal(credit, num)
		dr := readDecimal(debit, num)
		if cr == nil && dr == nil {
			return nil
		}
		if cr == nil {
			cr = &decimal.Zero
		}
		if dr == nil {
			dr = &decimal.Zero
		}
		amount := cr.Sub(*dr)
		return &amount
	}

	return readDecimal(values[models.FieldAmount], num)
}

// readDecimal parses a localized decimal string. Parentheses negate
// (accounting notation), the configured thousands separator is
// stripped, the configured decimal separator becomes a dot, and every
// other character except digits, dot and minus is discarded. Blank or
// unparseable input returns nil, never zero.
func readDecimal(raw string, num profile.Numeric) *decimal.Decimal {
	s := strings.TrimSpace(strings.ReplaceAll(raw, "\u00a0", " "))
	if s == "" {
		return nil
	}

	negParen := strings.Contains(s, "(") && strings.Contains(s, ")")

	if num.ThousandsSeparator != "" {
		s = strings.ReplaceAll(s, num.ThousandsSeparator, "")
	}
	if num.DecimalSeparator != "." {
		s = strings.ReplaceAll(s, num.DecimalSeparator, ".")
	}

	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	s = b.String()
	if s == "" || s == "-" {
		return nil
	}

	val, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	if negParen {
		val = val.Neg()
	}
	return &val
}

// ISO forms produced by the spreadsheet grids for native date cells.
var isoDateTimeLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02T15:04:05.999999999",
}

const isoDateLayout = "2006-01-02"

// parseDateTime turns the raw date and time cell texts into a
// wall-clock time. Strategies in order: Excel serial (when the profile
// enables it and the value is a clean float), ISO local date-time or
// date, then the configured layout. A separate time value always wins
// over the time carried by the date value. ok is false when no
// strategy produced a date; such rows are dropped.
func parseDateTime(dateRaw, timeRaw string, dp profile.DateParse) (time.Time, bool) {
	date := strings.TrimSpace(dateRaw)

	if dp.ExcelSerial {
		if serial, err := strconv.ParseFloat(date, 64); err == nil {
			fromSerial, err := excelize.ExcelDateToTime(serial, false)
			if err == nil {
				if t, ok := parseTimeFlexible(timeRaw, dp.TimeFormat); ok {
					return onDate(fromSerial, t), true
				}
				return fromSerial, true
			}
		}
	}

	if strings.Contains(date, "T") {
		for _, layout := range isoDateTimeLayouts {
			if iso, err := time.Parse(layout, date); err == nil {
				if t, ok := parseTimeFlexible(timeRaw, dp.TimeFormat); ok {
					return onDate(iso, t), true
				}
				return iso, true
			}
		}
	} else if date != "" {
		if isoDay, err := time.Parse(isoDateLayout, date); err == nil {
			if t, ok := parseTimeFlexible(timeRaw, dp.TimeFormat); ok {
				return onDate(isoDay, t), true
			}
			return isoDay, true
		}
	}

	if date == "" {
		return time.Time{}, false
	}
	day, err := time.Parse(dp.Format, date)
	if err != nil {
		return time.Time{}, false
	}
	if t, ok := parseTimeFlexible(timeRaw, dp.TimeFormat); ok {
		return onDate(day, t), true
	}
	return day, true
}

// onDate replaces the time-of-day of base with clock, keeping the date.
func onDate(base, clock time.Time) time.Time {
	return time.Date(base.Year(), base.Month(), base.Day(),
		clock.Hour(), clock.Minute(), clock.Second(), 0, time.UTC)
}

// timeFallbackLayouts are tried after the configured time layout, in
// order. Go's numeric layout matching accepts unpadded hours, so
// "15:04" also covers "9:15".
var timeFallbackLayouts = []string{"15:04", "1504", "3:04 PM", "3:04 pm"}

// parseTimeFlexible parses a separate time cell. ok is false when the
// value is blank; an unparseable non-blank value falls back to
// midnight, mirroring missing-time behavior.
func parseTimeFlexible(timeRaw, layout string) (time.Time, bool) {
	s := strings.TrimSpace(timeRaw)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(layout, s); err == nil {
		return t, true
	}
	for _, alt := range timeFallbackLayouts {
		if t, err := time.Parse(alt, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, true
}

// splitReference extracts the order-id and UTR parts from the raw
// reference string per the profile's splitter rules. Both results stay
// nil when no splitter is configured or the part count is invalid,
// except that the UTR fallback regex may still supply a UTR.
func splitReference(reference string, rc profile.Reference) (orderID, utr *string) {
	parts := splitParts(reference, rc.Splitter)

	partsOK := true
	switch rc.PartsMode {
	case profile.PartsCountExact:
		partsOK = len(rc.PartsValues) > 0 && len(parts) == rc.PartsValues[0]
	case profile.PartsCountOneOf:
		partsOK = false
		for _, v := range rc.PartsValues {
			if len(parts) == v {
				partsOK = true
				break
			}
		}
	}

	if partsOK {
		if rc.OrderID != nil && rc.OrderID.Index < len(parts) {
			v := cleanPart(parts[rc.OrderID.Index], rc.OrderID.CleanDigitsOnly)
			orderID = &v
		}
		if rc.UTR != nil && rc.UTR.Index < len(parts) {
			v := cleanPart(parts[rc.UTR.Index], rc.UTR.CleanDigitsOnly)
			utr = &v
		}
	}

	if (utr == nil || strings.TrimSpace(*utr) == "") && rc.UTRFallback != nil {
		if loc := rc.UTRFallback.FindStringIndex(reference); loc != nil {
			v := reference[loc[0]:loc[1]]
			utr = &v
		}
	}
	return orderID, utr
}

// splitParts splits by the literal splitter with trailing empty parts
// removed. An empty reference yields a single empty part, and a blank
// splitter yields the whole reference as the only part.
func splitParts(reference, splitter string) []string {
	if strings.TrimSpace(splitter) == "" {
		return []string{reference}
	}
	parts := strings.Split(reference, splitter)
	for len(parts) > 0 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	if len(parts) == 0 && reference == "" {
		return []string{""}
	}
	return parts
}

// cleanPart normalizes one extracted reference part: no-break spaces
// become spaces, the part is trimmed, and when digitsOnly is set every
// non-digit code point is removed.
func cleanPart(s string, digitsOnly bool) string {
	s = strings.TrimSpace(strings.ReplaceAll(s, "\u00a0", " "))
	if !digitsOnly {
		return s
	}
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// computePayIn classifies the row as a credit to the account.
func computePayIn(amount decimal.Decimal, orderID, utr *string, reference string, rule profile.PayInRule) bool {
	positive := amount.IsPositive()

	switch rule.Mode {
	case profile.PayInOrderIDNoSpace:
		return positive && (orderID == nil || !strings.Contains(*orderID, " "))
	case profile.PayInUTRNoSpace:
		return positive && (utr == nil || !strings.Contains(*utr, " "))
	case profile.PayInNarrationContains:
		ref := strings.ToLower(reference)
		for _, needle := range rule.AnyOf {
			needle = strings.ToLower(strings.TrimSpace(needle))
			if needle != "" && strings.Contains(ref, needle) {
				return true
			}
		}
		return false
	default:
		// AMOUNT_POSITIVE and CREDIT_COLUMN both read the sign.
		return positive
	}
}

// stopRow applies the configured row-stop decision to row r.
func stopRow(g Grid, r int, rs profile.RowStop) bool {
	switch rs.Mode {
	case profile.RowStopBlankRow:
		return rowIsBlank(g, r)
	case profile.RowStopUntilRegex:
		return rs.Until.FindStringIndex(rowLine(g, r)) != nil
	}
	return false
}
