// Package report renders parse results for the CLI surface.
//
// Three output formats are supported:
//   - Console: human-readable tabular output for terminal display
//   - JSON: structured data format for programmatic consumption
//   - CSV: comma-separated format for spreadsheet applications
//
// Example usage:
//
//	generator, err := report.NewGenerator(report.DefaultConfig())
//	err = generator.Write(result, os.Stdout)
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"golang-statement-engine/internal/engine"
	"golang-statement-engine/internal/models"
)

// OutputFormat represents the supported report output formats.
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
	FormatCSV     OutputFormat = "csv"
)

// IsValid checks if the output format is supported
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatConsole, FormatJSON, FormatCSV:
		return true
	default:
		return false
	}
}

// ParseFormat maps a user-supplied format name to an OutputFormat.
// "table" is accepted as an alias for console output.
func ParseFormat(s string) (OutputFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "console", "table", "":
		return FormatConsole, nil
	case "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	}
	return "", fmt.Errorf("unsupported output format: %s", s)
}

// Config holds configuration options for report generation
type Config struct {
	// Output format
	Format OutputFormat `json:"format"`

	// Console formatting options
	IncludeSummary bool `json:"include_summary"`
	MaxRows        int  `json:"max_rows"`

	// CSV options
	CSVDelimiter rune `json:"csv_delimiter"`
	CSVHeaders   bool `json:"csv_headers"`
}

// DefaultConfig returns a default report configuration
func DefaultConfig() *Config {
	return &Config{
		Format:         FormatConsole,
		IncludeSummary: true,
		MaxRows:        0,
		CSVDelimiter:   ',',
		CSVHeaders:     true,
	}
}

// Validate validates the report configuration
func (c *Config) Validate() error {
	if !c.Format.IsValid() {
		return fmt.Errorf("invalid output format: %s", c.Format)
	}
	if c.MaxRows < 0 {
		return fmt.Errorf("max rows must not be negative, got %d", c.MaxRows)
	}
	return nil
}

// Generator renders parse results in the configured format
type Generator struct {
	config *Config
}

// NewGenerator creates a report generator with the specified
// configuration
func NewGenerator(config *Config) (*Generator, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid report configuration: %w", err)
	}
	return &Generator{config: config}, nil
}

// Write renders the parse result to the writer
func (g *Generator) Write(result *engine.Result, writer io.Writer) error {
	if result == nil {
		return fmt.Errorf("parse result cannot be nil")
	}

	switch g.config.Format {
	case FormatConsole:
		return g.writeConsole(result, writer)
	case FormatJSON:
		return g.writeJSON(result, writer)
	case FormatCSV:
		return g.writeCSV(result, writer)
	default:
		return fmt.Errorf("unsupported output format: %s", g.config.Format)
	}
}

// summary aggregates the parsed rows for the console header and the
// JSON envelope.
type summary struct {
	Rows        int             `json:"rows"`
	PayIns      int             `json:"payIns"`
	PayOuts     int             `json:"payOuts"`
	TotalCredit decimal.Decimal `json:"totalCredit"`
	TotalDebit  decimal.Decimal `json:"totalDebit"`
	Net         decimal.Decimal `json:"net"`
}

func summarize(rows []models.ParsedRow) summary {
	s := summary{Rows: len(rows)}
	for _, row := range rows {
		if row.PayIn {
			s.PayIns++
		} else {
			s.PayOuts++
		}
		if row.Amount.IsNegative() {
			s.TotalDebit = s.TotalDebit.Add(row.Amount.Abs())
		} else {
			s.TotalCredit = s.TotalCredit.Add(row.Amount)
		}
		s.Net = s.Net.Add(row.Amount)
	}
	return s
}

func (g *Generator) writeConsole(result *engine.Result, writer io.Writer) error {
	fmt.Fprintf(writer, "PARSED STATEMENT\n")
	fmt.Fprintf(writer, "Bank:   %s\n", result.ParserKey)
	fmt.Fprintf(writer, "Format: %s\n", result.Format)
	if result.AccountNoOverride != "" {
		fmt.Fprintf(writer, "Account Override: %s\n", result.AccountNoOverride)
	}
	fmt.Fprintf(writer, "\n")

	if g.config.IncludeSummary {
		s := summarize(result.Rows)
		fmt.Fprintf(writer, "=== SUMMARY ===\n")
		fmt.Fprintf(writer, "Rows:         %d\n", s.Rows)
		fmt.Fprintf(writer, "Pay-ins:      %d\n", s.PayIns)
		fmt.Fprintf(writer, "Pay-outs:     %d\n", s.PayOuts)
		fmt.Fprintf(writer, "Total Credit: %s\n", s.TotalCredit.StringFixed(2))
		fmt.Fprintf(writer, "Total Debit:  %s\n", s.TotalDebit.StringFixed(2))
		fmt.Fprintf(writer, "Net:          %s\n", s.Net.StringFixed(2))
		fmt.Fprintf(writer, "\n")
	}

	if len(result.Rows) == 0 {
		return nil
	}

	fmt.Fprintf(writer, "=== TRANSACTIONS ===\n")
	for i, row := range result.Rows {
		if g.config.MaxRows > 0 && i >= g.config.MaxRows {
			fmt.Fprintf(writer, "  ... and %d more\n", len(result.Rows)-g.config.MaxRows)
			break
		}
		fmt.Fprintf(writer, "  %d. %s  %12s  %s  payIn=%t\n",
			i+1,
			row.TransactionDateTime.Format(models.WallClockLayout),
			row.Amount.StringFixed(2),
			row.Reference,
			row.PayIn)
	}
	return nil
}

func (g *Generator) writeJSON(result *engine.Result, writer io.Writer) error {
	rows := make([]*models.ParsedRow, len(result.Rows))
	for i := range result.Rows {
		rows[i] = &result.Rows[i]
	}

	envelope := map[string]interface{}{
		"parserKey": result.ParserKey,
		"format":    result.Format,
		"rows":      rows,
		"summary":   summarize(result.Rows),
	}
	if result.AccountNoOverride != "" {
		envelope["accountNoOverride"] = result.AccountNoOverride
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(envelope)
}

func (g *Generator) writeCSV(result *engine.Result, writer io.Writer) error {
	csvWriter := csv.NewWriter(writer)
	csvWriter.Comma = g.config.CSVDelimiter
	defer csvWriter.Flush()

	if g.config.CSVHeaders {
		headers := []string{
			"Transaction_Time",
			"Amount",
			"Balance",
			"Reference",
			"Order_ID",
			"UTR",
			"Pay_In",
		}
		if err := csvWriter.Write(headers); err != nil {
			return fmt.Errorf("failed to write CSV headers: %w", err)
		}
	}

	for _, row := range result.Rows {
		record := []string{
			row.TransactionDateTime.Format(models.WallClockLayout),
			row.Amount.String(),
			stringOrEmpty(row.Balance),
			row.Reference,
			derefOrEmpty(row.OrderID),
			derefOrEmpty(row.UTR),
			fmt.Sprintf("%t", row.PayIn),
		}
		if err := csvWriter.Write(record); err != nil {
			return fmt.Errorf("failed to write transaction record: %w", err)
		}
	}

	return csvWriter.Error()
}

func stringOrEmpty(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return d.String()
}

func derefOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
