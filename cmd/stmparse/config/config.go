// Package config assembles runtime configuration for the stmparse CLI
// from flags, environment and the optional config file.
package config

import (
	"golang-statement-engine/internal/report"
	"golang-statement-engine/pkg/logger"

	"github.com/spf13/viper"
)

// ProfilesPath returns the resolved path of the bank profile file.
// Flag, environment (STMPARSE_PROFILES) and config file all feed the
// same viper key.
func ProfilesPath() string {
	return viper.GetString("profiles")
}

// CreateReportConfig creates a report configuration for the specified
// output format
func CreateReportConfig(format string, maxRows int) (*report.Config, error) {
	outputFormat, err := report.ParseFormat(format)
	if err != nil {
		return nil, err
	}

	config := report.DefaultConfig()
	config.Format = outputFormat
	config.MaxRows = maxRows

	switch outputFormat {
	case report.FormatConsole:
		config.IncludeSummary = true
	case report.FormatJSON:
		config.IncludeSummary = true
	case report.FormatCSV:
		config.CSVHeaders = true
		config.CSVDelimiter = ','
	}

	return config, nil
}

// CreateLoggerConfig creates a logger configuration honoring the
// verbose flag
func CreateLoggerConfig(verbose bool) *logger.Config {
	if verbose {
		return logger.DebugConfig()
	}
	return logger.QuietConfig()
}
