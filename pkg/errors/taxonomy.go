package errors

import (
	"fmt"
	"strings"
)

// Constructors for the statement-engine error taxonomy. Every parse
// invocation fails with exactly one of these; row-level issues (bad
// dates, underivable amounts, row stops) drop the row silently and
// never surface here.

// UnsupportedFormat reports that neither the filename extension nor
// the MIME hint identified a statement format.
func UnsupportedFormat(filename, contentType string) *EngineError {
	return New(CategoryFormat, CodeUnsupportedFormat,
		fmt.Sprintf("unable to detect statement format from filename %q and content type %q", filename, contentType)).
		WithSuggestion("use a .csv, .xls, .xlsx or .pdf filename or supply a recognizable content type").
		WithContext("filename", filename).
		WithContext("content_type", contentType)
}

// UnknownParserKey reports that no bank profile exists for the key.
// Disabled banks are reported identically; they are invisible.
func UnknownParserKey(parserKey string) *EngineError {
	return New(CategoryProfile, CodeUnknownParserKey,
		fmt.Sprintf("no bank profile configured for parser key %q", parserKey)).
		WithSuggestion("check the parser key against the banks section of the profile file").
		WithContext("parser_key", parserKey)
}

// FormatNotConfigured reports that the bank profile exists but has no
// enabled sub-profile for the detected format.
func FormatNotConfigured(parserKey, format string) *EngineError {
	return New(CategoryProfile, CodeFormatNotConfigured,
		fmt.Sprintf("bank profile %q does not accept %s statements", parserKey, format)).
		WithSuggestion("add or enable the format sub-profile for this bank").
		WithContext("parser_key", parserKey).
		WithContext("format", format)
}

// HeaderNotFound reports that SEARCH-mode scanning exhausted its range
// without producing a sufficient header mapping.
func HeaderNotFound(parserKey, format string, scanFrom, scanTo int) *EngineError {
	return New(CategoryHeader, CodeHeaderNotFound,
		fmt.Sprintf("no header band matched between rows %d and %d", scanFrom, scanTo)).
		WithSuggestion("check the expected header synonyms and the scan range in the profile").
		WithContext("parser_key", parserKey).
		WithContext("format", format).
		WithContext("scan_from", scanFrom).
		WithContext("scan_to", scanTo)
}

// HeaderMappingInsufficient reports a mapping that lacks date,
// reference, or all of amount/credit/debit.
func HeaderMappingInsufficient(parserKey, format string, mapped []string) *EngineError {
	return New(CategoryHeader, CodeHeaderMappingInsufficient,
		fmt.Sprintf("header mapping is insufficient: mapped fields [%s] must include date, reference and one of amount, credit, debit",
			strings.Join(mapped, ", "))).
		WithSuggestion("declare columns for the missing fields in the profile").
		WithContext("parser_key", parserKey).
		WithContext("format", format).
		WithContext("mapped_fields", mapped)
}

// MalformedProfile reports a structural problem in a bank profile
// discovered at load time. The path names the offending YAML node.
func MalformedProfile(path, detail string, cause error) *EngineError {
	message := fmt.Sprintf("malformed profile at %s: %s", path, detail)

	var result *EngineError
	if cause != nil {
		result = Wrap(cause, CategoryProfile, CodeMalformedProfile, message)
	} else {
		result = New(CategoryProfile, CodeMalformedProfile, message)
	}

	return result.
		WithSuggestion("fix the profile file and reload").
		WithContext("profile_path", path)
}

// IoFailure reports an underlying stream or format-library failure.
func IoFailure(operation string, cause error) *EngineError {
	return Wrap(cause, CategoryIO, CodeIoFailure,
		fmt.Sprintf("io failure during %s", operation)).
		WithContext("operation", operation)
}

// FileError creates a file-access error for the CLI surface.
func FileError(code ErrorCode, path string, cause error) *EngineError {
	var message string
	var suggestion string

	switch code {
	case CodeFileNotFound:
		message = fmt.Sprintf("file not found: %s", path)
		suggestion = "check if the file path is correct and the file exists"
	case CodeFilePermission:
		message = fmt.Sprintf("permission denied accessing file: %s", path)
		suggestion = "check file permissions and ensure you have read access"
	default:
		message = fmt.Sprintf("file error: %s", path)
		suggestion = "check the file and try again"
	}

	var result *EngineError
	if cause != nil {
		result = Wrap(cause, CategoryIO, code, message)
	} else {
		result = New(CategoryIO, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("file_path", path)
}

// ConfigurationError creates a CLI configuration error.
func ConfigurationError(code ErrorCode, setting string, value interface{}, cause error) *EngineError {
	var message string
	var suggestion string

	switch code {
	case CodeInvalidConfig:
		message = fmt.Sprintf("invalid configuration for '%s': %v", setting, value)
		suggestion = "check the configuration documentation for valid values"
	case CodeMissingConfig:
		message = fmt.Sprintf("missing required configuration: %s", setting)
		suggestion = "provide this configuration setting or use a config file"
	default:
		message = fmt.Sprintf("configuration error: %s", setting)
		suggestion = "check your configuration and try again"
	}

	var result *EngineError
	if cause != nil {
		result = Wrap(cause, CategoryConfiguration, code, message)
	} else {
		result = New(CategoryConfiguration, code, message)
	}

	return result.
		WithSuggestion(suggestion).
		WithContext("setting", setting).
		WithContext("value", value)
}

// InternalError creates an internal error
func InternalError(operation string, cause error) *EngineError {
	message := fmt.Sprintf("unexpected error during %s", operation)

	var result *EngineError
	if cause != nil {
		result = Wrap(cause, CategoryInternal, CodeUnexpectedError, message)
	} else {
		result = New(CategoryInternal, CodeUnexpectedError, message)
	}

	return result.
		WithSuggestion("this is likely a bug - please report it with the error details").
		WithContext("operation", operation)
}
