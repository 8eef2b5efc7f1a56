package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"golang-statement-engine/cmd/stmparse/config"
	"golang-statement-engine/internal/engine"
	"golang-statement-engine/internal/profile"
	"golang-statement-engine/internal/report"
	"golang-statement-engine/pkg/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flags for the parse command
var (
	statementFile string
	bankKey       string
	contentType   string
	accountNo     string
	outputFormat  string
	outputFile    string
	maxRows       int
)

// parseCmd represents the parse command
var parseCmd = &cobra.Command{
	Use:   "parse",
	Short: "Parse a bank statement into normalized transaction rows",
	Long: `Parse detects the statement format from the filename (or a content
type hint), resolves the bank's profile and converts the document into
normalized transaction rows.

Examples:
  # Parse a CSV statement
  stmparse parse --file statement.csv --bank alphabank

  # Override the profile file and emit JSON
  stmparse parse --file statement.xlsx --bank alphabank \
    --profiles banks.yaml --output-format json --output-file rows.json

  # Supply a content type when the filename has no useful extension
  stmparse parse --file upload.bin --content-type application/pdf --bank alphabank

  # Pass an account override through to the output
  stmparse parse --file statement.csv --bank alphabank --account-no 00123456`,

	PreRunE: validateParseFlags,
	RunE:    runParse,
}

func init() {
	rootCmd.AddCommand(parseCmd)

	// Required flags
	parseCmd.Flags().StringVarP(&statementFile, "file", "i", "", "path to the statement file (required)")
	parseCmd.Flags().StringVarP(&bankKey, "bank", "b", "", "parser key of the bank profile (required)")

	// Detection and pass-through flags
	parseCmd.Flags().StringVar(&contentType, "content-type", "", "MIME hint used when the extension is unhelpful")
	parseCmd.Flags().StringVar(&accountNo, "account-no", "", "account number override passed through to the output")

	// Output flags
	parseCmd.Flags().StringVarP(&outputFormat, "output-format", "f", "console", "output format: console, json, csv")
	parseCmd.Flags().StringVarP(&outputFile, "output-file", "o", "", "output file path (default: stdout)")
	parseCmd.Flags().IntVar(&maxRows, "max-rows", 0, "limit console row listing (0 = unlimited)")

	// Mark required flags
	parseCmd.MarkFlagRequired("file")
	parseCmd.MarkFlagRequired("bank")

	// Bind flags to viper
	viper.BindPFlag("file", parseCmd.Flags().Lookup("file"))
	viper.BindPFlag("bank", parseCmd.Flags().Lookup("bank"))
	viper.BindPFlag("content-type", parseCmd.Flags().Lookup("content-type"))
	viper.BindPFlag("account-no", parseCmd.Flags().Lookup("account-no"))
	viper.BindPFlag("output-format", parseCmd.Flags().Lookup("output-format"))
	viper.BindPFlag("output-file", parseCmd.Flags().Lookup("output-file"))
	viper.BindPFlag("max-rows", parseCmd.Flags().Lookup("max-rows"))
}

func validateParseFlags(cmd *cobra.Command, args []string) error {
	// Get values from viper (allows override from config file)
	statementFile = viper.GetString("file")
	bankKey = viper.GetString("bank")
	contentType = viper.GetString("content-type")
	accountNo = viper.GetString("account-no")
	outputFormat = viper.GetString("output-format")
	outputFile = viper.GetString("output-file")
	maxRows = viper.GetInt("max-rows")

	// Validate required flags
	if statementFile == "" {
		return fmt.Errorf("file is required")
	}
	if bankKey == "" {
		return fmt.Errorf("bank is required")
	}

	// Validate file existence
	if err := validateFileExists(statementFile, "statement file"); err != nil {
		return err
	}
	if err := validateFileExists(config.ProfilesPath(), "profile file"); err != nil {
		return err
	}

	// Validate output format
	if _, err := report.ParseFormat(outputFormat); err != nil {
		return fmt.Errorf("invalid output format '%s'. Valid formats: console, json, csv", outputFormat)
	}

	if maxRows < 0 {
		return fmt.Errorf("max-rows cannot be negative")
	}

	// Validate output file directory exists if specified
	if outputFile != "" {
		dir := filepath.Dir(outputFile)
		if dir != "." {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				return fmt.Errorf("output directory does not exist: %s", dir)
			}
		}
	}

	return nil
}

func validateFileExists(filePath, description string) error {
	if filePath == "" {
		return fmt.Errorf("%s path cannot be empty", description)
	}

	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return fmt.Errorf("%s does not exist: %s", description, filePath)
	}
	if err != nil {
		return fmt.Errorf("error accessing %s: %w", description, err)
	}

	if info.IsDir() {
		return fmt.Errorf("%s is a directory, expected a file: %s", description, filePath)
	}

	// Check if file is readable
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("%s is not readable: %w", description, err)
	}
	file.Close()

	return nil
}

func runParse(cmd *cobra.Command, args []string) error {
	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "Parsing statement...\n")
		fmt.Fprintf(os.Stderr, "Statement file: %s\n", statementFile)
		fmt.Fprintf(os.Stderr, "Bank: %s\n", bankKey)
		fmt.Fprintf(os.Stderr, "Profile file: %s\n", config.ProfilesPath())
		if outputFile != "" {
			fmt.Fprintf(os.Stderr, "Output file: %s\n", outputFile)
		}
	}

	op := logger.NewOperationLogger("parse_statement", nil).
		WithField("bank", bankKey).
		WithField("file", statementFile)

	tree, err := profile.LoadFile(config.ProfilesPath())
	if err != nil {
		op.Error(err, "Failed to load profile file")
		return err
	}
	op.Step("profiles_loaded")

	f, err := os.Open(statementFile)
	if err != nil {
		return fmt.Errorf("failed to open statement file: %w", err)
	}
	defer f.Close()

	eng := engine.New(tree)
	result, err := eng.Parse(f, engine.ParseRequest{
		Filename:          filepath.Base(statementFile),
		ContentType:       contentType,
		ParserKey:         bankKey,
		AccountNoOverride: accountNo,
	})
	if err != nil {
		op.Error(err, "Statement parse failed")
		return err
	}
	op.WithField("rows", len(result.Rows)).Success("Statement parsed")

	// Generate report
	reportConfig, err := config.CreateReportConfig(outputFormat, maxRows)
	if err != nil {
		return err
	}
	generator, err := report.NewGenerator(reportConfig)
	if err != nil {
		return fmt.Errorf("failed to create report generator: %w", err)
	}

	// Determine output destination
	var output *os.File
	if outputFile != "" {
		output, err = os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer output.Close()
	} else {
		output = os.Stdout
	}

	if err := generator.Write(result, output); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	// Show completion message
	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "\nParse completed successfully.\n")
		fmt.Fprintf(os.Stderr, "Detected format: %s\n", result.Format)
		fmt.Fprintf(os.Stderr, "Produced %d transaction rows.\n", len(result.Rows))
	}

	return nil
}
