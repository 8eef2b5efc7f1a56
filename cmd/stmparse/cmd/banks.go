package cmd

import (
	"fmt"
	"os"
	"strings"

	"golang-statement-engine/cmd/stmparse/config"
	"golang-statement-engine/internal/profile"

	"github.com/spf13/cobra"
)

// banksCmd represents the banks command
var banksCmd = &cobra.Command{
	Use:   "banks",
	Short: "List configured bank profiles",
	Long: `Banks lists every parser key in the profile file together with the
statement formats each bank accepts. Disabled banks are marked; they
stay in the file but reject parse requests.

Examples:
  stmparse banks
  stmparse banks --profiles banks.yaml`,

	RunE: runBanks,
}

func init() {
	rootCmd.AddCommand(banksCmd)
}

func runBanks(cmd *cobra.Command, args []string) error {
	tree, err := profile.LoadFile(config.ProfilesPath())
	if err != nil {
		return err
	}

	keys := tree.Keys()
	if len(keys) == 0 {
		fmt.Fprintf(os.Stderr, "No bank profiles configured in %s\n", config.ProfilesPath())
		return nil
	}

	fmt.Printf("Configured banks (%d):\n", len(keys))
	for _, key := range keys {
		bank, _ := tree.Bank(key)

		var formats []string
		for _, kind := range bank.EnabledFormats() {
			formats = append(formats, strings.ToLower(string(kind)))
		}

		line := fmt.Sprintf("  %-20s %s", key, strings.Join(formats, ", "))
		if !bank.Enabled {
			line += "  (disabled)"
		}
		fmt.Println(line)
	}

	return nil
}
