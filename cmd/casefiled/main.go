// Package main provides casefiled, the case records service daemon and its
// operational commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// flagConfigFile is set by the --config flag.
	flagConfigFile string

	// cfg holds the loaded configuration. Set by PersistentPreRunE so all
	// subcommands can use it.
	cfg *viper.Viper
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "casefiled",
	Short: "casefiled is the case records service",
	Long: `casefiled runs the police case records service: first information
reports, case lifecycle, parties, evidence with chain of custody, statute
citations, and report generation behind a versioned JSON API.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}
		loaded, err := loadConfig(flagConfigFile)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigFile, "config", "", "config file (default: ./casefile.yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(seedCmd)
}
