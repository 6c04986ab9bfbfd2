package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hangarshare/cli/pkg/config"
	"github.com/hangarshare/cli/pkg/logger"
	"github.com/hangarshare/cli/pkg/output"
)

var (
	verbose    bool
	configPath string
	outputFmt  string
)

var rootCmd = &cobra.Command{
	Use:   "hangarshare",
	Short: "HangarShare CLI - Community aircraft texture sharing",
	Long: `HangarShare CLI is a command-line client for the HangarShare
community site for flight-sim aircraft textures and texture packs.
Browse, search and follow the approved catalog from the terminal,
with a locally cached copy kept live by the site's change stream.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Initialize config and logger
		if err := config.Init(configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error initializing config: %v\n", err)
			os.Exit(1)
		}

		logger.Init(verbose)

		if !output.ValidateOutputFormat(outputFmt) {
			fmt.Fprintf(os.Stderr, "Error: invalid output format %q\n", outputFmt)
			os.Exit(1)
		}
		config.Set("output.format", outputFmt)
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: ~/.config/hangarshare/cli/config.toml)")
	rootCmd.PersistentFlags().StringVar(&outputFmt, "output", "text", "Output format: text, json, table")

	// Add subcommands
	rootCmd.AddCommand(browseCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(versionCmd)
}
