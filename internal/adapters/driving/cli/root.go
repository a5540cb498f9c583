// Package cli is the cobra command surface of the marketlens CLI.
// Commands talk to the core exclusively through the driving ports;
// service wiring happens in main and is injected via SetServices.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/marketlens/marketlens-cli/internal/core/ports/driven"
	"github.com/marketlens/marketlens-cli/internal/core/ports/driving"
	"github.com/marketlens/marketlens-cli/internal/logger"
)

// version is set at build time via ldflags.
var version = "dev"

// Injected services. Nil until SetServices runs; commands guard
// against partial wiring.
var (
	engine          driving.AnalysisEngine
	keepaliveRunner driving.KeepaliveRunner
	configStore     driven.ConfigStore
)

var verboseFlag bool

var rootCmd = &cobra.Command{
	Use:   "marketlens",
	Short: "Compare market research reports with retrieval-augmented analysis",
	Long: `marketlens ingests market research reports, indexes them semantically,
and answers natural-language questions with cited, confidence-scored
answers drawn from the ingested documents.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verboseFlag)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable verbose logging")
}

// SetServices injects the core services the commands run against.
func SetServices(e driving.AnalysisEngine, k driving.KeepaliveRunner, c driven.ConfigStore) {
	engine = e
	keepaliveRunner = k
	configStore = c
}

// SetVersion sets the version string printed by the version command.
func SetVersion(v string) {
	version = v
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
