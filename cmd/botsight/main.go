// Package main is the entry point for the botsight binary.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const defaultLogLevel = "info"

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "botsight",
		Short: "Conversation telemetry for bots",
		Long: `botsight turns bot activity into named telemetry events and fans them
out to Application Insights, Kafka, OpenTelemetry, webhooks, files or stdout.

Destinations and sentiment settings come from --config and BOTSIGHT_*
environment variables, e.g.:
  BOTSIGHT_DESTINATIONS=stdout:pretty botsight replay conversation.yaml`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to configuration file (YAML, JSON or .env)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "", "Log level (debug, info, warn, error); overrides config")

	rootCmd.AddCommand(newServeCmd(), newReplayCmd(), newVersionCmd())
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the botsight version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "botsight %s\n", version)
		},
	}
}
