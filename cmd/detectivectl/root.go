package main

import (
	"os"

	"github.com/spf13/cobra"
)

// cliOptions carries the persistent flags shared by every command.
type cliOptions struct {
	serverURL  string
	gatewayKey string
	configPath string
	jsonOutput bool
}

func newRootCommand() *cobra.Command {
	opts := &cliOptions{}

	rootCmd := &cobra.Command{
		Use:           "detectivectl",
		Short:         "Plagiarism Detective CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.serverURL, "server", envOr("DETECTIVE_URL", "http://localhost:8080"), "Detective server base URL")
	rootCmd.PersistentFlags().StringVar(&opts.gatewayKey, "gateway-key", os.Getenv("GATEWAY_KEY"), "X-Gateway-Key sent to the server")
	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", os.Getenv("DETECTIVE_CONFIG"), "Configuration file path (replay)")
	rootCmd.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "Print JSON instead of tables")

	rootCmd.AddCommand(newScoreCommand(opts))
	rootCmd.AddCommand(newCompareCommand(opts))
	rootCmd.AddCommand(newHistoryCommand(opts))
	rootCmd.AddCommand(newRecordCommand(opts))
	rootCmd.AddCommand(newReplayCommand(opts))

	return rootCmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
