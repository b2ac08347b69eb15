// Package cli implements the foundry command-line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	flagConfig   string
	flagEndpoint string
	flagVerbose  bool
)

// NewRootCommand creates the root command for the foundry CLI.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "foundry",
		Short: "Foundry - AI model inference from the command line",
		Long: `Foundry is a command-line client for the AI model inference service.
It can run chat completions (streamed to the terminal), compute text
embeddings, and manage the stored API credential.

Configuration is read from ~/.foundry/config.yaml and can be overridden
with FOUNDRY_* environment variables and flags.

Run 'foundry auth login' to store an API key, then 'foundry chat' to talk
to a model.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to config file (default: ~/.foundry/config.yaml)")
	cmd.PersistentFlags().StringVar(&flagEndpoint, "endpoint", "", "Service endpoint URL (overrides config and env)")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(newChatCommand())
	cmd.AddCommand(newEmbedCommand())
	cmd.AddCommand(newAuthCommand())

	return cmd
}

// Execute runs the CLI and exits non-zero on error.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
