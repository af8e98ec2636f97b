package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/artpar/calloutlint/bootstrap"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "calloutlint",
	Short: "Validate callout structure in markdown journals",
	Long: `calloutlint checks markdown callout blocks against registered structures
and rules, and offers quick fixes for the problems it finds.

Quick start:
  calloutlint validate journal.md     # Check a document
  calloutlint fix journal.md -i       # Pick and apply a quick fix
  calloutlint serve                   # Start the HTTP API

Schema:
  calloutlint structures              # List registered structures
  calloutlint rules                   # List registered rules
  calloutlint import schema.yaml      # Load a schema file into the database`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "calloutlint.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at the configured level instead of warnings only")
}

// newApp builds the application for a one-shot command.
func newApp(ctx context.Context) (*bootstrap.App, error) {
	opts := bootstrap.Options{
		ConfigPath: cfgFile,
		Version:    version,
	}
	if !verbose {
		opts.LogLevel = "warn"
	}
	a, err := bootstrap.New(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("initialize: %w", err)
	}
	return a, nil
}

// readInput reads the named file, or stdin for "-".
func readInput(cmd *cobra.Command, name string) (string, error) {
	if name == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(name)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	return string(data), nil
}
