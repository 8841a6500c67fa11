// Package main provides the sprintpulse CLI entry point.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sprintpulse",
		Short: "Sprint analytics over issue-tracker exports",
		Long: `Sprintpulse computes velocity, burndown and quality metrics from
sprint batch files exported from an issue tracker.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newVelocityCmd(),
		newBurndownCmd(),
		newQualityCmd(),
	)
	return rootCmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
