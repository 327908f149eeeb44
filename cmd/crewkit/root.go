package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "crewkit",
	Short: "Multi-agent crew orchestrator",
	Long: `Crewkit runs crews of LLM agents against ordered task plans.

A crew is defined in a YAML file: a roster of agents and a list of tasks.
Tasks execute sequentially or through a delegating manager, with optional
asynchronous fan-out, and every task output is journaled so a failed run
can be replayed from the task that broke.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
}
