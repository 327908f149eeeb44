package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/crewkit/crewkit/internal/config"
)

var (
	runFile    string
	runInputs  []string
	runVerbose bool
	runMaxRPM  int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a crew from a YAML definition",
	Long: `Run every task in a crew definition from the beginning.

Inputs interpolate into {placeholder} variables in agent and task
templates. Each task's output is journaled to the crew's checkpoint file
as it completes, so a failed run can be resumed with 'crewkit replay'.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVarP(&runFile, "file", "f", "", "Crew definition YAML file (required)")
	runCmd.Flags().StringArrayVarP(&runInputs, "input", "i", nil, "Input as key=value (repeatable)")
	runCmd.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Print per-task progress")
	runCmd.Flags().IntVar(&runMaxRPM, "max-rpm", 0, "Override the crew's request-per-minute cap")
	runCmd.MarkFlagRequired("file")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	def, err := config.LoadDefinition(runFile)
	if err != nil {
		return err
	}
	if runVerbose || cfg.Defaults.Verbose {
		def.Verbose = true
	}
	if def.Process == "" {
		def.Process = cfg.Defaults.Process
	}
	if runMaxRPM > 0 {
		def.MaxRPM = runMaxRPM
	} else if def.MaxRPM == 0 {
		def.MaxRPM = cfg.Defaults.MaxRPM
	}
	if def.CheckpointPath == "" {
		def.CheckpointPath = cfg.Defaults.CheckpointPath
	}

	executor, err := buildExecutor(cfg)
	if err != nil {
		return fmt.Errorf("build executor: %w", err)
	}

	c, err := config.BuildCrew(def, config.BuildOptions{
		Executor:     executor,
		DebugLogPath: cfg.Debug.LogPath,
	})
	if err != nil {
		return fmt.Errorf("build crew: %w", err)
	}

	inputs, err := parseInputs(runInputs)
	if err != nil {
		return err
	}

	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	startedAt := time.Now().UTC()
	result, runErr := c.Kickoff(cmd.Context(), inputs)
	if err := recordRun(db, c, startedAt, false, result, runErr); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: record run: %v\n", err)
	}
	if runErr != nil {
		return runErr
	}

	printResult(result)
	return nil
}
