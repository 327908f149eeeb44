package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/crewkit/crewkit/internal/config"
)

var (
	replayFile    string
	replayTaskID  string
	replayInputs  []string
	replayVerbose bool
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a crew run from a specific task",
	Long: `Resume a previous run at the named task.

Tasks before the replay point are restored from the checkpoint journal
without re-executing. The named task and everything after it run fresh.
When no inputs are given, the inputs recorded at the replay point are
reused.`,
	RunE: runReplay,
}

func init() {
	replayCmd.Flags().StringVarP(&replayFile, "file", "f", "", "Crew definition YAML file (required)")
	replayCmd.Flags().StringVarP(&replayTaskID, "task-id", "t", "", "Task id to replay from (required)")
	replayCmd.Flags().StringArrayVarP(&replayInputs, "input", "i", nil, "Input override as key=value (repeatable)")
	replayCmd.Flags().BoolVarP(&replayVerbose, "verbose", "v", false, "Print per-task progress")
	replayCmd.MarkFlagRequired("file")
	replayCmd.MarkFlagRequired("task-id")
}

func runReplay(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	def, err := config.LoadDefinition(replayFile)
	if err != nil {
		return err
	}
	if replayVerbose || cfg.Defaults.Verbose {
		def.Verbose = true
	}
	if def.Process == "" {
		def.Process = cfg.Defaults.Process
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

	inputs, err := parseInputs(replayInputs)
	if err != nil {
		return err
	}

	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	startedAt := time.Now().UTC()
	result, runErr := c.ReplayFromTask(cmd.Context(), replayTaskID, inputs)
	if err := recordRun(db, c, startedAt, true, result, runErr); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: record run: %v\n", err)
	}
	if runErr != nil {
		return runErr
	}

	printResult(result)
	return nil
}
