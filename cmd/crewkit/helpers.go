package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/google/uuid"

	"github.com/crewkit/crewkit/internal/agent"
	"github.com/crewkit/crewkit/internal/config"
	"github.com/crewkit/crewkit/internal/crew"
	"github.com/crewkit/crewkit/internal/state"
	"github.com/crewkit/crewkit/pkg/models"
)

// buildExecutor wires the model client from loaded configuration.
func buildExecutor(cfg *config.Config) (agent.Executor, error) {
	return agent.NewAnthropicExecutor(agent.AnthropicConfig{
		Model:         anthropic.Model(cfg.Anthropic.Model),
		APIKey:        cfg.Anthropic.APIKey,
		UseAWSBedrock: cfg.Anthropic.UseAWSBedrock,
		AWSRegion:     cfg.Anthropic.AWSRegion,
		AWSProfile:    cfg.Anthropic.AWSProfile,
		MaxTokens:     int64(cfg.Anthropic.MaxTokens),
	})
}

// openStore opens the run history database and brings the schema up to
// date.
func openStore(cfg *config.Config) (*state.DB, error) {
	path := cfg.State.DBPath
	if path == "" {
		path = state.DefaultDBPath()
	}
	db, err := state.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open run history: %w", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate run history: %w", err)
	}
	return db, nil
}

// parseInputs turns repeated key=value flags into an input map.
func parseInputs(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	inputs := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid input %q, expected key=value", pair)
		}
		inputs[key] = value
	}
	return inputs, nil
}

// recordRun persists the outcome of one crew run, replay or not.
func recordRun(db *state.DB, c *crew.Crew, startedAt time.Time, replay bool, result models.CrewResult, runErr error) error {
	run := &state.Run{
		ID:        uuid.New().String(),
		CrewName:  c.Name(),
		Process:   string(c.Process()),
		StartedAt: startedAt,
		Status:    state.RunCompleted,
		Replay:    replay,
	}
	now := time.Now().UTC()
	run.FinishedAt = &now
	if runErr != nil {
		run.Status = state.RunFailed
		run.FinalOutput = runErr.Error()
		run.Usage = c.Usage()
	} else {
		run.FinalOutput = result.Raw
		run.Usage = result.Usage
	}

	if err := db.CreateRun(run); err != nil {
		return err
	}
	return db.UpdateRun(run)
}

// printResult writes the final output and usage summary to stdout.
func printResult(result models.CrewResult) {
	fmt.Println(result.Raw)
	fmt.Println()
	fmt.Printf("Tasks: %d  Tokens: %d (prompt %d, completion %d)  Requests: %d\n",
		len(result.TasksOutput),
		result.Usage.TotalTokens,
		result.Usage.PromptTokens,
		result.Usage.CompletionTokens,
		result.Usage.SuccessfulRequests)
}
