// Package models defines the shared data types for crewkit.
package models

import "strings"

// OutputFormat identifies the shape of a task result.
type OutputFormat string

const (
	// OutputFormatRaw indicates a plain-text result.
	OutputFormatRaw OutputFormat = "raw"
	// OutputFormatJSON indicates a result carrying a dict-shaped payload.
	OutputFormatJSON OutputFormat = "json"
)

// Valid returns true if the format is a known value.
func (f OutputFormat) Valid() bool {
	switch f {
	case OutputFormatRaw, OutputFormatJSON:
		return true
	default:
		return false
	}
}

// TaskResult is the immutable output of a single executed task.
type TaskResult struct {
	// Description is the description of the task that produced this result.
	Description string `json:"description"`
	// ExpectedOutput is the expected-output text of the producing task.
	ExpectedOutput string `json:"expected_output,omitempty"`
	// Raw is the raw text output.
	Raw string `json:"raw"`
	// JSONDict is the optional dict-shaped output.
	JSONDict map[string]any `json:"json_dict,omitempty"`
	// OutputFormat tags the shape of the result.
	OutputFormat OutputFormat `json:"output_format"`
	// Agent is the role of the agent that produced this result.
	Agent string `json:"agent"`
}

// summaryWords is the number of leading words included in Summary.
const summaryWords = 10

// Summary returns a short summary built from the task description.
func (r TaskResult) Summary() string {
	words := strings.Fields(r.Description)
	if len(words) == 0 {
		return ""
	}
	if len(words) > summaryWords {
		words = words[:summaryWords]
	}
	return strings.Join(words, " ") + "..."
}

// CrewResult is the final output of a crew run. It carries the final task's
// result fields, the full ordered list of per-task results, and the
// aggregated usage totals.
type CrewResult struct {
	// Raw is the raw text output of the final resolved task.
	Raw string `json:"raw"`
	// JSONDict is the dict-shaped output of the final task, if any.
	JSONDict map[string]any `json:"json_dict,omitempty"`
	// OutputFormat tags the shape of the final result.
	OutputFormat OutputFormat `json:"output_format"`
	// TasksOutput holds every task result in position order.
	TasksOutput []TaskResult `json:"tasks_output"`
	// Usage holds the aggregated resource usage for the run.
	Usage UsageMetrics `json:"usage"`
}
