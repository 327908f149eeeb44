package crew

import (
	"strings"

	"github.com/google/uuid"

	"github.com/crewkit/crewkit/internal/agent"
	"github.com/crewkit/crewkit/pkg/models"
)

// Task is a unit of work dispatched to an agent. Tasks are held in a
// fixed, user-declared order; that order is the only ordering authority.
type Task struct {
	// ID is the stable identifier, used as the replay key. Assigned a
	// uuid at construction if empty.
	ID string
	// Description is what the task asks the agent to do.
	Description string
	// ExpectedOutput describes the criteria for the task's final answer.
	ExpectedOutput string
	// Agent is the assigned agent. Nil means the topology's manager acts.
	Agent *agent.Agent
	// Context lists earlier tasks whose outputs form this task's input
	// context. Empty means the rolling output history is used instead.
	Context []*Task
	// Async dispatches the task on the non-blocking execution path.
	Async bool
	// Tools overrides the acting agent's tool set for this task.
	Tools []models.Tool
	// Callback is invoked with the result after the task completes.
	Callback func(models.TaskResult)

	// output is the result slot, absent until executed. Written only by
	// the engine, which runs single-threaded control flow.
	output *models.TaskResult

	// Original templates, captured on first interpolation so later runs
	// with different inputs start from the raw placeholders.
	originalDescription    string
	originalExpectedOutput string
}

// Output returns the task's result, or nil if it has not been flushed yet.
func (t *Task) Output() *models.TaskResult {
	return t.output
}

func (t *Task) setOutput(r models.TaskResult) {
	t.output = &r
}

// interpolate substitutes {placeholder} bindings into the description and
// expected output.
func (t *Task) interpolate(inputs map[string]string) {
	if t.originalDescription == "" {
		t.originalDescription = t.Description
	}
	if t.originalExpectedOutput == "" {
		t.originalExpectedOutput = t.ExpectedOutput
	}
	t.Description = interpolate(t.originalDescription, inputs)
	t.ExpectedOutput = interpolate(t.originalExpectedOutput, inputs)
}

// ensureID assigns a fresh uuid if the task has no stable id yet.
func (t *Task) ensureID() {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
}

// interpolate replaces every {key} occurrence with its bound value.
func interpolate(s string, inputs map[string]string) string {
	if len(inputs) == 0 {
		return s
	}
	pairs := make([]string, 0, len(inputs)*2)
	for k, v := range inputs {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(s)
}
