package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/crewkit/crewkit/pkg/models"
)

// Agent is an autonomous worker that accepts a task plus context and
// returns a result, synchronously or as a pending handle. Agents are owned
// by a crew for its lifetime and shared by reference across the tasks they
// are assigned to.
type Agent struct {
	// id is the unique identifier for this agent instance.
	id string
	// role is the human-readable capability label.
	role string
	// goal is what the agent is trying to achieve.
	goal string
	// backstory frames the agent's expertise for the backend.
	backstory string
	// allowDelegation permits this agent to route work to coworkers.
	allowDelegation bool

	executor Executor
	tracker  *Tracker

	mu    sync.Mutex
	tools []models.Tool
	gate  Gate

	// Original templates, captured on first interpolation so later runs
	// with different inputs start from the raw placeholders.
	originalGoal      string
	originalBackstory string
}

// Config holds the settings for constructing an Agent.
type Config struct {
	// Role is the human-readable capability label. Required.
	Role string
	// Goal is what the agent is trying to achieve.
	Goal string
	// Backstory frames the agent's expertise.
	Backstory string
	// AllowDelegation permits the agent to delegate to coworkers.
	AllowDelegation bool
	// Tools is the agent's starting tool set.
	Tools []models.Tool
	// Executor is the backend performing the model calls. Required.
	Executor Executor
}

// New creates an Agent from the given config.
func New(cfg Config) *Agent {
	return &Agent{
		id:              uuid.NewString(),
		role:            cfg.Role,
		goal:            cfg.Goal,
		backstory:       cfg.Backstory,
		allowDelegation: cfg.AllowDelegation,
		tools:           models.CloneTools(cfg.Tools),
		executor:        cfg.Executor,
		tracker:         NewTracker(),
	}
}

// ID returns the agent's unique identifier.
func (a *Agent) ID() string { return a.id }

// Role returns the agent's capability label.
func (a *Agent) Role() string { return a.role }

// Goal returns the agent's goal text.
func (a *Agent) Goal() string { return a.goal }

// Backstory returns the agent's backstory text.
func (a *Agent) Backstory() string { return a.backstory }

// AllowDelegation reports whether the agent may delegate to coworkers.
func (a *Agent) AllowDelegation() bool { return a.allowDelegation }

// SetAllowDelegation sets the delegation permission flag.
func (a *Agent) SetAllowDelegation(allow bool) { a.allowDelegation = allow }

// Tools returns a copy of the agent's current tool set.
func (a *Agent) Tools() []models.Tool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return models.CloneTools(a.tools)
}

// SetTools replaces the agent's tool set.
func (a *Agent) SetTools(tools []models.Tool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.tools = models.CloneTools(tools)
}

// SetGate attaches the crew's per-call rate gate.
func (a *Agent) SetGate(g Gate) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.gate = g
}

// Usage returns the agent's accumulated resource usage.
func (a *Agent) Usage() models.UsageMetrics {
	return a.tracker.Summary()
}

// Interpolate substitutes {placeholder} bindings into the agent's goal and
// backstory.
func (a *Agent) Interpolate(inputs map[string]string) {
	if a.originalGoal == "" {
		a.originalGoal = a.goal
	}
	if a.originalBackstory == "" {
		a.originalBackstory = a.backstory
	}
	a.goal = interpolate(a.originalGoal, inputs)
	a.backstory = interpolate(a.originalBackstory, inputs)
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

// TaskSpec is the execution request handed to an agent: the task
// description, the expected-output criteria, the resolved context text,
// and the effective tool set for this dispatch.
type TaskSpec struct {
	Description    string
	ExpectedOutput string
	Context        string
	Tools          []models.Tool
}

// ExecuteTask runs the task synchronously and returns its result. The
// crew's rate gate, if attached, is acquired before the underlying call.
func (a *Agent) ExecuteTask(ctx context.Context, spec TaskSpec) (models.TaskResult, error) {
	a.mu.Lock()
	gate := a.gate
	a.mu.Unlock()

	if gate != nil {
		if err := gate.Acquire(ctx); err != nil {
			return models.TaskResult{}, fmt.Errorf("agent %s: acquire rate permit: %w", a.role, err)
		}
	}

	resp, err := a.executor.Invoke(ctx, Request{
		System: a.systemPrompt(),
		Prompt: taskPrompt(spec),
		Tools:  spec.Tools,
		Gate:   gate,
	})
	if err != nil {
		return models.TaskResult{}, fmt.Errorf("agent %s: %w", a.role, err)
	}

	a.tracker.Record(resp.PromptTokens, resp.CompletionTokens)

	return models.TaskResult{
		Description:    spec.Description,
		ExpectedOutput: spec.ExpectedOutput,
		Raw:            resp.Text,
		OutputFormat:   models.OutputFormatRaw,
		Agent:          a.role,
	}, nil
}

// ExecuteTaskAsync dispatches the task on a separate goroutine and returns
// a handle immediately. The handle resolves to the same result ExecuteTask
// would have produced.
func (a *Agent) ExecuteTaskAsync(ctx context.Context, spec TaskSpec) *Future {
	f := newFuture()
	go func() {
		result, err := a.ExecuteTask(ctx, spec)
		f.resolve(result, err)
	}()
	return f
}

// Clone returns an independent copy of the agent: same identity fields and
// tools, fresh usage tracker, no rate gate. Used by crew deep copies so
// batch runs never share mutable state.
func (a *Agent) Clone() *Agent {
	a.mu.Lock()
	defer a.mu.Unlock()

	return &Agent{
		id:                uuid.NewString(),
		role:              a.role,
		goal:              a.goal,
		backstory:         a.backstory,
		allowDelegation:   a.allowDelegation,
		tools:             models.CloneTools(a.tools),
		executor:          a.executor,
		tracker:           NewTracker(),
		originalGoal:      a.originalGoal,
		originalBackstory: a.originalBackstory,
	}
}

// systemPrompt renders the agent's identity as the backend system prompt.
func (a *Agent) systemPrompt() string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s.", a.role)
	if a.backstory != "" {
		fmt.Fprintf(&b, " %s", a.backstory)
	}
	if a.goal != "" {
		fmt.Fprintf(&b, "\nYour personal goal is: %s", a.goal)
	}
	return b.String()
}

// taskPrompt renders the task description, expected-output criteria, and
// context into the user prompt.
func taskPrompt(spec TaskSpec) string {
	var b strings.Builder
	b.WriteString(spec.Description)
	if spec.ExpectedOutput != "" {
		fmt.Fprintf(&b, "\n\nThis is the expected criteria for your final answer: %s\nYou MUST return the actual complete content as the final answer, not a summary.", spec.ExpectedOutput)
	}
	if spec.Context != "" {
		fmt.Fprintf(&b, "\n\nThis is the context you're working with:\n%s", spec.Context)
	}
	return b.String()
}
