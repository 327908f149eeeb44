package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/crewkit/crewkit/internal/agent"
	"github.com/crewkit/crewkit/internal/crew"
	"github.com/crewkit/crewkit/pkg/models"
)

// CrewDefinition is a declarative crew loaded from a YAML file. Tasks
// reference agents by role and other tasks by id.
type CrewDefinition struct {
	// Name identifies the crew.
	Name string `yaml:"name"`
	// Process is the routing topology: sequential or hierarchical.
	Process string `yaml:"process"`
	// MaxRPM caps model requests per minute. Zero means unlimited.
	MaxRPM int `yaml:"max_rpm"`
	// Verbose enables per-task console output.
	Verbose bool `yaml:"verbose"`
	// CheckpointPath overrides the task output journal location.
	CheckpointPath string `yaml:"checkpoint_path"`
	// Agents is the worker roster.
	Agents []AgentDefinition `yaml:"agents"`
	// Tasks is the execution plan.
	Tasks []TaskDefinition `yaml:"tasks"`
}

// AgentDefinition describes one agent in a crew definition.
type AgentDefinition struct {
	// Role is the agent's identity; tasks bind to it.
	Role string `yaml:"role"`
	// Goal is the agent's objective.
	Goal string `yaml:"goal"`
	// Backstory frames the agent's behavior.
	Backstory string `yaml:"backstory"`
	// AllowDelegation lets this agent delegate to coworkers.
	AllowDelegation bool `yaml:"allow_delegation"`
}

// TaskDefinition describes one task in a crew definition.
type TaskDefinition struct {
	// ID names the task for context references and replay.
	ID string `yaml:"id"`
	// Description is the work to do, with {placeholder} variables.
	Description string `yaml:"description"`
	// ExpectedOutput describes the acceptance criteria.
	ExpectedOutput string `yaml:"expected_output"`
	// Agent is the role of the agent that executes the task. Optional
	// in hierarchical crews.
	Agent string `yaml:"agent"`
	// Context lists ids of tasks whose outputs feed this one.
	Context []string `yaml:"context"`
	// Async marks the task for concurrent dispatch.
	Async bool `yaml:"async"`
}

// LoadDefinition reads a crew definition from a YAML file. Unknown fields
// are rejected so typos surface at load time instead of as silently
// missing behavior.
func LoadDefinition(path string) (*CrewDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading crew definition: %w", err)
	}

	def := &CrewDefinition{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(def); err != nil {
		return nil, fmt.Errorf("parsing crew definition %s: %w", path, err)
	}
	return def, nil
}

// BuildOptions carry the runtime pieces a definition cannot express.
type BuildOptions struct {
	// Executor backs every agent in the crew.
	Executor agent.Executor
	// ManagerExecutor backs the default manager for hierarchical
	// crews. Falls back to Executor when nil.
	ManagerExecutor agent.Executor
	// TaskCallback runs after every completed task.
	TaskCallback func(models.TaskResult)
	// EventSink receives run events.
	EventSink func(crew.Event)
	// DebugLogPath enables file-backed debug logging.
	DebugLogPath string
}

// BuildCrew assembles a runnable crew from a definition. Agent references
// resolve by role and context references by task id; a dangling reference
// fails the build.
func BuildCrew(def *CrewDefinition, opts BuildOptions) (*crew.Crew, error) {
	agentByRole := make(map[string]*agent.Agent, len(def.Agents))
	agents := make([]*agent.Agent, 0, len(def.Agents))
	for _, ad := range def.Agents {
		if ad.Role == "" {
			return nil, fmt.Errorf("agent definition missing role")
		}
		if _, exists := agentByRole[ad.Role]; exists {
			return nil, fmt.Errorf("duplicate agent role %q", ad.Role)
		}
		a := agent.New(agent.Config{
			Role:            ad.Role,
			Goal:            ad.Goal,
			Backstory:       ad.Backstory,
			AllowDelegation: ad.AllowDelegation,
			Executor:        opts.Executor,
		})
		agentByRole[ad.Role] = a
		agents = append(agents, a)
	}

	taskByID := make(map[string]*crew.Task, len(def.Tasks))
	tasks := make([]*crew.Task, 0, len(def.Tasks))
	for _, td := range def.Tasks {
		t := &crew.Task{
			ID:             td.ID,
			Description:    td.Description,
			ExpectedOutput: td.ExpectedOutput,
			Async:          td.Async,
		}
		if td.Agent != "" {
			a, ok := agentByRole[td.Agent]
			if !ok {
				return nil, fmt.Errorf("task %q references unknown agent %q", td.ID, td.Agent)
			}
			t.Agent = a
		}
		if td.ID != "" {
			taskByID[td.ID] = t
		}
		tasks = append(tasks, t)
	}
	for i, td := range def.Tasks {
		for _, ref := range td.Context {
			dep, ok := taskByID[ref]
			if !ok {
				return nil, fmt.Errorf("task %q references unknown context task %q", td.ID, ref)
			}
			tasks[i].Context = append(tasks[i].Context, dep)
		}
	}

	managerExecutor := opts.ManagerExecutor
	if managerExecutor == nil {
		managerExecutor = opts.Executor
	}

	return crew.New(crew.Config{
		Name:            def.Name,
		Agents:          agents,
		Tasks:           tasks,
		Process:         crew.Process(def.Process),
		ManagerExecutor: managerExecutor,
		MaxRPM:          def.MaxRPM,
		CheckpointPath:  def.CheckpointPath,
		TaskCallback:    opts.TaskCallback,
		EventSink:       opts.EventSink,
		Verbose:         def.Verbose,
		DebugLogPath:    opts.DebugLogPath,
	})
}
