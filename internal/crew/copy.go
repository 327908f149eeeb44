package crew

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/crewkit/crewkit/internal/agent"
	"github.com/crewkit/crewkit/pkg/models"
)

// Copy produces an independent clone of the crew for a batch run. Agents
// are cloned with fresh identities and zeroed usage, task wiring is
// remapped onto the clones, and the checkpoint journal gets a distinct
// path so concurrent copies never write over each other. Run-scoped state
// such as the rate limiter gate and task outputs is not carried over.
func (c *Crew) Copy(n int) (*Crew, error) {
	agentFor := make(map[*agent.Agent]*agent.Agent, len(c.agents))
	agents := make([]*agent.Agent, len(c.agents))
	for i, a := range c.agents {
		clone := a.Clone()
		agents[i] = clone
		agentFor[a] = clone
	}

	taskFor := make(map[*Task]*Task, len(c.tasks))
	tasks := make([]*Task, len(c.tasks))
	for i, t := range c.tasks {
		clone := &Task{
			ID:                     t.ID,
			Description:            t.Description,
			ExpectedOutput:         t.ExpectedOutput,
			Async:                  t.Async,
			Tools:                  models.CloneTools(t.Tools),
			Callback:               t.Callback,
			originalDescription:    t.originalDescription,
			originalExpectedOutput: t.originalExpectedOutput,
		}
		if t.Agent != nil {
			clone.Agent = agentFor[t.Agent]
		}
		tasks[i] = clone
		taskFor[t] = clone
	}
	for i, t := range c.tasks {
		for _, dep := range t.Context {
			mapped, ok := taskFor[dep]
			if !ok {
				return nil, fmt.Errorf("%w: task %q", ErrUnknownContext, t.ID)
			}
			tasks[i].Context = append(tasks[i].Context, mapped)
		}
	}

	var manager *agent.Agent
	if c.managerSupplied && c.manager != nil {
		// Only a user-supplied manager carries over; a default
		// manager is rebuilt from the executor on the next run.
		manager = c.manager.Clone()
		manager.SetTools(nil)
	}

	maxRPM := 0
	if c.limiter != nil {
		maxRPM = c.limiter.MaxRPM()
	}

	return New(Config{
		Name:            c.name,
		Agents:          agents,
		Tasks:           tasks,
		Process:         c.process,
		Manager:         manager,
		ManagerExecutor: c.managerExecutor,
		MaxRPM:          maxRPM,
		CheckpointPath:  copyCheckpointPath(c.checkpointPath, n),
		PromptFile:      c.promptFile,
		TaskCallback:    c.taskCallback,
		EventSink:       c.eventSink,
		Verbose:         c.verbose,
		DebugLogPath:    c.debugPath,
	})
}

// copyCheckpointPath derives a journal path for copy n by suffixing the
// base name before the extension.
func copyCheckpointPath(path string, n int) string {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	return fmt.Sprintf("%s_%d%s", base, n+1, ext)
}
