package crew

import (
	"context"
	"fmt"

	"github.com/crewkit/crewkit/internal/agent"
	"github.com/crewkit/crewkit/pkg/models"
)

// ReplayFromTask resumes a prior run at the named task. Everything before
// it is restored from the checkpoint journal without re-executing; the
// named task and all tasks after it run fresh and overwrite their journal
// entries in place. When inputs is empty, the inputs recorded at the
// replay point are used.
func (c *Crew) ReplayFromTask(ctx context.Context, taskID string, inputs map[string]string) (models.CrewResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := c.log.Load()
	if err != nil {
		return models.CrewResult{}, fmt.Errorf("load checkpoint log: %w", err)
	}
	if len(entries) > len(c.tasks) {
		return models.CrewResult{}, fmt.Errorf("%w: log has %d entries for %d tasks", ErrLogMismatch, len(entries), len(c.tasks))
	}

	start := -1
	for i, entry := range entries {
		if entry.TaskID == "" {
			return models.CrewResult{}, fmt.Errorf("%w: entry %d has no task id", ErrCorruptLogEntry, i)
		}
		if entry.TaskID != c.tasks[i].ID {
			return models.CrewResult{}, fmt.Errorf("%w: entry %d is task %q, plan has %q", ErrLogMismatch, i, entry.TaskID, c.tasks[i].ID)
		}
		if entry.TaskID == taskID {
			start = i
		}
	}
	if start == -1 {
		return models.CrewResult{}, fmt.Errorf("%w: %q", ErrTaskNotFound, taskID)
	}

	c.debug.Log("replay: crew=%s task=%s position=%d", c.name, taskID, start)

	effective := inputs
	if len(effective) == 0 {
		effective = entries[start].Inputs
	}
	c.inputs = effective
	c.applyInputs(effective)

	seed := make([]models.TaskResult, 0, start)
	for i := 0; i < start; i++ {
		// A skipped position must carry a real recorded result; replay
		// cannot fabricate one.
		if entries[i].Output.Agent == "" && entries[i].Output.Raw == "" {
			return models.CrewResult{}, fmt.Errorf("%w: entry %d has no recorded output", ErrCorruptLogEntry, i)
		}
		result := entries[i].Output.Result()
		c.tasks[i].setOutput(result)
		seed = append(seed, result)
	}

	stop := c.startLimiter()
	defer stop()

	var manager *agent.Agent
	if c.process == ProcessHierarchical {
		manager, err = c.assembleManager()
		if err != nil {
			return models.CrewResult{}, err
		}
	}

	eng := newEngine(c, manager, true)
	final, err := eng.run(ctx, start, seed)
	if err != nil {
		c.debug.Log("replay failed: crew=%s task=%s err=%v", c.name, taskID, err)
		return models.CrewResult{}, err
	}
	return c.finalize(eng, final), nil
}
