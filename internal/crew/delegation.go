package crew

import (
	"fmt"

	"github.com/crewkit/crewkit/internal/agent"
	"github.com/crewkit/crewkit/pkg/models"
)

// Delegation tool sets are recomputed immediately before each dispatch
// from the current roster, never cached across tasks.

// managerToolsFor computes the hierarchical manager's tool set for one
// task: delegation capability over the full worker roster, with the task's
// assigned agent addressed first when the task has one.
func managerToolsFor(task *Task, roster []*agent.Agent) []models.Tool {
	ordered := roster
	if task.Agent != nil {
		ordered = make([]*agent.Agent, 0, len(roster))
		ordered = append(ordered, task.Agent)
		for _, a := range roster {
			if a != task.Agent {
				ordered = append(ordered, a)
			}
		}
	}
	return agent.DelegationTools(ordered)
}

// workerDelegationTools computes the delegation capabilities granted to a
// task's own agent: every other worker, never itself. Empty unless the
// actor permits delegation, there are at least two agents total, and at
// least one delegation target exists.
func workerDelegationTools(actor *agent.Agent, roster []*agent.Agent) []models.Tool {
	if actor == nil || !actor.AllowDelegation() {
		return nil
	}
	targets := make([]*agent.Agent, 0, len(roster))
	for _, a := range roster {
		if a != actor {
			targets = append(targets, a)
		}
	}
	if len(roster) < 2 || len(targets) == 0 {
		return nil
	}
	return agent.DelegationTools(targets)
}

// assembleManager readies the hierarchical manager before dispatch. A
// supplied manager must start with an empty tool set; the wirer populates
// it. Without a supplied manager, one is constructed from the crew's
// prompt templates with delegation capability over the full roster.
//
// Assembly runs eagerly for hierarchical runs and again before replay,
// since replay may execute in a fresh process.
func (c *Crew) assembleManager() (*agent.Agent, error) {
	if c.manager != nil {
		if !c.managerAssembled && len(c.manager.Tools()) > 0 {
			return nil, fmt.Errorf("%w: %q", ErrManagerHasTools, c.manager.Role())
		}
		c.manager.SetAllowDelegation(true)
		c.manager.SetTools(agent.DelegationTools(c.agents))
		if c.limiter != nil {
			c.manager.SetGate(c.limiter)
		}
		c.managerAssembled = true
		return c.manager, nil
	}

	prompts, err := agent.LoadPrompts(c.promptFile)
	if err != nil {
		return nil, fmt.Errorf("load manager prompts: %w", err)
	}
	role, err := prompts.Retrieve(agent.ManagerSection, "role")
	if err != nil {
		return nil, err
	}
	goal, err := prompts.Retrieve(agent.ManagerSection, "goal")
	if err != nil {
		return nil, err
	}
	backstory, err := prompts.Retrieve(agent.ManagerSection, "backstory")
	if err != nil {
		return nil, err
	}

	manager := agent.New(agent.Config{
		Role:            role,
		Goal:            goal,
		Backstory:       backstory,
		AllowDelegation: true,
		Tools:           agent.DelegationTools(c.agents),
		Executor:        c.managerExecutor,
	})
	if c.limiter != nil {
		manager.SetGate(c.limiter)
	}
	c.manager = manager
	c.managerAssembled = true
	return manager, nil
}
