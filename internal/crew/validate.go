package crew

import "fmt"

// validate gates crew construction. It checks the task list against the
// topology's invariants; any violation aborts construction and no partial
// crew is returned.
func validate(cfg Config) error {
	if !cfg.Process.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownProcess, cfg.Process)
	}
	if len(cfg.Agents) == 0 {
		return ErrNoAgents
	}
	if len(cfg.Tasks) == 0 {
		return ErrNoTasks
	}

	positions := make(map[*Task]int, len(cfg.Tasks))
	seenIDs := make(map[string]int, len(cfg.Tasks))
	for i, task := range cfg.Tasks {
		positions[task] = i
		if task.ID != "" {
			if prev, ok := seenIDs[task.ID]; ok {
				return fmt.Errorf("%w: %q used at positions %d and %d", ErrDuplicateTaskID, task.ID, prev, i)
			}
			seenIDs[task.ID] = i
		}
	}

	switch cfg.Process {
	case ProcessSequential:
		// Every task needs its own agent; there is no manager to fall
		// back to.
		for _, task := range cfg.Tasks {
			if task.Agent == nil {
				return fmt.Errorf("%w: task %q", ErrMissingTaskAgent, task.Description)
			}
		}
	case ProcessHierarchical:
		// Delegation and fan-out are the manager's job, not task-level
		// concurrency.
		for _, task := range cfg.Tasks {
			if task.Async {
				return fmt.Errorf("%w: task %q", ErrAsyncInHierarchical, task.Description)
			}
		}
		if cfg.Manager == nil && cfg.ManagerExecutor == nil {
			return ErrMissingManager
		}
		if cfg.Manager != nil {
			for _, a := range cfg.Agents {
				if a == cfg.Manager {
					return fmt.Errorf("%w: %q", ErrManagerInRoster, cfg.Manager.Role())
				}
			}
		}
	}

	if err := validateAsyncTail(cfg.Tasks); err != nil {
		return err
	}
	if err := validateContextRefs(cfg.Tasks, positions); err != nil {
		return err
	}
	return validateAsyncContext(cfg.Tasks, positions)
}

// validateAsyncTail counts consecutive asynchronous tasks from the end of
// the list. More than one would make the run's final result ambiguous,
// since the final result is taken from the last flushed task.
func validateAsyncTail(tasks []*Task) error {
	count := 0
	for i := len(tasks) - 1; i >= 0; i-- {
		if !tasks[i].Async {
			break
		}
		count++
	}
	if count > 1 {
		return fmt.Errorf("%w: found %d trailing asynchronous tasks", ErrAsyncTail, count)
	}
	return nil
}

// validateContextRefs checks that every context reference points to a task
// in the crew at a strictly earlier position.
func validateContextRefs(tasks []*Task, positions map[*Task]int) error {
	for i, task := range tasks {
		for _, dep := range task.Context {
			pos, ok := positions[dep]
			if !ok {
				return fmt.Errorf("%w: task %q references %q", ErrUnknownContext, task.Description, dep.Description)
			}
			if pos >= i {
				return fmt.Errorf("%w: task %q (position %d) references %q (position %d)",
					ErrForwardContext, task.Description, i, dep.Description, pos)
			}
		}
	}
	return nil
}

// validateAsyncContext rejects an asynchronous task whose context includes
// an asynchronous dependency with no synchronous task between them. An
// async task's context is computed against whatever has already been
// flushed; an unflushed async dependency has no ready result, so the pair
// is a data-readiness race unless a flush barrier separates them.
func validateAsyncContext(tasks []*Task, positions map[*Task]int) error {
	for i, task := range tasks {
		if !task.Async || len(task.Context) == 0 {
			continue
		}
		for _, dep := range task.Context {
			if !dep.Async {
				continue
			}
			for j := i - 1; j >= 0; j-- {
				if tasks[j] == dep {
					return fmt.Errorf("%w: task %q depends on %q", ErrAsyncContextRace, task.Description, dep.Description)
				}
				if !tasks[j].Async {
					break
				}
			}
		}
	}
	return nil
}
