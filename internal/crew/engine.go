package crew

import (
	"context"
	"fmt"
	"time"

	"github.com/crewkit/crewkit/internal/agent"
	"github.com/crewkit/crewkit/internal/checkpoint"
	"github.com/crewkit/crewkit/pkg/models"
)

// engineState tracks where the control loop is. The loop itself is
// single-threaded; concurrency lives entirely inside dispatched futures.
type engineState int

const (
	stateIdle engineState = iota
	stateDispatching
	stateFlushing
	stateDone
)

// pendingExec is an in-flight asynchronous task awaiting a flush barrier.
// Order of insertion is dispatch order, and flushes always drain FIFO.
type pendingExec struct {
	task     *Task
	position int
	future   *agent.Future
}

// engine runs one crew execution from a given position. A fresh engine is
// built per run; it is never reused.
type engine struct {
	crew    *Crew
	manager *agent.Agent
	replay  bool
	log     *runLogger

	state   engineState
	outputs []models.TaskResult
	pending []pendingExec
}

func newEngine(c *Crew, manager *agent.Agent, replay bool) *engine {
	return &engine{
		crew:    c,
		manager: manager,
		replay:  replay,
		log:     newRunLogger(c.verbose),
		state:   stateIdle,
	}
}

// run executes tasks from startAt to the end of the plan. seed holds the
// outputs of tasks before startAt (non-empty only during replay) and
// becomes the initial rolling history. The returned result is the output
// of the final completed task.
func (e *engine) run(ctx context.Context, startAt int, seed []models.TaskResult) (models.TaskResult, error) {
	if e.state != stateIdle {
		return models.TaskResult{}, fmt.Errorf("engine already ran (state %d)", e.state)
	}
	e.outputs = append(e.outputs, seed...)
	e.state = stateDispatching

	for i := startAt; i < len(e.crew.tasks); i++ {
		task := e.crew.tasks[i]
		actor, tools, err := e.resolveActor(task)
		if err != nil {
			return models.TaskResult{}, err
		}

		if task.Async {
			if err := e.dispatchAsync(ctx, task, i, actor, tools); err != nil {
				return models.TaskResult{}, err
			}
			continue
		}

		// Sync tasks act as flush barriers: every pending async
		// task completes and logs before this one sees context.
		if err := e.flush(ctx); err != nil {
			return models.TaskResult{}, err
		}
		if err := e.dispatchSync(ctx, task, i, actor, tools); err != nil {
			return models.TaskResult{}, err
		}
	}

	e.state = stateFlushing
	if err := e.flush(ctx); err != nil {
		return models.TaskResult{}, err
	}
	e.state = stateDone

	if len(e.outputs) == 0 {
		return models.TaskResult{}, ErrNoTaskOutput
	}
	return e.outputs[len(e.outputs)-1], nil
}

// resolveActor picks the agent that executes a task and the tool set it
// carries for this dispatch.
func (e *engine) resolveActor(task *Task) (*agent.Agent, []models.Tool, error) {
	if e.crew.process == ProcessHierarchical {
		if task.Agent != nil {
			return task.Agent, e.workerTools(task, task.Agent), nil
		}
		if e.manager == nil {
			return nil, nil, ErrMissingManager
		}
		tools := managerToolsFor(task, e.crew.agents)
		tools = append(tools, models.CloneTools(task.Tools)...)
		return e.manager, tools, nil
	}

	if task.Agent == nil {
		return nil, nil, fmt.Errorf("%w: task %q", ErrMissingTaskAgent, task.ID)
	}
	return task.Agent, e.workerTools(task, task.Agent), nil
}

// workerTools assembles a worker's dispatch tool set: the task's own tools
// when present, otherwise the agent's, plus any delegation tools the
// roster grants.
func (e *engine) workerTools(task *Task, actor *agent.Agent) []models.Tool {
	base := task.Tools
	if len(base) == 0 {
		base = actor.Tools()
	}
	tools := models.CloneTools(base)
	tools = append(tools, workerDelegationTools(actor, e.crew.agents)...)
	return tools
}

func (e *engine) dispatchSync(ctx context.Context, task *Task, position int, actor *agent.Agent, tools []models.Tool) error {
	taskCtx, err := resolveContext(task, e.outputs)
	if err != nil {
		return fmt.Errorf("task %q: %w", task.ID, err)
	}

	e.log.Working(actor.Role(), task.Description, e.replay)
	e.crew.emit(Event{Type: EventTaskStarted, TaskID: task.ID, TaskIndex: position, Agent: actor.Role(), Replay: e.replay})

	result, err := actor.ExecuteTask(ctx, agent.TaskSpec{
		Description:    task.Description,
		ExpectedOutput: task.ExpectedOutput,
		Context:        taskCtx,
		Tools:          tools,
	})
	if err != nil {
		e.crew.emit(Event{Type: EventTaskFailed, TaskID: task.ID, TaskIndex: position, Agent: actor.Role(), Err: err})
		return fmt.Errorf("task %q: %w", task.ID, err)
	}
	return e.record(task, position, actor.Role(), result)
}

func (e *engine) dispatchAsync(ctx context.Context, task *Task, position int, actor *agent.Agent, tools []models.Tool) error {
	// Async context is resolved at dispatch time from outputs flushed
	// so far; results still in the pending buffer are never visible.
	taskCtx, err := resolveContext(task, e.outputs)
	if err != nil {
		return fmt.Errorf("task %q: %w", task.ID, err)
	}

	e.log.Working(actor.Role(), task.Description, e.replay)
	e.crew.emit(Event{Type: EventTaskDispatched, TaskID: task.ID, TaskIndex: position, Agent: actor.Role(), Replay: e.replay})

	future := actor.ExecuteTaskAsync(ctx, agent.TaskSpec{
		Description:    task.Description,
		ExpectedOutput: task.ExpectedOutput,
		Context:        taskCtx,
		Tools:          tools,
	})
	e.pending = append(e.pending, pendingExec{task: task, position: position, future: future})
	return nil
}

// flush drains the pending buffer in dispatch order, recording each result
// as it lands. A failure is attributed to the task that owns the future
// and aborts the run.
func (e *engine) flush(ctx context.Context) error {
	for len(e.pending) > 0 {
		next := e.pending[0]
		e.pending = e.pending[1:]

		result, err := next.future.Wait(ctx)
		if err != nil {
			role := ""
			if next.task.Agent != nil {
				role = next.task.Agent.Role()
			}
			e.crew.emit(Event{Type: EventTaskFailed, TaskID: next.task.ID, TaskIndex: next.position, Agent: role, Err: err})
			return fmt.Errorf("task %q: %w", next.task.ID, err)
		}
		if err := e.record(next.task, next.position, result.Agent, result); err != nil {
			return err
		}
	}
	return nil
}

// record commits a completed task: output on the task, rolling history,
// checkpoint entry at the task's plan position, then callbacks and events.
func (e *engine) record(task *Task, position int, role string, result models.TaskResult) error {
	task.setOutput(result)
	e.outputs = append(e.outputs, result)

	entry := checkpoint.Entry{
		TaskID:         task.ID,
		ExpectedOutput: task.ExpectedOutput,
		Output:         checkpoint.Snapshot(result),
		Timestamp:      time.Now().UTC(),
		TaskIndex:      position,
		Inputs:         e.crew.inputs,
		WasReplayed:    e.replay,
	}
	if err := e.crew.log.Update(position, entry); err != nil {
		return fmt.Errorf("checkpoint task %q: %w", task.ID, err)
	}

	if task.Callback != nil {
		task.Callback(result)
	}
	if e.crew.taskCallback != nil {
		e.crew.taskCallback(result)
	}

	e.log.Completed(role, task.ID)
	e.crew.emit(Event{Type: EventTaskCompleted, TaskID: task.ID, TaskIndex: position, Agent: role, Replay: e.replay})
	return nil
}
