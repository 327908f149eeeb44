package crew

import "errors"

// Configuration errors, raised at crew construction. Each validation rule
// has its own sentinel so callers can tell violations apart.
var (
	// ErrNoAgents indicates the crew was built without agents.
	ErrNoAgents = errors.New("crew has no agents")
	// ErrNoTasks indicates the crew was built without tasks.
	ErrNoTasks = errors.New("crew has no tasks")
	// ErrUnknownProcess indicates an unrecognized process value.
	ErrUnknownProcess = errors.New("unknown process")
	// ErrDuplicateTaskID indicates two tasks share an id.
	ErrDuplicateTaskID = errors.New("duplicate task id")
	// ErrMissingTaskAgent indicates a sequential task without an agent.
	ErrMissingTaskAgent = errors.New("sequential process requires an agent on every task")
	// ErrAsyncInHierarchical indicates an async task under the hierarchical process.
	ErrAsyncInHierarchical = errors.New("hierarchical process tasks cannot be asynchronous")
	// ErrAsyncTail indicates more than one trailing asynchronous task.
	ErrAsyncTail = errors.New("crew must end with at most one asynchronous task")
	// ErrAsyncContextRace indicates an async task depending on an async
	// task with no synchronous task between them.
	ErrAsyncContextRace = errors.New("asynchronous task cannot depend on an unflushed asynchronous task")
	// ErrForwardContext indicates a context reference to a later task.
	ErrForwardContext = errors.New("task context cannot reference a later task")
	// ErrUnknownContext indicates a context reference to a task that is
	// not part of the crew.
	ErrUnknownContext = errors.New("task context references a task outside the crew")
	// ErrMissingManager indicates a hierarchical crew without a manager
	// agent or manager executor.
	ErrMissingManager = errors.New("hierarchical process requires a manager agent or manager executor")
	// ErrManagerInRoster indicates the manager also appears as a worker.
	ErrManagerInRoster = errors.New("manager agent must not appear in the worker agent list")
)

// Errors raised during a run or at manager assembly.
var (
	// ErrManagerHasTools indicates a supplied manager started with a
	// non-empty tool set. Raised at manager assembly, not validation.
	ErrManagerHasTools = errors.New("manager agent must not start with tools")
	// ErrContextNotReady indicates a context dependency with no flushed
	// result. Unreachable for validated crews.
	ErrContextNotReady = errors.New("context dependency has no flushed result")
	// ErrNoTaskOutput indicates a run finished without producing any
	// result to aggregate.
	ErrNoTaskOutput = errors.New("run produced no task output")
)

// Replay errors.
var (
	// ErrTaskNotFound indicates the replay task id has no log entry.
	ErrTaskNotFound = errors.New("task id not found in checkpoint log")
	// ErrCorruptLogEntry indicates a skipped position's log entry cannot
	// be synthesized into a result.
	ErrCorruptLogEntry = errors.New("checkpoint log entry is incomplete")
	// ErrLogMismatch indicates the checkpoint log does not line up with
	// the crew's task list.
	ErrLogMismatch = errors.New("checkpoint log does not match the crew's tasks")
)
