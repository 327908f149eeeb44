package crew

import "time"

// EventType represents the type of run event.
type EventType string

const (
	// EventTaskStarted indicates a synchronous task began executing.
	EventTaskStarted EventType = "task_started"
	// EventTaskDispatched indicates an asynchronous task was handed off
	// and is pending a flush.
	EventTaskDispatched EventType = "task_dispatched"
	// EventTaskCompleted indicates a task's result was flushed.
	EventTaskCompleted EventType = "task_completed"
	// EventTaskFailed indicates a task's execution failed.
	EventTaskFailed EventType = "task_failed"
	// EventRunDone indicates the run finished.
	EventRunDone EventType = "run_done"
)

// Event is emitted by the engine as a run progresses. Events are
// informational; the run does not depend on anyone consuming them.
type Event struct {
	// Type is the kind of event.
	Type EventType
	// TaskID is the id of the related task, if applicable.
	TaskID string
	// TaskIndex is the position of the related task.
	TaskIndex int
	// Agent is the role of the acting agent, if applicable.
	Agent string
	// Err contains error details for failure events.
	Err error
	// Replay is true when the event comes from a replay run.
	Replay bool
	// Timestamp is when the event occurred.
	Timestamp time.Time
}

// emit delivers an event to the configured sink, if any.
func (c *Crew) emit(e Event) {
	if c.eventSink == nil {
		return
	}
	e.Timestamp = time.Now()
	c.eventSink(e)
}
