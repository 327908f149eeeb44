// Package checkpoint provides the durable, position-indexed record of task
// results that makes crew runs resumable. The log is a JSON array on disk:
// one entry per task position, overwritten in place when a position is
// re-executed (live or replayed). A log written by one process must be
// readable by a later one, so the layout is plain JSON, no framing.
package checkpoint

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/crewkit/crewkit/pkg/models"
)

// Entry is one logged task execution, keyed by task position.
type Entry struct {
	// TaskID is the stable id of the executed task.
	TaskID string `json:"task_id"`
	// ExpectedOutput is the task's expected-output text.
	ExpectedOutput string `json:"expected_output,omitempty"`
	// Output is the full result snapshot.
	Output ResultSnapshot `json:"output"`
	// Timestamp is when the entry was written.
	Timestamp time.Time `json:"timestamp"`
	// TaskIndex is the task's position in the crew's task list.
	TaskIndex int `json:"task_index"`
	// Inputs holds the input bindings active when the result was produced.
	Inputs map[string]string `json:"inputs"`
	// WasReplayed is true if the entry was produced by a replay run.
	WasReplayed bool `json:"was_replayed"`
}

// ResultSnapshot is the persisted form of a TaskResult.
type ResultSnapshot struct {
	Description    string         `json:"description"`
	Summary        string         `json:"summary,omitempty"`
	ExpectedOutput string         `json:"expected_output,omitempty"`
	Raw            string         `json:"raw"`
	JSONDict       map[string]any `json:"json_dict,omitempty"`
	OutputFormat   string         `json:"output_format"`
	Agent          string         `json:"agent"`
}

// Snapshot converts a TaskResult into its persisted form.
func Snapshot(r models.TaskResult) ResultSnapshot {
	return ResultSnapshot{
		Description:    r.Description,
		Summary:        r.Summary(),
		ExpectedOutput: r.ExpectedOutput,
		Raw:            r.Raw,
		JSONDict:       r.JSONDict,
		OutputFormat:   string(r.OutputFormat),
		Agent:          r.Agent,
	}
}

// Result converts a persisted snapshot back into a TaskResult.
func (s ResultSnapshot) Result() models.TaskResult {
	return models.TaskResult{
		Description:    s.Description,
		ExpectedOutput: s.ExpectedOutput,
		Raw:            s.Raw,
		JSONDict:       s.JSONDict,
		OutputFormat:   models.OutputFormat(s.OutputFormat),
		Agent:          s.Agent,
	}
}

// Log is a file-backed, position-indexed checkpoint store. Each run (live
// or replay) owns its Log exclusively for the run's duration.
type Log struct {
	path string
	mu   sync.Mutex
}

// NewLog creates a Log handle for the given file path. No I/O happens
// until Initialize, Update, or Load is called.
func NewLog(path string) *Log {
	return &Log{path: path}
}

// Path returns the backing file path.
func (l *Log) Path() string {
	return l.path
}

// Initialize creates the backing file with an empty array if it does not
// exist yet. Existing content is preserved.
func (l *Log) Initialize() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, err := os.Stat(l.path); err == nil {
		return nil
	}
	return l.writeLocked([]Entry{})
}

// Reset truncates the log to an empty array.
func (l *Log) Reset() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.writeLocked([]Entry{})
}

// Update overwrites the entry at the given position, or appends it if the
// position is one past the current end. Positions further past the end are
// rejected: the log never has holes.
func (l *Log) Update(position int, e Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.loadLocked()
	if err != nil {
		return err
	}

	switch {
	case position < 0:
		return fmt.Errorf("checkpoint position %d out of range", position)
	case position < len(entries):
		entries[position] = e
	case position == len(entries):
		entries = append(entries, e)
	default:
		return fmt.Errorf("checkpoint position %d would leave a gap (log has %d entries)", position, len(entries))
	}

	return l.writeLocked(entries)
}

// Load returns all entries in position order. A missing file loads as an
// empty log.
func (l *Log) Load() ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loadLocked()
}

func (l *Log) loadLocked() ([]Entry, error) {
	data, err := os.ReadFile(l.path)
	if os.IsNotExist(err) {
		return []Entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read checkpoint log: %w", err)
	}
	if len(data) == 0 {
		return []Entry{}, nil
	}

	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse checkpoint log %s: %w", l.path, err)
	}
	return entries, nil
}

// writeLocked writes the full entry list atomically via a temp file rename.
// Caller must hold l.mu.
func (l *Log) writeLocked(entries []Entry) error {
	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create checkpoint directory: %w", err)
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode checkpoint log: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".checkpoint-*")
	if err != nil {
		return fmt.Errorf("create checkpoint temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write checkpoint log: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close checkpoint temp file: %w", err)
	}

	if err := os.Rename(tmpName, l.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace checkpoint log: %w", err)
	}
	return nil
}
