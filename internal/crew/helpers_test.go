package crew

import (
	"context"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/crewkit/crewkit/internal/agent"
)

// fakeExecutor is a deterministic agent backend for tests. It records
// every request and replies with a canned response derived from the
// prompt, so tests can assert on dispatch order and context plumbing.
type fakeExecutor struct {
	mu       sync.Mutex
	requests []agent.Request
	reply    func(req agent.Request) (agent.Response, error)
}

func (f *fakeExecutor) Invoke(ctx context.Context, req agent.Request) (agent.Response, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.reply != nil {
		return f.reply(req)
	}
	return agent.Response{
		Text:             "answer: " + firstLine(req.Prompt),
		PromptTokens:     10,
		CompletionTokens: 5,
	}, nil
}

func (f *fakeExecutor) calls() []agent.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]agent.Request, len(f.requests))
	copy(out, f.requests)
	return out
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// newTestAgent builds an agent backed by the given executor.
func newTestAgent(t *testing.T, role string, exec agent.Executor) *agent.Agent {
	t.Helper()
	return agent.New(agent.Config{
		Role:      role,
		Goal:      "complete assigned work",
		Backstory: "A reliable test worker.",
		Executor:  exec,
	})
}

// newSequentialCrew builds a two-task sequential crew writing its
// checkpoint journal under a temp directory.
func newSequentialCrew(t *testing.T, exec agent.Executor) (*Crew, []*Task) {
	t.Helper()

	worker := newTestAgent(t, "Researcher", exec)
	writer := newTestAgent(t, "Writer", exec)

	tasks := []*Task{
		{ID: "research", Description: "research the topic", ExpectedOutput: "research notes", Agent: worker},
		{ID: "write", Description: "write the report", ExpectedOutput: "final report", Agent: writer},
	}

	c, err := New(Config{
		Name:           "test-crew",
		Agents:         []*agent.Agent{worker, writer},
		Tasks:          tasks,
		Process:        ProcessSequential,
		CheckpointPath: filepath.Join(t.TempDir(), "tasks.json"),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c, tasks
}
