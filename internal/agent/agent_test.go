package agent

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/crewkit/crewkit/pkg/models"
)

// stubExecutor replies with canned responses and records requests.
type stubExecutor struct {
	mu       sync.Mutex
	requests []Request
	response Response
	err      error
}

func (s *stubExecutor) Invoke(ctx context.Context, req Request) (Response, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()
	if s.err != nil {
		return Response{}, s.err
	}
	return s.response, nil
}

func (s *stubExecutor) last() Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[len(s.requests)-1]
}

// blockingGate records acquisitions.
type countingGate struct {
	mu    sync.Mutex
	count int
	err   error
}

func (g *countingGate) Acquire(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.count++
	return g.err
}

func newStubAgent(exec Executor) *Agent {
	return New(Config{
		Role:      "Researcher",
		Goal:      "find facts about {topic}",
		Backstory: "An experienced analyst focused on {topic}.",
		Executor:  exec,
	})
}

func TestExecuteTask(t *testing.T) {
	exec := &stubExecutor{response: Response{Text: "the answer", PromptTokens: 12, CompletionTokens: 7}}
	a := newStubAgent(exec)

	result, err := a.ExecuteTask(context.Background(), TaskSpec{
		Description:    "find the facts",
		ExpectedOutput: "a fact list",
		Context:        "previous findings",
	})
	if err != nil {
		t.Fatalf("ExecuteTask() error = %v", err)
	}

	if result.Raw != "the answer" {
		t.Errorf("Raw = %q", result.Raw)
	}
	if result.Agent != "Researcher" {
		t.Errorf("Agent = %q", result.Agent)
	}
	if result.OutputFormat != models.OutputFormatRaw {
		t.Errorf("OutputFormat = %q", result.OutputFormat)
	}

	req := exec.last()
	if !strings.Contains(req.System, "You are Researcher.") {
		t.Errorf("system prompt missing role:\n%s", req.System)
	}
	if !strings.Contains(req.System, "Your personal goal is: find facts") {
		t.Errorf("system prompt missing goal:\n%s", req.System)
	}
	if !strings.HasPrefix(req.Prompt, "find the facts") {
		t.Errorf("prompt missing description:\n%s", req.Prompt)
	}
	if !strings.Contains(req.Prompt, "expected criteria for your final answer: a fact list") {
		t.Errorf("prompt missing expected output:\n%s", req.Prompt)
	}
	if !strings.Contains(req.Prompt, "context you're working with:\nprevious findings") {
		t.Errorf("prompt missing context:\n%s", req.Prompt)
	}

	usage := a.Usage()
	if usage.TotalTokens != 19 || usage.PromptTokens != 12 || usage.CompletionTokens != 7 || usage.SuccessfulRequests != 1 {
		t.Errorf("usage = %+v", usage)
	}
}

func TestExecuteTaskError(t *testing.T) {
	boom := errors.New("backend down")
	a := newStubAgent(&stubExecutor{err: boom})

	_, err := a.ExecuteTask(context.Background(), TaskSpec{Description: "d"})
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, want wrapped backend error", err)
	}
	if !strings.Contains(err.Error(), "agent Researcher") {
		t.Errorf("error should name the agent, got %v", err)
	}
	if usage := a.Usage(); usage.SuccessfulRequests != 0 {
		t.Errorf("failed call recorded usage: %+v", usage)
	}
}

func TestExecuteTaskGate(t *testing.T) {
	exec := &stubExecutor{response: Response{Text: "ok"}}
	a := newStubAgent(exec)

	gate := &countingGate{}
	a.SetGate(gate)

	if _, err := a.ExecuteTask(context.Background(), TaskSpec{Description: "d"}); err != nil {
		t.Fatalf("ExecuteTask() error = %v", err)
	}
	if gate.count != 1 {
		t.Errorf("gate acquired %d times, want 1", gate.count)
	}

	gate.err = context.Canceled
	if _, err := a.ExecuteTask(context.Background(), TaskSpec{Description: "d"}); !errors.Is(err, context.Canceled) {
		t.Errorf("gate failure not surfaced: %v", err)
	}
}

func TestExecuteTaskAsync(t *testing.T) {
	exec := &stubExecutor{response: Response{Text: "async answer", PromptTokens: 1, CompletionTokens: 1}}
	a := newStubAgent(exec)

	future := a.ExecuteTaskAsync(context.Background(), TaskSpec{Description: "d"})
	result, err := future.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if result.Raw != "async answer" {
		t.Errorf("Raw = %q", result.Raw)
	}

	select {
	case <-future.Done():
	default:
		t.Error("Done() should be closed after Wait")
	}
}

func TestInterpolate(t *testing.T) {
	a := newStubAgent(&stubExecutor{})

	a.Interpolate(map[string]string{"topic": "solar power"})
	if a.Goal() != "find facts about solar power" {
		t.Errorf("Goal = %q", a.Goal())
	}
	if !strings.Contains(a.Backstory(), "focused on solar power") {
		t.Errorf("Backstory = %q", a.Backstory())
	}

	// Re-interpolation starts from the original template.
	a.Interpolate(map[string]string{"topic": "wind power"})
	if a.Goal() != "find facts about wind power" {
		t.Errorf("Goal after rebind = %q", a.Goal())
	}
}

func TestClone(t *testing.T) {
	exec := &stubExecutor{response: Response{Text: "ok", PromptTokens: 5, CompletionTokens: 5}}
	a := newStubAgent(exec)
	a.SetGate(&countingGate{})
	if _, err := a.ExecuteTask(context.Background(), TaskSpec{Description: "d"}); err != nil {
		t.Fatalf("ExecuteTask() error = %v", err)
	}

	clone := a.Clone()
	if clone.ID() == a.ID() {
		t.Error("clone shares the original's id")
	}
	if clone.Role() != a.Role() || clone.Goal() != a.Goal() {
		t.Error("clone lost identity fields")
	}
	if usage := clone.Usage(); usage.SuccessfulRequests != 0 {
		t.Errorf("clone inherited usage: %+v", usage)
	}

	// The clone has no gate: it executes without acquiring anything.
	if _, err := clone.ExecuteTask(context.Background(), TaskSpec{Description: "d"}); err != nil {
		t.Fatalf("clone ExecuteTask() error = %v", err)
	}
}
