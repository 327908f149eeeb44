package crew

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/crewkit/crewkit/internal/agent"
	"github.com/crewkit/crewkit/internal/checkpoint"
	"github.com/crewkit/crewkit/pkg/models"
)

func TestKickoffSequential(t *testing.T) {
	exec := &fakeExecutor{}
	c, tasks := newSequentialCrew(t, exec)

	result, err := c.Kickoff(context.Background(), nil)
	if err != nil {
		t.Fatalf("Kickoff() error = %v", err)
	}

	if len(result.TasksOutput) != 2 {
		t.Fatalf("expected 2 task outputs, got %d", len(result.TasksOutput))
	}
	if result.Raw != result.TasksOutput[1].Raw {
		t.Errorf("final result %q should be the last task's output %q", result.Raw, result.TasksOutput[1].Raw)
	}
	for _, task := range tasks {
		if task.Output() == nil {
			t.Errorf("task %q has no output after kickoff", task.ID)
		}
	}

	// Two calls at 10 prompt + 5 completion tokens each.
	want := models.UsageMetrics{TotalTokens: 30, PromptTokens: 20, CompletionTokens: 10, SuccessfulRequests: 2}
	if result.Usage != want {
		t.Errorf("usage = %+v, want %+v", result.Usage, want)
	}
}

func TestKickoffRollingContext(t *testing.T) {
	exec := &fakeExecutor{}
	c, _ := newSequentialCrew(t, exec)

	if _, err := c.Kickoff(context.Background(), nil); err != nil {
		t.Fatalf("Kickoff() error = %v", err)
	}

	calls := exec.calls()
	if len(calls) != 2 {
		t.Fatalf("expected 2 executor calls, got %d", len(calls))
	}
	// The second task has no explicit context, so it sees the first
	// task's output as rolling history.
	if !strings.Contains(calls[1].Prompt, "answer: research the topic") {
		t.Errorf("second task prompt missing first task output:\n%s", calls[1].Prompt)
	}
}

func TestKickoffExplicitContext(t *testing.T) {
	exec := &fakeExecutor{}
	worker := newTestAgent(t, "Worker", exec)

	first := &Task{ID: "a", Description: "step one", ExpectedOutput: "out", Agent: worker}
	second := &Task{ID: "b", Description: "step two", ExpectedOutput: "out", Agent: worker}
	third := &Task{ID: "c", Description: "step three", ExpectedOutput: "out", Agent: worker, Context: []*Task{first}}

	c, err := New(Config{
		Name:           "ctx-crew",
		Agents:         []*agent.Agent{worker},
		Tasks:          []*Task{first, second, third},
		CheckpointPath: filepath.Join(t.TempDir(), "tasks.json"),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := c.Kickoff(context.Background(), nil); err != nil {
		t.Fatalf("Kickoff() error = %v", err)
	}

	calls := exec.calls()
	prompt := calls[2].Prompt
	if !strings.Contains(prompt, "answer: step one") {
		t.Errorf("third task should see first task's output:\n%s", prompt)
	}
	if strings.Contains(prompt, "answer: step two") {
		t.Errorf("third task should not see second task's output:\n%s", prompt)
	}
}

func TestKickoffInterpolatesInputs(t *testing.T) {
	exec := &fakeExecutor{}
	worker := newTestAgent(t, "Worker", exec)

	task := &Task{ID: "a", Description: "summarize {topic}", ExpectedOutput: "a summary of {topic}", Agent: worker}
	c, err := New(Config{
		Agents:         []*agent.Agent{worker},
		Tasks:          []*Task{task},
		CheckpointPath: filepath.Join(t.TempDir(), "tasks.json"),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if _, err := c.Kickoff(context.Background(), map[string]string{"topic": "Go modules"}); err != nil {
		t.Fatalf("Kickoff() error = %v", err)
	}

	prompt := exec.calls()[0].Prompt
	if !strings.Contains(prompt, "summarize Go modules") {
		t.Errorf("description not interpolated:\n%s", prompt)
	}
	if strings.Contains(prompt, "{topic}") {
		t.Errorf("placeholder left in prompt:\n%s", prompt)
	}
}

func TestKickoffWritesCheckpointLog(t *testing.T) {
	exec := &fakeExecutor{}
	c, tasks := newSequentialCrew(t, exec)

	inputs := map[string]string{"topic": "testing"}
	if _, err := c.Kickoff(context.Background(), inputs); err != nil {
		t.Fatalf("Kickoff() error = %v", err)
	}

	entries, err := checkpoint.NewLog(c.CheckpointPath()).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 log entries, got %d", len(entries))
	}
	for i, entry := range entries {
		if entry.TaskID != tasks[i].ID {
			t.Errorf("entry %d task id = %q, want %q", i, entry.TaskID, tasks[i].ID)
		}
		if entry.TaskIndex != i {
			t.Errorf("entry %d index = %d, want %d", i, entry.TaskIndex, i)
		}
		if entry.WasReplayed {
			t.Errorf("entry %d marked replayed on a fresh run", i)
		}
		if entry.Inputs["topic"] != "testing" {
			t.Errorf("entry %d inputs = %v", i, entry.Inputs)
		}
		if entry.Output.Raw == "" {
			t.Errorf("entry %d has empty output", i)
		}
	}
}

func TestKickoffResetsCheckpointLog(t *testing.T) {
	exec := &fakeExecutor{}
	c, _ := newSequentialCrew(t, exec)

	for run := 0; run < 2; run++ {
		if _, err := c.Kickoff(context.Background(), nil); err != nil {
			t.Fatalf("Kickoff() run %d error = %v", run, err)
		}
	}

	entries, err := checkpoint.NewLog(c.CheckpointPath()).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("log should only describe the latest run, got %d entries", len(entries))
	}
}

func TestKickoffTaskFailure(t *testing.T) {
	boom := errors.New("model unavailable")
	exec := &fakeExecutor{
		reply: func(req agent.Request) (agent.Response, error) {
			if strings.HasPrefix(req.Prompt, "write the report") {
				return agent.Response{}, boom
			}
			return agent.Response{Text: "ok", PromptTokens: 1, CompletionTokens: 1}, nil
		},
	}
	c, _ := newSequentialCrew(t, exec)

	_, err := c.Kickoff(context.Background(), nil)
	if err == nil {
		t.Fatal("Kickoff() should fail when a task fails")
	}
	if !errors.Is(err, boom) {
		t.Errorf("error should wrap the executor failure, got %v", err)
	}
	if !strings.Contains(err.Error(), `task "write"`) {
		t.Errorf("error should name the failing task, got %v", err)
	}
}

func TestKickoffCallbacksAndEvents(t *testing.T) {
	exec := &fakeExecutor{}

	var callbackResults []models.TaskResult
	var events []Event

	worker := newTestAgent(t, "Worker", exec)
	withOwn := &Task{ID: "a", Description: "first", ExpectedOutput: "out", Agent: worker}
	ownCalled := 0
	withOwn.Callback = func(models.TaskResult) { ownCalled++ }

	c, err := New(Config{
		Agents:         []*agent.Agent{worker},
		Tasks:          []*Task{withOwn, {ID: "b", Description: "second", ExpectedOutput: "out", Agent: worker}},
		CheckpointPath: filepath.Join(t.TempDir(), "tasks.json"),
		TaskCallback:   func(r models.TaskResult) { callbackResults = append(callbackResults, r) },
		EventSink:      func(e Event) { events = append(events, e) },
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if _, err := c.Kickoff(context.Background(), nil); err != nil {
		t.Fatalf("Kickoff() error = %v", err)
	}

	if ownCalled != 1 {
		t.Errorf("task-level callback fired %d times, want 1", ownCalled)
	}
	if len(callbackResults) != 2 {
		t.Errorf("crew-level callback fired %d times, want 2", len(callbackResults))
	}

	var types []EventType
	for _, e := range events {
		types = append(types, e.Type)
	}
	want := []EventType{EventTaskStarted, EventTaskCompleted, EventTaskStarted, EventTaskCompleted, EventRunDone}
	if len(types) != len(want) {
		t.Fatalf("events = %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("events = %v, want %v", types, want)
		}
	}
}

func TestKickoffAsync(t *testing.T) {
	exec := &fakeExecutor{}
	c, _ := newSequentialCrew(t, exec)

	future := c.KickoffAsync(context.Background(), nil)
	result, err := future.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if len(result.TasksOutput) != 2 {
		t.Errorf("expected 2 task outputs, got %d", len(result.TasksOutput))
	}

	select {
	case <-future.Done():
	default:
		t.Error("Done() channel should be closed after Wait returns")
	}
}

func TestKickoffForEach(t *testing.T) {
	exec := &fakeExecutor{}
	worker := newTestAgent(t, "Worker", exec)
	task := &Task{ID: "a", Description: "summarize {topic}", ExpectedOutput: "out", Agent: worker}

	base := filepath.Join(t.TempDir(), "tasks.json")
	c, err := New(Config{
		Agents:         []*agent.Agent{worker},
		Tasks:          []*Task{task},
		CheckpointPath: base,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	inputSets := []map[string]string{
		{"topic": "first"},
		{"topic": "second"},
	}
	results, err := c.KickoffForEach(context.Background(), inputSets)
	if err != nil {
		t.Fatalf("KickoffForEach() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if !strings.Contains(results[0].Raw, "first") || !strings.Contains(results[1].Raw, "second") {
		t.Errorf("results not in input order: %q, %q", results[0].Raw, results[1].Raw)
	}

	// The original crew never ran: its task has no output and its
	// agents recorded no usage.
	if task.Output() != nil {
		t.Error("original crew's task should be untouched")
	}
	if usage := c.Usage(); usage.SuccessfulRequests != 0 {
		t.Errorf("original crew recorded usage %+v", usage)
	}
}

func TestKickoffForEachAsync(t *testing.T) {
	exec := &fakeExecutor{}
	worker := newTestAgent(t, "Worker", exec)
	task := &Task{ID: "a", Description: "summarize {topic}", ExpectedOutput: "out", Agent: worker}

	c, err := New(Config{
		Agents:         []*agent.Agent{worker},
		Tasks:          []*Task{task},
		CheckpointPath: filepath.Join(t.TempDir(), "tasks.json"),
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	inputSets := []map[string]string{
		{"topic": "alpha"},
		{"topic": "beta"},
		{"topic": "gamma"},
	}
	results, err := c.KickoffForEachAsync(context.Background(), inputSets)
	if err != nil {
		t.Fatalf("KickoffForEachAsync() error = %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i, want := range []string{"alpha", "beta", "gamma"} {
		if !strings.Contains(results[i].Raw, want) {
			t.Errorf("result %d = %q, want it to mention %q", i, results[i].Raw, want)
		}
	}
}

func TestKickoffNoTaskOutput(t *testing.T) {
	// Constructing a crew with zero tasks fails validation, so the
	// empty-output guard is exercised directly against the engine.
	exec := &fakeExecutor{}
	c, _ := newSequentialCrew(t, exec)
	c.tasks = nil

	if err := c.log.Initialize(); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	eng := newEngine(c, nil, false)
	_, err := eng.run(context.Background(), 0, nil)
	if !errors.Is(err, ErrNoTaskOutput) {
		t.Errorf("error = %v, want ErrNoTaskOutput", err)
	}
}
