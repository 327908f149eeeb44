package state

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/crewkit/crewkit/pkg/models"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return db
}

func TestMigrateIdempotent(t *testing.T) {
	db := openTestDB(t)
	// A second migration pass is a no-op.
	if err := db.Migrate(); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
}

func TestCreateGetRun(t *testing.T) {
	db := openTestDB(t)

	started := time.Now().UTC().Truncate(time.Millisecond)
	run := &Run{
		ID:        "run-1",
		CrewName:  "research-crew",
		Process:   "sequential",
		StartedAt: started,
		Status:    RunActive,
	}
	if err := db.CreateRun(run); err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}

	got, err := db.GetRun("run-1")
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if got == nil {
		t.Fatal("GetRun() returned nil for existing run")
	}
	if got.CrewName != "research-crew" || got.Process != "sequential" {
		t.Errorf("got %+v", got)
	}
	if got.Status != RunActive {
		t.Errorf("Status = %q", got.Status)
	}
	if !got.StartedAt.Equal(started) {
		t.Errorf("StartedAt = %v, want %v", got.StartedAt, started)
	}
	if got.FinishedAt != nil {
		t.Errorf("FinishedAt = %v, want nil", got.FinishedAt)
	}
}

func TestGetRunNotFound(t *testing.T) {
	db := openTestDB(t)
	got, err := db.GetRun("missing")
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if got != nil {
		t.Errorf("GetRun() = %+v, want nil", got)
	}
}

func TestUpdateRun(t *testing.T) {
	db := openTestDB(t)

	run := &Run{
		ID:        "run-2",
		CrewName:  "crew",
		Process:   "hierarchical",
		StartedAt: time.Now().UTC(),
		Status:    RunActive,
		Replay:    true,
	}
	if err := db.CreateRun(run); err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}

	finished := time.Now().UTC().Truncate(time.Millisecond)
	run.FinishedAt = &finished
	run.Status = RunCompleted
	run.FinalOutput = "all done"
	run.Usage = models.UsageMetrics{TotalTokens: 100, PromptTokens: 60, CompletionTokens: 40, SuccessfulRequests: 3}
	if err := db.UpdateRun(run); err != nil {
		t.Fatalf("UpdateRun() error = %v", err)
	}

	got, err := db.GetRun("run-2")
	if err != nil {
		t.Fatalf("GetRun() error = %v", err)
	}
	if got.Status != RunCompleted {
		t.Errorf("Status = %q", got.Status)
	}
	if !got.Replay {
		t.Error("Replay flag lost")
	}
	if got.FinalOutput != "all done" {
		t.Errorf("FinalOutput = %q", got.FinalOutput)
	}
	if got.FinishedAt == nil || !got.FinishedAt.Equal(finished) {
		t.Errorf("FinishedAt = %v, want %v", got.FinishedAt, finished)
	}
	if got.Usage.TotalTokens != 100 || got.Usage.SuccessfulRequests != 3 {
		t.Errorf("Usage = %+v", got.Usage)
	}
}

func TestListRuns(t *testing.T) {
	db := openTestDB(t)

	base := time.Now().UTC().Add(-time.Hour)
	for i, id := range []string{"first", "second", "third"} {
		run := &Run{
			ID:        id,
			CrewName:  "crew",
			Process:   "sequential",
			StartedAt: base.Add(time.Duration(i) * time.Minute),
			Status:    RunCompleted,
		}
		if err := db.CreateRun(run); err != nil {
			t.Fatalf("CreateRun(%s) error = %v", id, err)
		}
	}

	runs, err := db.ListRuns(2)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	// Most recent first.
	if runs[0].ID != "third" || runs[1].ID != "second" {
		t.Errorf("order = %s, %s", runs[0].ID, runs[1].ID)
	}

	all, err := db.ListRuns(0)
	if err != nil {
		t.Fatalf("ListRuns(0) error = %v", err)
	}
	if len(all) != 3 {
		t.Errorf("default limit returned %d runs", len(all))
	}
}
