package agent

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultPrompts(t *testing.T) {
	p := DefaultPrompts()

	role, err := p.Retrieve(ManagerSection, "role")
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	if role != "Crew Manager" {
		t.Errorf("role = %q", role)
	}

	if _, err := p.Retrieve(ManagerSection, "goal"); err != nil {
		t.Errorf("goal missing: %v", err)
	}
	if _, err := p.Retrieve(ManagerSection, "backstory"); err != nil {
		t.Errorf("backstory missing: %v", err)
	}

	if _, err := p.Retrieve("nope", "role"); err == nil {
		t.Error("unknown section should fail")
	}
	if _, err := p.Retrieve(ManagerSection, "nope"); err == nil {
		t.Error("unknown key should fail")
	}
}

func TestLoadPrompts(t *testing.T) {
	t.Run("empty path returns defaults", func(t *testing.T) {
		p, err := LoadPrompts("")
		if err != nil {
			t.Fatalf("LoadPrompts() error = %v", err)
		}
		role, _ := p.Retrieve(ManagerSection, "role")
		if role != "Crew Manager" {
			t.Errorf("role = %q", role)
		}
	})

	t.Run("file overrides merge over defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "prompts.json")
		content := `{"hierarchical_manager_agent": {"role": "Project Lead"}}`
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("write prompt file: %v", err)
		}

		p, err := LoadPrompts(path)
		if err != nil {
			t.Fatalf("LoadPrompts() error = %v", err)
		}

		role, _ := p.Retrieve(ManagerSection, "role")
		if role != "Project Lead" {
			t.Errorf("role = %q, want override", role)
		}
		// Untouched keys keep their defaults.
		goal, err := p.Retrieve(ManagerSection, "goal")
		if err != nil || goal == "" {
			t.Errorf("goal = %q, err = %v", goal, err)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadPrompts(filepath.Join(t.TempDir(), "absent.json")); err == nil {
			t.Error("LoadPrompts() should fail for a missing file")
		}
	})

	t.Run("malformed file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.json")
		if err := os.WriteFile(path, []byte("{"), 0644); err != nil {
			t.Fatalf("write prompt file: %v", err)
		}
		if _, err := LoadPrompts(path); err == nil {
			t.Error("LoadPrompts() should fail for malformed JSON")
		}
	})
}
