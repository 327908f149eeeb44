package agent

import (
	"encoding/json"
	"fmt"
	"os"
)

// ManagerSection is the prompt section holding the default hierarchical
// manager's identity template.
const ManagerSection = "hierarchical_manager_agent"

// defaultPrompts are the built-in identity templates, overridable by a
// caller-supplied prompt file.
var defaultPrompts = map[string]map[string]string{
	ManagerSection: {
		"role":      "Crew Manager",
		"goal":      "Manage the team to complete the task in the best way possible.",
		"backstory": "You're a seasoned manager of an expert team. Your job is to delegate each task to the right coworker, review their work, and make sure the task is completed to the highest standard.",
	},
}

// Prompts is a locale-resolvable source of identity templates. Entries in
// a caller-supplied JSON file override the built-in defaults per section.
type Prompts struct {
	entries map[string]map[string]string
}

// DefaultPrompts returns the built-in template source.
func DefaultPrompts() *Prompts {
	return &Prompts{entries: defaultPrompts}
}

// LoadPrompts reads a prompt file (a JSON object of sections, each a map
// of keys to template strings) and merges it over the defaults. An empty
// path returns the defaults.
func LoadPrompts(path string) (*Prompts, error) {
	if path == "" {
		return DefaultPrompts(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompt file: %w", err)
	}

	var override map[string]map[string]string
	if err := json.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("parse prompt file %s: %w", path, err)
	}

	merged := make(map[string]map[string]string, len(defaultPrompts))
	for section, keys := range defaultPrompts {
		merged[section] = make(map[string]string, len(keys))
		for k, v := range keys {
			merged[section][k] = v
		}
	}
	for section, keys := range override {
		if merged[section] == nil {
			merged[section] = make(map[string]string, len(keys))
		}
		for k, v := range keys {
			merged[section][k] = v
		}
	}

	return &Prompts{entries: merged}, nil
}

// Retrieve returns the template for a section key.
func (p *Prompts) Retrieve(section, key string) (string, error) {
	keys, ok := p.entries[section]
	if !ok {
		return "", fmt.Errorf("prompt section %q not found", section)
	}
	value, ok := keys[key]
	if !ok {
		return "", fmt.Errorf("prompt key %q not found in section %q", key, section)
	}
	return value, nil
}
