package models

import "context"

// Tool is a named capability an agent can invoke while executing a task.
// Run receives the tool input (a JSON document for structured tools) and
// returns the tool's text output.
type Tool struct {
	// Name is the tool's unique name within a tool set.
	Name string `json:"name"`
	// Description tells the agent what the tool does and how to call it.
	Description string `json:"description"`
	// Schema describes the tool's input properties, keyed by property name.
	Schema map[string]ToolProperty `json:"schema,omitempty"`
	// Required lists the property names that must be present in the input.
	Required []string `json:"required,omitempty"`
	// Run executes the tool.
	Run func(ctx context.Context, input string) (string, error) `json:"-"`
}

// ToolProperty describes one input property of a tool.
type ToolProperty struct {
	// Type is the JSON type of the property.
	Type string `json:"type"`
	// Description explains the property to the agent.
	Description string `json:"description"`
}

// CloneTools returns a copy of the tool slice. Tool values are copied
// shallowly; Run functions are shared, which is safe because tools are
// stateless closures over their targets.
func CloneTools(tools []Tool) []Tool {
	if tools == nil {
		return nil
	}
	out := make([]Tool, len(tools))
	copy(out, tools)
	return out
}
