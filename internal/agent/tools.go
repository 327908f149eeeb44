package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/crewkit/crewkit/pkg/models"
)

// Names of the delegation capabilities granted to delegating actors.
const (
	DelegateWorkToolName = "delegate_work_to_coworker"
	AskQuestionToolName  = "ask_question_to_coworker"
)

// delegationInput is the parsed input of both delegation tools.
type delegationInput struct {
	Coworker string `json:"coworker"`
	Task     string `json:"task"`
	Question string `json:"question"`
	Context  string `json:"context"`
}

// DelegationTools builds the callable capability set that lets an actor
// route work to any of the target agents. Each target is addressable by
// role; the set never includes the delegating agent itself because the
// caller excludes it from targets.
func DelegationTools(targets []*Agent) []models.Tool {
	roles := make([]string, len(targets))
	for i, t := range targets {
		roles[i] = t.Role()
	}
	roster := strings.Join(roles, ", ")

	return []models.Tool{
		{
			Name:        DelegateWorkToolName,
			Description: fmt.Sprintf("Delegate a specific task to one of the following coworkers: %s. Input is a JSON object with keys \"coworker\", \"task\" and \"context\".", roster),
			Schema: map[string]models.ToolProperty{
				"coworker": {Type: "string", Description: "Role of the coworker to delegate to"},
				"task":     {Type: "string", Description: "The task to delegate"},
				"context":  {Type: "string", Description: "All context necessary to execute the task"},
			},
			Required: []string{"coworker", "task", "context"},
			Run:      delegateRun(targets, false),
		},
		{
			Name:        AskQuestionToolName,
			Description: fmt.Sprintf("Ask a specific question to one of the following coworkers: %s. Input is a JSON object with keys \"coworker\", \"question\" and \"context\".", roster),
			Schema: map[string]models.ToolProperty{
				"coworker": {Type: "string", Description: "Role of the coworker to ask"},
				"question": {Type: "string", Description: "The question to ask"},
				"context":  {Type: "string", Description: "All context necessary to answer the question"},
			},
			Required: []string{"coworker", "question", "context"},
			Run:      delegateRun(targets, true),
		},
	}
}

// delegateRun returns the tool body that resolves the coworker by role and
// executes the delegated work or question synchronously.
func delegateRun(targets []*Agent, question bool) func(ctx context.Context, input string) (string, error) {
	return func(ctx context.Context, input string) (string, error) {
		var in delegationInput
		if err := json.Unmarshal([]byte(input), &in); err != nil {
			return "", fmt.Errorf("parse delegation input: %w", err)
		}

		target := findByRole(targets, in.Coworker)
		if target == nil {
			return "", fmt.Errorf("coworker %q not found; available coworkers: %s", in.Coworker, rosterRoles(targets))
		}

		description := in.Task
		if question {
			description = in.Question
		}
		if description == "" {
			return "", fmt.Errorf("delegation input is missing the work to perform")
		}

		result, err := target.ExecuteTask(ctx, TaskSpec{
			Description:    description,
			ExpectedOutput: "Your best complete answer to the delegated work.",
			Context:        in.Context,
			Tools:          target.Tools(),
		})
		if err != nil {
			return "", err
		}
		return result.Raw, nil
	}
}

// findByRole matches a target agent by role, tolerating case and
// surrounding whitespace differences.
func findByRole(targets []*Agent, role string) *Agent {
	want := strings.ToLower(strings.TrimSpace(role))
	for _, t := range targets {
		if strings.ToLower(strings.TrimSpace(t.Role())) == want {
			return t
		}
	}
	return nil
}

func rosterRoles(targets []*Agent) string {
	roles := make([]string, len(targets))
	for i, t := range targets {
		roles[i] = t.Role()
	}
	return strings.Join(roles, ", ")
}
