package crew

import (
	"fmt"
	"strings"

	"github.com/crewkit/crewkit/pkg/models"
)

// contextSeparator joins the raw outputs feeding a task's input context.
const contextSeparator = "\n\n"

// resolveContext computes the input context visible to a task. With
// explicit context dependencies, the dependencies' flushed results are
// concatenated in declaration order. Otherwise the rolling output history
// is concatenated in flush order. This is the only path by which
// information flows between tasks.
func resolveContext(task *Task, flushed []models.TaskResult) (string, error) {
	if len(task.Context) > 0 {
		parts := make([]string, 0, len(task.Context))
		for _, dep := range task.Context {
			out := dep.Output()
			if out == nil {
				return "", fmt.Errorf("%w: task %q depends on %q", ErrContextNotReady, task.ID, dep.ID)
			}
			parts = append(parts, out.Raw)
		}
		return strings.Join(parts, contextSeparator), nil
	}

	parts := make([]string, 0, len(flushed))
	for _, r := range flushed {
		parts = append(parts, r.Raw)
	}
	return strings.Join(parts, contextSeparator), nil
}
