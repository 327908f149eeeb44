package agent

import (
	"sync"

	"github.com/crewkit/crewkit/pkg/models"
)

// Tracker accumulates token usage across an agent's invocations.
type Tracker struct {
	mu    sync.Mutex
	usage models.UsageMetrics
}

// NewTracker creates an empty usage tracker.
func NewTracker() *Tracker {
	return &Tracker{}
}

// Record adds one completed call's token counts to the running totals.
func (t *Tracker) Record(promptTokens, completionTokens int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.usage.PromptTokens += promptTokens
	t.usage.CompletionTokens += completionTokens
	t.usage.TotalTokens += promptTokens + completionTokens
	t.usage.SuccessfulRequests++
}

// Summary returns a copy of the accumulated metrics.
func (t *Tracker) Summary() models.UsageMetrics {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.usage
}

// Reset clears all tracked usage.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.usage = models.UsageMetrics{}
}
