package models

// UsageMetrics holds resource-usage counters for an agent or a whole crew.
type UsageMetrics struct {
	// TotalTokens is PromptTokens + CompletionTokens.
	TotalTokens int64 `json:"total_tokens"`
	// PromptTokens is the number of input tokens consumed.
	PromptTokens int64 `json:"prompt_tokens"`
	// CompletionTokens is the number of output tokens produced.
	CompletionTokens int64 `json:"completion_tokens"`
	// SuccessfulRequests is the number of completed underlying calls.
	SuccessfulRequests int64 `json:"successful_requests"`
}

// Add accumulates another set of metrics into this one.
func (u *UsageMetrics) Add(other UsageMetrics) {
	u.TotalTokens += other.TotalTokens
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.SuccessfulRequests += other.SuccessfulRequests
}
