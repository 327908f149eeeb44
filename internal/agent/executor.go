// Package agent provides the worker-agent implementation dispatched by the
// crew engine: identity, tool set, usage tracking, and the pluggable
// executor backend that performs the underlying model calls.
package agent

import (
	"context"

	"github.com/crewkit/crewkit/pkg/models"
)

// Request is one logical invocation handed to an Executor.
type Request struct {
	// System is the system prompt derived from the agent's identity.
	System string
	// Prompt is the task prompt, including expected output and context.
	Prompt string
	// Tools are the capabilities available for this invocation.
	Tools []models.Tool
	// Gate, when non-nil, must be acquired before each underlying call
	// after the first; the first permit is acquired by the agent.
	Gate Gate
}

// Response is the outcome of one logical invocation.
type Response struct {
	// Text is the final text produced by the backend.
	Text string
	// PromptTokens is the number of input tokens consumed.
	PromptTokens int64
	// CompletionTokens is the number of output tokens produced.
	CompletionTokens int64
}

// Executor performs the underlying model invocation for an agent. The crew
// core never calls an Executor directly; it always goes through an Agent.
type Executor interface {
	Invoke(ctx context.Context, req Request) (Response, error)
}

// Gate is the per-call permit acquired before each underlying call.
// Satisfied by *ratelimit.Controller; a nil Gate means unlimited.
type Gate interface {
	Acquire(ctx context.Context) error
}
