package llm

import "context"

// Options carries per-invocation directives that travel alongside the prompt
// text rather than inside it.
type Options struct {
	Temperature float32 // minimal sampling temperature by default
}

// TokenUsage is the backend's token accounting for one invocation.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// Add accumulates usage across attempts.
func (u *TokenUsage) Add(o TokenUsage) {
	u.InputTokens += o.InputTokens
	u.OutputTokens += o.OutputTokens
	u.TotalTokens += o.TotalTokens
}

// RawOutput is the opaque text returned by the model for one attempt,
// retained only for diagnostics.
type RawOutput struct {
	Text   string
	Tokens TokenUsage
}

// Invoker is the interface the extraction pipeline depends on. One outbound
// model call per invocation; transport-level retries happen inside the
// implementation, schema-repair retries happen above it.
type Invoker interface {
	Invoke(ctx context.Context, prompt string, opts Options) (RawOutput, error)
}
