package providers

// Message is a single chat message in a provider request.
type Message struct {
	// Role is the message author role ("system", "user", "assistant").
	Role string `json:"role"`

	// Content is the message text.
	Content string `json:"content"`
}

// ChatOptions contains optional request parameters passed through to the
// provider. A nil map is equivalent to an empty one.
type ChatOptions struct {
	// Model is the model to use for this call.
	Model string `json:"model"`

	// MaxTokens caps the completion length. Zero means provider default.
	MaxTokens int `json:"max_tokens,omitempty"`

	// Temperature controls sampling randomness.
	Temperature float64 `json:"temperature,omitempty"`

	// Extra carries any additional provider parameters.
	Extra map[string]any `json:"extra,omitempty"`
}

// Usage contains token counts reported by a provider for one call.
type Usage struct {
	// InputTokens is the number of prompt tokens consumed.
	InputTokens int `json:"input_tokens"`

	// OutputTokens is the number of completion tokens produced.
	OutputTokens int `json:"output_tokens"`
}

// Response is the provider-agnostic result of a chat call.
type Response struct {
	// Content is the completion text. This is the semantic payload used
	// for content hashing; provider, model, and timestamps are excluded.
	Content string `json:"content"`

	// Provider is the provider that produced the response.
	Provider string `json:"provider,omitempty"`

	// Model is the model that produced the response.
	Model string `json:"model,omitempty"`

	// Usage contains token counts for the call.
	Usage Usage `json:"usage"`
}
