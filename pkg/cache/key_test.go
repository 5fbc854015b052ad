package cache

import (
	"testing"

	"promptops-hq/promptops/pkg/providers"
)

func sampleRequest() Request {
	return Request{
		Messages: []providers.Message{
			{Role: "system", Content: "be brief"},
			{Role: "user", Content: "what is a monad?"},
		},
		Provider: "openai",
		Model:    "gpt-4o",
		Params: map[string]any{
			"temperature": 0.7,
			"max_tokens":  256,
		},
	}
}

func TestDeriveKey_Deterministic(t *testing.T) {
	// Same logical request with params inserted in a different order
	r1 := sampleRequest()
	r2 := sampleRequest()
	r2.Params = map[string]any{
		"max_tokens":  256,
		"temperature": 0.7,
	}

	if DeriveKey(r1) != DeriveKey(r2) {
		t.Error("Expected identical keys regardless of parameter insertion order")
	}

	if DeriveKey(r1) != DeriveKey(r1) {
		t.Error("Expected key derivation to be stable across calls")
	}
}

func TestDeriveKey_Discrimination(t *testing.T) {
	base := DeriveKey(sampleRequest())

	tests := []struct {
		name   string
		mutate func(*Request)
	}{
		{"message content", func(r *Request) { r.Messages[1].Content = "what is a functor?" }},
		{"message role", func(r *Request) { r.Messages[1].Role = "assistant" }},
		{"provider", func(r *Request) { r.Provider = "anthropic" }},
		{"model", func(r *Request) { r.Model = "gpt-4o-mini" }},
		{"param value", func(r *Request) { r.Params["temperature"] = 0.8 }},
		{"extra param", func(r *Request) { r.Params["top_p"] = 0.9 }},
		{"dropped message", func(r *Request) { r.Messages = r.Messages[:1] }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := sampleRequest()
			tt.mutate(&req)
			if DeriveKey(req) == base {
				t.Errorf("Expected key to change when %s changes", tt.name)
			}
		})
	}
}

func TestDeriveKey_Length(t *testing.T) {
	// SHA-256 hex: 64 characters
	if key := DeriveKey(sampleRequest()); len(key) != 64 {
		t.Errorf("Expected 64-character key, got %d", len(key))
	}
}

func TestDeriveContentHash_IgnoresProviderAndModel(t *testing.T) {
	a := []byte(`{"content": "the answer is 42", "provider": "openai", "model": "gpt-4o", "usage": {"input_tokens": 5, "output_tokens": 7}}`)
	b := []byte(`{"content": "the answer is 42", "provider": "anthropic", "model": "claude-sonnet-4-20250514"}`)

	if DeriveContentHash(a) != DeriveContentHash(b) {
		t.Error("Expected identical content to hash identically across providers and models")
	}
}

func TestDeriveContentHash_DiffersOnContent(t *testing.T) {
	a := []byte(`{"content": "the answer is 42"}`)
	b := []byte(`{"content": "the answer is 43"}`)

	if DeriveContentHash(a) == DeriveContentHash(b) {
		t.Error("Expected different content to hash differently")
	}
}

func TestDeriveContentHash_NonObjectBody(t *testing.T) {
	// Whole-body hashing for non-object responses, whitespace-insensitive
	a := []byte(`["alpha","beta"]`)
	b := []byte(`[ "alpha", "beta" ]`)

	if DeriveContentHash(a) != DeriveContentHash(b) {
		t.Error("Expected compacted hashing for non-object bodies")
	}
}
