package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"promptops-hq/promptops/pkg/providers"
)

// Request identifies a logical LLM request for cache purposes.
type Request struct {
	// Messages is the chat message array.
	Messages []providers.Message

	// Provider and Model identify the backend the request targets.
	Provider string
	Model    string

	// Params contains any extra request parameters (temperature,
	// max_tokens, and so on). Insertion order never affects the key.
	Params map[string]any
}

// canonicalRequest is the representation hashed for key derivation.
// encoding/json emits map keys in sorted order, so Params is canonical
// regardless of insertion order.
type canonicalRequest struct {
	Messages []providers.Message `json:"messages"`
	Provider string              `json:"provider"`
	Model    string              `json:"model"`
	Params   map[string]any      `json:"params,omitempty"`
}

// DeriveKey maps a normalized request to its cache key: the SHA-256 digest
// of the canonical request representation, hex encoded. Two logically
// identical requests always derive the same key; any change to a message,
// the provider, the model, or a parameter value changes it.
func DeriveKey(req Request) string {
	data, err := json.Marshal(canonicalRequest{
		Messages: req.Messages,
		Provider: req.Provider,
		Model:    req.Model,
		Params:   req.Params,
	})
	if err != nil {
		// Only unmarshalable parameter values (channels, funcs) can land
		// here; hash the failure mode instead of panicking.
		data = []byte("unhashable:" + err.Error())
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// DeriveContentHash maps a response body to its content hash: the SHA-256
// digest of only the semantic content, hex encoded. Provider, model, and
// timestamp fields are excluded so that identical text produced by
// different providers or models hashes identically. Used for duplicate
// detection, never for cache lookup.
//
// For a JSON object body the "content" field is hashed when present and a
// string; any other body is hashed whole, compacted.
func DeriveContentHash(body []byte) string {
	var obj map[string]any
	if err := json.Unmarshal(body, &obj); err == nil {
		if content, ok := obj["content"].(string); ok {
			sum := sha256.Sum256([]byte(content))
			return hex.EncodeToString(sum[:])
		}
	}

	var compact any
	if err := json.Unmarshal(body, &compact); err == nil {
		if data, err := json.Marshal(compact); err == nil {
			sum := sha256.Sum256(data)
			return hex.EncodeToString(sum[:])
		}
	}

	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}
