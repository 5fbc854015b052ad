package providers

import (
	"context"

	"promptops-hq/promptops/pkg/config"
)

// Provider is the capability interface for LLM chat backends. A provider
// has exactly one required operation; implementations share no state and
// need no common base type.
//
// All methods accept a context.Context for cancellation and timeout
// control.
type Provider interface {
	// Chat sends a chat request and returns the normalized response.
	Chat(ctx context.Context, messages []Message, opts ChatOptions) (*Response, error)

	// Name returns the provider name (e.g., "openai", "anthropic").
	Name() string
}

// DisabledReason explains why a provider cannot be used. An empty value
// means the provider is enabled.
//
// Network access is denied by default: construction succeeds but yields a
// non-empty DisabledReason unless the provider is enabled in configuration,
// network access is explicitly allowed, and a credential is present. All
// three are required. Callers branch on the value rather than catching a
// construction failure.
type DisabledReason string

// Known disabled reasons.
const (
	// ReasonNotEnabled indicates the provider is not enabled in configuration.
	ReasonNotEnabled DisabledReason = "provider not enabled in configuration"

	// ReasonNetworkNotAllowed indicates allow_network was not set.
	ReasonNetworkNotAllowed DisabledReason = "network access not explicitly allowed"

	// ReasonNoCredential indicates no API key is configured.
	ReasonNoCredential DisabledReason = "no credential configured"
)

// Enabled reports whether the provider may be used.
func (r DisabledReason) Enabled() bool { return r == "" }

// String returns the reason text.
func (r DisabledReason) String() string { return string(r) }

// disabledReasonFor derives the default-deny gate for a provider
// configuration. The checks are ordered most fundamental first.
func disabledReasonFor(cfg config.ProviderConfig) DisabledReason {
	if !cfg.Enabled {
		return ReasonNotEnabled
	}
	if !cfg.AllowNetwork {
		return ReasonNetworkNotAllowed
	}
	if cfg.APIKey == "" {
		return ReasonNoCredential
	}
	return ""
}
