// Package providers implements minimal chat clients for LLM providers.
//
// # Capability Interface
//
// Provider has one required operation, Chat. Concrete provider types share
// no state, so there is no base type or inheritance; anything with a Chat
// method is a provider.
//
// # Default-Deny Network Posture
//
// Constructors return (Provider, DisabledReason) rather than failing.
// A provider is only usable when three conditions hold simultaneously:
// it is enabled in configuration, network access is explicitly allowed,
// and a credential is present. Callers branch on the DisabledReason value:
//
//	p, reason := providers.NewOpenAI(cfg.Providers["openai"])
//	if !reason.Enabled() {
//	    return fmt.Errorf("openai unavailable: %s", reason)
//	}
//	resp, err := p.Chat(ctx, messages, opts)
package providers
