// Package config provides configuration loading and validation for the
// PromptOps cost engine.
//
// Configuration is loaded from a YAML file with optional environment
// variable overrides (PROMPTOPS_SECTION_FIELD naming). Defaults are applied
// before validation, so a minimal or empty file yields a working
// configuration.
//
// Default storage locations follow platform conventions (user cache
// directory for the response cache, user config directory for the budget
// store) and are resolved once at startup via ResolveCacheDir and
// ResolveDataDir; engine components never read the environment directly.
package config
