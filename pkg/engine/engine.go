package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"promptops-hq/promptops/pkg/budget"
	"promptops-hq/promptops/pkg/cache"
	"promptops-hq/promptops/pkg/providers"
)

// ErrBudgetExceeded is returned by Execute when the admission check denies
// the call. The Result still carries the full decision.
var ErrBudgetExceeded = errors.New("budget exceeded")

// ErrUnknownProvider is returned when a request names a provider the
// engine has no backend for.
var ErrUnknownProvider = errors.New("unknown provider")

// defaultOutputEstimate is the completion-token guess used when a request
// sets no MaxTokens cap.
const defaultOutputEstimate = 500

// Config assembles an Engine. Cache and Budget are both optional: a nil
// cache makes every request a live call, a nil budget skips admission and
// spend recording.
type Config struct {
	Cache     *cache.Store
	Budget    *budget.Store
	Providers map[string]providers.Provider

	// DefaultTTL is the cache lifetime used when a request does not set
	// its own. Zero means cached entries never expire.
	DefaultTTL time.Duration

	// Reserve makes admission mint reservation tokens, so a spend is
	// only recorded against the admission that approved it.
	Reserve bool

	Logger *slog.Logger
}

// Engine runs chat requests through the full pipeline: budget admission,
// cache lookup, the provider call, spend recording, and cache fill.
type Engine struct {
	cache      *cache.Store
	budget     *budget.Store
	providers  map[string]providers.Provider
	defaultTTL time.Duration
	reserve    bool
	logger     *slog.Logger
}

// New creates an Engine from the given configuration.
func New(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default().With("component", "engine")
	}
	return &Engine{
		cache:      cfg.Cache,
		budget:     cfg.Budget,
		providers:  cfg.Providers,
		defaultTTL: cfg.DefaultTTL,
		reserve:    cfg.Reserve,
		logger:     logger,
	}
}

// Request is one chat request with its governance scope.
type Request struct {
	// Org and Project scope budget enforcement and spend attribution.
	// Both empty skips the budget entirely.
	Org     string
	Project string

	// Provider names the backend ("openai", "anthropic").
	Provider string

	Messages []providers.Message
	Options  providers.ChatOptions

	// EstimatedTotalTokens overrides the built-in token estimate used
	// for admission. Zero means estimate from the messages.
	EstimatedTotalTokens int

	// SkipCache bypasses the cache lookup and fill for this request.
	SkipCache bool

	// TTL overrides the engine default cache lifetime for this entry.
	TTL time.Duration
}

// Result is the outcome of one Execute call.
type Result struct {
	Response *providers.Response

	// Cached reports whether the response came from the cache. Cached
	// responses cost nothing and record no spend.
	Cached bool

	// CacheKey is the derived key for this request, set whenever the
	// cache was consulted.
	CacheKey string

	// Decision is the admission decision, nil when no budget check ran.
	Decision *budget.Decision

	// CostUSD is the recorded cost of the call. Zero for cache hits and
	// for calls with unknown pricing.
	CostUSD float64
}

// Execute runs one request through the pipeline. A cache hit short
// circuits before admission, so replaying a cached response never touches
// the budget. Failures after the provider call (recording spend, filling
// the cache) are logged and do not fail the request: the caller already
// paid for the response and gets it back.
func (e *Engine) Execute(ctx context.Context, req Request) (*Result, error) {
	result := &Result{}

	cacheReq := cache.Request{
		Messages: req.Messages,
		Provider: req.Provider,
		Model:    req.Options.Model,
		Params:   paramsFor(req.Options),
	}

	if e.cache != nil && !req.SkipCache {
		result.CacheKey = cache.DeriveKey(cacheReq)
		entry, err := e.cache.Get(ctx, cacheReq)
		if err != nil {
			return nil, fmt.Errorf("cache lookup failed: %w", err)
		}
		if entry != nil {
			resp := &providers.Response{}
			if err := json.Unmarshal(entry.Body, resp); err != nil {
				return nil, fmt.Errorf("failed to decode cached response: %w", err)
			}
			result.Response = resp
			result.Cached = true
			return result, nil
		}
	}

	if e.budget != nil && (req.Org != "" || req.Project != "") {
		decision, err := e.admit(ctx, req)
		if err != nil {
			return nil, err
		}
		result.Decision = decision
		if !decision.Approved {
			return result, fmt.Errorf("%w: %s", ErrBudgetExceeded, decision.Reason)
		}
	}

	backend, ok := e.providers[req.Provider]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, req.Provider)
	}

	resp, err := backend.Chat(ctx, req.Messages, req.Options)
	if err != nil {
		return nil, fmt.Errorf("provider call failed: %w", err)
	}
	result.Response = resp

	if e.budget != nil && (req.Org != "" || req.Project != "") {
		entry := budget.SpendEntry{
			Org:          req.Org,
			Project:      req.Project,
			Provider:     req.Provider,
			Model:        resp.Model,
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
		}
		if entry.Model == "" {
			entry.Model = req.Options.Model
		}
		if result.Decision != nil {
			entry.Reservation = result.Decision.Reservation
		}
		cost, err := e.budget.RecordSpend(ctx, entry)
		if err != nil {
			e.logger.Warn("failed to record spend",
				"org", req.Org, "project", req.Project, "error", err)
		} else {
			result.CostUSD = cost
		}
	}

	if e.cache != nil && !req.SkipCache {
		ttl := req.TTL
		if ttl == 0 {
			ttl = e.defaultTTL
		}
		if err := e.cache.Put(ctx, cacheReq, resp, ttl); err != nil {
			e.logger.Warn("failed to cache response",
				"key", result.CacheKey, "error", err)
		}
	}

	return result, nil
}

func (e *Engine) admit(ctx context.Context, req Request) (*budget.Decision, error) {
	estimate := req.EstimatedTotalTokens
	if estimate <= 0 {
		estimate = estimateTokens(req.Messages, req.Options)
	}

	check := e.budget.CheckBudgetBeforeCall
	if e.reserve {
		check = e.budget.CheckAndReserve
	}
	decision, err := check(ctx, req.Org, req.Project, req.Provider, req.Options.Model, estimate)
	if err != nil {
		return nil, fmt.Errorf("admission check failed: %w", err)
	}
	return decision, nil
}

// estimateTokens guesses the total token count of a prospective call: four
// characters per prompt token plus the completion cap, or a flat default
// when the call is uncapped.
func estimateTokens(messages []providers.Message, opts providers.ChatOptions) int {
	chars := 0
	for _, m := range messages {
		chars += len(m.Content)
	}
	input := chars / 4
	output := opts.MaxTokens
	if output <= 0 {
		output = defaultOutputEstimate
	}
	return input + output
}

// paramsFor flattens chat options into the parameter map hashed into the
// cache key. Only parameters that change the completion belong here.
func paramsFor(opts providers.ChatOptions) map[string]any {
	params := make(map[string]any, len(opts.Extra)+2)
	for k, v := range opts.Extra {
		params[k] = v
	}
	if opts.MaxTokens > 0 {
		params["max_tokens"] = opts.MaxTokens
	}
	if opts.Temperature != 0 {
		params["temperature"] = opts.Temperature
	}
	if len(params) == 0 {
		return nil
	}
	return params
}
