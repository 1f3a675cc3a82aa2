package mailbench

import (
	"context"
	"fmt"
	"sync"

	"github.com/mailbench/client-go/internal/api"
)

// Config is the defense-pipeline configuration: model selection, prompt
// engineering, injection filtering, delimiter filtering and backend
// logging. It is fetched and saved wholesale; there are no per-field
// updates on the wire.
type Config = api.Config

// Config section types.
type (
	LLMConfig               = api.LLMConfig
	ModelInfo               = api.ModelInfo
	PromptEngineeringConfig = api.PromptEngineeringConfig
	InjectionFilterConfig   = api.InjectionFilterConfig
	DelimiterFilterConfig   = api.DelimiterFilterConfig
	LoggingConfig           = api.LoggingConfig
)

// PromptEngineeringMode selects how the summarization prompt is assembled.
type PromptEngineeringMode = api.PromptEngineeringMode

// Prompt-engineering modes accepted by the backend.
const (
	PromptEngineeringDisabled     = api.PromptEngineeringDisabled
	PromptEngineeringBasic        = api.PromptEngineeringBasic
	PromptEngineeringSystem       = api.PromptEngineeringSystem
	PromptEngineeringSpotlighting = api.PromptEngineeringSpotlighting
)

// InjectionFilterMode selects the backend prompt-injection scanner.
type InjectionFilterMode = api.InjectionFilterMode

// Prompt-injection filter modes accepted by the backend.
const (
	InjectionFilterDisabled        = api.InjectionFilterDisabled
	InjectionFilterMetaPromptGuard = api.InjectionFilterMetaPromptGuard
	InjectionFilterAzureShields    = api.InjectionFilterAzureShields
	InjectionFilterAWSGuardrails   = api.InjectionFilterAWSGuardrails
)

// DelimiterFilterMode selects how email delimiters in document text are
// neutralized before prompting.
type DelimiterFilterMode = api.DelimiterFilterMode

// Delimiter-filtering modes accepted by the backend.
const (
	DelimiterFilterDisabled = api.DelimiterFilterDisabled
	DelimiterFilterRemove   = api.DelimiterFilterRemove
	DelimiterFilterEscape   = api.DelimiterFilterEscape
)

// configStore holds the last known-good configuration. A failed fetch or
// save never clears it; components keep reading the previous value.
type configStore struct {
	mu      sync.Mutex
	current *Config
}

func (s *configStore) get() *Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	cp := *s.current
	return &cp
}

func (s *configStore) set(cfg *Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *cfg
	s.current = &cp
}

// Config returns a copy of the last known-good configuration, or nil when
// none has been fetched yet.
func (c *Client) Config() *Config {
	return c.config.get()
}

// FetchConfig fetches the effective configuration and replaces the held
// value wholesale. On any failure, transport or validation, the previous
// value is retained.
func (c *Client) FetchConfig(ctx context.Context) error {
	if err := c.checkClosed(); err != nil {
		return err
	}

	cfg, err := c.apiClient.GetConfig(ctx)
	if err != nil {
		return wrapError(err)
	}
	if err := validateConfig(cfg); err != nil {
		return err
	}

	c.config.set(cfg)
	return nil
}

// SaveConfig pushes a full configuration to the backend. Admin only; a
// non-admin session gets ErrAdminRequired and no request is sent. The
// configuration echoed by the backend is adopted as the new held value,
// not the submitted one.
func (c *Client) SaveConfig(ctx context.Context, cfg *Config) error {
	if err := c.checkClosed(); err != nil {
		return err
	}
	if sess := c.session.get(); !sess.Authenticated || sess.Role != RoleAdmin {
		return ErrAdminRequired
	}
	if err := validateConfig(cfg); err != nil {
		return err
	}

	result, err := c.apiClient.UpdateConfig(ctx, cfg)
	if err != nil {
		return wrapError(err)
	}

	if result.Config != nil {
		c.config.set(result.Config)
	} else {
		c.config.set(cfg)
	}
	return nil
}

// validateConfig rejects mode values outside the closed sets before they
// reach the wire.
func validateConfig(cfg *Config) error {
	var errs []string
	if !cfg.PromptEngineering.Mode.Valid() {
		errs = append(errs, fmt.Sprintf("prompt_engineering: unknown mode %q", cfg.PromptEngineering.Mode))
	}
	if !cfg.PromptInjectionFilter.Mode.Valid() {
		errs = append(errs, fmt.Sprintf("prompt_injection_filter: unknown mode %q", cfg.PromptInjectionFilter.Mode))
	}
	if !cfg.DelimiterFiltering.Mode.Valid() {
		errs = append(errs, fmt.Sprintf("delimiter-filtering: unknown mode %q", cfg.DelimiterFiltering.Mode))
	}
	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// Models returns the model catalog from the held configuration.
func (c *Client) Models() []ModelInfo {
	cfg := c.config.get()
	if cfg == nil {
		return nil
	}
	out := make([]ModelInfo, len(cfg.LLM.Models))
	copy(out, cfg.LLM.Models)
	return out
}
