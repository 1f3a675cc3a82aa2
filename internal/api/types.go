package api

// Identity is the backend's view of the current session.
// GET /api/me returns {"authenticated": false} for anonymous callers.
type Identity struct {
	Authenticated bool   `json:"authenticated"`
	Username      string `json:"username,omitempty"`
	Role          string `json:"role,omitempty"`
}

// Email is a single message from the simulated inbox. The backend owns
// the content; clients treat it as read-only.
type Email struct {
	ID      int    `json:"id"`
	Sender  string `json:"sender"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	Date    string `json:"date,omitempty"`
}

// Quota reports the remaining summarization allowance for the session.
type Quota struct {
	Remaining int `json:"remaining"`
	Limit     int `json:"limit"`
}

// PromptEngineeringMode selects how the summarization prompt is assembled.
type PromptEngineeringMode string

// Prompt-engineering modes accepted by the backend.
const (
	PromptEngineeringDisabled     PromptEngineeringMode = "disabled"
	PromptEngineeringBasic        PromptEngineeringMode = "basic"
	PromptEngineeringSystem       PromptEngineeringMode = "system"
	PromptEngineeringSpotlighting PromptEngineeringMode = "system+spotlighting"
)

// Valid reports whether the mode is one of the closed set.
func (m PromptEngineeringMode) Valid() bool {
	switch m {
	case PromptEngineeringDisabled, PromptEngineeringBasic,
		PromptEngineeringSystem, PromptEngineeringSpotlighting:
		return true
	}
	return false
}

// InjectionFilterMode selects the backend prompt-injection scanner.
type InjectionFilterMode string

// Prompt-injection filter modes accepted by the backend.
const (
	InjectionFilterDisabled        InjectionFilterMode = "disabled"
	InjectionFilterMetaPromptGuard InjectionFilterMode = "meta-prompt-guard"
	InjectionFilterAzureShields    InjectionFilterMode = "azure-prompt-shields"
	InjectionFilterAWSGuardrails   InjectionFilterMode = "aws-bedrock-guardrails"
)

// Valid reports whether the mode is one of the closed set.
func (m InjectionFilterMode) Valid() bool {
	switch m {
	case InjectionFilterDisabled, InjectionFilterMetaPromptGuard,
		InjectionFilterAzureShields, InjectionFilterAWSGuardrails:
		return true
	}
	return false
}

// DelimiterFilterMode selects how email delimiters in document text are
// neutralized before prompting.
type DelimiterFilterMode string

// Delimiter-filtering modes accepted by the backend.
const (
	DelimiterFilterDisabled DelimiterFilterMode = "disabled"
	DelimiterFilterRemove   DelimiterFilterMode = "remove"
	DelimiterFilterEscape   DelimiterFilterMode = "escape"
)

// Valid reports whether the mode is one of the closed set.
func (m DelimiterFilterMode) Valid() bool {
	switch m {
	case DelimiterFilterDisabled, DelimiterFilterRemove, DelimiterFilterEscape:
		return true
	}
	return false
}

// ModelInfo is one entry of the backend's model catalog, attached to the
// llm section of every fetched config.
type ModelInfo struct {
	Key     string `json:"key"`
	Label   string `json:"label,omitempty"`
	Enabled bool   `json:"enabled"`
}

// LLMConfig names the selected model and carries the catalog.
type LLMConfig struct {
	Selected string      `json:"selected"`
	Models   []ModelInfo `json:"models,omitempty"`
}

// PromptEngineeringConfig is the prompt_engineering config section.
type PromptEngineeringConfig struct {
	Mode PromptEngineeringMode `json:"mode"`
}

// InjectionFilterConfig is the prompt_injection_filter config section.
type InjectionFilterConfig struct {
	Mode InjectionFilterMode `json:"mode"`
}

// DelimiterFilterConfig is the delimiter-filtering config section.
type DelimiterFilterConfig struct {
	Mode DelimiterFilterMode `json:"mode"`
}

// LoggingConfig is the logging config section. Verbose is a backend
// setting; the client only round-trips it.
type LoggingConfig struct {
	Verbose bool `json:"verbose"`
}

// Config is the defense-pipeline configuration. It is mutated wholesale:
// fetched and pushed as a complete record. The delimiter-filtering key is
// hyphenated on the wire, matching the backend's TOML section name.
type Config struct {
	LLM                   LLMConfig               `json:"llm"`
	PromptEngineering     PromptEngineeringConfig `json:"prompt_engineering"`
	PromptInjectionFilter InjectionFilterConfig   `json:"prompt_injection_filter"`
	DelimiterFiltering    DelimiterFilterConfig   `json:"delimiter-filtering"`
	Logging               LoggingConfig           `json:"logging"`
}

// ConfigUpdateResult is the backend's response to a config update.
// The echoed Config is canonical; the submitted value is not.
type ConfigUpdateResult struct {
	Message string  `json:"message"`
	Config  *Config `json:"config"`
}

// SummarizeResult holds the backend's summary. Some deployments return
// the text under "result" instead of "summary".
type SummarizeResult struct {
	Summary string `json:"summary"`
	Result  string `json:"result,omitempty"`
}

// SignupKey is one signup token as listed by the backend.
type SignupKey struct {
	Token     string `json:"token"`
	Revoked   bool   `json:"revoked"`
	CreatedAt string `json:"created_at"`
	UsedBy    string `json:"used_by"`
}

// User is one account row from the admin user listing.
type User struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// TokenUsage accumulates prompt and completion token counts per model.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}
