package config

import (
	"fmt"
	"time"

	"github.com/kestrel-ai/kestrel/internal/llm"
)

// LLMConfig configures the OpenAI-compatible provider the service talks
// to. The classic chat-completions wire shape is provider-agnostic, so a
// single BaseURL/APIKey/Model triple covers any compatible endpoint.
type LLMConfig struct {
	BaseURL         string        `yaml:"base_url,omitempty"`
	APIKey          string        `yaml:"api_key,omitempty"`
	Model           string        `yaml:"model,omitempty"`
	Temperature     float64       `yaml:"temperature,omitempty"`
	MaxInputTokens  int           `yaml:"max_input_tokens,omitempty"`
	MaxOutputTokens int           `yaml:"max_output_tokens,omitempty"`
	RequestTimeout  time.Duration `yaml:"request_timeout,omitempty"`

	// Profile selects one of Profiles to overlay on the base settings, so
	// one config file can carry several named model setups and switch
	// between them without editing every field.
	Profile  string                `yaml:"profile,omitempty"`
	Profiles map[string]LLMProfile `yaml:"profiles,omitempty"`
}

// LLMProfile is a named parameter overlay: any non-zero field replaces the
// base LLMConfig value when the profile is selected. Temperature is a
// pointer so a profile can pin it to 0 explicitly.
type LLMProfile struct {
	BaseURL         string        `yaml:"base_url,omitempty"`
	APIKey          string        `yaml:"api_key,omitempty"`
	Model           string        `yaml:"model,omitempty"`
	Temperature     *float64      `yaml:"temperature,omitempty"`
	MaxInputTokens  int           `yaml:"max_input_tokens,omitempty"`
	MaxOutputTokens int           `yaml:"max_output_tokens,omitempty"`
	RequestTimeout  time.Duration `yaml:"request_timeout,omitempty"`
}

// resolved overlays the selected profile, if any, onto the base settings.
func (c LLMConfig) resolved() (LLMConfig, error) {
	if c.Profile == "" {
		return c, nil
	}
	p, ok := c.Profiles[c.Profile]
	if !ok {
		return c, fmt.Errorf("llm: unknown profile %q", c.Profile)
	}
	if p.BaseURL != "" {
		c.BaseURL = p.BaseURL
	}
	if p.APIKey != "" {
		c.APIKey = p.APIKey
	}
	if p.Model != "" {
		c.Model = p.Model
	}
	if p.Temperature != nil {
		c.Temperature = *p.Temperature
	}
	if p.MaxInputTokens != 0 {
		c.MaxInputTokens = p.MaxInputTokens
	}
	if p.MaxOutputTokens != 0 {
		c.MaxOutputTokens = p.MaxOutputTokens
	}
	if p.RequestTimeout != 0 {
		c.RequestTimeout = p.RequestTimeout
	}
	return c, nil
}

// SetDefaults fills in the default model and budget values.
func (c *LLMConfig) SetDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.openai.com/v1"
	}
	if c.Model == "" {
		c.Model = "gpt-4o"
	}
	if c.MaxInputTokens == 0 {
		c.MaxInputTokens = 128_000
	}
	if c.MaxOutputTokens == 0 {
		c.MaxOutputTokens = 4096
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 2 * time.Minute
	}
}

// Validate checks the LLM configuration after profile resolution.
func (c *LLMConfig) Validate() error {
	r, err := c.resolved()
	if err != nil {
		return err
	}
	if r.APIKey == "" {
		return fmt.Errorf("llm: api_key is required")
	}
	if r.Temperature < 0 || r.Temperature > 2 {
		return fmt.Errorf("llm: temperature must be between 0 and 2")
	}
	return nil
}

// ToProviderConfig adapts the decoded config, with the selected profile
// applied, into the shape llm.NewOpenAIProvider expects. Profile resolution
// errors are caught earlier by Validate; the base settings stand in here.
func (c LLMConfig) ToProviderConfig() llm.Config {
	r, err := c.resolved()
	if err != nil {
		r = c
	}
	return llm.Config{
		BaseURL:         r.BaseURL,
		APIKey:          r.APIKey,
		Model:           r.Model,
		MaxInputTokens:  r.MaxInputTokens,
		MaxOutputTokens: r.MaxOutputTokens,
		Temperature:     r.Temperature,
		RequestTimeout:  r.RequestTimeout,
	}
}
