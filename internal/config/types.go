// Package config loads Kestrel's YAML configuration into typed structs and
// builds the runtime objects (LLM provider, tool collection) wired from it.
package config

import (
	"errors"
	"time"

	"github.com/kestrel-ai/kestrel/internal/observability"
)

// Config is the root configuration document: the {llm, tools, mcp, sse,
// agent, prompts, observability} blocks plus the server block the HTTP
// shell needs.
type Config struct {
	Server        ServerConfig         `yaml:"server,omitempty"`
	LLM           LLMConfig            `yaml:"llm,omitempty"`
	Tools         ToolsConfig          `yaml:"tools,omitempty"`
	MCP           []MCPConfig          `yaml:"mcp,omitempty"`
	SSE           SSEConfig            `yaml:"sse,omitempty"`
	Agent         AgentConfig          `yaml:"agent,omitempty"`
	Prompts       PromptsConfig        `yaml:"prompts,omitempty"`
	Observability observability.Config `yaml:"observability,omitempty"`
}

// ServerConfig configures the ambient HTTP shell (internal/server).
type ServerConfig struct {
	Addr           string        `yaml:"addr,omitempty"`
	RequestTimeout time.Duration `yaml:"request_timeout,omitempty"`
}

// SSEConfig overrides internal/sse.Printer's defaults.
type SSEConfig struct {
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval,omitempty"`
	QueueSize         int           `yaml:"queue_size,omitempty"`
}

// AgentConfig overrides internal/agent.AgentCore's step-budget defaults.
// Stream mode itself is a per-request field (protocol.RunRequest.Stream),
// not a process-wide default, so it has no entry here.
type AgentConfig struct {
	MaxSteps           int `yaml:"max_steps,omitempty"`
	DuplicateThreshold int `yaml:"duplicate_threshold,omitempty"`
}

// PromptsConfig lets an operator override the default system/next-step
// prompts authored in internal/agent/prompts.go without a rebuild.
type PromptsConfig struct {
	ReActSystem      string `yaml:"react_system,omitempty"`
	PlanningSystem   string `yaml:"planning_system,omitempty"`
	PlanningNextStep string `yaml:"planning_next_step,omitempty"`
	ExecutorSystem   string `yaml:"executor_system,omitempty"`
	ExecutorNextStep string `yaml:"executor_next_step,omitempty"`
	SummarySystem    string `yaml:"summary_system,omitempty"`

	// OutputStyleMap overrides the rendering instruction appended to the
	// answering agent's system prompt per request outputStyle (html, docs,
	// table), replacing internal/agent's defaults entry by entry.
	OutputStyleMap map[string]string `yaml:"output_style_map,omitempty"`
}

// SetDefaults fills in every block's zero-value fields.
func (c *Config) SetDefaults() {
	c.Server.SetDefaults()
	c.LLM.SetDefaults()
	c.Tools.SetDefaults()
	for i := range c.MCP {
		c.MCP[i].SetDefaults()
	}
	c.SSE.SetDefaults()
	c.Agent.SetDefaults()
	c.Observability.SetDefaults()
}

// Validate checks every block, folding all errors together.
func (c *Config) Validate() error {
	var errs []error
	if err := c.LLM.Validate(); err != nil {
		errs = append(errs, err)
	}
	for _, m := range c.MCP {
		if err := m.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (c *ServerConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = time.Hour
	}
}

func (c *SSEConfig) SetDefaults() {
	if c.HeartbeatInterval == 0 {
		c.HeartbeatInterval = 10 * time.Second
	}
	if c.QueueSize == 0 {
		c.QueueSize = 256
	}
}

func (c *AgentConfig) SetDefaults() {
	if c.MaxSteps == 0 {
		c.MaxSteps = 10
	}
	if c.DuplicateThreshold == 0 {
		c.DuplicateThreshold = 2
	}
}
