package config

import (
	"fmt"
	"os"

	gaconfig "github.com/JaimeStill/go-agents/pkg/config"
)

const (
	EnvAgentProviderName = "MORTAR_AGENT_PROVIDER_NAME"
	EnvAgentBaseURL      = "MORTAR_AGENT_BASE_URL"
	EnvAgentToken        = "MORTAR_AGENT_TOKEN"
	EnvAgentDeployment   = "MORTAR_AGENT_DEPLOYMENT"
	EnvAgentAPIVersion   = "MORTAR_AGENT_API_VERSION"
	EnvAgentAuthType     = "MORTAR_AGENT_AUTH_TYPE"
	EnvAgentModelName    = "MORTAR_AGENT_MODEL_NAME"
)

// FinalizeAgent finalizes a go-agents AgentConfig the same way the other
// sub-configs are finalized: defaults from go-agents DefaultAgentConfig,
// environment variable overrides, and validation.
func FinalizeAgent(c *gaconfig.AgentConfig) error {
	loadAgentDefaults(c)
	loadAgentEnv(c)
	return validateAgent(c)
}

// AgentConfigured reports whether the agent config carries the
// credentials needed to reach a provider: a base URL plus a token
// option. Deployments without credentials route PDF sheets to the
// deterministic backends instead.
func AgentConfigured(c *gaconfig.AgentConfig) bool {
	if c == nil || c.Provider == nil || c.Provider.BaseURL == "" {
		return false
	}
	token, _ := c.Provider.Options["token"].(string)
	return token != ""
}

func loadAgentDefaults(c *gaconfig.AgentConfig) {
	defaults := gaconfig.DefaultAgentConfig()
	defaults.Merge(c)
	*c = defaults
}

func loadAgentEnv(c *gaconfig.AgentConfig) {
	if c.Provider == nil {
		c.Provider = &gaconfig.ProviderConfig{}
	}
	if c.Provider.Options == nil {
		c.Provider.Options = make(map[string]any)
	}
	if c.Model == nil {
		c.Model = &gaconfig.ModelConfig{}
	}
	if v := os.Getenv(EnvAgentProviderName); v != "" {
		c.Provider.Name = v
	}
	if v := os.Getenv(EnvAgentBaseURL); v != "" {
		c.Provider.BaseURL = v
	}
	if v := os.Getenv(EnvAgentModelName); v != "" {
		c.Model.Name = v
	}

	setOption := func(envVar, key string) {
		if v := os.Getenv(envVar); v != "" {
			c.Provider.Options[key] = v
		}
	}

	setOption(EnvAgentToken, "token")
	setOption(EnvAgentDeployment, "deployment")
	setOption(EnvAgentAPIVersion, "api_version")
	setOption(EnvAgentAuthType, "auth_type")
}

func validateAgent(c *gaconfig.AgentConfig) error {
	if c.Name == "" {
		return fmt.Errorf("name required")
	}
	if c.Provider == nil {
		return fmt.Errorf("provider required")
	}
	if c.Provider.Name == "" {
		return fmt.Errorf("provider name required")
	}
	if c.Model == nil {
		return fmt.Errorf("model required")
	}
	return nil
}
