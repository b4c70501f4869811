// Package config loads and validates ChatDragon's runtime configuration.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// DefaultAPIVersion is the Azure OpenAI REST API version used when none is configured.
const DefaultAPIVersion = "2024-06-01"

// Config is the root configuration structure
type Config struct {
	AzureOpenAI   AzureOpenAIConfig   `toml:"AzureOpenAIOptions"`
	Server        ServerConfig        `toml:"server"`
	CompletionLog CompletionLogConfig `toml:"completion_log"`
	Telemetry     TelemetryConfig     `toml:"telemetry"`
	MCP           MCPConfig           `toml:"mcp"`
}

// AzureOpenAIConfig identifies the chat-completion deployment. ApiKey,
// DeploymentName and Endpoint are required.
type AzureOpenAIConfig struct {
	APIKey         string `toml:"ApiKey"`
	DeploymentName string `toml:"DeploymentName"`
	Endpoint       string `toml:"Endpoint"`
	APIVersion     string `toml:"ApiVersion"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Addr           string        `toml:"addr"`
	ReadTimeout    time.Duration `toml:"read_timeout"`
	WriteTimeout   time.Duration `toml:"write_timeout"`
	RequestTimeout time.Duration `toml:"request_timeout"` // bounds a single outbound model call
	Debug          bool          `toml:"debug"`
	DebugLogPath   string        `toml:"debug_log_path"`
}

// CompletionLogConfig controls the sqlite completion log. An empty Path disables it.
type CompletionLogConfig struct {
	Path string `toml:"path"`
}

// TelemetryConfig contains tracing and metrics settings
type TelemetryConfig struct {
	TracesEnabled     bool   `toml:"traces_enabled"`
	ServiceName       string `toml:"service_name"`
	ServiceVersion    string `toml:"service_version"`
	Environment       string `toml:"environment"`
	OTLPEndpoint      string `toml:"otlp_endpoint"`
	LangfusePublicKey string `toml:"langfuse_public_key"`
	LangfuseSecretKey string `toml:"langfuse_secret_key"`
	MetricsEnabled    bool   `toml:"metrics_enabled"`
}

// MCPConfig toggles the MCP tool endpoint.
type MCPConfig struct {
	Enabled bool `toml:"enabled"`
}

// Default returns a configuration with every optional field filled in.
func Default() *Config {
	return &Config{
		AzureOpenAI: AzureOpenAIConfig{
			APIVersion: DefaultAPIVersion,
		},
		Server: ServerConfig{
			Addr:           ":8080",
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   3 * time.Minute,
			RequestTimeout: 2 * time.Minute,
		},
		Telemetry: TelemetryConfig{
			ServiceName:    "chatdragon",
			ServiceVersion: "0.1.0",
			Environment:    "development",
			MetricsEnabled: true,
		},
		MCP: MCPConfig{
			Enabled: true,
		},
	}
}

// Load reads the TOML file at path on top of Default and then applies
// environment overrides. A missing file is not an error. The result is not
// validated; call Validate before serving.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	cfg.substituteEnvVars()
	return cfg, nil
}

// substituteEnvVars expands ${VAR} references and applies direct overrides.
func (c *Config) substituteEnvVars() {
	c.AzureOpenAI.APIKey = expandEnv(c.AzureOpenAI.APIKey)
	c.AzureOpenAI.Endpoint = expandEnv(c.AzureOpenAI.Endpoint)
	c.AzureOpenAI.DeploymentName = expandEnv(c.AzureOpenAI.DeploymentName)
	c.Telemetry.LangfusePublicKey = expandEnv(c.Telemetry.LangfusePublicKey)
	c.Telemetry.LangfuseSecretKey = expandEnv(c.Telemetry.LangfuseSecretKey)

	overrideString(&c.AzureOpenAI.APIKey, "AZURE_OPENAI_API_KEY")
	overrideString(&c.AzureOpenAI.DeploymentName, "AZURE_OPENAI_DEPLOYMENT_NAME")
	overrideString(&c.AzureOpenAI.Endpoint, "AZURE_OPENAI_ENDPOINT")
	overrideString(&c.AzureOpenAI.APIVersion, "AZURE_OPENAI_API_VERSION")

	overrideString(&c.Server.Addr, "CHATDRAGON_ADDR")
	overrideBool(&c.Server.Debug, "CHATDRAGON_DEBUG")
	overrideString(&c.Server.DebugLogPath, "CHATDRAGON_DEBUG_LOG")
	overrideString(&c.CompletionLog.Path, "CHATDRAGON_COMPLETION_LOG")

	overrideBool(&c.Telemetry.TracesEnabled, "OTEL_TRACES_ENABLED")
	overrideString(&c.Telemetry.OTLPEndpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
	overrideString(&c.Telemetry.Environment, "ENVIRONMENT")
	overrideString(&c.Telemetry.LangfusePublicKey, "LANGFUSE_PUBLIC_KEY")
	overrideString(&c.Telemetry.LangfuseSecretKey, "LANGFUSE_SECRET_KEY")
	overrideBool(&c.Telemetry.MetricsEnabled, "CHATDRAGON_METRICS_ENABLED")
	overrideBool(&c.MCP.Enabled, "CHATDRAGON_MCP_ENABLED")

	if c.AzureOpenAI.APIVersion == "" {
		c.AzureOpenAI.APIVersion = DefaultAPIVersion
	}
}

func expandEnv(s string) string {
	if s == "" {
		return s
	}
	return os.ExpandEnv(s)
}

func overrideString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func overrideBool(dst *bool, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	if b, err := strconv.ParseBool(v); err == nil {
		*dst = b
	}
}

// ValidationError lists the configuration problems found by Validate.
type ValidationError struct {
	Section string
	Missing []string
	Invalid []string
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing required field(s): "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, strings.Join(e.Invalid, "; "))
	}
	return fmt.Sprintf("config: %s: %s", e.Section, strings.Join(parts, "; "))
}

// Validate checks that the Azure OpenAI section is complete. It must pass
// before the service accepts traffic.
func (c *Config) Validate() error {
	verr := &ValidationError{Section: "AzureOpenAIOptions"}

	if strings.TrimSpace(c.AzureOpenAI.APIKey) == "" {
		verr.Missing = append(verr.Missing, "ApiKey")
	}
	if strings.TrimSpace(c.AzureOpenAI.DeploymentName) == "" {
		verr.Missing = append(verr.Missing, "DeploymentName")
	}
	if strings.TrimSpace(c.AzureOpenAI.Endpoint) == "" {
		verr.Missing = append(verr.Missing, "Endpoint")
	} else if u, err := url.Parse(c.AzureOpenAI.Endpoint); err != nil || u.Host == "" || (u.Scheme != "https" && u.Scheme != "http") {
		verr.Invalid = append(verr.Invalid, fmt.Sprintf("Endpoint %q is not an absolute http(s) URL", c.AzureOpenAI.Endpoint))
	}

	if len(verr.Missing) > 0 || len(verr.Invalid) > 0 {
		return verr
	}
	return nil
}
