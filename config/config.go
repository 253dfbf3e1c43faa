// Package config loads and validates engine configuration from a YAML file
// and CONVOPILOT_* environment variables.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config represents the full engine configuration.
type Config struct {
	Memory    MemoryConfig    `json:"memory" mapstructure:"memory"`
	Breaker   BreakerConfig   `json:"breaker" mapstructure:"breaker"`
	Backend   BackendConfig   `json:"backend" mapstructure:"backend"`
	Logging   LoggingConfig   `json:"logging" mapstructure:"logging"`
	Telemetry TelemetryConfig `json:"telemetry" mapstructure:"telemetry"`
}

// MemoryConfig tunes the hybrid memory manager and the context budget.
type MemoryConfig struct {
	MaxShortTermTurns   int `json:"max_short_term_turns" mapstructure:"max_short_term_turns"`
	MaxLongTermMemories int `json:"max_long_term_memories" mapstructure:"max_long_term_memories"`
	RetrievalTopK       int `json:"retrieval_top_k" mapstructure:"retrieval_top_k"`
	SummarizeAfterTurns int `json:"summarize_after_turns" mapstructure:"summarize_after_turns"`
	MaxContextTokens    int `json:"max_context_tokens" mapstructure:"max_context_tokens"`
}

// BreakerConfig tunes the circuit breaker guarding the generation backend.
// A zero HealthCheckInterval disables the background recovery ticker, leaving
// the OPEN -> HALF_OPEN transition to caller traffic.
type BreakerConfig struct {
	FailureThreshold    int           `json:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeout        time.Duration `json:"reset_timeout" mapstructure:"reset_timeout"`
	HealthCheckInterval time.Duration `json:"health_check_interval" mapstructure:"health_check_interval"`
}

// BackendConfig selects and tunes the generation backend.
type BackendConfig struct {
	Provider    string  `json:"provider" mapstructure:"provider"` // openai, anthropic, mock
	Model       string  `json:"model" mapstructure:"model"`
	Temperature float64 `json:"temperature" mapstructure:"temperature"`
	MaxTokens   int     `json:"max_tokens" mapstructure:"max_tokens"`
}

// LoggingConfig tunes structured logging.
type LoggingConfig struct {
	Level  string `json:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `json:"format" mapstructure:"format"` // json, text
}

// TelemetryConfig toggles metrics collection. When enabled, the orchestrator
// records request, tool and backend metrics into a registry whose HTTP
// handler the host application mounts wherever it serves diagnostics.
type TelemetryConfig struct {
	Enabled bool `json:"enabled" mapstructure:"enabled"`
}

// DefaultConfig returns the baseline configuration.
func DefaultConfig() *Config {
	return &Config{
		Memory: MemoryConfig{
			MaxShortTermTurns:   10,
			MaxLongTermMemories: 100,
			RetrievalTopK:       5,
			SummarizeAfterTurns: 5,
			MaxContextTokens:    2048,
		},
		Breaker: BreakerConfig{
			FailureThreshold:    5,
			ResetTimeout:        30 * time.Second,
			HealthCheckInterval: 10 * time.Second,
		},
		Backend: BackendConfig{
			Provider:    "mock",
			Temperature: 0.7,
			MaxTokens:   4096,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Telemetry: TelemetryConfig{
			Enabled: false,
		},
	}
}

// Load reads the configuration from the optional YAML file at path, layering
// CONVOPILOT_* environment variables on top, and validates the result. An
// empty path or a missing file yields the defaults (plus env overrides).
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CONVOPILOT")
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the engine cannot run with.
func (c *Config) Validate() error {
	if c.Memory.MaxShortTermTurns <= 0 {
		return fmt.Errorf("memory.max_short_term_turns must be positive, got %d", c.Memory.MaxShortTermTurns)
	}
	if c.Memory.MaxLongTermMemories <= 0 {
		return fmt.Errorf("memory.max_long_term_memories must be positive, got %d", c.Memory.MaxLongTermMemories)
	}
	if c.Memory.RetrievalTopK <= 0 {
		return fmt.Errorf("memory.retrieval_top_k must be positive, got %d", c.Memory.RetrievalTopK)
	}
	if c.Memory.SummarizeAfterTurns < 0 {
		return fmt.Errorf("memory.summarize_after_turns must not be negative, got %d", c.Memory.SummarizeAfterTurns)
	}
	if c.Memory.MaxContextTokens <= 0 {
		return fmt.Errorf("memory.max_context_tokens must be positive, got %d", c.Memory.MaxContextTokens)
	}
	if c.Breaker.FailureThreshold <= 0 {
		return fmt.Errorf("breaker.failure_threshold must be positive, got %d", c.Breaker.FailureThreshold)
	}
	if c.Breaker.ResetTimeout <= 0 {
		return fmt.Errorf("breaker.reset_timeout must be positive, got %s", c.Breaker.ResetTimeout)
	}
	if c.Breaker.HealthCheckInterval < 0 {
		return fmt.Errorf("breaker.health_check_interval must not be negative, got %s", c.Breaker.HealthCheckInterval)
	}
	switch c.Backend.Provider {
	case "openai", "anthropic", "mock":
	default:
		return fmt.Errorf("backend.provider must be one of openai, anthropic, mock; got %q", c.Backend.Provider)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
	return nil
}
