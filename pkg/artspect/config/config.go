// Package config loads the pipeline run configuration from a YAML file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/artspect/pkg/artspect/internalerr"
)

// Stage configures one enrichment stage.
type Stage struct {
	Input         string  `yaml:"input"`
	Output        string  `yaml:"output"`
	RatePerSecond float64 `yaml:"rate_per_second"`
	SkipProcessed bool    `yaml:"skip_processed"`
	MinCodeLength int     `yaml:"min_code_length"`
	MaxAttempts   int     `yaml:"max_attempts"` // 0 retries transient faults forever
	Cache         string  `yaml:"cache"`        // fetch stage only; empty disables
}

// Explorer configures the block-explorer service.
type Explorer struct {
	BaseURL   string `yaml:"base_url"`
	APIKeyEnv string `yaml:"api_key_env"`
}

// LLM configures the classification service.
type LLM struct {
	BaseURL      string `yaml:"base_url"`
	Model        string `yaml:"model"`
	APIKeyEnv    string `yaml:"api_key_env"`
	SystemPrompt string `yaml:"system_prompt"`
	UserPrompt   string `yaml:"user_prompt"`
}

// Config is the full run configuration.
type Config struct {
	Fetch    Stage    `yaml:"fetch"`
	Classify Stage    `yaml:"classify"`
	Explorer Explorer `yaml:"explorer"`
	LLM      LLM      `yaml:"llm"`
}

// Load reads a config file. Defaults are populated before decoding so
// an explicit zero in the file (a disabled length check, a zero rate
// meant to fail fast) survives as written.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Config{
		Fetch:    Stage{RatePerSecond: 5},
		Classify: Stage{RatePerSecond: 1, MinCodeLength: 20},
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", internalerr.ErrInvalidConfig, err)
	}
	return &cfg, nil
}

// Validate checks the fields every stage needs before any record is
// touched.
func (s Stage) Validate() error {
	if s.Input == "" {
		return fmt.Errorf("%w: input path required", internalerr.ErrInvalidConfig)
	}
	if s.Output == "" {
		return fmt.Errorf("%w: output path required", internalerr.ErrInvalidConfig)
	}
	return nil
}

// Validate checks the explorer service endpoint.
func (e Explorer) Validate() error {
	if e.BaseURL == "" {
		return fmt.Errorf("%w: explorer base_url required", internalerr.ErrInvalidConfig)
	}
	return nil
}

// Validate checks the classification service endpoint and model.
func (l LLM) Validate() error {
	if l.BaseURL == "" {
		return fmt.Errorf("%w: llm base_url required", internalerr.ErrInvalidConfig)
	}
	if l.Model == "" {
		return fmt.Errorf("%w: llm model required", internalerr.ErrInvalidConfig)
	}
	return nil
}

// APIKey resolves a service API key from its configured environment
// variable name.
func APIKey(env string) string {
	if env == "" {
		return ""
	}
	return os.Getenv(env)
}
