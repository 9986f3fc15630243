package config

import "github.com/papercomputeco/mathai/pkg/api"

const (
	defaultModel       = "deepseek-r1"
	defaultMaxTokens   = 1024
	defaultTemperature = 0.6

	defaultSystemPrompt = "You are a patient math tutor. Show your reasoning step by step and format formulas in LaTeX."
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Client: ClientConfig{
			BaseURL:     api.DefaultBaseURL,
			Model:       defaultModel,
			MaxTokens:   defaultMaxTokens,
			Temperature: defaultTemperature,
		},
		Chat: ChatConfig{
			SystemPrompt: defaultSystemPrompt,
			Markdown:     false,
			Followups:    false,
		},
	}
}
