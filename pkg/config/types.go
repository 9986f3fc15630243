package config

import (
	"fmt"
	"strconv"
)

// Config represents the persistent mathai configuration stored as config.toml
// in the .mathai/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version int          `toml:"version"`
	Client  ClientConfig `toml:"client"`
	Chat    ChatConfig   `toml:"chat"`
	Log     LogConfig    `toml:"log"`
}

// ClientConfig holds the backend connection and completion settings.
type ClientConfig struct {
	BaseURL     string  `toml:"base_url,omitempty"`
	Model       string  `toml:"model,omitempty"`
	MaxTokens   uint    `toml:"max_tokens,omitempty"`
	Temperature float64 `toml:"temperature,omitempty"`
}

// ChatConfig holds settings for the interactive chat command.
type ChatConfig struct {
	SystemPrompt string `toml:"system_prompt,omitempty"`
	Markdown     bool   `toml:"markdown"`
	Followups    bool   `toml:"followups"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Debug bool `toml:"debug"`
	JSON  bool `toml:"json"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func boolKey(name string, field func(c *Config) *bool) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return strconv.FormatBool(*field(c)) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = b
			return nil
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"client.base_url": {
		get: func(c *Config) string { return c.Client.BaseURL },
		set: func(c *Config, v string) error { c.Client.BaseURL = v; return nil },
	},
	"client.model": {
		get: func(c *Config) string { return c.Client.Model },
		set: func(c *Config, v string) error { c.Client.Model = v; return nil },
	},
	"client.max_tokens": {
		get: func(c *Config) string {
			if c.Client.MaxTokens == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(c.Client.MaxTokens), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for client.max_tokens: %w", err)
			}
			c.Client.MaxTokens = uint(n)
			return nil
		},
	},
	"client.temperature": {
		get: func(c *Config) string { return strconv.FormatFloat(c.Client.Temperature, 'g', -1, 64) },
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid value for client.temperature: %w", err)
			}
			if f < 0 || f > 2 {
				return fmt.Errorf("invalid value for client.temperature: %v is outside [0, 2]", f)
			}
			c.Client.Temperature = f
			return nil
		},
	},
	"chat.system_prompt": {
		get: func(c *Config) string { return c.Chat.SystemPrompt },
		set: func(c *Config, v string) error { c.Chat.SystemPrompt = v; return nil },
	},
	"chat.markdown":  boolKey("chat.markdown", func(c *Config) *bool { return &c.Chat.Markdown }),
	"chat.followups": boolKey("chat.followups", func(c *Config) *bool { return &c.Chat.Followups }),
	"log.debug":      boolKey("log.debug", func(c *Config) *bool { return &c.Log.Debug }),
	"log.json":       boolKey("log.json", func(c *Config) *bool { return &c.Log.JSON }),
}
