package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/ziadkadry99/wecombot/internal/wxcrypt"
)

// EnvPrefix is the prefix of environment overrides.
const EnvPrefix = "WECOMBOT_"

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (WECOMBOT_*). A double underscore marks
// nesting: WECOMBOT_LOG__LEVEL sets log.level.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	// Load YAML file if it exists.
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the given YAML file path. The file holds
// channel secrets, so it is created owner-readable only.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Channel returns the channel with the given name.
func (c *Config) Channel(name string) (ChannelConfig, bool) {
	for _, ch := range c.Channels {
		if ch.Name == name {
			return ch, true
		}
	}
	return ChannelConfig{}, false
}

var validWorkflowProviders = map[WorkflowProvider]bool{
	WorkflowEcho:   true,
	WorkflowDify:   true,
	WorkflowOpenAI: true,
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive")
	}
	if c.QueueSize <= 0 {
		return fmt.Errorf("queue_size must be positive")
	}
	if c.CacheSize <= 0 {
		return fmt.Errorf("cache_size must be positive")
	}
	if c.PushTimeoutSeconds < 0 {
		return fmt.Errorf("push_timeout_seconds must be non-negative")
	}

	if c.Log.Level != "" && !validLogLevels[strings.ToLower(c.Log.Level)] {
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", c.Log.Level)
	}
	if c.Log.Format != "" && c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("invalid log format %q: must be text or json", c.Log.Format)
	}

	if c.Workflow.Provider != "" && !validWorkflowProviders[c.Workflow.Provider] {
		return fmt.Errorf("invalid workflow provider %q: must be one of echo, dify, openai", c.Workflow.Provider)
	}

	seen := make(map[string]bool)
	for i, ch := range c.Channels {
		if err := ch.Validate(); err != nil {
			return fmt.Errorf("channels[%d]: %w", i, err)
		}
		if seen[ch.Name] {
			return fmt.Errorf("channels[%d]: duplicate name %q", i, ch.Name)
		}
		seen[ch.Name] = true
	}

	return nil
}

// Validate checks a single channel.
func (ch ChannelConfig) Validate() error {
	if ch.Name == "" {
		return fmt.Errorf("name is required")
	}
	if strings.ContainsAny(ch.Name, "/?#") {
		return fmt.Errorf("name %q must not contain '/', '?' or '#'", ch.Name)
	}
	if ch.Token == "" {
		return fmt.Errorf("token is required")
	}
	if _, err := wxcrypt.DecodeKey(ch.AESKey); err != nil {
		return fmt.Errorf("aes_key: %w", err)
	}
	if ch.WebhookURL == "" {
		return fmt.Errorf("webhook_url is required")
	}
	if u, err := url.Parse(ch.WebhookURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("invalid webhook_url %q", ch.WebhookURL)
	}
	for _, pattern := range ch.AllowedChats {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("invalid allowed_chats pattern %q", pattern)
		}
	}
	return nil
}

// Credentials returns the channel's crypto credentials.
func (ch ChannelConfig) Credentials() wxcrypt.Credentials {
	return wxcrypt.Credentials{
		Token:      ch.Token,
		AESKey:     ch.AESKey,
		ReceiverID: ch.ReceiverID,
	}
}
