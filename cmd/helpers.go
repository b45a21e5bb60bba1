package cmd

import (
	"fmt"
	"log/slog"

	"github.com/ziadkadry99/wecombot/internal/config"
	"github.com/ziadkadry99/wecombot/internal/logx"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `wecombot init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", cfgFile, err)
	}
	return cfg, nil
}

// newLogger builds the process logger from config; --verbose forces debug.
func newLogger(cfg *config.Config) (*slog.Logger, func() error, error) {
	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	return logx.New(logx.Options{
		Level:   level,
		Format:  cfg.Log.Format,
		Path:    cfg.Log.File,
		Service: "wecombot",
	})
}

// findChannel returns the named channel, or the only channel when name is
// empty and exactly one is configured.
func findChannel(cfg *config.Config, name string) (config.ChannelConfig, error) {
	if name == "" {
		if len(cfg.Channels) == 1 {
			return cfg.Channels[0], nil
		}
		return config.ChannelConfig{}, fmt.Errorf("--channel is required when %d channels are configured", len(cfg.Channels))
	}
	ch, ok := cfg.Channel(name)
	if !ok {
		return config.ChannelConfig{}, fmt.Errorf("channel %q not found in %s", name, cfgFile)
	}
	return ch, nil
}
