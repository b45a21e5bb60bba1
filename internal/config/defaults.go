package config

// DefaultConfigFile is the config path used when --config is not given.
const DefaultConfigFile = ".wecombot.yml"

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Port:               8080,
		DataDir:            "data",
		CacheSize:          50,
		Workers:            4,
		QueueSize:          256,
		PushTimeoutSeconds: 10,
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Workflow: WorkflowConfig{
			Provider:       WorkflowEcho,
			InputField:     "query",
			OutputField:    "text",
			TimeoutSeconds: 60,
		},
	}
}
