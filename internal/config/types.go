package config

// WorkflowProvider selects the backend that turns messages into replies.
type WorkflowProvider string

const (
	WorkflowEcho   WorkflowProvider = "echo"
	WorkflowDify   WorkflowProvider = "dify"
	WorkflowOpenAI WorkflowProvider = "openai"
)

// Config is the top-level wecombot configuration, corresponding to .wecombot.yml.
type Config struct {
	Port               int             `yaml:"port" koanf:"port"`
	AllowAllOrigins    bool            `yaml:"allow_all_origins" koanf:"allow_all_origins"`
	DataDir            string          `yaml:"data_dir" koanf:"data_dir"`
	CacheSize          int             `yaml:"cache_size" koanf:"cache_size"`
	Workers            int             `yaml:"workers" koanf:"workers"`
	QueueSize          int             `yaml:"queue_size" koanf:"queue_size"`
	PushTimeoutSeconds int             `yaml:"push_timeout_seconds" koanf:"push_timeout_seconds"`
	Log                LogConfig       `yaml:"log" koanf:"log"`
	Workflow           WorkflowConfig  `yaml:"workflow" koanf:"workflow"`
	Channels           []ChannelConfig `yaml:"channels" koanf:"channels"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string `yaml:"level" koanf:"level"`   // debug, info, warn, error
	Format string `yaml:"format" koanf:"format"` // text or json
	File   string `yaml:"file" koanf:"file"`     // empty logs to stderr
}

// WorkflowConfig configures the downstream message processor.
type WorkflowConfig struct {
	Provider       WorkflowProvider `yaml:"provider" koanf:"provider"`
	BaseURL        string           `yaml:"base_url" koanf:"base_url"`
	APIKey         string           `yaml:"api_key,omitempty" koanf:"api_key"`
	Model          string           `yaml:"model,omitempty" koanf:"model"`
	InputField     string           `yaml:"input_field,omitempty" koanf:"input_field"`
	OutputField    string           `yaml:"output_field,omitempty" koanf:"output_field"`
	SystemPrompt   string           `yaml:"system_prompt,omitempty" koanf:"system_prompt"`
	TimeoutSeconds int              `yaml:"timeout_seconds" koanf:"timeout_seconds"`
}

// ChannelConfig holds the credentials of one bot callback channel.
type ChannelConfig struct {
	Name         string   `yaml:"name" koanf:"name"`
	Token        string   `yaml:"token" koanf:"token"`
	AESKey       string   `yaml:"aes_key" koanf:"aes_key"`
	ReceiverID   string   `yaml:"receiver_id" koanf:"receiver_id"`
	WebhookURL   string   `yaml:"webhook_url" koanf:"webhook_url"`
	AllowedChats []string `yaml:"allowed_chats,omitempty" koanf:"allowed_chats"`
}
