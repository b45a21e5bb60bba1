// Package workflow runs the downstream processing that turns an inbound
// chat message into reply text.
package workflow

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ziadkadry99/wecombot/internal/config"
)

// Input is what a Runner receives for one message.
type Input struct {
	Text     string
	UserID   string
	Metadata string // JSON of the decoded message
}

// Runner produces reply text for a message.
type Runner interface {
	Run(ctx context.Context, in Input) (string, error)
	Name() string
}

// NewRunner builds the Runner selected by cfg.Provider.
func NewRunner(cfg config.WorkflowConfig) (Runner, error) {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	switch cfg.Provider {
	case "", config.WorkflowEcho:
		return EchoRunner{}, nil

	case config.WorkflowDify:
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("DIFY_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("dify workflow requires api_key or DIFY_API_KEY")
		}
		return NewDifyRunner(DifyOptions{
			BaseURL:     cfg.BaseURL,
			APIKey:      apiKey,
			InputField:  cfg.InputField,
			OutputField: cfg.OutputField,
			Timeout:     timeout,
		}), nil

	case config.WorkflowOpenAI:
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable is not set")
		}
		return NewOpenAIRunner(apiKey, cfg.BaseURL, cfg.Model, cfg.SystemPrompt), nil

	default:
		return nil, fmt.Errorf("unsupported workflow provider: %s", cfg.Provider)
	}
}

// EchoRunner replies with the message text unchanged.
type EchoRunner struct{}

func (EchoRunner) Name() string { return "echo" }

func (EchoRunner) Run(_ context.Context, in Input) (string, error) {
	return in.Text, nil
}
