package config

import (
	"fmt"
	"net/url"
	"os"

	"github.com/manifoldco/promptui"

	"github.com/ziadkadry99/wecombot/internal/wxcrypt"
)

// RunWizard interactively adds a bot channel to the config at path,
// generating a fresh token and AES key, and saves the result.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to wecombot! Let's configure a bot callback channel.")
	fmt.Println()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	// 1. Channel name.
	namePrompt := promptui.Prompt{
		Label:   "Channel name (used in the callback URL)",
		Default: fmt.Sprintf("bot%d", len(cfg.Channels)+1),
		Validate: func(s string) error {
			if s == "" {
				return fmt.Errorf("name is required")
			}
			if _, exists := cfg.Channel(s); exists {
				return fmt.Errorf("channel %q already exists", s)
			}
			return nil
		},
	}
	name, err := namePrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("channel name: %w", err)
	}

	// 2. Webhook URL used for pushes.
	webhookPrompt := promptui.Prompt{
		Label: "Bot webhook URL",
		Validate: func(s string) error {
			u, err := url.Parse(s)
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
				return fmt.Errorf("must be an http(s) URL")
			}
			return nil
		},
	}
	webhookURL, err := webhookPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("webhook url: %w", err)
	}

	// 3. Receiver id; bots normally leave this empty.
	receiverPrompt := promptui.Prompt{
		Label:   "Receiver id (leave blank for bots)",
		Default: "",
	}
	receiverID, err := receiverPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("receiver id: %w", err)
	}

	// 4. Workflow backend.
	workflowPrompt := promptui.Select{
		Label: "Select reply workflow",
		Items: []string{"echo", "dify", "openai"},
	}
	_, workflow, err := workflowPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("workflow selection: %w", err)
	}
	cfg.Workflow.Provider = WorkflowProvider(workflow)

	token, err := wxcrypt.GenerateToken()
	if err != nil {
		return nil, err
	}
	aesKey, err := wxcrypt.GenerateAESKey()
	if err != nil {
		return nil, err
	}

	cfg.Channels = append(cfg.Channels, ChannelConfig{
		Name:       name,
		Token:      token,
		AESKey:     aesKey,
		ReceiverID: receiverID,
		WebhookURL: webhookURL,
	})

	switch cfg.Workflow.Provider {
	case WorkflowDify:
		if os.Getenv("DIFY_API_KEY") == "" && cfg.Workflow.APIKey == "" {
			fmt.Println("\nNote: Set DIFY_API_KEY or workflow.api_key before starting the server.")
		}
	case WorkflowOpenAI:
		if os.Getenv("OPENAI_API_KEY") == "" && cfg.Workflow.APIKey == "" {
			fmt.Println("\nNote: Set OPENAI_API_KEY or workflow.api_key before starting the server.")
		}
	}

	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	fmt.Println("Enter these values in the bot's callback settings:")
	fmt.Printf("  URL:            https://<your-host>/api/bots/wecom/%s\n", name)
	fmt.Printf("  Token:          %s\n", token)
	fmt.Printf("  EncodingAESKey: %s\n", aesKey)
	return cfg, nil
}
