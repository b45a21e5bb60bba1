package workflow

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIRunner answers messages with a chat completion.
type OpenAIRunner struct {
	client       *openai.Client
	model        string
	systemPrompt string
}

// NewOpenAIRunner creates an OpenAIRunner. baseURL may point at any
// OpenAI-compatible endpoint; empty uses the default.
func NewOpenAIRunner(apiKey, baseURL, model, systemPrompt string) *OpenAIRunner {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIRunner{
		client:       openai.NewClientWithConfig(cfg),
		model:        model,
		systemPrompt: systemPrompt,
	}
}

func (r *OpenAIRunner) Name() string { return "openai" }

func (r *OpenAIRunner) Run(ctx context.Context, in Input) (string, error) {
	var messages []openai.ChatCompletionMessage
	if r.systemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: r.systemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: in.Text,
	})

	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    r.model,
		Messages: messages,
		User:     in.UserID,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
