package bots

import (
	"context"
	"fmt"
	"strings"

	"github.com/ziadkadry99/wecombot/internal/workflow"
)

// Processor connects incoming bot messages to a workflow runner.
type Processor struct {
	runner workflow.Runner
}

// NewProcessor creates a new message processor.
func NewProcessor(runner workflow.Runner) *Processor {
	return &Processor{runner: runner}
}

// RunnerName returns the name of the underlying workflow runner.
func (p *Processor) RunnerName() string {
	if p.runner == nil {
		return ""
	}
	return p.runner.Name()
}

// HandleMessage runs the workflow on the message text and returns the
// markdown reply. Workflow failures become the reply text so the user
// still hears back.
func (p *Processor) HandleMessage(ctx context.Context, msg IncomingMessage) (*OutgoingMessage, error) {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return &OutgoingMessage{
			ChannelID: msg.ChannelID,
			ThreadID:  msg.ThreadID,
			Text:      "I received an empty message. Please provide some text.",
		}, nil
	}

	responseText, err := p.run(ctx, msg, text)
	if err != nil {
		return &OutgoingMessage{
			ChannelID: msg.ChannelID,
			ThreadID:  msg.ThreadID,
			Text:      fmt.Sprintf("Error processing your message: %v", err),
		}, nil
	}

	return &OutgoingMessage{
		ChannelID: msg.ChannelID,
		ThreadID:  msg.ThreadID,
		Text:      responseText,
	}, nil
}

func (p *Processor) run(ctx context.Context, msg IncomingMessage, text string) (string, error) {
	if p.runner == nil {
		return "", fmt.Errorf("workflow runner not configured")
	}
	return p.runner.Run(ctx, workflow.Input{
		Text:     text,
		UserID:   msg.UserID,
		Metadata: msg.Metadata,
	})
}
