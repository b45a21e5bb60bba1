package bots

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// errNoReply is returned when a handler produces neither a reply nor an error.
var errNoReply = errors.New("handler returned no reply")

// MessageHandler processes incoming messages and produces responses.
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg IncomingMessage) (*OutgoingMessage, error)
}

// Gateway routes messages from any platform to a handler and logs how long
// each one took.
type Gateway struct {
	handler MessageHandler
	logger  *slog.Logger
}

// NewGateway creates a Gateway. A nil logger uses slog.Default.
func NewGateway(handler MessageHandler, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{handler: handler, logger: logger}
}

// Process runs msg through the handler. The reply is always addressed to
// the chat the message came from unless the handler chose another one.
func (g *Gateway) Process(ctx context.Context, msg IncomingMessage) (*OutgoingMessage, error) {
	start := time.Now()
	resp, err := g.handler.HandleMessage(ctx, msg)
	if err == nil && resp == nil {
		err = errNoReply
	}

	logger := g.logger.With(
		"platform", msg.Platform,
		"channel", msg.Channel,
		"msg_id", msg.MsgID,
		"duration", time.Since(start),
	)
	if err != nil {
		logger.Warn("message handling failed", "err", err)
		return nil, err
	}
	logger.Debug("message handled", "reply_bytes", len(resp.Text))

	if resp.ChannelID == "" {
		resp.ChannelID = msg.ChannelID
	}
	if resp.ThreadID == "" {
		resp.ThreadID = msg.ThreadID
	}
	return resp, nil
}
