package bots

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/go-chi/chi/v5"

	"github.com/ziadkadry99/wecombot/internal/audit"
	"github.com/ziadkadry99/wecombot/internal/config"
	"github.com/ziadkadry99/wecombot/internal/logx"
	"github.com/ziadkadry99/wecombot/internal/message"
	"github.com/ziadkadry99/wecombot/internal/wxcrypt"
)

// maxCallbackBody caps the size of a POSTed callback envelope.
const maxCallbackBody = 1 << 20

// Submitter accepts jobs for background processing.
type Submitter interface {
	Submit(job Job) bool
}

// EventRecorder persists accepted callbacks and detects provider retries.
type EventRecorder interface {
	RecordEvent(ctx context.Context, e *audit.Event) (bool, error)
	SetOutcome(ctx context.Context, id string, outcome audit.Outcome) error
}

// WeComOptions configures a WeComHandler.
type WeComOptions struct {
	Channels   []config.ChannelConfig
	Cache      *wxcrypt.Cache
	Dispatcher Submitter
	Events     EventRecorder // optional
	Logger     *slog.Logger
}

// WeComHandler serves the callback URL handshake and message callbacks for
// every configured channel.
type WeComHandler struct {
	channels   map[string]config.ChannelConfig
	cache      *wxcrypt.Cache
	dispatcher Submitter
	events     EventRecorder
	logger     *slog.Logger
}

// NewWeComHandler creates a WeComHandler.
func NewWeComHandler(opts WeComOptions) *WeComHandler {
	channels := make(map[string]config.ChannelConfig, len(opts.Channels))
	for _, ch := range opts.Channels {
		channels[ch.Name] = ch
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &WeComHandler{
		channels:   channels,
		cache:      opts.Cache,
		dispatcher: opts.Dispatcher,
		events:     opts.Events,
		logger:     logger,
	}
}

// HandleVerify answers the callback URL handshake by echoing the decrypted
// echostr as plain text.
func (h *WeComHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	logger := logx.WithRequest(r.Context(), h.logger)

	ch, mc, ok := h.resolve(w, r, logger)
	if !ok {
		return
	}

	q := r.URL.Query()
	sig, ts, nonce, echostr := q.Get("msg_signature"), q.Get("timestamp"), q.Get("nonce"), q.Get("echostr")
	if sig == "" || ts == "" || nonce == "" || echostr == "" {
		http.Error(w, "missing required query parameters", http.StatusBadRequest)
		return
	}

	plain, err := mc.VerifyURL(sig, ts, nonce, echostr)
	if err != nil {
		logger.Warn("callback url verification rejected", "channel", ch.Name, "reason", rejectReason(err))
		http.Error(w, "verification failed", http.StatusForbidden)
		return
	}

	logger.Info("callback url verified", "channel", ch.Name)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(plain)
}

// HandleCallback decrypts a message callback, records it and hands text
// messages to the dispatcher. Accepted callbacks always get an empty 200;
// replies are pushed later through the channel webhook.
func (h *WeComHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	logger := logx.WithRequest(r.Context(), h.logger)

	ch, mc, ok := h.resolve(w, r, logger)
	if !ok {
		return
	}

	q := r.URL.Query()
	sig, ts, nonce := q.Get("msg_signature"), q.Get("timestamp"), q.Get("nonce")
	if sig == "" || ts == "" || nonce == "" {
		http.Error(w, "missing required query parameters", http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxCallbackBody))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	plain, err := mc.DecryptMsg(sig, ts, nonce, body)
	if err != nil {
		logger.Warn("callback rejected", "channel", ch.Name, "reason", rejectReason(err))
		http.Error(w, "decryption failed", http.StatusForbidden)
		return
	}

	msg, err := message.Parse(plain)
	if err != nil {
		logger.Error("parsing decrypted message", "channel", ch.Name, "err", err)
		writeEmpty(w)
		return
	}

	logger = logger.With("channel", ch.Name, "msg_id", msg.MsgID, "chat_id", msg.ChatID)
	outcome := h.classify(ch, msg, logger)

	event := &audit.Event{
		Channel:  ch.Name,
		MsgID:    msg.MsgID,
		MsgType:  msg.MsgType,
		ChatID:   msg.ChatID,
		ChatType: msg.ChatType,
		UserID:   msg.From.UserID,
		Outcome:  outcome,
	}
	if h.events != nil {
		inserted, err := h.events.RecordEvent(r.Context(), event)
		if err != nil {
			logger.Error("recording callback event", "err", err)
			event.ID = ""
		} else if !inserted {
			logger.Info("duplicate callback ignored")
			writeEmpty(w)
			return
		}
	}

	if outcome == audit.OutcomeDispatched {
		h.dispatch(r.Context(), ch, msg, event.ID, logger)
	}
	writeEmpty(w)
}

// classify decides what happens to a decrypted message.
func (h *WeComHandler) classify(ch config.ChannelConfig, msg *message.Message, logger *slog.Logger) audit.Outcome {
	if !msg.IsText() {
		logger.Info("unsupported message type", "msg_type", msg.MsgType)
		return audit.OutcomeUnsupported
	}
	if !chatAllowed(ch.AllowedChats, msg.ChatID) {
		logger.Info("chat not in allow list")
		return audit.OutcomeFiltered
	}
	return audit.OutcomeDispatched
}

func (h *WeComHandler) dispatch(ctx context.Context, ch config.ChannelConfig, msg *message.Message, eventID string, logger *slog.Logger) {
	metadata, err := msg.Metadata()
	if err != nil {
		logger.Warn("encoding message metadata", "err", err)
	}

	job := Job{
		WebhookURL: ch.WebhookURL,
		Message: IncomingMessage{
			Platform:  PlatformWeCom,
			Channel:   ch.Name,
			EventID:   eventID,
			MsgID:     msg.MsgID,
			ChannelID: msg.ChatID,
			ChatType:  msg.ChatType,
			UserID:    msg.From.UserID,
			UserName:  msg.From.Name,
			Text:      msg.Text.Content,
			ThreadID:  msg.PostID,
			Metadata:  metadata,
		},
	}
	if job.WebhookURL == "" {
		job.WebhookURL = msg.WebhookURL
	}

	switch {
	case h.dispatcher == nil:
		logger.Warn("no dispatcher configured, message dropped")
	case h.dispatcher.Submit(job):
		logger.Debug("message dispatched")
		return
	default:
		logger.Warn("dispatch queue full, message dropped")
	}
	if h.events != nil && eventID != "" {
		if err := h.events.SetOutcome(ctx, eventID, audit.OutcomeDropped); err != nil {
			logger.Error("updating event outcome", "err", err)
		}
	}
}

// resolve looks up the channel named in the path and its crypto context.
func (h *WeComHandler) resolve(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (config.ChannelConfig, *wxcrypt.MsgCrypt, bool) {
	name := chi.URLParam(r, "channel")
	ch, ok := h.channels[name]
	if !ok {
		http.Error(w, "unknown channel", http.StatusNotFound)
		return ch, nil, false
	}
	mc, err := h.cache.MsgCrypt(ch.Credentials())
	if err != nil {
		logger.Error("building crypto context", "channel", name, "err", err)
		http.Error(w, "channel misconfigured", http.StatusInternalServerError)
		return ch, nil, false
	}
	return ch, mc, true
}

// chatAllowed reports whether chatID matches one of the glob patterns.
// An empty list allows every chat.
func chatAllowed(patterns []string, chatID string) bool {
	if len(patterns) == 0 {
		return true
	}
	for _, p := range patterns {
		if ok, err := doublestar.Match(p, chatID); err == nil && ok {
			return true
		}
	}
	return false
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, wxcrypt.ErrSignatureMismatch):
		return "signature"
	case errors.Is(err, wxcrypt.ErrMalformedInput):
		return "malformed"
	default:
		return "decrypt"
	}
}

func writeEmpty(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
}
