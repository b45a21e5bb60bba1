package bots

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ziadkadry99/wecombot/internal/audit"
	"github.com/ziadkadry99/wecombot/internal/config"
	"github.com/ziadkadry99/wecombot/internal/db"
	"github.com/ziadkadry99/wecombot/internal/logx"
	"github.com/ziadkadry99/wecombot/internal/workflow"
	"github.com/ziadkadry99/wecombot/internal/wxcrypt"
)

const (
	testToken    = "tok"
	testAESKey   = "jWmYm7qr5nMoAUwZRjGtBxmz3KA1tkAj3ykkR6q2B2C"
	testReceiver = "corp1"
	testHook     = "http://hooks.example/send"
)

const textMessage = `<xml><WebhookUrl><![CDATA[http://inline.example/hook]]></WebhookUrl>` +
	`<MsgId><![CDATA[msg-1]]></MsgId><ChatId><![CDATA[wrkGroup1]]></ChatId><ChatType>group</ChatType>` +
	`<From><UserId>zhangsan</UserId><Name>Zhang San</Name><Alias>san</Alias></From>` +
	`<MsgType>text</MsgType><Text><Content><![CDATA[@bot hello]]></Content></Text></xml>`

const imageMessage = `<xml><MsgId>msg-2</MsgId><ChatId>wrkGroup1</ChatId><ChatType>group</ChatType>` +
	`<From><UserId>zhangsan</UserId></From><MsgType>image</MsgType></xml>`

// mockHandler implements MessageHandler for testing.
type mockHandler struct {
	lastMsg  IncomingMessage
	response *OutgoingMessage
	err      error
}

func (m *mockHandler) HandleMessage(_ context.Context, msg IncomingMessage) (*OutgoingMessage, error) {
	m.lastMsg = msg
	if m.err != nil {
		return nil, m.err
	}
	if m.response != nil {
		return m.response, nil
	}
	return &OutgoingMessage{
		ChannelID: msg.ChannelID,
		ThreadID:  msg.ThreadID,
		Text:      "mock response",
	}, nil
}

// fakeSubmitter records submitted jobs.
type fakeSubmitter struct {
	reject bool
	jobs   []Job
}

func (f *fakeSubmitter) Submit(job Job) bool {
	if f.reject {
		return false
	}
	f.jobs = append(f.jobs, job)
	return true
}

// fakeSender records pushes.
type fakeSender struct {
	mu    sync.Mutex
	fail  bool
	calls []string
}

func (f *fakeSender) SendMarkdown(_ context.Context, webhookURL, chatID, content string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, webhookURL+"|"+chatID+"|"+content)
	return !f.fail
}

// fakeRecorder records deliveries.
type fakeRecorder struct {
	mu         sync.Mutex
	deliveries []audit.Delivery
}

func (f *fakeRecorder) RecordDelivery(_ context.Context, d audit.Delivery) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deliveries = append(f.deliveries, d)
	return nil
}

type failingRunner struct{}

func (failingRunner) Name() string { return "failing" }
func (failingRunner) Run(context.Context, workflow.Input) (string, error) {
	return "", fmt.Errorf("upstream unavailable")
}

func testChannel() config.ChannelConfig {
	return config.ChannelConfig{
		Name:       "main",
		Token:      testToken,
		AESKey:     testAESKey,
		ReceiverID: testReceiver,
		WebhookURL: testHook,
	}
}

func newTestRouter(t *testing.T, ch config.ChannelConfig, sub Submitter, events EventRecorder) http.Handler {
	t.Helper()
	cache, err := wxcrypt.NewCache(wxcrypt.DefaultCacheSize)
	if err != nil {
		t.Fatal(err)
	}
	h := NewWeComHandler(WeComOptions{
		Channels:   []config.ChannelConfig{ch},
		Cache:      cache,
		Dispatcher: sub,
		Events:     events,
		Logger:     logx.Discard(),
	})
	r := chi.NewRouter()
	RegisterRoutes(r, h)
	return r
}

// sealedCallback encrypts inner the way the provider does and returns the
// signed query string and the POST body.
func sealedCallback(t *testing.T, inner string) (string, string) {
	t.Helper()
	ctx, err := wxcrypt.NewContext(testToken, testAESKey)
	if err != nil {
		t.Fatal(err)
	}
	enc, err := ctx.Bind(testReceiver).Seal([]byte(inner))
	if err != nil {
		t.Fatal(err)
	}
	q := url.Values{
		"msg_signature": {ctx.Sign("1700000000", "n1", enc)},
		"timestamp":     {"1700000000"},
		"nonce":         {"n1"},
	}
	body := "<xml><ToUserName><![CDATA[" + testReceiver + "]]></ToUserName><AgentID>1</AgentID>" +
		"<Encrypt><![CDATA[" + enc + "]]></Encrypt></xml>"
	return q.Encode(), body
}

func sealedEcho(t *testing.T, echo string) string {
	t.Helper()
	ctx, err := wxcrypt.NewContext(testToken, testAESKey)
	if err != nil {
		t.Fatal(err)
	}
	enc, err := ctx.Bind(testReceiver).Seal([]byte(echo))
	if err != nil {
		t.Fatal(err)
	}
	return url.Values{
		"msg_signature": {ctx.Sign("1700000000", "n1", enc)},
		"timestamp":     {"1700000000"},
		"nonce":         {"n1"},
		"echostr":       {enc},
	}.Encode()
}

func postCallback(h http.Handler, channel, query, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/bots/wecom/"+channel+"?"+query, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// --- Gateway and processor tests ---

func TestGatewayProcess(t *testing.T) {
	handler := &mockHandler{}
	gw := NewGateway(handler, logx.Discard())

	msg := IncomingMessage{
		Platform:  PlatformWeCom,
		ChannelID: "wrkGroup1",
		UserID:    "zhangsan",
		Text:      "hello",
	}
	resp, err := gw.Process(context.Background(), msg)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Text != "mock response" {
		t.Errorf("got %q, want %q", resp.Text, "mock response")
	}
	if handler.lastMsg.Text != "hello" {
		t.Errorf("handler received %q, want %q", handler.lastMsg.Text, "hello")
	}
}

type silentHandler struct{}

func (silentHandler) HandleMessage(context.Context, IncomingMessage) (*OutgoingMessage, error) {
	return nil, nil
}

func TestGatewayNoReply(t *testing.T) {
	gw := NewGateway(silentHandler{}, logx.Discard())
	if _, err := gw.Process(context.Background(), IncomingMessage{Text: "hi"}); !errors.Is(err, errNoReply) {
		t.Errorf("got %v, want errNoReply", err)
	}
}

func TestGatewayAddressesReply(t *testing.T) {
	handler := &mockHandler{response: &OutgoingMessage{Text: "unaddressed"}}
	var logs bytes.Buffer
	gw := NewGateway(handler, slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug})))

	resp, err := gw.Process(context.Background(), IncomingMessage{
		Platform:  PlatformWeCom,
		Channel:   "main",
		ChannelID: "wrkGroup1",
		ThreadID:  "post-9",
		Text:      "hi",
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.ChannelID != "wrkGroup1" || resp.ThreadID != "post-9" {
		t.Errorf("reply addressed to %q/%q", resp.ChannelID, resp.ThreadID)
	}
	out := logs.String()
	if !strings.Contains(out, "platform=wecom") || !strings.Contains(out, "duration=") {
		t.Errorf("unexpected log output: %s", out)
	}
}

func TestGatewayHandlerError(t *testing.T) {
	gw := NewGateway(&mockHandler{err: fmt.Errorf("boom")}, logx.Discard())
	if _, err := gw.Process(context.Background(), IncomingMessage{Text: "hi"}); err == nil {
		t.Error("expected handler error to propagate")
	}
}

func TestProcessorEcho(t *testing.T) {
	p := NewProcessor(workflow.EchoRunner{})
	resp, err := p.HandleMessage(context.Background(), IncomingMessage{
		ChannelID: "wrkGroup1",
		ThreadID:  "post-1",
		Text:      "  @bot hello  ",
	})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Text != "@bot hello" {
		t.Errorf("got %q, want %q", resp.Text, "@bot hello")
	}
	if resp.ChannelID != "wrkGroup1" || resp.ThreadID != "post-1" {
		t.Errorf("reply addressed to %q/%q", resp.ChannelID, resp.ThreadID)
	}
	if p.RunnerName() != "echo" {
		t.Errorf("runner name = %q, want echo", p.RunnerName())
	}
}

func TestProcessorEmptyMessage(t *testing.T) {
	p := NewProcessor(workflow.EchoRunner{})
	resp, err := p.HandleMessage(context.Background(), IncomingMessage{Text: "   "})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(resp.Text, "empty message") {
		t.Errorf("expected empty message response, got: %s", resp.Text)
	}
}

func TestProcessorWorkflowError(t *testing.T) {
	p := NewProcessor(failingRunner{})
	resp, err := p.HandleMessage(context.Background(), IncomingMessage{Text: "hi"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(resp.Text, "upstream unavailable") {
		t.Errorf("expected workflow error in reply, got: %s", resp.Text)
	}
}

func TestProcessorNilRunner(t *testing.T) {
	p := NewProcessor(nil)
	resp, err := p.HandleMessage(context.Background(), IncomingMessage{Text: "hi"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(resp.Text, "not configured") {
		t.Errorf("expected configuration error, got: %s", resp.Text)
	}
}

// --- URL verification handshake ---

func TestHandleVerify(t *testing.T) {
	h := newTestRouter(t, testChannel(), &fakeSubmitter{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/bots/wecom/main?"+sealedEcho(t, "1234567890"), nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "1234567890" {
		t.Errorf("body = %q, want %q", rec.Body.String(), "1234567890")
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("content type = %q", ct)
	}
}

func TestHandleVerifyBadSignature(t *testing.T) {
	h := newTestRouter(t, testChannel(), &fakeSubmitter{}, nil)

	q, _ := url.ParseQuery(sealedEcho(t, "1234567890"))
	q.Set("timestamp", "1700000001")
	req := httptest.NewRequest(http.MethodGet, "/api/bots/wecom/main?"+q.Encode(), nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestHandleVerifyMissingParams(t *testing.T) {
	h := newTestRouter(t, testChannel(), &fakeSubmitter{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/bots/wecom/main?timestamp=1&nonce=n", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleVerifyWrongReceiver(t *testing.T) {
	ch := testChannel()
	ch.ReceiverID = "corp2"
	h := newTestRouter(t, ch, &fakeSubmitter{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/bots/wecom/main?"+sealedEcho(t, "1234567890"), nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", rec.Code)
	}
}

func TestUnknownChannel(t *testing.T) {
	h := newTestRouter(t, testChannel(), &fakeSubmitter{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/bots/wecom/other?"+sealedEcho(t, "x"), nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

// --- Message callbacks ---

func TestHandleCallbackDispatchesText(t *testing.T) {
	sub := &fakeSubmitter{}
	h := newTestRouter(t, testChannel(), sub, nil)

	query, body := sealedCallback(t, textMessage)
	rec := postCallback(h, "main", query, body)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.Len() != 0 {
		t.Errorf("body = %q, want empty", rec.Body.String())
	}
	if len(sub.jobs) != 1 {
		t.Fatalf("submitted %d jobs, want 1", len(sub.jobs))
	}

	job := sub.jobs[0]
	if job.WebhookURL != testHook {
		t.Errorf("webhook = %q, want %q", job.WebhookURL, testHook)
	}
	msg := job.Message
	if msg.Platform != PlatformWeCom || msg.Channel != "main" {
		t.Errorf("platform/channel = %q/%q", msg.Platform, msg.Channel)
	}
	if msg.Text != "@bot hello" {
		t.Errorf("text = %q", msg.Text)
	}
	if msg.ChannelID != "wrkGroup1" || msg.UserID != "zhangsan" || msg.MsgID != "msg-1" {
		t.Errorf("unexpected message fields: %+v", msg)
	}

	var meta map[string]any
	if err := json.Unmarshal([]byte(msg.Metadata), &meta); err != nil {
		t.Fatalf("metadata is not JSON: %v", err)
	}
	if meta["chatid"] != "wrkGroup1" {
		t.Errorf("metadata chatid = %v", meta["chatid"])
	}
}

func TestHandleCallbackNonTextNotDispatched(t *testing.T) {
	sub := &fakeSubmitter{}
	h := newTestRouter(t, testChannel(), sub, nil)

	query, body := sealedCallback(t, imageMessage)
	rec := postCallback(h, "main", query, body)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(sub.jobs) != 0 {
		t.Errorf("submitted %d jobs, want 0", len(sub.jobs))
	}
}

func TestHandleCallbackAllowedChats(t *testing.T) {
	tests := []struct {
		patterns []string
		want     int
	}{
		{nil, 1},
		{[]string{"wrkGroup*"}, 1},
		{[]string{"other", "wrk?roup1"}, 1},
		{[]string{"wrkOther*"}, 0},
	}
	for _, tt := range tests {
		ch := testChannel()
		ch.AllowedChats = tt.patterns
		sub := &fakeSubmitter{}
		h := newTestRouter(t, ch, sub, nil)

		query, body := sealedCallback(t, textMessage)
		rec := postCallback(h, "main", query, body)
		if rec.Code != http.StatusOK {
			t.Errorf("patterns %v: status = %d", tt.patterns, rec.Code)
		}
		if len(sub.jobs) != tt.want {
			t.Errorf("patterns %v: submitted %d jobs, want %d", tt.patterns, len(sub.jobs), tt.want)
		}
	}
}

func TestHandleCallbackRejects(t *testing.T) {
	query, body := sealedCallback(t, textMessage)
	tampered, _ := url.ParseQuery(query)
	tampered.Set("nonce", "n2")

	tests := []struct {
		name  string
		query string
		body  string
		want  int
	}{
		{"bad signature", tampered.Encode(), body, http.StatusForbidden},
		{"missing signature", "timestamp=1700000000&nonce=n1", body, http.StatusBadRequest},
		{"no encrypt element", query, "<xml><ToUserName>corp1</ToUserName></xml>", http.StatusForbidden},
		{"not xml", query, "hello", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := &fakeSubmitter{}
			h := newTestRouter(t, testChannel(), sub, nil)
			rec := postCallback(h, "main", tt.query, tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			if len(sub.jobs) != 0 {
				t.Errorf("submitted %d jobs, want 0", len(sub.jobs))
			}
		})
	}
}

func TestHandleCallbackDuplicateSuppressed(t *testing.T) {
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { database.Close() })
	store := audit.NewStore(database)

	sub := &fakeSubmitter{}
	h := newTestRouter(t, testChannel(), sub, store)

	query, body := sealedCallback(t, textMessage)
	for i := 0; i < 3; i++ {
		rec := postCallback(h, "main", query, body)
		if rec.Code != http.StatusOK {
			t.Fatalf("attempt %d: status = %d", i, rec.Code)
		}
	}
	if len(sub.jobs) != 1 {
		t.Errorf("submitted %d jobs, want 1", len(sub.jobs))
	}
	if sub.jobs[0].Message.EventID == "" {
		t.Error("job carries no event id")
	}

	events, err := store.Query(context.Background(), audit.QueryFilter{Channel: "main"})
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || events[0].Outcome != audit.OutcomeDispatched {
		t.Errorf("events = %+v", events)
	}
}

func TestHandleCallbackQueueFullMarksDropped(t *testing.T) {
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { database.Close() })
	store := audit.NewStore(database)

	h := newTestRouter(t, testChannel(), &fakeSubmitter{reject: true}, store)

	query, body := sealedCallback(t, textMessage)
	rec := postCallback(h, "main", query, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	events, err := store.Query(context.Background(), audit.QueryFilter{Channel: "main"})
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d events, want 1", len(events))
	}
	if events[0].Outcome != audit.OutcomeDropped {
		t.Errorf("outcome = %q, want %q", events[0].Outcome, audit.OutcomeDropped)
	}
}

func TestHandleCallbackWithoutDispatcher(t *testing.T) {
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { database.Close() })
	store := audit.NewStore(database)

	cache, err := wxcrypt.NewCache(wxcrypt.DefaultCacheSize)
	if err != nil {
		t.Fatal(err)
	}
	var logs bytes.Buffer
	h := NewWeComHandler(WeComOptions{
		Channels: []config.ChannelConfig{testChannel()},
		Cache:    cache,
		Events:   store,
		Logger:   slog.New(slog.NewTextHandler(&logs, nil)),
	})
	r := chi.NewRouter()
	RegisterRoutes(r, h)

	query, body := sealedCallback(t, textMessage)
	rec := postCallback(r, "main", query, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	out := logs.String()
	if !strings.Contains(out, "no dispatcher configured") {
		t.Errorf("expected missing dispatcher log, got: %s", out)
	}
	if strings.Contains(out, "queue full") {
		t.Errorf("missing dispatcher reported as a full queue: %s", out)
	}

	events, err := store.Query(context.Background(), audit.QueryFilter{Channel: "main"})
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 || events[0].Outcome != audit.OutcomeDropped {
		t.Errorf("events = %+v", events)
	}
}

// --- Dispatcher ---

func TestDispatcherProcessesJobs(t *testing.T) {
	sender := &fakeSender{}
	recorder := &fakeRecorder{}
	d := NewDispatcher(NewGateway(NewProcessor(workflow.EchoRunner{}), logx.Discard()), sender, DispatcherOptions{
		Workers:    2,
		QueueSize:  8,
		RunnerName: "echo",
		Recorder:   recorder,
		Logger:     logx.Discard(),
	})
	d.Start(context.Background())

	for i := 0; i < 5; i++ {
		ok := d.Submit(Job{
			WebhookURL: testHook,
			Message: IncomingMessage{
				EventID:   fmt.Sprintf("ev-%d", i),
				Channel:   "main",
				ChannelID: "wrkGroup1",
				Text:      fmt.Sprintf("hello %d", i),
			},
		})
		if !ok {
			t.Fatalf("submit %d rejected", i)
		}
	}
	d.Stop()

	if len(sender.calls) != 5 {
		t.Fatalf("sent %d pushes, want 5", len(sender.calls))
	}
	found := false
	for _, c := range sender.calls {
		if c == testHook+"|wrkGroup1|hello 3" {
			found = true
		}
	}
	if !found {
		t.Errorf("push for job 3 missing: %v", sender.calls)
	}

	if len(recorder.deliveries) != 5 {
		t.Fatalf("recorded %d deliveries, want 5", len(recorder.deliveries))
	}
	for _, del := range recorder.deliveries {
		if !del.OK || del.Runner != "echo" || del.Channel != "main" {
			t.Errorf("unexpected delivery: %+v", del)
		}
	}
}

func TestDispatcherRecordsFailedPush(t *testing.T) {
	sender := &fakeSender{fail: true}
	recorder := &fakeRecorder{}
	d := NewDispatcher(NewGateway(NewProcessor(workflow.EchoRunner{}), logx.Discard()), sender, DispatcherOptions{
		Workers:  1,
		Recorder: recorder,
		Logger:   logx.Discard(),
	})
	d.Start(context.Background())
	d.Submit(Job{WebhookURL: testHook, Message: IncomingMessage{EventID: "ev-1", Text: "hi"}})
	d.Stop()

	if len(recorder.deliveries) != 1 {
		t.Fatalf("recorded %d deliveries, want 1", len(recorder.deliveries))
	}
	if recorder.deliveries[0].OK {
		t.Error("delivery marked ok after failed push")
	}
}

func TestDispatcherSubmitNeverBlocks(t *testing.T) {
	d := NewDispatcher(NewGateway(&mockHandler{}, logx.Discard()), &fakeSender{}, DispatcherOptions{
		Workers:   1,
		QueueSize: 1,
		Logger:    logx.Discard(),
	})
	// Not started, so nothing drains the queue.
	if !d.Submit(Job{}) {
		t.Fatal("first submit rejected")
	}

	done := make(chan bool, 1)
	go func() { done <- d.Submit(Job{}) }()
	select {
	case ok := <-done:
		if ok {
			t.Error("submit to a full queue accepted")
		}
	case <-time.After(time.Second):
		t.Fatal("submit blocked on a full queue")
	}
	if d.Pending() != 1 {
		t.Errorf("pending = %d, want 1", d.Pending())
	}
}

func TestDispatcherSubmitAfterStop(t *testing.T) {
	d := NewDispatcher(NewGateway(&mockHandler{}, logx.Discard()), &fakeSender{}, DispatcherOptions{Logger: logx.Discard()})
	d.Start(context.Background())
	d.Stop()
	d.Stop()
	if d.Submit(Job{}) {
		t.Error("submit accepted after stop")
	}
}

// --- Webhook sender ---

func TestWebhookSender(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %q", ct)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &got); err != nil {
			t.Errorf("body is not JSON: %v", err)
		}
		w.Write([]byte(`{"errcode":0,"errmsg":"ok"}`))
	}))
	defer srv.Close()

	s := NewWebhookSender(time.Second, logx.Discard())
	if !s.SendMarkdown(context.Background(), srv.URL, "wrkGroup1", "**hi**") {
		t.Fatal("SendMarkdown returned false")
	}
	if got["chatid"] != "wrkGroup1" || got["msgtype"] != "markdown" {
		t.Errorf("unexpected push: %v", got)
	}
	md, _ := got["markdown"].(map[string]any)
	if md["content"] != "**hi**" {
		t.Errorf("content = %v", md["content"])
	}
}

func TestWebhookSenderFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"http error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{"errcode", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"errcode":93000,"errmsg":"invalid webhook url"}`))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()
			s := NewWebhookSender(time.Second, logx.Discard())
			if s.SendMarkdown(context.Background(), srv.URL, "c", "x") {
				t.Error("SendMarkdown returned true")
			}
		})
	}

	s := NewWebhookSender(time.Second, logx.Discard())
	if s.SendMarkdown(context.Background(), "http://127.0.0.1:1/unreachable", "c", "x") {
		t.Error("SendMarkdown to unreachable host returned true")
	}
}
