package bots

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ziadkadry99/wecombot/internal/audit"
)

// Job is one decrypted message waiting for background processing.
type Job struct {
	Message    IncomingMessage
	WebhookURL string
}

// DeliveryRecorder persists the result of a push.
type DeliveryRecorder interface {
	RecordDelivery(ctx context.Context, d audit.Delivery) error
}

// DispatcherOptions configures a Dispatcher.
type DispatcherOptions struct {
	Workers    int
	QueueSize  int
	JobTimeout time.Duration
	RunnerName string
	Recorder   DeliveryRecorder // optional
	Logger     *slog.Logger
}

// Dispatcher runs jobs on a fixed pool of workers fed by a bounded queue.
// Submit never blocks; a full queue rejects the job.
type Dispatcher struct {
	gateway *Gateway
	sender  Sender
	opts    DispatcherOptions
	logger  *slog.Logger

	queue chan Job
	wg    sync.WaitGroup

	mu      sync.RWMutex
	started bool
	closed  bool
	cancel  context.CancelFunc
}

// NewDispatcher creates a Dispatcher. Call Start before submitting.
func NewDispatcher(gw *Gateway, sender Sender, opts DispatcherOptions) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 1
	}
	if opts.JobTimeout <= 0 {
		opts.JobTimeout = 2 * time.Minute
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		gateway: gw,
		sender:  sender,
		opts:    opts,
		logger:  logger,
		queue:   make(chan Job, opts.QueueSize),
	}
}

// Start launches the workers. Jobs inherit ctx; cancelling it aborts
// in-flight workflow runs and pushes.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.closed {
		return
	}
	d.started = true
	ctx, d.cancel = context.WithCancel(ctx)
	for i := 0; i < d.opts.Workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx)
	}
}

// Submit enqueues job and reports whether it was accepted.
func (d *Dispatcher) Submit(job Job) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return false
	}
	select {
	case d.queue <- job:
		return true
	default:
		return false
	}
}

// Pending returns the number of queued jobs not yet picked up.
func (d *Dispatcher) Pending() int { return len(d.queue) }

// Stop rejects new jobs, lets the workers drain the queue and waits for
// them to finish.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
	if d.cancel != nil {
		d.cancel()
	}
}

func (d *Dispatcher) worker(ctx context.Context) {
	defer d.wg.Done()
	for job := range d.queue {
		d.run(ctx, job)
	}
}

func (d *Dispatcher) run(ctx context.Context, job Job) {
	ctx, cancel := context.WithTimeout(ctx, d.opts.JobTimeout)
	defer cancel()

	msg := job.Message
	logger := d.logger.With("channel", msg.Channel, "chat_id", msg.ChannelID, "msg_id", msg.MsgID)

	delivery := audit.Delivery{
		EventID: msg.EventID,
		Channel: msg.Channel,
		ChatID:  msg.ChannelID,
		Runner:  d.opts.RunnerName,
	}

	resp, err := d.gateway.Process(ctx, msg)
	if err != nil {
		logger.Error("processing message", "err", err)
		delivery.Detail = err.Error()
		d.record(ctx, logger, delivery)
		return
	}

	delivery.OK = d.sender.SendMarkdown(ctx, job.WebhookURL, resp.ChannelID, resp.Text)
	if delivery.OK {
		logger.Info("reply delivered")
	} else {
		delivery.Detail = "push failed"
	}
	d.record(ctx, logger, delivery)
}

func (d *Dispatcher) record(ctx context.Context, logger *slog.Logger, delivery audit.Delivery) {
	if d.opts.Recorder == nil || delivery.EventID == "" {
		return
	}
	// The job context may already be done; the record still matters.
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := d.opts.Recorder.RecordDelivery(rctx, delivery); err != nil {
		logger.Error("recording delivery", "err", err)
	}
}
