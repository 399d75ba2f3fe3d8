// AngelaMos | 2026
// dispatcher.go

package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pamojakenya/backend/internal/core"
	"github.com/pamojakenya/backend/internal/metrics"
)

const (
	outcomeSent    = "sent"
	outcomeFailed  = "failed"
	outcomeDropped = "dropped"
)

var ErrDispatcherClosed = errors.New("notification dispatcher closed")

// Dispatcher delivers events on a bounded queue served by a fixed worker
// pool. Notify never blocks and delivery failures never reach the caller.
type Dispatcher struct {
	sender      Sender
	templates   *Templates
	orgName     string
	logger      *slog.Logger
	sendTimeout time.Duration
	workers     int

	mu     sync.RWMutex
	closed bool
	queue  chan Event
	wg     sync.WaitGroup
}

type Option func(*Dispatcher)

func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

func WithQueueSize(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.queue = make(chan Event, n)
		}
	}
}

func WithWorkers(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.workers = n
		}
	}
}

func WithOrgName(name string) Option {
	return func(d *Dispatcher) {
		if name != "" {
			d.orgName = name
		}
	}
}

func WithSendTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.sendTimeout = timeout
		}
	}
}

func NewDispatcher(
	sender Sender,
	templates *Templates,
	opts ...Option,
) (*Dispatcher, error) {
	if sender == nil {
		return nil, errors.New("notify: nil sender")
	}
	if templates == nil {
		return nil, errors.New("notify: nil templates")
	}

	d := &Dispatcher{
		sender:      sender,
		templates:   templates,
		orgName:     "Pamoja",
		logger:      slog.Default(),
		sendTimeout: 30 * time.Second,
		workers:     1,
		queue:       make(chan Event, 64),
	}
	for _, opt := range opts {
		opt(d)
	}

	for range d.workers {
		d.wg.Add(1)
		go d.work()
	}

	return d, nil
}

// Notify enqueues ev for delivery. When the queue is full or the dispatcher
// is closed the event is dropped with a warning.
func (d *Dispatcher) Notify(ctx context.Context, ev Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop(ctx, ev, "dispatcher closed")
		return
	}

	select {
	case d.queue <- ev:
		metrics.SetQueueDepth(len(d.queue))
	default:
		d.drop(ctx, ev, "queue full")
	}
}

func (d *Dispatcher) drop(ctx context.Context, ev Event, reason string) {
	metrics.ObserveNotification(string(ev.Topic), outcomeDropped)
	d.logger.WarnContext(ctx, "notification dropped",
		"reason", reason,
		"topic", ev.Topic,
		"kind", ev.Kind,
		"to", ev.To.Email,
	)
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for ev := range d.queue {
		metrics.SetQueueDepth(len(d.queue))
		d.deliver(ev)
	}
}

func (d *Dispatcher) deliver(ev Event) {
	ctx, cancel := context.WithTimeout(context.Background(), d.sendTimeout)
	defer cancel()

	if err := d.send(ctx, ev); err != nil {
		metrics.ObserveNotification(string(ev.Topic), outcomeFailed)
		d.logger.Warn("notification failed",
			"topic", ev.Topic,
			"kind", ev.Kind,
			"decision", ev.Decision,
			"to", ev.To.Email,
			"error", err,
		)
		return
	}

	metrics.ObserveNotification(string(ev.Topic), outcomeSent)
}

func (d *Dispatcher) send(ctx context.Context, ev Event) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("sender panic: %v: %w", p, core.ErrTransient)
		}
	}()

	msg, err := d.templates.Render(d.orgName, ev)
	if err != nil {
		return fmt.Errorf("render: %w", err)
	}

	if err := d.sender.Send(ctx, msg); err != nil {
		return fmt.Errorf("send: %w: %w", err, core.ErrTransient)
	}
	return nil
}

// Close stops accepting events and waits for queued ones to be delivered or
// for ctx to expire.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("drain notifications: %w", ctx.Err())
	}
}

// Ping reports whether the dispatcher still accepts events.
func (d *Dispatcher) Ping(context.Context) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrDispatcherClosed
	}
	return nil
}

// Pending is the number of events waiting for a worker.
func (d *Dispatcher) Pending() int {
	return len(d.queue)
}

// Nop discards every event. Services fall back to it when no dispatcher is
// configured.
type Nop struct{}

func (Nop) Notify(context.Context, Event) {}
