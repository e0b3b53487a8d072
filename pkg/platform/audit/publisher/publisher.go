// Package publisher delivers audit events to a sink, synchronously or through
// a bounded queue drained by a background worker.
package publisher

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	audit "waypoint/pkg/platform/audit"
	"waypoint/pkg/platform/audit/worker"
	"waypoint/pkg/requestcontext"
)

var (
	ErrBufferFull  = errors.New("audit buffer full")
	ErrClosed      = errors.New("audit publisher closed")
	ErrCircuitOpen = errors.New("audit sink circuit open")
)

// Publisher implements audit.Emitter.
type Publisher struct {
	sink    audit.Sink
	breaker *CircuitBreaker
	metrics *Metrics
	logger  *slog.Logger

	bufferSize int
	queue      chan audit.Event
	done       chan struct{}

	mu     sync.RWMutex
	closed bool
}

type Option func(*Publisher)

// WithAsyncBuffer queues up to size events and delivers them in the
// background. Emit never blocks; a full queue drops the event.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		p.bufferSize = size
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

// WithCircuitBreaker skips the sink for cooldown after threshold consecutive
// failures.
func WithCircuitBreaker(threshold int, cooldown time.Duration) Option {
	return func(p *Publisher) {
		p.breaker = NewCircuitBreaker(threshold, cooldown)
	}
}

func NewPublisher(sink audit.Sink, opts ...Option) *Publisher {
	p := &Publisher{sink: sink, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	if p.bufferSize > 0 {
		p.queue = make(chan audit.Event, p.bufferSize)
		p.done = make(chan struct{})
		w := worker.NewWorker(sinkFunc(p.deliver), p.queue, p.logger, nil)
		go func() {
			defer close(p.done)
			w.Run(context.Background())
		}()
	}
	return p
}

// Emit stamps the event with time, category and request id when missing and
// hands it to the sink.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Category == "" {
		event.Category = event.Action.Category()
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}

	if p.queue == nil {
		if err := p.deliver(ctx, event); err != nil {
			return err
		}
		p.metrics.incEmitted(string(event.Category))
		return nil
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	select {
	case p.queue <- event:
		p.metrics.incEmitted(string(event.Category))
		return nil
	default:
		p.metrics.incDropped("buffer_full")
		return ErrBufferFull
	}
}

// Close stops accepting events and waits until the queue is drained.
func (p *Publisher) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	if p.queue != nil {
		close(p.queue)
	}
	p.mu.Unlock()

	if p.done != nil {
		<-p.done
	}
}

func (p *Publisher) deliver(ctx context.Context, event audit.Event) error {
	if p.breaker != nil && !p.breaker.Allow() {
		p.metrics.incDropped("circuit_open")
		return ErrCircuitOpen
	}
	err := p.sink.Append(ctx, event)
	if p.breaker == nil {
		if err != nil {
			p.metrics.incFailure()
		}
		return err
	}
	if err != nil {
		p.metrics.incFailure()
		p.metrics.setCircuitOpen(p.breaker.RecordFailure())
		return err
	}
	p.breaker.RecordSuccess()
	p.metrics.setCircuitOpen(false)
	return nil
}

type sinkFunc func(context.Context, audit.Event) error

func (f sinkFunc) Append(ctx context.Context, event audit.Event) error {
	return f(ctx, event)
}
