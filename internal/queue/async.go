package queue

import (
    "context"
    "errors"
    "sync"
    "time"

    "github.com/sirupsen/logrus"

    "github.com/iliyamo/qa-forum-api/internal/metrics"
)

// ErrBufferFull is returned by AsyncPublisher.Publish when the buffer has
// no room; the event is dropped.
var ErrBufferFull = errors.New("event buffer full")

// AsyncPublisher decouples request handling from the broker.  Publish only
// enqueues; a single worker forwards events to the wrapped Publisher.
type AsyncPublisher struct {
    next    Publisher
    log     logrus.FieldLogger
    timeout time.Duration
    events  chan ActivityEvent

    once sync.Once
    done chan struct{}
}

func NewAsyncPublisher(next Publisher, buffer int, log logrus.FieldLogger) *AsyncPublisher {
    if buffer < 1 {
        buffer = 1
    }
    p := &AsyncPublisher{
        next:    next,
        log:     log,
        timeout: 5 * time.Second,
        events:  make(chan ActivityEvent, buffer),
        done:    make(chan struct{}),
    }
    go p.run()
    return p
}

func (p *AsyncPublisher) run() {
    defer close(p.done)
    for ev := range p.events {
        ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
        err := p.next.Publish(ctx, ev)
        cancel()
        metrics.RecordEvent(ev.Type, err == nil)
        if err != nil {
            p.log.WithError(err).WithField("event", ev.Type).Warn("publish activity event")
        }
    }
}

// Publish enqueues ev without blocking.
func (p *AsyncPublisher) Publish(_ context.Context, ev ActivityEvent) error {
    if ev.OccurredAt.IsZero() {
        ev.OccurredAt = time.Now().UTC()
    }
    select {
    case p.events <- ev:
        return nil
    default:
        metrics.RecordEvent(ev.Type, false)
        return ErrBufferFull
    }
}

// Close drains buffered events, then closes the wrapped publisher.  Publish
// must not be called after Close.
func (p *AsyncPublisher) Close() error {
    p.once.Do(func() { close(p.events) })
    <-p.done
    return p.next.Close()
}
