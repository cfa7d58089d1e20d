package service

import (
	"context"
	"sync"
	"time"

	"storefront/config"
	"storefront/internal/core/domain"
	"storefront/internal/core/ports"

	"github.com/rs/zerolog"
)

const publishTimeout = 5 * time.Second

// NotificationDispatcher delivers notifications after commit on a pool of
// workers. Enqueue never blocks: when the queue is full the notification is
// dropped and logged. Each publish is retried with linear backoff.
type NotificationDispatcher struct {
	notifier    ports.Notifier
	queue       chan domain.Notification
	maxAttempts int
	backoff     time.Duration
	log         zerolog.Logger

	mu        sync.RWMutex
	closed    bool
	abort     chan struct{}
	abortOnce sync.Once
	wg        sync.WaitGroup
}

// NewNotificationDispatcher starts cfg.Workers workers publishing through
// notifier.
func NewNotificationDispatcher(notifier ports.Notifier, cfg config.NotifierConfig, log zerolog.Logger) *NotificationDispatcher {
	workers := max(cfg.Workers, 1)
	d := &NotificationDispatcher{
		notifier:    notifier,
		queue:       make(chan domain.Notification, max(cfg.QueueSize, 1)),
		maxAttempts: max(cfg.MaxAttempts, 1),
		backoff:     cfg.RetryBackoff,
		log:         log,
		abort:       make(chan struct{}),
	}
	d.wg.Add(workers)
	for range workers {
		go d.work()
	}
	return d
}

// Enqueue hands n to the workers.
func (d *NotificationDispatcher) Enqueue(n domain.Notification) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.log.Warn().Str("channel", n.Channel).Str("event", n.Event).Msg("notification dropped: dispatcher closed")
		return
	}
	select {
	case d.queue <- n:
	default:
		d.log.Warn().Str("channel", n.Channel).Str("event", n.Event).Msg("notification dropped: queue full")
	}
}

// Close stops accepting notifications and waits for the queue to drain. If
// ctx ends first, pending retries are abandoned and ctx.Err() is returned.
func (d *NotificationDispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
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
		d.abortOnce.Do(func() { close(d.abort) })
		<-done
		return ctx.Err()
	}
}

func (d *NotificationDispatcher) work() {
	defer d.wg.Done()
	for n := range d.queue {
		d.deliver(n)
	}
}

func (d *NotificationDispatcher) deliver(n domain.Notification) {
	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		err := d.notifier.Publish(ctx, n.Channel, n.Event, n.Payload)
		cancel()
		if err == nil {
			return
		}

		d.log.Warn().Err(err).
			Str("channel", n.Channel).
			Str("event", n.Event).
			Int("attempt", attempt).
			Msg("notification publish failed")

		if attempt == d.maxAttempts {
			break
		}
		select {
		case <-time.After(d.backoff * time.Duration(attempt)):
		case <-d.abort:
			d.log.Error().Str("channel", n.Channel).Str("event", n.Event).Msg("notification abandoned on shutdown")
			return
		}
	}
	d.log.Error().Str("channel", n.Channel).Str("event", n.Event).Msg("notification dropped: all attempts exhausted")
}

// LogNotifier implements ports.Notifier by logging. It is the fallback
// backend when no broker is configured.
type LogNotifier struct {
	log zerolog.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

// Publish logs the notification.
func (n *LogNotifier) Publish(_ context.Context, channel, event string, payload any) error {
	n.log.Info().Str("channel", channel).Str("event", event).Interface("payload", payload).Msg("notification")
	return nil
}
