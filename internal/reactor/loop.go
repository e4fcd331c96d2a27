// Package reactor runs lifecycle handlers one at a time on a single
// goroutine. Broker notifications arrive on other goroutines and are
// forwarded into the loop as events; handlers never run concurrently.
package reactor

import (
	"context"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"score_feed/internal/logger"
	"score_feed/internal/metrics"
)

// Handler reacts to one event. A non-nil error stops the loop and is
// returned from Run.
type Handler func(ev Event) error

type Loop struct {
	logger   *slog.Logger
	handlers map[Kind]Handler

	// touched only on the loop goroutine
	pending []Event
	stopped bool

	incoming chan Event
	done     chan struct{}
}

func New(log *slog.Logger) *Loop {
	if log == nil {
		log = logger.Discard()
	}
	return &Loop{
		logger:   log,
		handlers: make(map[Kind]Handler),
		incoming: make(chan Event),
		done:     make(chan struct{}),
	}
}

// On registers the handler for kind, replacing any previous one. Call it
// before Run.
func (l *Loop) On(kind Kind, h Handler) {
	l.handlers[kind] = h
}

// Post queues ev behind the events already pending. Only handlers may call
// it; other goroutines use Forward.
func (l *Loop) Post(ev Event) {
	l.pending = append(l.pending, ev)
}

// Stop makes Run return once the current handler finishes. Pending and
// forwarded events are dropped. Only handlers may call it.
func (l *Loop) Stop() {
	l.stopped = true
}

// Forward hands ev to the loop from any goroutine. It reports false if the
// loop has already returned.
func (l *Loop) Forward(ev Event) bool {
	select {
	case l.incoming <- ev:
		return true
	case <-l.done:
		return false
	}
}

// WatchDeliveries forwards every delivery until the channel closes.
func (l *Loop) WatchDeliveries(deliveries <-chan amqp.Delivery) {
	go func() {
		for d := range deliveries {
			if !l.Forward(Event{Kind: Delivery, Delivery: d}) {
				return
			}
		}
	}()
}

// WatchClose forwards a single close event of the given kind when notify
// yields a reason or is closed.
func (l *Loop) WatchClose(kind Kind, notify <-chan *amqp.Error) {
	go func() {
		reason := <-notify
		l.Forward(Event{Kind: kind, Reason: reason})
	}()
}

// WatchCancel forwards broker-initiated consumer cancellations.
func (l *Loop) WatchCancel(notify <-chan string) {
	go func() {
		for tag := range notify {
			if !l.Forward(Event{Kind: ConsumerCancelled, ConsumerTag: tag}) {
				return
			}
		}
	}()
}

// Run dispatches Started and then every posted or forwarded event until a
// handler calls Stop or fails. When ctx is done the loop dispatches
// Interrupted once and keeps running so the shutdown chain can complete.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.done)

	l.Post(Event{Kind: Started})
	interrupt := ctx.Done()

	for !l.stopped {
		if len(l.pending) > 0 {
			ev := l.pending[0]
			l.pending = l.pending[1:]
			if err := l.dispatch(ev); err != nil {
				return err
			}
			continue
		}

		select {
		case <-interrupt:
			interrupt = nil
			l.Post(Event{Kind: Interrupted})
		case ev := <-l.incoming:
			if err := l.dispatch(ev); err != nil {
				return err
			}
		}
	}

	l.logger.Debug("event loop stopped")
	return nil
}

func (l *Loop) dispatch(ev Event) error {
	metrics.LoopEvents.WithLabelValues(ev.Kind.String()).Inc()

	h, ok := l.handlers[ev.Kind]
	if !ok {
		l.logger.Debug("no handler", "event", ev.Kind)
		return nil
	}
	if err := h(ev); err != nil {
		l.stopped = true
		return fmt.Errorf("%s: %w", ev.Kind, err)
	}
	return nil
}
