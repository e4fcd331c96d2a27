// Package tutorial holds the publisher and consumer programs. Each one
// connects, declares what it needs, moves a handful of messages and writes
// a line to Env.Out for every lifecycle step.
package tutorial

import (
	"context"
	"embed"
	"fmt"
	"io"
	"log/slog"
	"time"

	"score_feed/internal/logger"
	"score_feed/internal/rabbitmq"
)

//go:embed topology/*.toml
var topologyFiles embed.FS

// Env is what every program is started with.
type Env struct {
	Client *rabbitmq.Client
	Out    io.Writer
	Logger *slog.Logger

	// Definitions, when set, are declared right after the channel opens and
	// before the program's own queue or exchange.
	Definitions *rabbitmq.Definition
}

func (e Env) println(a ...any) {
	fmt.Fprintln(e.Out, a...)
}

func (e Env) printf(format string, a ...any) {
	fmt.Fprintf(e.Out, format+"\n", a...)
}

func (e Env) withDefaults() Env {
	if e.Out == nil {
		e.Out = io.Discard
	}
	if e.Logger == nil {
		e.Logger = logger.Discard()
	}
	return e
}

// WorkOptions drive the blocking work queue pair.
type WorkOptions struct {
	Queue    string
	Messages int
	Interval time.Duration
	Work     time.Duration
}

// AsyncOptions drive the event loop pair.
type AsyncOptions struct {
	Queue    string
	Messages int
}

// FeedOptions drive the exchange programs. RoutingKey is the consumer's
// binding key; publishers take their keys from the matches they play.
type FeedOptions struct {
	Exchange   string
	RoutingKey string
	Messages   int
	Interval   time.Duration
	Work       time.Duration
	Format     string
}

// topology reads topology/<name>.toml.
func topology(name string) (*rabbitmq.Definition, error) {
	document, err := topologyFiles.ReadFile("topology/" + name + ".toml")
	if err != nil {
		return nil, fmt.Errorf("topology %s: %w", name, err)
	}
	return rabbitmq.ParseDefinition(document)
}

// queueNamed returns the first queue of the named topology renamed to name.
func queueNamed(topologyName, name string) (rabbitmq.Queue, error) {
	definition, err := topology(topologyName)
	if err != nil {
		return rabbitmq.Queue{}, err
	}
	if len(definition.Queues) == 0 {
		return rabbitmq.Queue{}, fmt.Errorf("topology %s: no queue", topologyName)
	}
	q := definition.Queues[0]
	q.Name = name
	return q, nil
}

// exchangeNamed returns the first exchange of the named topology renamed to
// name.
func exchangeNamed(topologyName, name string) (rabbitmq.Exchange, error) {
	definition, err := topology(topologyName)
	if err != nil {
		return rabbitmq.Exchange{}, err
	}
	if len(definition.Exchanges) == 0 {
		return rabbitmq.Exchange{}, fmt.Errorf("topology %s: no exchange", topologyName)
	}
	e := definition.Exchanges[0]
	e.Name = name
	return e, nil
}

// sleep waits d or until ctx is done, whichever comes first.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
