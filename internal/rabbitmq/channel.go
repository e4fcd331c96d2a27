package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

var (
	ErrNotConnected  = errors.New("not connected to a server")
	ErrAlreadyClosed = errors.New("already closed: not connected to the server")
)

// Channeler is the part of *amqp.Channel this package drives. Tests swap in
// the in-memory broker from rabbitmqtest.
type Channeler interface {
	Confirm(noWait bool) error
	Qos(prefetchCount, prefetchSize int, global bool) error
	NotifyClose(c chan *amqp.Error) chan *amqp.Error
	NotifyCancel(c chan string) chan string
	NotifyPublish(confirm chan amqp.Confirmation) chan amqp.Confirmation
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	ExchangeBind(destination, key, source string, noWait bool, args amqp.Table) error
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Cancel(consumer string, noWait bool) error
	GetNextPublishSeqNo() uint64
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Channel is the single channel a program uses for every operation after
// the connection is up.
type Channel struct {
	Channeler
	logger         *slog.Logger
	IsDisconnected chan *amqp.Error
	confirming     bool

	mu      sync.Mutex
	isReady bool
}

func openChannel(conn Connector, confirm bool, logger *slog.Logger) (*Channel, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if confirm {
		if err := ch.Confirm(false); err != nil {
			ch.Close()
			return nil, fmt.Errorf("confirm mode: %w", err)
		}
	}

	c := &Channel{
		Channeler:  ch,
		logger:     logger,
		confirming: confirm,
		isReady:    true,
	}
	c.IsDisconnected = ch.NotifyClose(make(chan *amqp.Error, 1))
	return c, nil
}

// IsReady reports whether Close has not been called yet.
func (c *Channel) IsReady() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isReady
}

// Confirming reports whether the channel was put in confirm mode.
func (c *Channel) Confirming() bool {
	return c.confirming
}

// DeclareQueue declares q. An empty name asks the broker for a generated one,
// which is returned in the result.
func (c *Channel) DeclareQueue(q Queue) (amqp.Queue, error) {
	declared, err := c.QueueDeclare(
		q.Name,
		q.Durable,
		q.AutoDelete,
		q.Exclusive,
		false,
		table(q.Arguments),
	)
	if err != nil {
		return amqp.Queue{}, fmt.Errorf("declare queue %q: %w", q.Name, err)
	}
	c.logger.Debug("queue declared", "queue", declared.Name, "durable", q.Durable, "exclusive", q.Exclusive)
	return declared, nil
}

func (c *Channel) DeclareExchange(e Exchange) error {
	if err := e.validate(); err != nil {
		return err
	}
	err := c.ExchangeDeclare(
		e.Name,
		e.Type,
		e.Durable,
		e.AutoDelete,
		false,
		false,
		table(e.Arguments),
	)
	if err != nil {
		return fmt.Errorf("declare exchange %s: %w", e.Name, err)
	}
	c.logger.Debug("exchange declared", "exchange", e.Name, "type", e.Type)
	return nil
}

// Bind attaches a queue (or, for exchange bindings, an exchange) to the
// source exchange.
func (c *Channel) Bind(b Binding) error {
	var err error
	if b.Type == exchangeType {
		err = c.ExchangeBind(b.Destination, b.RoutingKey, b.Source, false, table(b.Arguments))
	} else {
		err = c.QueueBind(b.Destination, b.RoutingKey, b.Source, false, table(b.Arguments))
	}
	if err != nil {
		return fmt.Errorf("bind %s to %s: %w", b.Destination, b.Source, err)
	}
	c.logger.Debug("binding created", "source", b.Source, "destination", b.Destination, "routing_key", b.RoutingKey)
	return nil
}

// CreateDefinitions declares exchanges, then queues, then bindings. It stops
// at the first failure since the broker closes the channel on it anyway.
func (c *Channel) CreateDefinitions(definition *Definition) error {
	if definition == nil {
		return ErrEmptyDefinition
	}

	for _, e := range definition.Exchanges {
		if err := c.DeclareExchange(e); err != nil {
			return err
		}
	}

	for _, q := range definition.Queues {
		if _, err := c.DeclareQueue(q); err != nil {
			return err
		}
	}

	for _, b := range definition.Bindings {
		if err := c.Bind(b); err != nil {
			return err
		}
	}
	return nil
}

func (c *Channel) Close() error {
	c.mu.Lock()
	if !c.isReady {
		c.mu.Unlock()
		return ErrAlreadyClosed
	}
	c.isReady = false
	c.mu.Unlock()

	if err := c.Channeler.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		return fmt.Errorf("close channel: %w", err)
	}
	return nil
}

func table(args map[string]interface{}) amqp.Table {
	if len(args) == 0 {
		return nil
	}
	return amqp.Table(args)
}
