package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"score_feed/internal/metrics"
)

var ErrDeliveriesClosed = errors.New("deliveries channel closed")

// Handler processes one delivery. A non-nil error rejects the message without
// requeue unless the consumer runs in auto-ack mode.
type Handler func(ctx context.Context, delivery amqp.Delivery) error

type Consumer struct {
	queueName   string
	consumerTag string
	autoAck     bool
	prefetch    int
	deliveries  <-chan amqp.Delivery
	channel     *Channel
	logger      *slog.Logger
	callback    Handler
}

type ConsumeOption func(*Consumer)

// WithAutoAck lets the broker consider messages settled on delivery.
func WithAutoAck(autoAck bool) ConsumeOption {
	return func(c *Consumer) { c.autoAck = autoAck }
}

// WithPrefetch limits unacknowledged deliveries in flight; 0 means unlimited.
func WithPrefetch(n int) ConsumeOption {
	return func(c *Consumer) { c.prefetch = n }
}

// Tag is the consumer tag registered with the broker.
func (c *Consumer) Tag() string {
	return c.consumerTag
}

// Start applies the prefetch limit and registers the consumer. The returned
// channel closes when the consumer is cancelled or the channel goes away.
func (c *Consumer) Start() (<-chan amqp.Delivery, error) {
	if c.channel == nil || !c.channel.IsReady() {
		return nil, ErrNotConnected
	}

	if c.prefetch > 0 && !c.autoAck {
		if err := c.channel.Qos(c.prefetch, 0, false); err != nil {
			return nil, fmt.Errorf("set qos: %w", err)
		}
	}

	var err error
	c.deliveries, err = c.channel.Consume(
		c.queueName,
		c.consumerTag,
		c.autoAck,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("consume %s: %w", c.queueName, err)
	}

	c.logger.Debug("consumer started", "queue", c.queueName, "consumer_tag", c.consumerTag)
	return c.deliveries, nil
}

// Handle runs the callback for one delivery and settles it. Only a failure to
// settle is returned; callback errors are logged and turn into a reject.
func (c *Consumer) Handle(ctx context.Context, delivery amqp.Delivery) error {
	metrics.Delivered.WithLabelValues(c.queueName).Inc()

	err := c.callback(ctx, delivery)
	if c.autoAck {
		if err != nil && ctx.Err() == nil {
			c.logger.Error("handler failed", "queue", c.queueName, "delivery_tag", delivery.DeliveryTag, "error", err)
		}
		return nil
	}

	if err != nil && ctx.Err() != nil {
		// interrupted mid-work: leave it unacked so the broker requeues it
		// when the channel closes
		c.logger.Debug("handler interrupted", "queue", c.queueName, "delivery_tag", delivery.DeliveryTag)
		return nil
	}

	if err != nil {
		c.logger.Error("handler failed", "queue", c.queueName, "delivery_tag", delivery.DeliveryTag, "error", err)
		metrics.Settled.WithLabelValues("reject").Inc()
		if err := delivery.Reject(false); err != nil {
			return fmt.Errorf("reject %d: %w", delivery.DeliveryTag, err)
		}
		return nil
	}

	metrics.Settled.WithLabelValues("ack").Inc()
	if err := delivery.Ack(false); err != nil {
		return fmt.Errorf("ack %d: %w", delivery.DeliveryTag, err)
	}
	return nil
}

// Cancel stops the broker from sending more deliveries to this consumer.
func (c *Consumer) Cancel() error {
	if err := c.channel.Cancel(c.consumerTag, false); err != nil {
		return fmt.Errorf("cancel %s: %w", c.consumerTag, err)
	}
	c.logger.Debug("consumer cancelled", "consumer_tag", c.consumerTag)
	return nil
}

// Consume handles deliveries one at a time until ctx is done, then cancels
// the consumer and returns nil. No delivery is handled once ctx is done, even
// if it was already buffered. It returns ErrDeliveriesClosed if the broker
// side goes away first.
func (c *Consumer) Consume(ctx context.Context) error {
	deliveries, err := c.Start()
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return c.Cancel()

		case delivery, ok := <-deliveries:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return ErrDeliveriesClosed
			}
			if ctx.Err() != nil {
				return c.Cancel()
			}
			if err := c.Handle(ctx, delivery); err != nil {
				return err
			}
		}
	}
}

func NewConsumer(channel *Channel, queueName string, consumerName string, callback Handler, opts ...ConsumeOption) *Consumer {
	consumer := &Consumer{
		queueName:   queueName,
		consumerTag: consumerName + "-" + uuid.NewString(),
		channel:     channel,
		logger:      channel.logger,
		callback:    callback,
	}
	for _, opt := range opts {
		opt(consumer)
	}
	return consumer
}
