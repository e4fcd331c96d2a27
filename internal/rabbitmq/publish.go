package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"score_feed/internal/metrics"
)

const defaultExchangeLabel = "(default)"

type Producer struct {
	exchange    string
	contentType string
	persistent  bool
	channel     *Channel
	logger      *slog.Logger

	confirms chan amqp.Confirmation

	mu          sync.Mutex
	outstanding map[uint64]struct{} // sequence numbers waiting for a confirm
}

// Publishing settings for NewProducer.
type ProducerOption func(*Producer)

func WithContentType(contentType string) ProducerOption {
	return func(p *Producer) { p.contentType = contentType }
}

// WithPersistent marks messages persistent (delivery mode 2).
func WithPersistent(persistent bool) ProducerOption {
	return func(p *Producer) { p.persistent = persistent }
}

// Publish hands one message to the broker and returns as soon as the client
// library has written it. Confirms, when enabled, are tracked by
// ConfirmHandler and never awaited here.
func (p *Producer) Publish(ctx context.Context, routingKey string, body []byte) error {
	mode := amqp.Transient
	if p.persistent {
		mode = amqp.Persistent
	}

	seqNo := p.channel.GetNextPublishSeqNo()
	if err := p.channel.PublishWithContext(
		ctx,
		p.exchange, // publish to an exchange
		routingKey, // routing to 0 or more queues
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:  p.contentType,
			DeliveryMode: mode,
			MessageId:    uuid.NewString(),
			Timestamp:    time.Now(),
			Body:         body,
		},
	); err != nil {
		return fmt.Errorf("publish to %s/%s: %w", p.exchangeLabel(), routingKey, err)
	}

	if p.confirms != nil {
		p.mu.Lock()
		p.outstanding[seqNo] = struct{}{}
		p.mu.Unlock()
	}

	metrics.Published.WithLabelValues(p.exchangeLabel()).Inc()
	p.logger.Debug("published message",
		"exchange", p.exchangeLabel(),
		"routing_key", routingKey,
		"seq_no", seqNo,
	)
	return nil
}

// ConfirmHandler drains publisher confirms until ctx is done or the channel
// closes. It is a no-op on channels that are not in confirm mode.
func (p *Producer) ConfirmHandler(ctx context.Context) {
	if p.confirms == nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			if n := p.Outstanding(); n > 0 {
				p.logger.Debug("confirmHandler is stopping", "outstanding", n)
			}
			return
		case confirmed, ok := <-p.confirms:
			if !ok {
				return
			}
			if confirmed.DeliveryTag == 0 {
				continue
			}
			if confirmed.Ack {
				metrics.Confirms.WithLabelValues("ack").Inc()
				p.logger.Debug("confirmed delivery", "delivery_tag", confirmed.DeliveryTag)
			} else {
				metrics.Confirms.WithLabelValues("nack").Inc()
				p.logger.Warn("failed delivery", "delivery_tag", confirmed.DeliveryTag)
			}
			p.mu.Lock()
			delete(p.outstanding, confirmed.DeliveryTag)
			p.mu.Unlock()
		}
	}
}

// Outstanding is the number of published messages not yet confirmed.
func (p *Producer) Outstanding() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.outstanding)
}

func (p *Producer) exchangeLabel() string {
	if p.exchange == "" {
		return defaultExchangeLabel
	}
	return p.exchange
}

// NewProducer publishes through channel to exchange; "" is the default
// exchange, which routes by queue name.
func NewProducer(channel *Channel, exchange string, opts ...ProducerOption) *Producer {
	producer := &Producer{
		exchange:    exchange,
		contentType: "text/plain",
		channel:     channel,
		logger:      channel.logger,
		outstanding: make(map[uint64]struct{}),
	}
	for _, opt := range opts {
		opt(producer)
	}
	if channel.Confirming() {
		producer.confirms = channel.NotifyPublish(make(chan amqp.Confirmation, 64))
	}
	return producer
}
