package reactor

import (
	amqp "github.com/rabbitmq/amqp091-go"
)

// Kind names a lifecycle step the loop can dispatch.
type Kind int

const (
	Started Kind = iota
	ConnectionOpened
	ChannelOpened
	QueueDeclared
	Delivery
	ConsumerCancelled
	CancelOk
	Interrupted
	ChannelClosed
	ConnectionClosed
)

var kindNames = [...]string{
	Started:           "started",
	ConnectionOpened:  "connection_opened",
	ChannelOpened:     "channel_opened",
	QueueDeclared:     "queue_declared",
	Delivery:          "delivery",
	ConsumerCancelled: "consumer_cancelled",
	CancelOk:          "cancel_ok",
	Interrupted:       "interrupted",
	ChannelClosed:     "channel_closed",
	ConnectionClosed:  "connection_closed",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// Event is one dispatched step. Only the fields relevant to Kind are set.
type Event struct {
	Kind Kind

	// Delivery events
	Delivery amqp.Delivery

	// ChannelClosed and ConnectionClosed; nil for a requested close
	Reason *amqp.Error

	// ConsumerCancelled
	ConsumerTag string
}
