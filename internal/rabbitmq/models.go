package rabbitmq

import (
	"errors"
	"fmt"
)

const (
	queueType    = "queue"
	exchangeType = "exchange"
)

// Exchange kinds understood by RabbitMQ.
const (
	KindDirect  = "direct"
	KindFanout  = "fanout"
	KindTopic   = "topic"
	KindHeaders = "headers"
)

var (
	ErrEmptyDefinition = errors.New("empty definition struct")
	ErrUnknownKind     = errors.New("unknown exchange type")
)

type Queue struct {
	Name       string
	Durable    bool
	AutoDelete bool `toml:"auto_delete"`
	Exclusive  bool
	Arguments  map[string]interface{}
}

type Exchange struct {
	Name       string
	Type       string
	Durable    bool
	AutoDelete bool `toml:"auto_delete"`
	Arguments  map[string]interface{}
}

func (e Exchange) validate() error {
	switch e.Type {
	case KindDirect, KindFanout, KindTopic, KindHeaders:
		return nil
	}
	return fmt.Errorf("exchange %s: %w %q", e.Name, ErrUnknownKind, e.Type)
}

type Binding struct {
	Source      string
	Destination string
	RoutingKey  string `toml:"routing_key"`
	Type        string
	Arguments   map[string]interface{}
}

type Definition struct {
	Queues    []Queue
	Exchanges []Exchange
	Bindings  []Binding
}
