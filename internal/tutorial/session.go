package tutorial

import (
	"context"
	"errors"

	"score_feed/internal/rabbitmq"
)

// Session is one blocking run: a connection and the single channel every
// later step goes through.
type Session struct {
	env     Env
	channel *rabbitmq.Channel
}

// Open connects and opens the channel, then declares env.Definitions if any.
func Open(ctx context.Context, env Env) (*Session, error) {
	env = env.withDefaults()

	if err := env.Client.Connect(ctx); err != nil {
		return nil, err
	}
	env.println("Connected successfully...")

	channel, err := env.Client.Channel()
	if err != nil {
		env.Client.Close()
		return nil, err
	}
	env.println("Channel opened...")

	s := &Session{env: env, channel: channel}
	if env.Definitions != nil {
		if err := channel.CreateDefinitions(env.Definitions); err != nil {
			s.Close()
			return nil, err
		}
	}
	return s, nil
}

func (s *Session) Channel() *rabbitmq.Channel {
	return s.channel
}

// DeclareQueue returns the queue's name, which the broker picks when q.Name
// is empty.
func (s *Session) DeclareQueue(q rabbitmq.Queue) (string, error) {
	declared, err := s.channel.DeclareQueue(q)
	if err != nil {
		return "", err
	}
	s.env.println("Queue declared....")
	return declared.Name, nil
}

func (s *Session) DeclareExchange(e rabbitmq.Exchange) error {
	if err := s.channel.DeclareExchange(e); err != nil {
		return err
	}
	s.env.println("Exchange declared....")
	return nil
}

func (s *Session) Bind(exchange, queue, routingKey string) error {
	err := s.channel.Bind(rabbitmq.Binding{
		Source:      exchange,
		Destination: queue,
		RoutingKey:  routingKey,
	})
	if err != nil {
		return err
	}
	s.env.printf("Made binding between exchange: %s and queue: %s", exchange, queue)
	return nil
}

func (s *Session) waiting() {
	s.env.println(" [*] Waiting for messages. To exit press CTRL+C")
}

// Close releases the channel and the connection.
func (s *Session) Close() error {
	if err := s.env.Client.Close(); err != nil && !errors.Is(err, rabbitmq.ErrAlreadyClosed) {
		return err
	}
	s.env.println("Closed connection....")
	return nil
}
