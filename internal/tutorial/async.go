package tutorial

import (
	"context"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"score_feed/internal/rabbitmq"
	"score_feed/internal/reactor"
)

// asyncSession is the state the event loop handlers share. Only the loop
// goroutine touches it.
type asyncSession struct {
	env   Env
	loop  *reactor.Loop
	queue rabbitmq.Queue

	channel  *rabbitmq.Channel
	producer *rabbitmq.Producer
	consumer *rabbitmq.Consumer

	// first broker-side failure; reported once the connection is gone
	failure error
}

func newAsyncSession(ctx context.Context, env Env, queueName string) (*asyncSession, error) {
	queue, err := queueNamed("async_queue", queueName)
	if err != nil {
		return nil, err
	}

	env = env.withDefaults()
	s := &asyncSession{
		env:   env,
		loop:  reactor.New(env.Logger),
		queue: queue,
	}

	s.loop.On(reactor.Started, func(reactor.Event) error { return s.connect(ctx) })
	s.loop.On(reactor.ConnectionOpened, s.openChannel)
	s.loop.On(reactor.ChannelOpened, s.declare)
	s.loop.On(reactor.ChannelClosed, s.channelClosed)
	return s, nil
}

func (s *asyncSession) connect(ctx context.Context) error {
	if err := s.env.Client.Connect(ctx); err != nil {
		return err
	}
	s.env.println("Reached connection open")
	s.loop.WatchClose(reactor.ConnectionClosed, s.env.Client.NotifyClose())
	s.loop.Post(reactor.Event{Kind: reactor.ConnectionOpened})
	return nil
}

func (s *asyncSession) openChannel(reactor.Event) error {
	channel, err := s.env.Client.Channel()
	if err != nil {
		return err
	}
	s.channel = channel
	s.env.println("Reached channel open")
	s.loop.WatchClose(reactor.ChannelClosed, channel.IsDisconnected)

	if s.env.Definitions != nil {
		if err := channel.CreateDefinitions(s.env.Definitions); err != nil {
			return err
		}
	}
	s.loop.Post(reactor.Event{Kind: reactor.ChannelOpened})
	return nil
}

func (s *asyncSession) declare(reactor.Event) error {
	if _, err := s.channel.DeclareQueue(s.queue); err != nil {
		return err
	}
	s.loop.Post(reactor.Event{Kind: reactor.QueueDeclared})
	return nil
}

// channelClosed closes the connection behind the channel. A broker-side
// reason is kept and returned once the connection is gone.
func (s *asyncSession) channelClosed(ev reactor.Event) error {
	if ev.Reason != nil && s.failure == nil {
		s.failure = fmt.Errorf("channel closed: %w", ev.Reason)
	}
	return s.closeConnection()
}

func (s *asyncSession) closeChannel() error {
	if err := s.channel.Close(); err != nil && !errors.Is(err, rabbitmq.ErrAlreadyClosed) {
		return err
	}
	return nil
}

func (s *asyncSession) closeConnection() error {
	if err := s.env.Client.Close(); err != nil && !errors.Is(err, rabbitmq.ErrAlreadyClosed) {
		return err
	}
	return nil
}

// connectionClosed ends the loop. It reports the broker's reason, if any,
// as the run's error.
func (s *asyncSession) connectionClosed(line string) reactor.Handler {
	return func(ev reactor.Event) error {
		if ev.Reason != nil {
			s.env.printf("Connection closed by broker: %v", ev.Reason)
			if s.failure == nil {
				s.failure = fmt.Errorf("connection closed: %w", ev.Reason)
			}
		}
		s.env.println(line)
		s.loop.Stop()
		return s.failure
	}
}

// run drives the loop and makes sure the connection is released even when a
// handler failed half way through the lifecycle.
func (s *asyncSession) run(ctx context.Context) error {
	err := s.loop.Run(ctx)
	if !s.env.Client.IsClosed() {
		if closeErr := s.closeConnection(); closeErr != nil {
			s.env.Logger.Error("failed to close connection", "error", closeErr)
		}
	}
	return err
}

// RunAsyncPublisher publishes opts.Messages persistent text messages
// counting down from "H<Messages>" to "H1" as soon as the queue is declared,
// then keeps the loop alive until interrupted.
func RunAsyncPublisher(ctx context.Context, env Env, opts AsyncOptions) error {
	s, err := newAsyncSession(ctx, env, opts.Queue)
	if err != nil {
		return err
	}

	s.loop.On(reactor.QueueDeclared, func(reactor.Event) error {
		s.producer = rabbitmq.NewProducer(s.channel, "",
			rabbitmq.WithPersistent(true),
			rabbitmq.WithContentType("text/plain"),
		)
		go s.producer.ConfirmHandler(ctx)

		for n := opts.Messages; n > 0; n-- {
			s.env.println(n)
			if err := s.producer.Publish(ctx, s.queue.Name, []byte(fmt.Sprintf("H%d", n))); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		}
		return nil
	})
	s.loop.On(reactor.Interrupted, func(reactor.Event) error {
		s.env.println("Closing connection.")
		return s.closeConnection()
	})
	s.loop.On(reactor.ConnectionClosed, s.connectionClosed("Connection is closed"))

	return s.run(ctx)
}

// RunAsyncConsumer acknowledges and prints every message on the queue until
// interrupted. Shutdown goes cancel consumer, cancel-ok, close channel,
// close connection, each step triggered by the previous one completing. A
// consumer cancelled by the broker closes the channel and ends the run the
// same way.
func RunAsyncConsumer(ctx context.Context, env Env, opts AsyncOptions) error {
	s, err := newAsyncSession(ctx, env, opts.Queue)
	if err != nil {
		return err
	}

	s.loop.On(reactor.QueueDeclared, func(reactor.Event) error {
		s.consumer = rabbitmq.NewConsumer(s.channel, s.queue.Name, "async_consumer", s.onMessage)
		s.loop.WatchCancel(s.channel.NotifyCancel(make(chan string, 1)))

		deliveries, err := s.consumer.Start()
		if err != nil {
			return err
		}
		s.loop.WatchDeliveries(deliveries)
		s.env.println(" [*] Waiting for messages. To exit press CTRL+C")
		return nil
	})
	s.loop.On(reactor.Delivery, func(ev reactor.Event) error {
		if !s.channel.IsReady() {
			// arrived after the channel was closed; the broker requeues it
			return nil
		}
		return s.consumer.Handle(context.Background(), ev.Delivery)
	})
	s.loop.On(reactor.ConsumerCancelled, func(ev reactor.Event) error {
		if ev.ConsumerTag != s.consumer.Tag() {
			return nil
		}
		s.env.printf("Consumer %s was cancelled by the broker", ev.ConsumerTag)
		return s.closeChannel()
	})
	s.loop.On(reactor.Interrupted, s.interrupt)
	s.loop.On(reactor.CancelOk, func(reactor.Event) error {
		return s.closeChannel()
	})
	s.loop.On(reactor.ConnectionClosed, s.connectionClosed("connection is being closed"))

	return s.run(ctx)
}

// interrupt starts the consumer shutdown chain. A channel the broker already
// closed has no consumer left to cancel, so the connection goes straight away.
func (s *asyncSession) interrupt(reactor.Event) error {
	s.env.println("Keyboard Interrupt received !!!")
	if s.consumer == nil || !s.channel.IsReady() {
		return s.closeConnection()
	}
	if err := s.consumer.Cancel(); err != nil {
		if errors.Is(err, amqp.ErrClosed) {
			return s.closeConnection()
		}
		return err
	}
	s.loop.Post(reactor.Event{Kind: reactor.CancelOk})
	return nil
}

func (s *asyncSession) onMessage(_ context.Context, d amqp.Delivery) error {
	s.env.printf("Delivery tag is: %d", d.DeliveryTag)
	s.env.printf("Properties: content_type=%s delivery_mode=%d message_id=%s",
		d.ContentType, d.DeliveryMode, d.MessageId)
	s.env.printf("Received Content: %s", d.Body)
	return nil
}
