package tutorial

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"score_feed/internal/rabbitmq"
)

// PublishTasks sends opts.Messages persistent "task number N" messages to
// the durable work queue, opts.Interval apart, then disconnects. An
// interrupt ends the run early without an error.
func PublishTasks(ctx context.Context, env Env, opts WorkOptions) error {
	queue, err := queueNamed("work_queue", opts.Queue)
	if err != nil {
		return err
	}

	s, err := Open(ctx, env)
	if err != nil {
		return err
	}
	defer s.Close()

	if _, err := s.DeclareQueue(queue); err != nil {
		return err
	}

	producer := rabbitmq.NewProducer(s.Channel(), "", rabbitmq.WithPersistent(true))
	go producer.ConfirmHandler(ctx)

	for i := 1; i <= opts.Messages; i++ {
		body := fmt.Sprintf("task number %d", i)
		if err := producer.Publish(ctx, queue.Name, []byte(body)); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		s.env.printf("Published message %d", i)

		if err := sleep(ctx, opts.Interval); err != nil {
			return nil
		}
	}
	return nil
}

// ConsumeTasks takes one task at a time from the work queue, simulates
// opts.Work of processing and acknowledges it, until interrupted. A task
// interrupted mid-work is left for the broker to redeliver.
func ConsumeTasks(ctx context.Context, env Env, opts WorkOptions) error {
	queue, err := queueNamed("work_queue", opts.Queue)
	if err != nil {
		return err
	}

	s, err := Open(ctx, env)
	if err != nil {
		return err
	}
	defer s.Close()

	if _, err := s.DeclareQueue(queue); err != nil {
		return err
	}
	s.waiting()

	consumer := rabbitmq.NewConsumer(s.Channel(), queue.Name, "blocking_consumer",
		func(ctx context.Context, d amqp.Delivery) error {
			s.env.printf(" [x] working on %q", d.Body)
			if err := sleep(ctx, opts.Work); err != nil {
				return err
			}
			s.env.println(" [x] Done")
			return nil
		},
		rabbitmq.WithPrefetch(1),
	)

	return consumer.Consume(ctx)
}
