package tutorial

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"score_feed/internal/feed"
	"score_feed/internal/rabbitmq"
)

// PublishScores plays opts.Messages rounds of the score feed into an
// exchange of the given kind, one round every opts.Interval. The fanout feed
// carries a single curling match; direct and topic carry three sports, each
// on its own scores.<sport> routing key.
func PublishScores(ctx context.Context, env Env, kind string, opts FeedOptions) error {
	exchange, err := exchangeNamed(kind, opts.Exchange)
	if err != nil {
		return err
	}
	format, err := feed.ParseFormat(opts.Format)
	if err != nil {
		return err
	}

	matches := feed.ScoreMatches()
	if kind == rabbitmq.KindFanout {
		matches = feed.BroadcastMatches()
	}
	board := feed.NewBoard(rand.New(rand.NewSource(time.Now().UnixNano())), format, matches...)

	s, err := Open(ctx, env)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.DeclareExchange(exchange); err != nil {
		return err
	}

	producer := rabbitmq.NewProducer(s.Channel(), exchange.Name,
		rabbitmq.WithPersistent(true),
		rabbitmq.WithContentType(contentType(format)),
	)
	go producer.ConfirmHandler(ctx)

	for i := 1; i <= opts.Messages; i++ {
		updates, err := board.Next()
		if err != nil {
			return err
		}
		for _, u := range updates {
			if err := producer.Publish(ctx, u.RoutingKey, u.Body); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
		}
		s.env.println(published(i, updates))

		if err := sleep(ctx, opts.Interval); err != nil {
			return nil
		}
	}
	return nil
}

// ConsumeScores declares the exchange, binds a fresh server-named exclusive
// queue to it with opts.RoutingKey and prints every update it receives until
// interrupted. The queue disappears with the connection.
func ConsumeScores(ctx context.Context, env Env, kind string, opts FeedOptions) error {
	exchange, err := exchangeNamed(kind, opts.Exchange)
	if err != nil {
		return err
	}
	queue, err := queueNamed("subscriber", "")
	if err != nil {
		return err
	}

	s, err := Open(ctx, env)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.DeclareExchange(exchange); err != nil {
		return err
	}
	name, err := s.DeclareQueue(queue)
	if err != nil {
		return err
	}
	s.waiting()
	if err := s.Bind(exchange.Name, name, opts.RoutingKey); err != nil {
		return err
	}

	consumer := rabbitmq.NewConsumer(s.Channel(), name, kind+"_consumer",
		func(ctx context.Context, d amqp.Delivery) error {
			s.env.printf(" [x] Feed Received - %s \n", feed.Describe(d.ContentType, d.Body))
			return sleep(ctx, opts.Work)
		},
		rabbitmq.WithAutoAck(true),
	)
	return consumer.Consume(ctx)
}

func contentType(format feed.Format) string {
	if format == feed.FormatJSON {
		return feed.ContentTypeJSON
	}
	return feed.ContentTypeText
}

func published(round int, updates []feed.Update) string {
	if len(updates) == 1 {
		return fmt.Sprintf("Published message %d with score %d", round, updates[0].Card.HomeScore)
	}

	sports := make([]string, len(updates))
	for i, u := range updates {
		sports[i] = u.Card.Sport
	}
	list := strings.Join(sports, ", ")
	if n := len(sports); n > 1 {
		list = strings.Join(sports[:n-1], ", ") + " and " + sports[n-1]
	}
	return fmt.Sprintf("Published scorecard for %s - %d ", list, round)
}
