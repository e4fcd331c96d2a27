package main

import (
	"context"
	"time"

	"score_feed/internal/app"
	"score_feed/internal/rabbitmq"
	"score_feed/internal/tutorial"
)

type options struct {
	Exchange   string        `env:"EXCHANGE" default:"score.feed.topic"`
	RoutingKey string        `env:"ROUTING_KEY" default:"scores.#" usage:"binding pattern"`
	Work       time.Duration `env:"WORK" default:"2s" usage:"simulated processing time per update"`
}

func main() {
	var opts options
	app.Main("topic_consumer", &opts, func(ctx context.Context, env tutorial.Env) error {
		return tutorial.ConsumeScores(ctx, env, rabbitmq.KindTopic, tutorial.FeedOptions{
			Exchange:   opts.Exchange,
			RoutingKey: opts.RoutingKey,
			Work:       opts.Work,
		})
	})
}
