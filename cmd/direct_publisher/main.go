package main

import (
	"context"
	"time"

	"score_feed/internal/app"
	"score_feed/internal/rabbitmq"
	"score_feed/internal/tutorial"
)

type options struct {
	Exchange string        `env:"EXCHANGE" default:"score.feed.exchange"`
	Messages int           `env:"MESSAGES" default:"25" usage:"rounds to publish"`
	Interval time.Duration `env:"INTERVAL" default:"1s"`
	Format   string        `env:"FORMAT" default:"text" usage:"text or json"`
}

func main() {
	var opts options
	app.Main("direct_publisher", &opts, func(ctx context.Context, env tutorial.Env) error {
		return tutorial.PublishScores(ctx, env, rabbitmq.KindDirect, tutorial.FeedOptions{
			Exchange: opts.Exchange,
			Messages: opts.Messages,
			Interval: opts.Interval,
			Format:   opts.Format,
		})
	})
}
