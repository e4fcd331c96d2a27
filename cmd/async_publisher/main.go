package main

import (
	"context"

	"score_feed/internal/app"
	"score_feed/internal/tutorial"
)

type options struct {
	Queue    string `env:"QUEUE" default:"sample_test" usage:"queue published to through the default exchange"`
	Messages int    `env:"MESSAGES" default:"10" usage:"countdown length"`
}

func main() {
	var opts options
	app.Main("async_publisher", &opts, func(ctx context.Context, env tutorial.Env) error {
		return tutorial.RunAsyncPublisher(ctx, env, tutorial.AsyncOptions{Queue: opts.Queue, Messages: opts.Messages})
	})
}
