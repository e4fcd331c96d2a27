package main

import (
	"context"

	"score_feed/internal/app"
	"score_feed/internal/tutorial"
)

type options struct {
	Queue string `env:"QUEUE" default:"sample_test"`
}

func main() {
	var opts options
	app.Main("async_consumer", &opts, func(ctx context.Context, env tutorial.Env) error {
		return tutorial.RunAsyncConsumer(ctx, env, tutorial.AsyncOptions{Queue: opts.Queue})
	})
}
