package main

import (
	"context"
	"time"

	"score_feed/internal/app"
	"score_feed/internal/tutorial"
)

type options struct {
	Queue string        `env:"QUEUE" default:"sample_test" usage:"durable work queue"`
	Work  time.Duration `env:"WORK" default:"3s" usage:"simulated processing time per task"`
}

func main() {
	var opts options
	app.Main("blocking_consumer", &opts, func(ctx context.Context, env tutorial.Env) error {
		return tutorial.ConsumeTasks(ctx, env, tutorial.WorkOptions{Queue: opts.Queue, Work: opts.Work})
	})
}
