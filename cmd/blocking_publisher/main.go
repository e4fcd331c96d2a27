package main

import (
	"context"
	"time"

	"score_feed/internal/app"
	"score_feed/internal/tutorial"
)

type options struct {
	Queue    string        `env:"QUEUE" default:"sample_test" usage:"durable work queue"`
	Messages int           `env:"MESSAGES" default:"3" usage:"tasks to publish"`
	Interval time.Duration `env:"INTERVAL" default:"1s" usage:"pause between tasks"`
}

func main() {
	var opts options
	app.Main("blocking_publisher", &opts, func(ctx context.Context, env tutorial.Env) error {
		return tutorial.PublishTasks(ctx, env, tutorial.WorkOptions{
			Queue:    opts.Queue,
			Messages: opts.Messages,
			Interval: opts.Interval,
		})
	})
}
