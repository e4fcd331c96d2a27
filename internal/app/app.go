// Package app wires configuration, logging, metrics and the broker client
// around one tutorial program.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"score_feed/internal/config"
	"score_feed/internal/logger"
	"score_feed/internal/metrics"
	"score_feed/internal/rabbitmq"
	"score_feed/internal/tutorial"
)

// Program is one tutorial run.
type Program func(ctx context.Context, env tutorial.Env) error

// Main runs program until it finishes or the process is interrupted, and
// exits non-zero if it failed. options, when not nil, is filled from
// TUTORIAL_* variables first.
func Main(name string, options any, program Program) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := Run(ctx, name, options, program, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
		stop()
		os.Exit(1)
	}
}

// Run loads the configuration and starts program with a client named after
// it. Extra client options go after the configured ones.
func Run(ctx context.Context, name string, options any, program Program, stdout, stderr io.Writer, extra ...rabbitmq.Option) error {
	cfg, err := config.NewConfig()
	if err != nil {
		return err
	}
	if options != nil {
		if err := config.LoadTutorial(options); err != nil {
			return err
		}
	}

	log := logger.New(stderr, cfg.LogLevel, cfg.LogFormat).With("program", name)
	metrics.Serve(ctx, cfg.MetricsAddr, log)

	definitions, err := loadDefinitions(cfg)
	if err != nil {
		return err
	}

	opts := []rabbitmq.Option{
		rabbitmq.WithLogger(log),
		rabbitmq.WithSocketTimeout(cfg.SocketTimeout),
		rabbitmq.WithDialRetries(cfg.DialRetries),
		rabbitmq.WithConfirm(cfg.Confirm),
	}
	client := rabbitmq.New(name, cfg.URL(), append(opts, extra...)...)

	log.Debug("starting", "host", cfg.Host, "port", cfg.Port, "vhost", cfg.VHost)
	err = program(ctx, tutorial.Env{
		Client:      client,
		Out:         stdout,
		Logger:      log,
		Definitions: definitions,
	})
	if err != nil {
		log.Error("program failed", "error", err)
		return err
	}
	return nil
}

func loadDefinitions(cfg *config.Config) (*rabbitmq.Definition, error) {
	document, err := cfg.ReadDefinitions()
	if err != nil || document == nil {
		return nil, err
	}
	return rabbitmq.ParseDefinition(document)
}
