package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "score_feed"

var (
	Published = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "amqp",
		Name:      "messages_published_total",
		Help:      "Messages handed to the broker, by exchange.",
	}, []string{"exchange"})
	Delivered = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "amqp",
		Name:      "messages_delivered_total",
		Help:      "Messages received by consumers, by queue.",
	}, []string{"queue"})
	Settled = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "amqp",
		Name:      "messages_settled_total",
		Help:      "Explicit acknowledgements sent by consumers, by outcome.",
	}, []string{"outcome"})
	Confirms = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "amqp",
		Name:      "publisher_confirms_total",
		Help:      "Publisher confirms received from the broker, by outcome.",
	}, []string{"outcome"})
	LoopEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "reactor",
		Name:      "events_total",
		Help:      "Lifecycle events dispatched by the event loop, by kind.",
	}, []string{"event"})
)

func init() {
	prometheus.MustRegister(Published, Delivered, Settled, Confirms, LoopEvents)
}

// Serve exposes /metrics on addr until ctx is done. An empty addr disables it.
func Serve(ctx context.Context, addr string, log *slog.Logger) {
	if addr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	go func() {
		log.Info("metrics listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server error", "error", err)
		}
	}()
}
