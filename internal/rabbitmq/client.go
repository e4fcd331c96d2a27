package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sethvargo/go-retry"

	"score_feed/internal/logger"
)

const (
	dialBackoff    = 200 * time.Millisecond
	dialBackoffCap = 5 * time.Second
)

type Connector interface {
	NotifyClose(receiver chan *amqp.Error) chan *amqp.Error
	Channel() (Channeler, error)
	Close() error
	IsClosed() bool
}

// Dialer opens a connection. Dial is the real one.
type Dialer func(url string, config amqp.Config) (Connector, error)

type amqpConnection struct {
	*amqp.Connection
}

func (c amqpConnection) Channel() (Channeler, error) {
	ch, err := c.Connection.Channel()
	if err != nil {
		return nil, err
	}
	return ch, nil
}

func Dial(url string, config amqp.Config) (Connector, error) {
	conn, err := amqp.DialConfig(url, config)
	if err != nil {
		return nil, err
	}
	return amqpConnection{conn}, nil
}

type Client struct {
	name       string
	addr       string
	logger     *slog.Logger
	getConn    Dialer
	configAmqp amqp.Config
	retries    uint64
	confirm    bool

	mu              sync.Mutex
	connection      Connector
	notifyConnClose chan *amqp.Error
	channels        []*Channel
	isReady         bool
}

type Option func(*Client)

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func WithDialer(d Dialer) Option {
	return func(c *Client) { c.getConn = d }
}

// WithDialRetries allows n more dial attempts after the first one fails.
func WithDialRetries(n uint64) Option {
	return func(c *Client) { c.retries = n }
}

// WithSocketTimeout bounds the TCP dial and the AMQP handshake.
func WithSocketTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.configAmqp.Dial = amqp.DefaultDial(d)
		}
	}
}

// WithConfirm puts every channel the client opens in publisher confirm mode.
func WithConfirm(confirm bool) Option {
	return func(c *Client) { c.confirm = confirm }
}

func (c *Client) connect() error {
	conn, err := c.getConn(c.addr, c.configAmqp)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.connection = conn
	c.notifyConnClose = conn.NotifyClose(make(chan *amqp.Error, 1))
	c.isReady = true
	c.mu.Unlock()
	return nil
}

// Connect dials the broker. Failed dials are retried with a capped Fibonacci
// backoff only when WithDialRetries allows it.
func (c *Client) Connect(ctx context.Context) error {
	b := retry.NewFibonacci(dialBackoff)
	b = retry.WithCappedDuration(dialBackoffCap, b)
	b = retry.WithMaxRetries(c.retries, b)

	attempt := 0
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		if err := c.connect(); err != nil {
			c.logger.Debug("failed to connect", "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("connect %s: %w", c.name, err)
	}

	c.logger.Info("connected", "name", c.name)
	return nil
}

// Channel opens a new channel on the current connection.
func (c *Client) Channel() (*Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.isReady || c.connection == nil {
		return nil, ErrNotConnected
	}

	channel, err := openChannel(c.connection, c.confirm, c.logger)
	if err != nil {
		return nil, err
	}
	c.channels = append(c.channels, channel)
	return channel, nil
}

// NotifyClose yields the connection's close notification. A nil value means
// the connection was closed on request, anything else is the broker's reason.
func (c *Client) NotifyClose() <-chan *amqp.Error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.notifyConnClose
}

func (c *Client) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connection == nil || c.connection.IsClosed()
}

// Close closes every channel the client opened, then the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.logger.Debug("client is stopping", "name", c.name)
	if !c.isReady {
		return ErrAlreadyClosed
	}
	c.isReady = false

	var errs []error
	for _, ch := range c.channels {
		if err := ch.Close(); err != nil && !errors.Is(err, ErrAlreadyClosed) {
			errs = append(errs, err)
		}
	}
	c.channels = nil

	if err := c.connection.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		errs = append(errs, fmt.Errorf("close connection: %w", err))
	}
	return errors.Join(errs...)
}

func New(name string, addr string, opts ...Option) *Client {
	configAmqp := amqp.Config{Properties: amqp.NewConnectionProperties()}
	configAmqp.Properties.SetClientConnectionName(name)

	client := &Client{
		name:       name,
		addr:       addr,
		configAmqp: configAmqp,
		getConn:    Dial,
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.logger == nil {
		client.logger = logger.Discard()
	}
	return client
}
