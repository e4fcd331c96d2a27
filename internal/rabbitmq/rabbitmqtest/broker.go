// Package rabbitmqtest provides an in-memory AMQP 0-9-1 broker for tests.
//
// It implements the subset of broker behaviour the programs in this module
// rely on: direct, fanout and topic routing through the default and named
// exchanges, exclusive server-named queues that vanish with their connection,
// round-robin delivery with per-consumer prefetch, ack/nack/reject with
// requeue, consumer cancel (client and server initiated) and close
// notifications. Errors the real broker answers with a channel close
// (unknown exchange, inequivalent redeclare, ...) close the fake channel too.
package rabbitmqtest

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"score_feed/internal/rabbitmq"
)

const deliveryBuffer = 1024

var (
	_ rabbitmq.Connector = (*Conn)(nil)
	_ rabbitmq.Channeler = (*Channel)(nil)
	_ amqp.Acknowledger  = (*Channel)(nil)
	_ rabbitmq.Dialer    = (*Broker)(nil).Dial
)

type Broker struct {
	mu        sync.Mutex
	exchanges map[string]*exchange
	queues    map[string]*queue
	conns     map[*Conn]struct{}
	dialErrs  []error
	dials     int
}

type exchange struct {
	name       string
	kind       string
	durable    bool
	autoDelete bool
	bindings   []binding
}

type binding struct {
	destination string
	key         string
	toExchange  bool
	args        amqp.Table
}

type queue struct {
	name       string
	durable    bool
	autoDelete bool
	exclusive  bool
	args       amqp.Table
	owner      *Conn
	messages   []message
	consumers  []*consumer
	next       int
	unacked    int
}

type message struct {
	exchange    string
	routingKey  string
	publishing  amqp.Publishing
	redelivered bool
}

type consumer struct {
	tag     string
	queue   *queue
	channel *Channel
	autoAck bool
	unacked int
	out     chan amqp.Delivery
}

type pending struct {
	queue    *queue
	consumer *consumer
	msg      message
}

func NewBroker() *Broker {
	b := &Broker{
		exchanges: make(map[string]*exchange),
		queues:    make(map[string]*queue),
		conns:     make(map[*Conn]struct{}),
	}
	for name, kind := range map[string]string{
		"amq.direct": rabbitmq.KindDirect,
		"amq.fanout": rabbitmq.KindFanout,
		"amq.topic":  rabbitmq.KindTopic,
	} {
		b.exchanges[name] = &exchange{name: name, kind: kind, durable: true}
	}
	return b
}

// Dial satisfies rabbitmq.Dialer. The URL and config are ignored.
func (b *Broker) Dial(url string, config amqp.Config) (rabbitmq.Connector, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.dials++
	if len(b.dialErrs) > 0 {
		err := b.dialErrs[0]
		b.dialErrs = b.dialErrs[1:]
		return nil, err
	}

	conn := &Conn{broker: b}
	b.conns[conn] = struct{}{}
	return conn, nil
}

// FailDials makes the next len(errs) dials fail with errs, in order.
func (b *Broker) FailDials(errs ...error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dialErrs = append(b.dialErrs, errs...)
}

func (b *Broker) Dials() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dials
}

// Connections is the number of open connections.
func (b *Broker) Connections() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.conns)
}

func (b *Broker) HasQueue(name string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.queues[name]
	return ok
}

// QueueDepth is the number of messages ready for delivery in the queue.
func (b *Broker) QueueDepth(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if q, ok := b.queues[name]; ok {
		return len(q.messages)
	}
	return 0
}

// Unacked is the number of messages delivered from the queue and not yet
// settled.
func (b *Broker) Unacked(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if q, ok := b.queues[name]; ok {
		return q.unacked
	}
	return 0
}

func (b *Broker) Consumers(name string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if q, ok := b.queues[name]; ok {
		return len(q.consumers)
	}
	return 0
}

// Queues lists declared queue names in lexical order.
func (b *Broker) Queues() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	names := make([]string, 0, len(b.queues))
	for name := range b.queues {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (b *Broker) ExchangeKind(name string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if e, ok := b.exchanges[name]; ok {
		return e.kind, true
	}
	return "", false
}

// Bindings lists the bindings whose source is the named exchange.
func (b *Broker) Bindings(source string) []rabbitmq.Binding {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.exchanges[source]
	if !ok {
		return nil
	}
	out := make([]rabbitmq.Binding, 0, len(e.bindings))
	for _, bd := range e.bindings {
		kind := "queue"
		if bd.toExchange {
			kind = "exchange"
		}
		out = append(out, rabbitmq.Binding{
			Source:      source,
			Destination: bd.destination,
			RoutingKey:  bd.key,
			Type:        kind,
			Arguments:   bd.args,
		})
	}
	return out
}

// Publish injects a message as if another client had published it.
func (b *Broker) Publish(exchangeName, routingKey string, msg amqp.Publishing) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	targets, err := b.route(exchangeName, routingKey)
	if err != nil {
		return err
	}
	b.enqueue(targets, exchangeName, routingKey, msg)
	return nil
}

// DeleteQueue removes a queue the way a management client would. Consumers
// on it get a server-initiated cancel.
func (b *Broker) DeleteQueue(name string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	q, ok := b.queues[name]
	if !ok {
		return false
	}
	b.deleteQueue(q, true)
	return true
}

// CloseConnections closes every open connection from the broker side with
// reason, as a broker shutdown or a forced close would.
func (b *Broker) CloseConnections(reason *amqp.Error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for conn := range b.conns {
		conn.shutdown(reason)
	}
}

func (b *Broker) route(exchangeName, routingKey string) ([]*queue, error) {
	if exchangeName == "" {
		if q, ok := b.queues[routingKey]; ok {
			return []*queue{q}, nil
		}
		return nil, nil
	}

	e, ok := b.exchanges[exchangeName]
	if !ok {
		return nil, &amqp.Error{
			Code:   amqp.NotFound,
			Reason: fmt.Sprintf("NOT_FOUND - no exchange '%s' in vhost '/'", exchangeName),
			Server: true,
		}
	}

	var targets []*queue
	seenQueues := make(map[string]bool)
	seenExchanges := make(map[string]bool)

	var walk func(e *exchange)
	walk = func(e *exchange) {
		if seenExchanges[e.name] {
			return
		}
		seenExchanges[e.name] = true

		for _, bd := range e.bindings {
			if !e.matches(bd, routingKey) {
				continue
			}
			if bd.toExchange {
				if dst, ok := b.exchanges[bd.destination]; ok {
					walk(dst)
				}
				continue
			}
			if q, ok := b.queues[bd.destination]; ok && !seenQueues[q.name] {
				seenQueues[q.name] = true
				targets = append(targets, q)
			}
		}
	}
	walk(e)
	return targets, nil
}

func (e *exchange) matches(bd binding, routingKey string) bool {
	switch e.kind {
	case rabbitmq.KindFanout:
		return true
	case rabbitmq.KindTopic:
		return MatchTopic(bd.key, routingKey)
	default:
		return bd.key == routingKey
	}
}

func (b *Broker) enqueue(targets []*queue, exchangeName, routingKey string, msg amqp.Publishing) {
	for _, q := range targets {
		q.messages = append(q.messages, message{
			exchange:   exchangeName,
			routingKey: routingKey,
			publishing: msg,
		})
		b.dispatch(q)
	}
}

// dispatch hands ready messages to eligible consumers, round-robin.
func (b *Broker) dispatch(q *queue) {
	for len(q.messages) > 0 {
		c := q.nextConsumer()
		if c == nil {
			return
		}
		msg := q.messages[0]
		q.messages = q.messages[1:]
		c.channel.deliver(c, msg)
	}
}

func (q *queue) nextConsumer() *consumer {
	n := len(q.consumers)
	for i := 0; i < n; i++ {
		idx := (q.next + i) % n
		c := q.consumers[idx]
		if c.channel.closed || len(c.out) == cap(c.out) {
			continue
		}
		if !c.autoAck && c.channel.prefetch > 0 && c.unacked >= c.channel.prefetch {
			continue
		}
		q.next = (idx + 1) % n
		return c
	}
	return nil
}

func (b *Broker) removeConsumer(c *consumer) {
	q := c.queue
	for i, other := range q.consumers {
		if other == c {
			q.consumers = append(q.consumers[:i], q.consumers[i+1:]...)
			break
		}
	}
	if q.next >= len(q.consumers) {
		q.next = 0
	}
	if q.autoDelete && len(q.consumers) == 0 {
		b.deleteQueue(q, false)
	}
}

func (b *Broker) deleteQueue(q *queue, serverCancel bool) {
	if b.queues[q.name] != q {
		return
	}
	delete(b.queues, q.name)

	for _, e := range b.exchanges {
		kept := e.bindings[:0]
		for _, bd := range e.bindings {
			if bd.toExchange || bd.destination != q.name {
				kept = append(kept, bd)
			}
		}
		e.bindings = kept
	}

	consumers := q.consumers
	q.consumers = nil
	for _, c := range consumers {
		delete(c.channel.consumers, c.tag)
		close(c.out)
		if serverCancel {
			for _, n := range c.channel.notifyCancel {
				select {
				case n <- c.tag:
				default:
				}
			}
		}
	}
}

func (b *Broker) isLive(q *queue) bool {
	return b.queues[q.name] == q
}

func sameArgs(a, b amqp.Table) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	return reflect.DeepEqual(map[string]interface{}(a), map[string]interface{}(b))
}

type Conn struct {
	broker   *Broker
	closed   bool
	notify   []chan *amqp.Error
	channels []*Channel
}

func (c *Conn) NotifyClose(receiver chan *amqp.Error) chan *amqp.Error {
	c.broker.mu.Lock()
	defer c.broker.mu.Unlock()

	if c.closed {
		close(receiver)
		return receiver
	}
	c.notify = append(c.notify, receiver)
	return receiver
}

func (c *Conn) Channel() (rabbitmq.Channeler, error) {
	c.broker.mu.Lock()
	defer c.broker.mu.Unlock()

	if c.closed {
		return nil, amqp.ErrClosed
	}
	ch := &Channel{
		conn:      c,
		broker:    c.broker,
		consumers: make(map[string]*consumer),
		unacked:   make(map[uint64]*pending),
	}
	c.channels = append(c.channels, ch)
	return ch, nil
}

func (c *Conn) Close() error {
	c.broker.mu.Lock()
	defer c.broker.mu.Unlock()

	if c.closed {
		return amqp.ErrClosed
	}
	c.shutdown(nil)
	return nil
}

func (c *Conn) IsClosed() bool {
	c.broker.mu.Lock()
	defer c.broker.mu.Unlock()
	return c.closed
}

// shutdown needs the broker lock. A nil reason is a client-requested close.
func (c *Conn) shutdown(reason *amqp.Error) {
	if c.closed {
		return
	}
	c.closed = true

	channels := append([]*Channel(nil), c.channels...)
	for _, ch := range channels {
		ch.shutdown(reason)
	}
	c.channels = nil

	for _, q := range c.broker.queues {
		if q.exclusive && q.owner == c {
			c.broker.deleteQueue(q, false)
		}
	}

	for _, n := range c.notify {
		if reason != nil {
			select {
			case n <- reason:
			default:
			}
		}
		close(n)
	}
	c.notify = nil
	delete(c.broker.conns, c)
}

type Channel struct {
	conn        *Conn
	broker      *Broker
	closed      bool
	confirm     bool
	prefetch    int
	published   uint64
	deliveryTag uint64
	consumers   map[string]*consumer
	unacked     map[uint64]*pending

	notifyClose   []chan *amqp.Error
	notifyCancel  []chan string
	notifyPublish []chan amqp.Confirmation
}

// fail closes the channel with a server error and returns it, which is what
// the real client reports for a failed synchronous method.
func (ch *Channel) fail(code int, format string, args ...any) error {
	err := &amqp.Error{Code: code, Reason: fmt.Sprintf(format, args...), Server: true}
	ch.shutdown(err)
	return err
}

func (ch *Channel) shutdown(reason *amqp.Error) {
	if ch.closed {
		return
	}
	ch.closed = true
	b := ch.broker

	for _, c := range ch.consumers {
		close(c.out)
		b.removeConsumer(c)
	}
	ch.consumers = map[string]*consumer{}

	tags := make([]uint64, 0, len(ch.unacked))
	for tag := range ch.unacked {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] > tags[j] })

	touched := make(map[*queue]bool)
	for _, tag := range tags {
		p := ch.unacked[tag]
		p.queue.unacked--
		if b.isLive(p.queue) {
			m := p.msg
			m.redelivered = true
			p.queue.messages = append([]message{m}, p.queue.messages...)
			touched[p.queue] = true
		}
	}
	ch.unacked = map[uint64]*pending{}
	for q := range touched {
		b.dispatch(q)
	}

	for _, n := range ch.notifyClose {
		if reason != nil {
			select {
			case n <- reason:
			default:
			}
		}
		close(n)
	}
	for _, n := range ch.notifyCancel {
		close(n)
	}
	for _, n := range ch.notifyPublish {
		close(n)
	}
	ch.notifyClose, ch.notifyCancel, ch.notifyPublish = nil, nil, nil

	for i, other := range ch.conn.channels {
		if other == ch {
			ch.conn.channels = append(ch.conn.channels[:i], ch.conn.channels[i+1:]...)
			break
		}
	}
}

func (ch *Channel) deliver(c *consumer, msg message) {
	ch.deliveryTag++
	tag := ch.deliveryTag
	p := msg.publishing

	if !c.autoAck {
		ch.unacked[tag] = &pending{queue: c.queue, consumer: c, msg: msg}
		c.unacked++
		c.queue.unacked++
	}

	c.out <- amqp.Delivery{
		Acknowledger:    ch,
		Headers:         p.Headers,
		ContentType:     p.ContentType,
		ContentEncoding: p.ContentEncoding,
		DeliveryMode:    p.DeliveryMode,
		Priority:        p.Priority,
		CorrelationId:   p.CorrelationId,
		ReplyTo:         p.ReplyTo,
		Expiration:      p.Expiration,
		MessageId:       p.MessageId,
		Timestamp:       p.Timestamp,
		Type:            p.Type,
		UserId:          p.UserId,
		AppId:           p.AppId,
		ConsumerTag:     c.tag,
		DeliveryTag:     tag,
		Redelivered:     msg.redelivered,
		Exchange:        msg.exchange,
		RoutingKey:      msg.routingKey,
		Body:            p.Body,
	}
}

func (ch *Channel) Confirm(noWait bool) error {
	ch.broker.mu.Lock()
	defer ch.broker.mu.Unlock()

	if ch.closed {
		return amqp.ErrClosed
	}
	ch.confirm = true
	return nil
}

func (ch *Channel) Qos(prefetchCount, prefetchSize int, global bool) error {
	ch.broker.mu.Lock()
	defer ch.broker.mu.Unlock()

	if ch.closed {
		return amqp.ErrClosed
	}
	ch.prefetch = prefetchCount
	return nil
}

func (ch *Channel) NotifyClose(c chan *amqp.Error) chan *amqp.Error {
	ch.broker.mu.Lock()
	defer ch.broker.mu.Unlock()

	if ch.closed {
		close(c)
		return c
	}
	ch.notifyClose = append(ch.notifyClose, c)
	return c
}

func (ch *Channel) NotifyCancel(c chan string) chan string {
	ch.broker.mu.Lock()
	defer ch.broker.mu.Unlock()

	if ch.closed {
		close(c)
		return c
	}
	ch.notifyCancel = append(ch.notifyCancel, c)
	return c
}

func (ch *Channel) NotifyPublish(confirm chan amqp.Confirmation) chan amqp.Confirmation {
	ch.broker.mu.Lock()
	defer ch.broker.mu.Unlock()

	if ch.closed {
		close(confirm)
		return confirm
	}
	ch.notifyPublish = append(ch.notifyPublish, confirm)
	return confirm
}

func (ch *Channel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	b := ch.broker
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch.closed {
		return amqp.Queue{}, amqp.ErrClosed
	}
	if name == "" {
		name = "amq.gen-" + uuid.NewString()
	}

	if q, ok := b.queues[name]; ok {
		if q.exclusive && q.owner != ch.conn {
			return amqp.Queue{}, ch.fail(amqp.ResourceLocked,
				"RESOURCE_LOCKED - cannot obtain exclusive access to locked queue '%s'", name)
		}
		if q.durable != durable || q.autoDelete != autoDelete || q.exclusive != exclusive || !sameArgs(q.args, args) {
			return amqp.Queue{}, ch.fail(amqp.PreconditionFailed,
				"PRECONDITION_FAILED - inequivalent arg for queue '%s' in vhost '/'", name)
		}
		return amqp.Queue{Name: name, Messages: len(q.messages), Consumers: len(q.consumers)}, nil
	}

	q := &queue{
		name:       name,
		durable:    durable,
		autoDelete: autoDelete,
		exclusive:  exclusive,
		args:       args,
	}
	if exclusive {
		q.owner = ch.conn
	}
	b.queues[name] = q
	return amqp.Queue{Name: name}, nil
}

func (ch *Channel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	b := ch.broker
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch.closed {
		return amqp.ErrClosed
	}
	if name == "" {
		return ch.fail(amqp.AccessRefused, "ACCESS_REFUSED - operation not permitted on the default exchange")
	}
	switch kind {
	case rabbitmq.KindDirect, rabbitmq.KindFanout, rabbitmq.KindTopic:
	case rabbitmq.KindHeaders:
		return ch.fail(amqp.NotImplemented, "NOT_IMPLEMENTED - headers exchanges are not simulated")
	default:
		return ch.fail(amqp.CommandInvalid, "COMMAND_INVALID - unknown exchange type '%s'", kind)
	}

	if e, ok := b.exchanges[name]; ok {
		if e.kind != kind || e.durable != durable || e.autoDelete != autoDelete {
			return ch.fail(amqp.PreconditionFailed,
				"PRECONDITION_FAILED - inequivalent arg for exchange '%s' in vhost '/'", name)
		}
		return nil
	}

	b.exchanges[name] = &exchange{name: name, kind: kind, durable: durable, autoDelete: autoDelete}
	return nil
}

func (ch *Channel) ExchangeBind(destination, key, source string, noWait bool, args amqp.Table) error {
	b := ch.broker
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch.closed {
		return amqp.ErrClosed
	}
	src, ok := b.exchanges[source]
	if !ok {
		return ch.fail(amqp.NotFound, "NOT_FOUND - no exchange '%s' in vhost '/'", source)
	}
	if _, ok := b.exchanges[destination]; !ok {
		return ch.fail(amqp.NotFound, "NOT_FOUND - no exchange '%s' in vhost '/'", destination)
	}
	src.bind(binding{destination: destination, key: key, toExchange: true, args: args})
	return nil
}

func (ch *Channel) QueueBind(name, key, exchangeName string, noWait bool, args amqp.Table) error {
	b := ch.broker
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch.closed {
		return amqp.ErrClosed
	}
	if exchangeName == "" {
		return ch.fail(amqp.AccessRefused, "ACCESS_REFUSED - operation not permitted on the default exchange")
	}
	q, ok := b.queues[name]
	if !ok {
		return ch.fail(amqp.NotFound, "NOT_FOUND - no queue '%s' in vhost '/'", name)
	}
	if q.exclusive && q.owner != ch.conn {
		return ch.fail(amqp.ResourceLocked,
			"RESOURCE_LOCKED - cannot obtain exclusive access to locked queue '%s'", name)
	}
	e, ok := b.exchanges[exchangeName]
	if !ok {
		return ch.fail(amqp.NotFound, "NOT_FOUND - no exchange '%s' in vhost '/'", exchangeName)
	}
	e.bind(binding{destination: name, key: key, args: args})
	return nil
}

// bind is idempotent: an identical binding is not added twice.
func (e *exchange) bind(bd binding) {
	for _, existing := range e.bindings {
		if existing.destination == bd.destination && existing.key == bd.key &&
			existing.toExchange == bd.toExchange && sameArgs(existing.args, bd.args) {
			return
		}
	}
	e.bindings = append(e.bindings, bd)
}

func (ch *Channel) Consume(queueName, consumerTag string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error) {
	b := ch.broker
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch.closed {
		return nil, amqp.ErrClosed
	}
	q, ok := b.queues[queueName]
	if !ok {
		return nil, ch.fail(amqp.NotFound, "NOT_FOUND - no queue '%s' in vhost '/'", queueName)
	}
	if q.exclusive && q.owner != ch.conn {
		return nil, ch.fail(amqp.ResourceLocked,
			"RESOURCE_LOCKED - cannot obtain exclusive access to locked queue '%s'", queueName)
	}
	if consumerTag == "" {
		consumerTag = "amq.ctag-" + uuid.NewString()
	}
	if _, dup := ch.consumers[consumerTag]; dup {
		return nil, ch.fail(amqp.NotAllowed, "NOT_ALLOWED - attempt to reuse consumer tag '%s'", consumerTag)
	}

	c := &consumer{
		tag:     consumerTag,
		queue:   q,
		channel: ch,
		autoAck: autoAck,
		out:     make(chan amqp.Delivery, deliveryBuffer),
	}
	ch.consumers[consumerTag] = c
	q.consumers = append(q.consumers, c)
	b.dispatch(q)
	return c.out, nil
}

// Cancel closes the consumer's delivery channel. Unknown tags are ignored,
// matching the broker's cancel-ok for them.
func (ch *Channel) Cancel(consumerTag string, noWait bool) error {
	b := ch.broker
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch.closed {
		return amqp.ErrClosed
	}
	c, ok := ch.consumers[consumerTag]
	if !ok {
		return nil
	}
	delete(ch.consumers, consumerTag)
	close(c.out)
	b.removeConsumer(c)
	return nil
}

func (ch *Channel) GetNextPublishSeqNo() uint64 {
	ch.broker.mu.Lock()
	defer ch.broker.mu.Unlock()
	return ch.published + 1
}

func (ch *Channel) PublishWithContext(ctx context.Context, exchangeName, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b := ch.broker
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch.closed {
		return amqp.ErrClosed
	}
	targets, err := b.route(exchangeName, key)
	if err != nil {
		ch.shutdown(err.(*amqp.Error))
		return err
	}
	b.enqueue(targets, exchangeName, key, msg)

	if ch.confirm {
		ch.published++
		confirmation := amqp.Confirmation{DeliveryTag: ch.published, Ack: true}
		for _, n := range ch.notifyPublish {
			select {
			case n <- confirmation:
			default:
			}
		}
	}
	return nil
}

func (ch *Channel) Close() error {
	ch.broker.mu.Lock()
	defer ch.broker.mu.Unlock()

	if ch.closed {
		return amqp.ErrClosed
	}
	ch.shutdown(nil)
	return nil
}

func (ch *Channel) Ack(tag uint64, multiple bool) error {
	return ch.settle(tag, multiple, false, false)
}

func (ch *Channel) Nack(tag uint64, multiple, requeue bool) error {
	return ch.settle(tag, multiple, true, requeue)
}

func (ch *Channel) Reject(tag uint64, requeue bool) error {
	return ch.settle(tag, false, true, requeue)
}

func (ch *Channel) settle(tag uint64, multiple, negative, requeue bool) error {
	b := ch.broker
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch.closed {
		return amqp.ErrClosed
	}

	var tags []uint64
	if multiple {
		for t := range ch.unacked {
			if t <= tag {
				tags = append(tags, t)
			}
		}
	} else {
		if _, ok := ch.unacked[tag]; !ok {
			return ch.fail(amqp.PreconditionFailed, "PRECONDITION_FAILED - unknown delivery tag %d", tag)
		}
		tags = []uint64{tag}
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] > tags[j] })

	touched := make(map[*queue]bool)
	for _, t := range tags {
		p := ch.unacked[t]
		delete(ch.unacked, t)
		p.consumer.unacked--
		p.queue.unacked--
		if negative && requeue && b.isLive(p.queue) {
			m := p.msg
			m.redelivered = true
			p.queue.messages = append([]message{m}, p.queue.messages...)
		}
		touched[p.queue] = true
	}
	for q := range touched {
		if b.isLive(q) {
			b.dispatch(q)
		}
	}
	return nil
}
