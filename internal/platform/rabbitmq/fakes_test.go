package rabbitmq_test

import (
	"context"
	"errors"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/phrazzld/tasksync/internal/config"
	"github.com/phrazzld/tasksync/internal/platform/rabbitmq"
)

var errDial = errors.New("dial tcp 127.0.0.1:5672: connect: connection refused")

func testBrokerConfig() config.BrokerConfig {
	return config.BrokerConfig{
		Host:             "localhost",
		Port:             5672,
		User:             "guest",
		Password:         "guest",
		VHost:            "/",
		Exchange:         "task_events",
		RecoveryInterval: 10 * time.Millisecond,
		Heartbeat:        60 * time.Second,
		ConnectTimeout:   30 * time.Second,
	}
}

// closeNotifier mimics amqp091's NotifyClose bookkeeping.
type closeNotifier struct {
	closed    bool
	listeners []chan *amqp.Error
}

func (n *closeNotifier) register(c chan *amqp.Error) chan *amqp.Error {
	if n.closed {
		close(c)
		return c
	}
	n.listeners = append(n.listeners, c)
	return c
}

func (n *closeNotifier) shutdown(reason *amqp.Error) {
	if n.closed {
		return
	}
	n.closed = true
	for _, c := range n.listeners {
		if reason != nil {
			c <- reason
		}
		close(c)
	}
	n.listeners = nil
}

type exchangeDecl struct {
	Name       string
	Kind       string
	Durable    bool
	AutoDelete bool
}

type queueDecl struct {
	Name    string
	Durable bool
}

type queueBinding struct {
	Queue    string
	Key      string
	Exchange string
}

type publishedMessage struct {
	Exchange string
	Key      string
	Msg      amqp.Publishing
}

type fakeChannel struct {
	mu sync.Mutex

	declareErr error
	publishErr error
	consumeErr error

	exchanges  []exchangeDecl
	queues     []queueDecl
	bindings   []queueBinding
	prefetch   int
	published  []publishedMessage
	deliveries chan amqp.Delivery

	notifier closeNotifier
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{deliveries: make(chan amqp.Delivery, 16)}
}

func (c *fakeChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.declareErr != nil {
		return c.declareErr
	}
	c.exchanges = append(c.exchanges, exchangeDecl{Name: name, Kind: kind, Durable: durable, AutoDelete: autoDelete})
	return nil
}

func (c *fakeChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queues = append(c.queues, queueDecl{Name: name, Durable: durable})
	return amqp.Queue{Name: name}, nil
}

func (c *fakeChannel) QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bindings = append(c.bindings, queueBinding{Queue: name, Key: key, Exchange: exchange})
	return nil
}

func (c *fakeChannel) Qos(prefetchCount, prefetchSize int, global bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prefetch = prefetchCount
	return nil
}

func (c *fakeChannel) Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.consumeErr != nil {
		return nil, c.consumeErr
	}
	return c.deliveries, nil
}

func (c *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.publishErr != nil {
		return c.publishErr
	}
	c.published = append(c.published, publishedMessage{Exchange: exchange, Key: key, Msg: msg})
	return nil
}

func (c *fakeChannel) NotifyClose(ch chan *amqp.Error) chan *amqp.Error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.notifier.register(ch)
}

func (c *fakeChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notifier.shutdown(nil)
	return nil
}

func (c *fakeChannel) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.notifier.closed
}

func (c *fakeChannel) messages() []publishedMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]publishedMessage, len(c.published))
	copy(out, c.published)
	return out
}

func (c *fakeChannel) declaredExchanges() []exchangeDecl {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]exchangeDecl(nil), c.exchanges...)
}

type fakeConnection struct {
	mu       sync.Mutex
	channel  *fakeChannel
	notifier closeNotifier
}

func (c *fakeConnection) Channel() (rabbitmq.Channel, error) {
	return c.channel, nil
}

func (c *fakeConnection) NotifyClose(ch chan *amqp.Error) chan *amqp.Error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.notifier.register(ch)
}

func (c *fakeConnection) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.notifier.closed
}

func (c *fakeConnection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.notifier.shutdown(nil)
	return nil
}

// drop simulates the broker severing the link.
func (c *fakeConnection) drop(reason *amqp.Error) {
	c.mu.Lock()
	c.notifier.shutdown(reason)
	c.mu.Unlock()

	// amqp091 closes every channel and its delivery streams on connection loss.
	c.channel.mu.Lock()
	c.channel.notifier.shutdown(reason)
	close(c.channel.deliveries)
	c.channel.mu.Unlock()
}

// fakeBroker hands out fake connections from its Dial method.
type fakeBroker struct {
	mu         sync.Mutex
	down       bool
	newChannel func() *fakeChannel
	dials      int
	urls       []string
	configs    []amqp.Config
	conns      []*fakeConnection
}

func (b *fakeBroker) Dial(url string, cfg amqp.Config) (rabbitmq.Connection, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.dials++
	b.urls = append(b.urls, url)
	b.configs = append(b.configs, cfg)
	if b.down {
		return nil, errDial
	}

	ch := newFakeChannel()
	if b.newChannel != nil {
		ch = b.newChannel()
	}
	conn := &fakeConnection{channel: ch}
	b.conns = append(b.conns, conn)
	return conn, nil
}

func (b *fakeBroker) setDown(down bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.down = down
}

func (b *fakeBroker) dialCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dials
}

func (b *fakeBroker) connections() []*fakeConnection {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*fakeConnection(nil), b.conns...)
}

func (b *fakeBroker) lastConnection() *fakeConnection {
	conns := b.connections()
	if len(conns) == 0 {
		return nil
	}
	return conns[len(conns)-1]
}

// fakeAcknowledger records acks and nacks for consumer tests.
type fakeAcknowledger struct {
	mu       sync.Mutex
	acks     []uint64
	nacks    []uint64
	requeued bool
}

func (a *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.acks = append(a.acks, tag)
	return nil
}

func (a *fakeAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.nacks = append(a.nacks, tag)
	a.requeued = a.requeued || requeue
	return nil
}

func (a *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	return a.Nack(tag, false, requeue)
}

func (a *fakeAcknowledger) counts() (acks, nacks int, requeued bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.acks), len(a.nacks), a.requeued
}
