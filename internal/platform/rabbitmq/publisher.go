package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/phrazzld/tasksync/internal/config"
	"github.com/phrazzld/tasksync/internal/events"
	"github.com/phrazzld/tasksync/internal/platform/logger"
	"github.com/phrazzld/tasksync/internal/redact"
)

const (
	// ContentType is the content type of every published body.
	ContentType = "application/json"

	// SchemaVersionHeader carries events.SchemaVersion on each message.
	SchemaVersionHeader = "schema_version"
)

// Option configures a Publisher or Consumer.
type Option func(*options)

type options struct {
	dial    Dialer
	metrics *Metrics
}

// WithDialer replaces DialAMQP, mainly for tests.
func WithDialer(d Dialer) Option {
	return func(o *options) {
		o.dial = d
	}
}

// WithMetrics sets the counters updated on publish and consume.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

func buildOptions(opts []Option) options {
	o := options{dial: DialAMQP}
	for _, opt := range opts {
		opt(&o)
	}
	if o.metrics == nil {
		o.metrics = NewMetrics(nil)
	}
	return o
}

// Publisher publishes task events to the topic exchange.
// It is safe for concurrent use; publishes are serialized on one channel.
type Publisher struct {
	cfg     config.BrokerConfig
	url     string
	dial    Dialer
	logger  *slog.Logger
	metrics *Metrics

	mu   sync.Mutex
	conn Connection
	ch   Channel

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

var _ events.Publisher = (*Publisher)(nil)

// NewPublisher connects to the broker and declares the exchange. It fails if
// the first connection attempt or the declaration fails; after that, link
// loss is recovered in the background every cfg.RecoveryInterval.
func NewPublisher(cfg config.BrokerConfig, log *slog.Logger, opts ...Option) (*Publisher, error) {
	if log == nil {
		log = slog.Default()
	}
	o := buildOptions(opts)

	p := &Publisher{
		cfg:     cfg,
		url:     URL(cfg),
		dial:    o.dial,
		logger:  log.With("component", "event_publisher", "exchange", cfg.Exchange),
		metrics: o.metrics,
		done:    make(chan struct{}),
	}

	l, err := p.connect()
	if err != nil {
		p.logger.Error("failed to connect to broker",
			"error", redact.Error(err),
			"host", cfg.Host,
			"port", cfg.Port)
		return nil, err
	}
	p.conn, p.ch = l.conn, l.ch

	p.logger.Info("connected to broker", "host", cfg.Host, "port", cfg.Port)

	p.wg.Add(1)
	go p.watch(l)

	return p, nil
}

// link is one open connection and channel with their close listeners.
type link struct {
	conn       Connection
	ch         Channel
	connClosed chan *amqp.Error
	chanClosed chan *amqp.Error
}

// connect dials, opens a channel and declares the exchange. Close listeners
// are registered before it returns, so a loss that happens before the
// watcher runs still carries its reason.
func (p *Publisher) connect() (*link, error) {
	conn, err := p.dial(p.url, clientConfig(p.cfg))
	if err != nil {
		return nil, fmt.Errorf("%w: dial: %w", ErrBrokerUnavailable, err)
	}

	ch, err := conn.Channel()
	if err != nil {
		closeQuietly(nil, conn)
		return nil, fmt.Errorf("%w: open channel: %w", ErrBrokerUnavailable, err)
	}

	if err := declareExchange(ch, p.cfg.Exchange); err != nil {
		closeQuietly(ch, conn)
		return nil, fmt.Errorf("%w: declare exchange %q: %w", ErrBrokerUnavailable, p.cfg.Exchange, err)
	}

	return &link{
		conn:       conn,
		ch:         ch,
		connClosed: conn.NotifyClose(make(chan *amqp.Error, 1)),
		chanClosed: ch.NotifyClose(make(chan *amqp.Error, 1)),
	}, nil
}

// watch waits for the connection or channel to close and then reconnects.
func (p *Publisher) watch(l *link) {
	defer p.wg.Done()

	for {
		var reason *amqp.Error
		select {
		case <-p.done:
			return
		case reason = <-l.connClosed:
		case reason = <-l.chanClosed:
		}

		select {
		case <-p.done:
			return
		default:
		}

		p.mu.Lock()
		p.conn, p.ch = nil, nil
		p.mu.Unlock()
		closeQuietly(l.ch, l.conn)

		if reason != nil {
			p.logger.Warn("broker connection lost",
				"error", reason.Error(),
				"recovery_interval", p.cfg.RecoveryInterval)
		} else {
			p.logger.Warn("broker connection closed",
				"recovery_interval", p.cfg.RecoveryInterval)
		}

		var ok bool
		l, ok = p.reconnect()
		if !ok {
			return
		}
	}
}

// reconnect retries connect at a fixed interval until it succeeds or the
// publisher is closed.
func (p *Publisher) reconnect() (*link, bool) {
	for attempt := 1; ; attempt++ {
		select {
		case <-p.done:
			return nil, false
		case <-time.After(p.cfg.RecoveryInterval):
		}

		l, err := p.connect()
		if err != nil {
			p.logger.Warn("broker reconnect failed",
				"error", redact.Error(err),
				"attempt", attempt)
			continue
		}

		p.mu.Lock()
		select {
		case <-p.done:
			p.mu.Unlock()
			closeQuietly(l.ch, l.conn)
			return nil, false
		default:
		}
		p.conn, p.ch = l.conn, l.ch
		p.mu.Unlock()

		p.logger.Info("reconnected to broker", "attempt", attempt)
		return l, true
	}
}

// Connected reports whether the publisher currently holds an open channel.
func (p *Publisher) Connected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ch != nil
}

// Publish sends event to the exchange under its routing key. Failures are
// logged and counted, never returned.
func (p *Publisher) Publish(ctx context.Context, event events.TaskEvent) {
	log := logger.FromContextOrDefault(ctx, p.logger)
	routingKey := event.RoutingKey()

	if err := p.publish(ctx, event, routingKey); err != nil {
		p.metrics.Dropped.WithLabelValues(dropReason(err)).Inc()
		log.Error("failed to publish event",
			"error", redact.Error(err),
			"event_type", event.Type,
			"task_id", event.TaskID,
			"routing_key", routingKey)
		return
	}

	p.metrics.Published.WithLabelValues(routingKey).Inc()
	log.Debug("published event",
		"event_type", event.Type,
		"task_id", event.TaskID,
		"routing_key", routingKey)
}

func (p *Publisher) publish(ctx context.Context, event events.TaskEvent, routingKey string) error {
	if err := event.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidEvent, err)
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("%w: encode: %w", ErrInvalidEvent, err)
	}

	msg := amqp.Publishing{
		ContentType:  ContentType,
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    event.Timestamp,
		Type:         string(event.Type),
		Headers:      amqp.Table{SchemaVersionHeader: int32(events.SchemaVersion)},
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch == nil {
		return ErrBrokerUnavailable
	}

	if err := p.ch.PublishWithContext(ctx, p.cfg.Exchange, routingKey, false, false, msg); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}

// Close releases the channel and connection and stops reconnecting.
// It is safe to call more than once.
func (p *Publisher) Close() error {
	var err error
	p.closeOnce.Do(func() {
		close(p.done)

		p.mu.Lock()
		conn, ch := p.conn, p.ch
		p.conn, p.ch = nil, nil
		p.mu.Unlock()

		if ch != nil {
			_ = ch.Close()
		}
		if conn != nil && !conn.IsClosed() {
			err = conn.Close()
		}

		p.wg.Wait()
		p.logger.Info("broker publisher closed")
	})
	return err
}
