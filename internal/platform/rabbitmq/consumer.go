package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/phrazzld/tasksync/internal/config"
	"github.com/phrazzld/tasksync/internal/events"
	"github.com/phrazzld/tasksync/internal/redact"
)

// Consumption outcomes used as the "outcome" metric label.
const (
	OutcomeHandled  = "handled"
	OutcomeFailed   = "failed"
	OutcomeRejected = "rejected"
)

// Consumer reads task events from a durable queue bound to the task exchange
// and hands them to an EventHandler.
type Consumer struct {
	broker   config.BrokerConfig
	notifier config.NotifierConfig
	handler  events.EventHandler
	url      string
	dial     Dialer
	logger   *slog.Logger
	metrics  *Metrics

	connected atomic.Bool
}

// NewConsumer creates a Consumer. Nothing is dialed until Run.
func NewConsumer(
	broker config.BrokerConfig,
	notifier config.NotifierConfig,
	handler events.EventHandler,
	log *slog.Logger,
	opts ...Option,
) (*Consumer, error) {
	if handler == nil {
		return nil, errors.New("event handler cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	o := buildOptions(opts)

	return &Consumer{
		broker:   broker,
		notifier: notifier,
		handler:  handler,
		url:      URL(broker),
		dial:     o.dial,
		logger:   log.With("component", "event_consumer", "queue", notifier.Queue),
		metrics:  o.metrics,
	}, nil
}

// Connected reports whether the consumer is currently receiving deliveries.
func (c *Consumer) Connected() bool {
	return c.connected.Load()
}

// Run consumes until ctx is cancelled. When the broker cannot be reached or
// the delivery stream ends, it waits RetryDelay and starts over.
// Run returns nil once ctx is done.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		err := c.consume(ctx)
		if ctx.Err() != nil {
			c.logger.Info("consumer stopped")
			return nil
		}

		c.logger.Error("consumer interrupted, retrying",
			"error", redact.Error(err),
			"retry_delay", c.notifier.RetryDelay)

		select {
		case <-ctx.Done():
			c.logger.Info("consumer stopped")
			return nil
		case <-time.After(c.notifier.RetryDelay):
		}
	}
}

// consume runs one connection's worth of consumption.
func (c *Consumer) consume(ctx context.Context) error {
	conn, err := c.dial(c.url, clientConfig(c.broker))
	if err != nil {
		return fmt.Errorf("%w: dial: %w", ErrBrokerUnavailable, err)
	}

	ch, err := conn.Channel()
	if err != nil {
		closeQuietly(nil, conn)
		return fmt.Errorf("%w: open channel: %w", ErrBrokerUnavailable, err)
	}
	defer closeQuietly(ch, conn)

	deliveries, err := c.setup(ch)
	if err != nil {
		return err
	}

	c.connected.Store(true)
	defer c.connected.Store(false)

	c.logger.Info("consuming task events",
		"binding_keys", c.notifier.BindingKeys,
		"workers", c.notifier.Workers,
		"prefetch", c.notifier.Prefetch)

	workers := c.notifier.Workers
	if workers < 1 {
		workers = 1
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			c.work(ctx, worker, deliveries)
		}(i)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}
	return ErrDeliveriesClosed
}

// setup declares the topology and starts the delivery stream.
func (c *Consumer) setup(ch Channel) (<-chan amqp.Delivery, error) {
	if err := declareExchange(ch, c.broker.Exchange); err != nil {
		return nil, fmt.Errorf("declare exchange %q: %w", c.broker.Exchange, err)
	}

	queue, err := ch.QueueDeclare(
		c.notifier.Queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("declare queue %q: %w", c.notifier.Queue, err)
	}

	for _, key := range c.notifier.BindingKeys {
		if err := ch.QueueBind(queue.Name, key, c.broker.Exchange, false, nil); err != nil {
			return nil, fmt.Errorf("bind queue %q to %q: %w", queue.Name, key, err)
		}
	}

	if c.notifier.Prefetch > 0 {
		if err := ch.Qos(c.notifier.Prefetch, 0, false); err != nil {
			return nil, fmt.Errorf("set prefetch: %w", err)
		}
	}

	deliveries, err := ch.Consume(queue.Name, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("start consuming %q: %w", queue.Name, err)
	}
	return deliveries, nil
}

func (c *Consumer) work(ctx context.Context, worker int, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			// In-flight deliveries finish even if ctx is cancelled mid-handle.
			c.process(context.WithoutCancel(ctx), worker, d)
		}
	}
}

// process decodes and handles one delivery, then acks or nacks it.
// Failed deliveries are not requeued.
func (c *Consumer) process(ctx context.Context, worker int, d amqp.Delivery) {
	log := c.logger.With("worker", worker, "routing_key", d.RoutingKey, "delivery_tag", d.DeliveryTag)

	var event events.TaskEvent
	if err := json.Unmarshal(d.Body, &event); err != nil {
		log.Error("failed to decode event", "error", err)
		c.metrics.Consumed.WithLabelValues(d.RoutingKey, OutcomeRejected).Inc()
		c.nack(log, d)
		return
	}

	if err := c.handler.HandleEvent(ctx, event); err != nil {
		log.Error("failed to handle event",
			"error", redact.Error(err),
			"event_type", event.Type,
			"task_id", event.TaskID)
		c.metrics.Consumed.WithLabelValues(d.RoutingKey, OutcomeFailed).Inc()
		c.nack(log, d)
		return
	}

	if err := d.Ack(false); err != nil {
		log.Error("failed to ack delivery", "error", err)
		return
	}
	c.metrics.Consumed.WithLabelValues(d.RoutingKey, OutcomeHandled).Inc()
	log.Debug("handled event", "event_type", event.Type, "task_id", event.TaskID)
}

func (c *Consumer) nack(log *slog.Logger, d amqp.Delivery) {
	if err := d.Nack(false, false); err != nil {
		log.Error("failed to nack delivery", "error", err)
	}
}
