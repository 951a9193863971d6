package rabbitmq

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/phrazzld/tasksync/internal/config"
)

// ExchangeKind is the type of the task exchange.
const ExchangeKind = amqp.ExchangeTopic

// Channel is the subset of *amqp.Channel used by this package.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	Qos(prefetchCount, prefetchSize int, global bool) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	NotifyClose(c chan *amqp.Error) chan *amqp.Error
	Close() error
}

// Connection is the subset of *amqp.Connection used by this package.
type Connection interface {
	Channel() (Channel, error)
	NotifyClose(c chan *amqp.Error) chan *amqp.Error
	IsClosed() bool
	Close() error
}

// Dialer opens a broker connection. DialAMQP is the production implementation.
type Dialer func(url string, cfg amqp.Config) (Connection, error)

// amqpConnection adapts *amqp.Connection to Connection.
type amqpConnection struct {
	*amqp.Connection
}

// Channel opens a new channel on the connection.
func (c *amqpConnection) Channel() (Channel, error) {
	ch, err := c.Connection.Channel()
	if err != nil {
		return nil, err
	}
	return ch, nil
}

// DialAMQP dials a real broker.
func DialAMQP(url string, cfg amqp.Config) (Connection, error) {
	conn, err := amqp.DialConfig(url, cfg)
	if err != nil {
		return nil, err
	}
	return &amqpConnection{Connection: conn}, nil
}

// URL builds the broker URL from configuration.
func URL(cfg config.BrokerConfig) string {
	uri := amqp.URI{
		Scheme:   "amqp",
		Host:     cfg.Host,
		Port:     cfg.Port,
		Username: cfg.User,
		Password: cfg.Password,
		Vhost:    cfg.VHost,
	}
	return uri.String()
}

// clientConfig returns the connection tuning: heartbeat and a bounded connect timeout.
func clientConfig(cfg config.BrokerConfig) amqp.Config {
	return amqp.Config{
		Heartbeat: cfg.Heartbeat,
		Vhost:     cfg.VHost,
		Dial:      amqp.DefaultDial(cfg.ConnectTimeout),
	}
}

// declareExchange declares the durable, non-auto-deleted topic exchange.
// Redeclaring with the same arguments is a no-op on the broker.
func declareExchange(ch Channel, name string) error {
	return ch.ExchangeDeclare(
		name,
		ExchangeKind,
		true,  // durable
		false, // autoDelete
		false, // internal
		false, // noWait
		nil,
	)
}

// closeQuietly releases a channel and its connection, ignoring errors.
func closeQuietly(ch Channel, conn Connection) {
	if ch != nil {
		_ = ch.Close()
	}
	if conn != nil && !conn.IsClosed() {
		_ = conn.Close()
	}
}
