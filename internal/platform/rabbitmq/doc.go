// Package rabbitmq implements task event delivery over an AMQP 0-9-1 broker
// using github.com/rabbitmq/amqp091-go.
//
// Publisher owns a long-lived connection, declares the durable topic exchange,
// and publishes persistent JSON messages routed by "task.<event type>". It
// reconnects on its own after link loss and never reports publish failures to
// its callers; they are logged and counted instead.
//
// Consumer binds a durable queue to the exchange and feeds decoded events to
// an events.EventHandler from a small pool of workers.
package rabbitmq
