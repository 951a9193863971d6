// Package notification turns task lifecycle events into stored, templated
// notifications. It is the downstream consumer side of the task event stream:
// rabbitmq.Consumer decodes deliveries and hands them to a Handler.
package notification
