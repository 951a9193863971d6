package rabbitmq

import "errors"

var (
	// ErrBrokerUnavailable is returned when no usable connection or channel exists.
	ErrBrokerUnavailable = errors.New("broker unavailable")

	// ErrPublishFailed is returned when the broker client rejects a publish.
	ErrPublishFailed = errors.New("publish failed")

	// ErrInvalidEvent is returned for events that cannot be routed or encoded.
	ErrInvalidEvent = errors.New("invalid event")

	// ErrDeliveriesClosed is returned when the broker stops delivering to a consumer.
	ErrDeliveriesClosed = errors.New("delivery channel closed")
)

// dropReason maps a publish error to the label used on the dropped-events counter.
func dropReason(err error) string {
	switch {
	case errors.Is(err, ErrInvalidEvent):
		return "invalid_event"
	case errors.Is(err, ErrBrokerUnavailable):
		return "broker_unavailable"
	default:
		return "publish_failed"
	}
}
