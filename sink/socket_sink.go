package sink

import (
	"context"

	"gimp-server/domain/event"
)

// SocketSink buffers events for one subscribed connection.
type SocketSink struct {
	Events chan event.DomainEvent
}

func NewSocketSink(bufferSize int) *SocketSink {
	return &SocketSink{Events: make(chan event.DomainEvent, bufferSize)}
}

// Consume is called by the fanout worker. It redirects the event
// through the channel owned by the connection; the socket handler
// takes it from there. A full buffer drops the event rather than
// blocking the fanout.
func (s *SocketSink) Consume(ctx context.Context, e event.DomainEvent) error {
	select {
	case s.Events <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
