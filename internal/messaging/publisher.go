package messaging

import (
	"fmt"

	"github.com/pixil98/go-errors"
)

// ConnSubject is the subject a connection's outbound frames are published on.
func ConnSubject(connID string) string {
	return fmt.Sprintf("relay.conn.%s", connID)
}

// NatsPublisher delivers encoded messages to per-connection NATS subjects.
type NatsPublisher struct {
	server *NatsServer
}

// NewNatsPublisher wraps a NatsServer for per-connection message delivery.
func NewNatsPublisher(server *NatsServer) *NatsPublisher {
	return &NatsPublisher{server: server}
}

// Deliver publishes data once per target. Every target is attempted.
func (p *NatsPublisher) Deliver(connIDs []string, data []byte) error {
	el := errors.NewErrorList()
	for _, id := range connIDs {
		if err := p.server.Publish(ConnSubject(id), data); err != nil {
			el.Add(fmt.Errorf("publishing to %s: %w", id, err))
		}
	}
	return el.Err()
}

// SubscribeConn routes frames published for connID to handler.
func (p *NatsPublisher) SubscribeConn(connID string, handler func(data []byte)) (func(), error) {
	return p.server.Subscribe(ConnSubject(connID), handler)
}
