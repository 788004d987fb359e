package messaging

import (
	"time"

	"go.uber.org/zap"
)

type NatsServerOpt func(*NatsServer)

// WithStartTimeout sets the startup timeout for the nats server
func WithStartTimeout(d time.Duration) NatsServerOpt {
	return func(n *NatsServer) {
		n.startupTimeout = d
	}
}

// WithHost sets the host for the nats server
func WithHost(host string) NatsServerOpt {
	return func(n *NatsServer) {
		n.host = host
	}
}

// WithPort sets the port for the nats server. -1 picks a free port.
func WithPort(port int) NatsServerOpt {
	return func(n *NatsServer) {
		n.port = port
	}
}

// WithLogger sets the logger used for server lifecycle events
func WithLogger(logger *zap.Logger) NatsServerOpt {
	return func(n *NatsServer) {
		n.log = logger
	}
}
