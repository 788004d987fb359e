package server

type ServerOpt func(*Server)

// WithAddr sets the listen address
func WithAddr(addr string) ServerOpt {
	return func(s *Server) {
		s.addr = addr
	}
}

// WithSubscriber delivers outbound frames through a message bus instead of
// directly from the hub
func WithSubscriber(sub Subscriber) ServerOpt {
	return func(s *Server) {
		s.sub = sub
	}
}
