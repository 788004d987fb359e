package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/hersh/towerrelay/internal/protocol"
	"go.uber.org/zap"
)

const shutdownTimeout = 5 * time.Second

// Dispatcher handles connection lifecycle and inbound events.
type Dispatcher interface {
	Connect(connID string)
	Disconnect(connID string)
	Handle(ctx context.Context, connID string, env protocol.RawEnvelope) error
}

// RoomLister summarizes the open rooms.
type RoomLister interface {
	Rooms() []protocol.RoomInfo
}

// Subscriber routes frames published elsewhere to a connection.
type Subscriber interface {
	SubscribeConn(connID string, handler func(data []byte)) (func(), error)
}

type Server struct {
	hub      *Hub
	dispatch Dispatcher
	rooms    RoomLister
	sub      Subscriber
	log      *zap.Logger

	addr     string
	upgrader websocket.Upgrader
}

func NewServer(hub *Hub, dispatch Dispatcher, rooms RoomLister, logger *zap.Logger, opts ...ServerOpt) *Server {
	s := &Server{
		hub:      hub,
		dispatch: dispatch,
		rooms:    rooms,
		log:      logger,
		addr:     ":3000",
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Handler returns the HTTP routes: /ws, /rooms and /health.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("GET /rooms", s.handleRooms)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	return mux
}

// Start serves until ctx is cancelled, then shuts down and closes every
// open connection.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("relay server listening", zap.String("addr", s.addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("serving http: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info("relay server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := srv.Shutdown(shutdownCtx)
	s.hub.CloseAll()
	if err != nil {
		return fmt.Errorf("shutting down http: %w", err)
	}
	return nil
}

func (s *Server) handleRooms(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	resp := protocol.ListRoomsResponse{Rooms: s.rooms.Rooms()}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.log.Warn("encoding rooms", zap.Error(err))
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Info("upgrade error", zap.Error(err))
		return
	}

	c := newConn(uuid.NewString(), ws, s.log)
	s.hub.register(c)

	unsubscribe := func() {}
	if s.sub != nil {
		unsubscribe, err = s.sub.SubscribeConn(c.ID, c.send)
		if err != nil {
			s.log.Error("subscribing connection", zap.String("conn", c.ID), zap.Error(err))
			s.hub.unregister(c.ID)
			ws.Close()
			return
		}
	}

	go c.writePump()

	s.dispatch.Connect(c.ID)
	c.log.Info("connection opened", zap.Int("open", s.hub.Count()))

	c.readPump(func(data []byte) {
		env, err := protocol.Decode(data)
		if err != nil {
			c.log.Info("dropping malformed message", zap.Error(err))
			return
		}
		if err := s.dispatch.Handle(r.Context(), c.ID, env); err != nil {
			c.log.Info("handling message", zap.String("type", string(env.Type)), zap.Error(err))
		}
	})

	s.dispatch.Disconnect(c.ID)
	unsubscribe()
	s.hub.unregister(c.ID)
	c.log.Info("connection closed", zap.Int("open", s.hub.Count()))
}
