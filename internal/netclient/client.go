package netclient

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"
	"github.com/hersh/towerrelay/internal/protocol"
	"go.uber.org/zap"
)

const (
	dialTimeout  = 5 * time.Second
	writeWait    = 10 * time.Second
	idleTimeout  = 60 * time.Second
	pingInterval = idleTimeout / 2
	maxFrameSize = 16384
	outboxSize   = 256
)

// ServerMsg carries a relay event the client has no dedicated message for.
type ServerMsg struct {
	Type protocol.MessageType
	Raw  json.RawMessage
}

// ConnectedMsg is sent when the relay assigns the connection its id.
type ConnectedMsg struct {
	PlayerID string
	Name     string
}

// AckMsg answers a request that carried an ack id.
type AckMsg struct {
	ID  int64
	Raw json.RawMessage
}

// DisconnectedMsg ends the session. Err is nil after a clean close.
type DisconnectedMsg struct {
	Err error
}

// Client is one player's connection to the relay. Frames from the relay are
// fed to the tea.Program as the messages above.
type Client struct {
	conn *websocket.Conn
	out  chan []byte
	stop chan struct{}
	once sync.Once
	log  *zap.Logger

	mu      sync.Mutex
	program *tea.Program
}

// New dials the relay. Nothing is read or written until Start.
func New(serverURL string, logger *zap.Logger) (*Client, error) {
	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	conn, _, err := dialer.Dial(serverURL, nil)
	if err != nil {
		return nil, err
	}

	return &Client{
		conn: conn,
		out:  make(chan []byte, outboxSize),
		stop: make(chan struct{}),
		log:  logger,
	}, nil
}

// SetProgram attaches the program that receives relay events.
func (c *Client) SetProgram(p *tea.Program) {
	c.mu.Lock()
	c.program = p
	c.mu.Unlock()
}

func (c *Client) Start() {
	go c.flush()
	go func() {
		c.emit(DisconnectedMsg{Err: c.listen()})
	}()
}

// Send queues an envelope. It never blocks; a full queue drops the envelope.
func (c *Client) Send(env protocol.Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		c.log.Warn("encoding request", zap.String("type", string(env.Type)), zap.Error(err))
		return
	}

	select {
	case c.out <- data:
	case <-c.stop:
	default:
		c.log.Warn("outbox full, dropping request", zap.String("type", string(env.Type)))
	}
}

// Close says goodbye to the relay and tears the connection down. It is safe to
// call more than once.
func (c *Client) Close() {
	c.once.Do(func() {
		close(c.stop)
		bye := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		c.conn.WriteControl(websocket.CloseMessage, bye, time.Now().Add(writeWait))
		c.conn.Close()
	})
}

// Translate turns a relay frame into the tea.Msg the TUI consumes.
func Translate(data []byte) (tea.Msg, error) {
	env, err := protocol.Decode(data)
	if err != nil {
		return nil, err
	}

	switch env.Type {
	case protocol.MsgConnected:
		var payload protocol.ConnectedPayload
		if err := env.Bind(&payload); err != nil {
			return nil, err
		}
		return ConnectedMsg{PlayerID: payload.PlayerID, Name: payload.Name}, nil
	case protocol.MsgAck:
		return AckMsg{ID: env.Ack, Raw: env.Payload}, nil
	default:
		return ServerMsg{Type: env.Type, Raw: env.Payload}, nil
	}
}

func (c *Client) emit(msg tea.Msg) {
	c.mu.Lock()
	p := c.program
	c.mu.Unlock()

	if p == nil {
		c.log.Debug("no program attached, dropping event")
		return
	}
	p.Send(msg)
}

// listen forwards relay frames until the connection ends. A clean close
// returns nil.
func (c *Client) listen() error {
	c.conn.SetReadLimit(maxFrameSize)
	extend := func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(idleTimeout))
	}
	extend("")
	c.conn.SetPongHandler(extend)

	for {
		_, frame, err := c.conn.ReadMessage()
		switch {
		case err == nil:
		case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
			return nil
		case errors.Is(err, websocket.ErrCloseSent), c.stopped():
			return nil
		default:
			c.log.Info("connection lost", zap.Error(err))
			return err
		}

		msg, err := Translate(frame)
		if err != nil {
			c.log.Info("skipping malformed frame", zap.Error(err))
			continue
		}
		c.emit(msg)
	}
}

// flush drains the outbox and keeps the connection alive with pings.
func (c *Client) flush() {
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		var (
			kind = websocket.TextMessage
			data []byte
		)
		select {
		case <-c.stop:
			return
		case <-ping.C:
			kind = websocket.PingMessage
		case data = <-c.out:
		}

		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(kind, data); err != nil {
			c.log.Info("write failed", zap.Error(err))
			c.conn.Close()
			return
		}
	}
}

func (c *Client) stopped() bool {
	select {
	case <-c.stop:
		return true
	default:
		return false
	}
}
