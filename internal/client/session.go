package client

import (
	"context"
	"errors"
	"time"

	"github.com/gorilla/websocket"

	"github.com/driftline/driftline/internal/config"
	"github.com/driftline/driftline/internal/protocol"
)

// Session manages the websocket connection to the relay server.
type Session struct {
	cfg      config.ClientConfig
	conn     *websocket.Conn
	inbound  chan protocol.Envelope
	closed   chan struct{}
	cancelFn context.CancelFunc
}

// NewSession initializes a session with configuration.
func NewSession(cfg config.ClientConfig) *Session {
	return &Session{
		cfg:     cfg,
		inbound: make(chan protocol.Envelope, 64),
		closed:  make(chan struct{}),
	}
}

// Connect dials the server and starts the read loop.
func (s *Session) Connect(ctx context.Context) error {
	if s.cfg.ServerURL == "" {
		return errors.New("server url not configured")
	}
	dialer := &websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, _, err := dialer.DialContext(ctx, s.cfg.ServerURL, nil)
	if err != nil {
		return err
	}
	s.conn = conn
	ctx, cancel := context.WithCancel(ctx)
	s.cancelFn = cancel
	go s.readLoop(ctx)
	return nil
}

// Close terminates the session.
func (s *Session) Close() error {
	if s.cancelFn != nil {
		s.cancelFn()
	}
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

// Send dispatches an event to the server.
func (s *Session) Send(eventType protocol.EventType, payload interface{}) error {
	env, err := protocol.NewEnvelope(eventType, payload)
	if err != nil {
		return err
	}
	_ = s.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return s.conn.WriteJSON(env)
}

// Inbound returns the channel of server events.
func (s *Session) Inbound() <-chan protocol.Envelope {
	return s.inbound
}

// Closed is closed once the read loop has finished.
func (s *Session) Closed() <-chan struct{} {
	return s.closed
}

func (s *Session) readLoop(ctx context.Context) {
	defer close(s.closed)
	for {
		if ctx.Err() != nil {
			return
		}
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		env, err := protocol.DecodeEnvelope(data)
		if err != nil {
			continue
		}
		select {
		case s.inbound <- env:
		case <-ctx.Done():
			return
		}
	}
}
