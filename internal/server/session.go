package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/driftline/driftline/internal/protocol"
)

const sendBufferSize = 64

// session tracks per-connection state: identity, current room, and the
// outbound delivery channel the broadcaster writes into.
//
// The room and username fields are owned by the read pump goroutine and
// must not be touched elsewhere; the registry holds the authoritative
// membership view for concurrent readers.
type session struct {
	id       string
	conn     *websocket.Conn
	sendCh   chan protocol.Envelope
	room     string
	username string
	logger   zerolog.Logger
}

func newSession(conn *websocket.Conn, logger *zerolog.Logger) *session {
	id := uuid.NewString()
	return &session{
		id:     id,
		conn:   conn,
		sendCh: make(chan protocol.Envelope, sendBufferSize),
		logger: logger.With().Str("connID", id).Logger(),
	}
}

// send queues an envelope for direct delivery to this connection only.
func (s *session) send(ctx context.Context, env protocol.Envelope) error {
	select {
	case s.sendCh <- env:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// writeLoop drains the outbound channel onto the websocket and keeps
// the connection alive with pings. It exits when ctx is canceled or a
// write fails. sendCh is deliberately never closed: late best-effort
// broadcasts may still land in the buffer after the session leaves its
// room.
func (s *session) writeLoop(ctx context.Context, pingInterval, writeTimeout time.Duration) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			_ = s.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case <-ticker.C:
			if err := s.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
				return
			}
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.logger.Debug().Err(err).Msg("ping failed")
				return
			}
		case env := <-s.sendCh:
			data, err := json.Marshal(env)
			if err != nil {
				s.logger.Error().Err(err).Msg("marshal outbound envelope")
				continue
			}
			if err := s.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				s.logger.Debug().Err(err).Msg("write failed")
				return
			}
		}
	}
}

// readLoop reads inbound frames and dispatches them through handle
// until the peer goes away or the context is canceled.
func (s *session) readLoop(ctx context.Context, readTimeout time.Duration, maxMessageBytes int64, handle func(context.Context, *session, protocol.Envelope)) {
	s.conn.SetReadLimit(maxMessageBytes)
	_ = s.conn.SetReadDeadline(time.Now().Add(readTimeout))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err,
				websocket.CloseNormalClosure,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure) || errors.Is(err, io.EOF) {
				s.logger.Debug().Err(err).Msg("connection closed")
			} else {
				s.logger.Debug().Err(err).Msg("read failed")
			}
			return
		}

		env, err := protocol.DecodeEnvelope(data)
		if err != nil {
			// Protocol violation: drop the frame, keep the connection.
			s.logger.Warn().Err(err).Msg("dropping malformed frame")
			continue
		}

		handle(ctx, s, env)
	}
}
