package server

import (
	"context"
	"strings"

	"github.com/driftline/driftline/internal/protocol"
	"github.com/driftline/driftline/internal/storage"
)

// handleEvent drives the per-connection state machine. It runs on the
// session's read pump goroutine, so session.room transitions are
// single-writer; the registry carries the same state for concurrent
// broadcasts.
func (a *App) handleEvent(ctx context.Context, sess *session, env protocol.Envelope) {
	switch env.Type {
	case protocol.EventTypeJoin:
		a.handleJoin(ctx, sess, env)
	case protocol.EventTypeMessage:
		a.handleChatMessage(ctx, sess, env)
	case protocol.EventTypeTyping:
		a.handleTyping(ctx, sess, env)
	default:
		sess.logger.Warn().Str("event", string(env.Type)).Msg("dropping unhandled event")
	}
}

func (a *App) handleJoin(ctx context.Context, sess *session, env protocol.Envelope) {
	var req protocol.JoinRequest
	if err := env.DecodePayload(&req); err != nil {
		sess.logger.Warn().Err(err).Msg("dropping invalid join")
		return
	}
	room := strings.TrimSpace(req.Room)
	if room == "" {
		sess.logger.Warn().Msg("dropping join without room")
		return
	}
	sess.username = req.Username

	// History is fetched before membership registration and never under
	// the registry lock. A failed fetch does not fail the join: the
	// connection still becomes a broadcast target and receives an empty
	// batch.
	messages, err := a.store.RecentMessages(ctx, room, a.cfg.HistoryLimit)
	if err != nil {
		sess.logger.Error().Err(err).Str("room", room).Msg("history fetch failed")
		messages = nil
	}

	a.registry.Join(sess.id, room, sess.sendCh)
	sess.room = room
	sess.logger.Info().Str("room", room).Str("username", sess.username).Msg("joined room")

	history := protocol.ChatHistory{
		Room:     room,
		Messages: make([]protocol.HistoryMessage, 0, len(messages)),
	}
	for _, msg := range messages {
		history.Messages = append(history.Messages, protocol.HistoryMessage{
			Username:  msg.Username,
			Message:   msg.Body,
			Room:      msg.Room,
			Timestamp: msg.CreatedAt,
		})
	}

	out, err := protocol.NewEnvelope(protocol.EventTypeChatHistory, history)
	if err != nil {
		sess.logger.Error().Err(err).Msg("encode history")
		return
	}
	if err := sess.send(ctx, out); err != nil {
		sess.logger.Debug().Err(err).Msg("history send failed")
	}
}

func (a *App) handleChatMessage(ctx context.Context, sess *session, env protocol.Envelope) {
	if sess.room == "" {
		sess.logger.Warn().Msg("dropping chat message from unjoined connection")
		return
	}
	var req protocol.ChatMessage
	if err := env.DecodePayload(&req); err != nil {
		sess.logger.Warn().Err(err).Msg("dropping invalid chat message")
		return
	}
	if req.Username != "" {
		sess.username = req.Username
	}

	msg := storage.Message{
		Room:     sess.room,
		Username: sess.username,
		Body:     req.Message,
	}
	if err := a.store.AppendMessage(ctx, &msg); err != nil {
		// Fail closed: an unpersisted message is never broadcast.
		sess.logger.Error().Err(err).Str("room", sess.room).Msg("message append failed, dropping")
		return
	}

	out, err := protocol.NewEnvelope(protocol.EventTypeNewMessage, protocol.NewMessage{
		Message:   msg.Body,
		Username:  msg.Username,
		Room:      msg.Room,
		Timestamp: msg.CreatedAt,
	})
	if err != nil {
		sess.logger.Error().Err(err).Msg("encode message")
		return
	}

	// Sender included: its own echo confirms persistence.
	a.broadcaster.ToRoom(sess.room, out, "")
}

func (a *App) handleTyping(ctx context.Context, sess *session, env protocol.Envelope) {
	if sess.room == "" {
		sess.logger.Warn().Msg("dropping typing event from unjoined connection")
		return
	}
	var req protocol.Typing
	if err := env.DecodePayload(&req); err != nil {
		sess.logger.Warn().Err(err).Msg("dropping invalid typing event")
		return
	}
	if req.Username != "" {
		sess.username = req.Username
	}

	out, err := protocol.NewEnvelope(protocol.EventTypeTypingStatus, protocol.TypingStatus{
		Username: sess.username,
		IsTyping: req.IsTyping,
	})
	if err != nil {
		sess.logger.Error().Err(err).Msg("encode typing status")
		return
	}

	a.broadcaster.ToRoom(sess.room, out, sess.id)
}
