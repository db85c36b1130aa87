package server

import (
	"github.com/rs/zerolog"

	"github.com/driftline/driftline/internal/protocol"
)

// Broadcaster fans an event out to every current member of a room.
type Broadcaster struct {
	registry *Registry
	logger   zerolog.Logger
}

// NewBroadcaster wires a broadcaster to the registry it reads
// membership from.
func NewBroadcaster(registry *Registry, logger *zerolog.Logger) *Broadcaster {
	return &Broadcaster{
		registry: registry,
		logger:   logger.With().Str("component", "broadcaster").Logger(),
	}
}

// ToRoom delivers env to every member of room, skipping excludeID when
// non-empty. Delivery is best effort: a member whose outbound buffer is
// full or already closed is skipped so it never blocks the rest of the
// room.
func (b *Broadcaster) ToRoom(room string, env protocol.Envelope, excludeID string) {
	members := b.registry.MembersOf(room)

	delivered := 0
	for id, ch := range members {
		if id == excludeID {
			continue
		}
		select {
		case ch <- env:
			delivered++
		default:
			b.logger.Debug().
				Str("room", room).
				Str("connID", id).
				Str("event", string(env.Type)).
				Msg("member send buffer full, dropping delivery")
		}
	}

	b.logger.Trace().
		Str("room", room).
		Str("event", string(env.Type)).
		Int("delivered", delivered).
		Msg("broadcast complete")
}
