package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrRoomExists is returned when creating a room whose name is taken.
var ErrRoomExists = errors.New("room already exists")

// Message represents a persisted chat line. Messages are append-only;
// CreatedAt is assigned by the store at persistence time.
type Message struct {
	ID        uint
	Room      string
	Username  string
	Body      string
	CreatedAt time.Time
}

// Room represents a persisted room record.
type Room struct {
	Name      string
	CreatedAt time.Time
}

// Store defines persistence operations used by the relay server.
type Store interface {
	Close() error
	Migrate(ctx context.Context) error

	AppendMessage(ctx context.Context, msg *Message) error
	RecentMessages(ctx context.Context, room string, limit int) ([]Message, error)

	CreateRoom(ctx context.Context, name string) (*Room, error)
	ListRooms(ctx context.Context) ([]Room, error)
	RoomExists(ctx context.Context, name string) (bool, error)
	DeleteRoom(ctx context.Context, name string) error
}
