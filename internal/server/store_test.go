package server

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/driftline/driftline/internal/storage"
)

// fakeStore is an in-memory storage.Store used by the relay tests.
type fakeStore struct {
	mu        sync.Mutex
	messages  map[string][]storage.Message
	rooms     map[string]storage.Room
	nextID    uint
	appendErr error
	recentErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		messages: make(map[string][]storage.Message),
		rooms:    make(map[string]storage.Room),
	}
}

func (f *fakeStore) Close() error                  { return nil }
func (f *fakeStore) Migrate(context.Context) error { return nil }

func (f *fakeStore) AppendMessage(_ context.Context, msg *storage.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return f.appendErr
	}
	f.nextID++
	msg.ID = f.nextID
	msg.CreatedAt = time.Now().UTC()
	f.messages[msg.Room] = append(f.messages[msg.Room], *msg)
	return nil
}

func (f *fakeStore) RecentMessages(_ context.Context, room string, limit int) ([]storage.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.recentErr != nil {
		return nil, f.recentErr
	}
	all := f.messages[room]
	if len(all) > limit {
		all = all[len(all)-limit:]
	}
	out := make([]storage.Message, len(all))
	copy(out, all)
	return out, nil
}

func (f *fakeStore) CreateRoom(_ context.Context, name string) (*storage.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rooms[name]; ok {
		return nil, storage.ErrRoomExists
	}
	room := storage.Room{Name: name, CreatedAt: time.Now().UTC()}
	f.rooms[name] = room
	return &room, nil
}

func (f *fakeStore) ListRooms(context.Context) ([]storage.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rooms := make([]storage.Room, 0, len(f.rooms))
	for _, room := range f.rooms {
		rooms = append(rooms, room)
	}
	return rooms, nil
}

func (f *fakeStore) RoomExists(_ context.Context, name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.rooms[name]
	return ok, nil
}

func (f *fakeStore) DeleteRoom(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rooms[name]; !ok {
		return storage.ErrNotFound
	}
	delete(f.rooms, name)
	delete(f.messages, name)
	return nil
}

func (f *fakeStore) failAppends(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appendErr = err
}

func (f *fakeStore) failRecent(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recentErr = err
}

var errStoreDown = errors.New("store unavailable")
