package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftline/driftline/internal/config"
	"github.com/driftline/driftline/internal/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(config.DatabaseConfig{
		Path: filepath.Join(t.TempDir(), "driftline.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func TestAppendAssignsTimestamp(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	msg := storage.Message{Room: "general", Username: "alice", Body: "hello"}
	require.NoError(t, store.AppendMessage(ctx, &msg))

	assert.NotZero(t, msg.ID)
	assert.False(t, msg.CreatedAt.IsZero())
}

func TestRecentMessagesReturnsSuffixOldestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 60; i++ {
		msg := storage.Message{
			Room:     "r",
			Username: "alice",
			Body:     fmt.Sprintf("msg-%02d", i),
		}
		require.NoError(t, store.AppendMessage(ctx, &msg))
	}

	messages, err := store.RecentMessages(ctx, "r", 50)
	require.NoError(t, err)
	require.Len(t, messages, 50)

	// Last 50 of 60, chronological.
	assert.Equal(t, "msg-10", messages[0].Body)
	assert.Equal(t, "msg-59", messages[49].Body)
	for i := 1; i < len(messages); i++ {
		assert.False(t, messages[i].CreatedAt.Before(messages[i-1].CreatedAt),
			"timestamps must be non-decreasing")
	}
}

func TestRecentMessagesScopedToRoom(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AppendMessage(ctx, &storage.Message{Room: "a", Username: "u", Body: "in-a"}))
	require.NoError(t, store.AppendMessage(ctx, &storage.Message{Room: "b", Username: "u", Body: "in-b"}))

	messages, err := store.RecentMessages(ctx, "a", 50)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "in-a", messages[0].Body)
}

func TestRecentMessagesEmptyRoom(t *testing.T) {
	store := newTestStore(t)

	messages, err := store.RecentMessages(context.Background(), "empty", 50)
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestCreateRoomRejectsDuplicates(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	room, err := store.CreateRoom(ctx, "general")
	require.NoError(t, err)
	assert.Equal(t, "general", room.Name)

	_, err = store.CreateRoom(ctx, "general")
	assert.ErrorIs(t, err, storage.ErrRoomExists)
}

func TestRoomExists(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	exists, err := store.RoomExists(ctx, "general")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = store.CreateRoom(ctx, "general")
	require.NoError(t, err)

	exists, err = store.RoomExists(ctx, "general")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestDeleteRoomCascadesToMessages(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.CreateRoom(ctx, "general")
	require.NoError(t, err)
	require.NoError(t, store.AppendMessage(ctx, &storage.Message{Room: "general", Username: "u", Body: "hi"}))
	require.NoError(t, store.AppendMessage(ctx, &storage.Message{Room: "other", Username: "u", Body: "kept"}))

	require.NoError(t, store.DeleteRoom(ctx, "general"))

	exists, err := store.RoomExists(ctx, "general")
	require.NoError(t, err)
	assert.False(t, exists)

	purged, err := store.RecentMessages(ctx, "general", 50)
	require.NoError(t, err)
	assert.Empty(t, purged)

	kept, err := store.RecentMessages(ctx, "other", 50)
	require.NoError(t, err)
	assert.Len(t, kept, 1)
}

func TestDeleteUnknownRoom(t *testing.T) {
	store := newTestStore(t)
	err := store.DeleteRoom(context.Background(), "ghost")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestListRoomsOrderedByName(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"zulu", "alpha", "mike"} {
		_, err := store.CreateRoom(ctx, name)
		require.NoError(t, err)
	}

	rooms, err := store.ListRooms(ctx)
	require.NoError(t, err)
	require.Len(t, rooms, 3)
	assert.Equal(t, "alpha", rooms[0].Name)
	assert.Equal(t, "mike", rooms[1].Name)
	assert.Equal(t, "zulu", rooms[2].Name)
}
