package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftline/driftline/internal/config"
	"github.com/driftline/driftline/internal/storage"
)

func startAPI(t *testing.T, cfg config.ServerConfig) (*fakeStore, *httptest.Server) {
	t.Helper()
	logger := zerolog.Nop()
	store := newFakeStore()
	app := NewApp(cfg, store, &logger)
	srv := httptest.NewServer(app.Handler())
	t.Cleanup(srv.Close)
	return store, srv
}

func postJSON(t *testing.T, url string, payload interface{}) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestCreateRoom(t *testing.T) {
	_, srv := startAPI(t, testConfig())

	resp := postJSON(t, srv.URL+"/rooms", map[string]string{"name": "general"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var room roomResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&room))
	assert.Equal(t, "general", room.Name)
	assert.False(t, room.CreatedAt.IsZero())
}

func TestCreateRoomValidation(t *testing.T) {
	_, srv := startAPI(t, testConfig())

	resp := postJSON(t, srv.URL+"/rooms", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	postJSON(t, srv.URL+"/rooms", map[string]string{"name": "general"})
	dup := postJSON(t, srv.URL+"/rooms", map[string]string{"name": "general"})
	assert.Equal(t, http.StatusBadRequest, dup.StatusCode)
}

func TestListRooms(t *testing.T) {
	_, srv := startAPI(t, testConfig())
	postJSON(t, srv.URL+"/rooms", map[string]string{"name": "general"})
	postJSON(t, srv.URL+"/rooms", map[string]string{"name": "random"})

	resp, err := http.Get(srv.URL + "/rooms")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var rooms []roomResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rooms))
	assert.Len(t, rooms, 2)
}

func TestDeleteRoomPurgesMessages(t *testing.T) {
	store, srv := startAPI(t, testConfig())
	postJSON(t, srv.URL+"/rooms", map[string]string{"name": "general"})
	require.NoError(t, store.AppendMessage(context.Background(), &storage.Message{
		Room: "general", Username: "bob", Body: "hi",
	}))

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/rooms/general", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	store.mu.Lock()
	_, roomLeft := store.rooms["general"]
	_, messagesLeft := store.messages["general"]
	store.mu.Unlock()
	assert.False(t, roomLeft)
	assert.False(t, messagesLeft)
}

func TestDeleteUnknownRoom(t *testing.T) {
	_, srv := startAPI(t, testConfig())

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/rooms/ghost", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCORSAllowList(t *testing.T) {
	cfg := testConfig()
	cfg.AllowedOrigins = []string{"http://localhost:5173"}
	_, srv := startAPI(t, cfg)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/rooms", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))

	req2, err := http.NewRequest(http.MethodGet, srv.URL+"/rooms", nil)
	require.NoError(t, err)
	req2.Header.Set("Origin", "http://evil.example")
	resp2, err := http.DefaultClient.Do(req2)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Empty(t, resp2.Header.Get("Access-Control-Allow-Origin"))
}
