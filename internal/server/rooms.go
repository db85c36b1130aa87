package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/driftline/driftline/internal/storage"
)

type createRoomRequest struct {
	Name string `json:"name"`
}

type roomResponse struct {
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func (a *App) listRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := a.store.ListRooms(r.Context())
	if err != nil {
		a.logger.Error().Err(err).Msg("list rooms failed")
		writeJSON(w, http.StatusInternalServerError, messageResponse{Message: "Error fetching rooms"})
		return
	}
	out := make([]roomResponse, len(rooms))
	for i, room := range rooms {
		out[i] = roomResponse{Name: room.Name, CreatedAt: room.CreatedAt}
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *App) createRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: "Invalid request body"})
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: "Room name is required"})
		return
	}

	room, err := a.store.CreateRoom(r.Context(), name)
	if err != nil {
		if errors.Is(err, storage.ErrRoomExists) {
			writeJSON(w, http.StatusBadRequest, messageResponse{Message: "Room already exists"})
			return
		}
		a.logger.Error().Err(err).Str("room", name).Msg("create room failed")
		writeJSON(w, http.StatusInternalServerError, messageResponse{Message: "Error creating room"})
		return
	}

	a.logger.Info().Str("room", room.Name).Msg("room created")
	writeJSON(w, http.StatusCreated, roomResponse{Name: room.Name, CreatedAt: room.CreatedAt})
}

func (a *App) deleteRoom(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name == "" {
		writeJSON(w, http.StatusBadRequest, messageResponse{Message: "Room name is required"})
		return
	}

	// Deleting a room purges its message log as well.
	if err := a.store.DeleteRoom(r.Context(), name); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, messageResponse{Message: "Room not found"})
			return
		}
		a.logger.Error().Err(err).Str("room", name).Msg("delete room failed")
		writeJSON(w, http.StatusInternalServerError, messageResponse{Message: "Error deleting room"})
		return
	}

	a.logger.Info().Str("room", name).Msg("room deleted")
	writeJSON(w, http.StatusOK, messageResponse{Message: "Room deleted successfully"})
}

func (a *App) preflight(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

// corsMiddleware applies the configured origin allow-list. Requests
// without an Origin header (CLI clients, tests) pass untouched; with an
// empty allow-list every origin is accepted.
func (a *App) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && a.originAllowed(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		next.ServeHTTP(w, r)
	})
}

func (a *App) originAllowed(origin string) bool {
	if len(a.cfg.AllowedOrigins) == 0 {
		return true
	}
	for _, allowed := range a.cfg.AllowedOrigins {
		if strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

// checkOrigin gates websocket upgrades with the same allow-list used by
// the CRUD routes.
func (a *App) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return a.originAllowed(origin)
}

func writeJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(payload)
}
