package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"unicode"

	"github.com/parley-chat/parley/internal/messaging"
	"github.com/parley-chat/parley/internal/store"
)

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	users store.DataStore
	kv    store.KVStore
	msg   *messaging.Service
	redis *store.RedisStore // nil when running on the memory backend
}

// NewHandler creates a new Handler. redis may be nil; search endpoints then
// report unavailable.
func NewHandler(users store.DataStore, kv store.KVStore, msg *messaging.Service, redis *store.RedisStore) *Handler {
	return &Handler{users: users, kv: kv, msg: msg, redis: redis}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}

// sanitizeName trims and limits a display name to 100 characters, removing
// control characters.
func sanitizeName(name string) string {
	name = strings.TrimSpace(name)

	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)

	if len(name) > 100 {
		name = name[:100]
	}

	return name
}
