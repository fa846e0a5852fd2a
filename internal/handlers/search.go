package handlers

import (
	"net/http"
	"strconv"

	"github.com/parley-chat/parley/internal/api/middleware"
	"github.com/parley-chat/parley/internal/metrics"
	"github.com/parley-chat/parley/internal/models"
	"github.com/parley-chat/parley/internal/store"
)

// SearchResponse represents the message search response.
type SearchResponse struct {
	Query    string            `json:"query"`
	RoomID   int64             `json:"room_id"`
	Messages []*models.Message `json:"messages"`
}

// Search handles word search over a chat's indexed messages. The caller
// must be a member of the room being searched. Search is Redis-backed and
// unavailable on the memory store.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		h.Error(w, http.StatusUnauthorized, "identity required")
		return
	}

	if h.redis == nil {
		h.Error(w, http.StatusServiceUnavailable, "search is not available")
		return
	}

	query := r.URL.Query().Get("q")
	if query == "" {
		h.Error(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}

	roomID, err := strconv.ParseInt(r.URL.Query().Get("room"), 10, 64)
	if err != nil || roomID <= 0 {
		h.Error(w, http.StatusBadRequest, "query parameter 'room' is required")
		return
	}

	if !h.requireMembership(w, r, user.UID, roomID) {
		return
	}

	limit := queryInt(r, "limit", 20)
	if limit > 100 {
		limit = 100
	}

	metrics.SearchQueries.Inc()

	mids, err := h.redis.SearchMessages(r.Context(), store.Tokenize(query), roomID, limit)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "search failed")
		return
	}

	msgs, err := h.msg.GetMessages(r.Context(), mids)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to fetch messages")
		return
	}

	h.JSON(w, http.StatusOK, SearchResponse{
		Query:    query,
		RoomID:   roomID,
		Messages: msgs,
	})
}
