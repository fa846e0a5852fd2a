package handlers

import (
	"net/http"
)

// StatsResponse represents the platform statistics response. Room and
// message totals come from the allocation counters, which only ever grow.
type StatsResponse struct {
	TotalUsers    int64 `json:"total_users"`
	TotalRooms    int64 `json:"total_rooms"`
	TotalMessages int64 `json:"total_messages"`
}

// Stats returns platform statistics.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	totalUsers, err := h.users.CountUsers(ctx)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to count users")
		return
	}

	totalRooms, totalMessages, err := h.msg.Totals(ctx)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to read counters")
		return
	}

	h.JSON(w, http.StatusOK, StatsResponse{
		TotalUsers:    totalUsers,
		TotalRooms:    totalRooms,
		TotalMessages: totalMessages,
	})
}
