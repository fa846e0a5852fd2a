package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// UserResponse represents the public user profile response.
type UserResponse struct {
	UID      int64  `json:"uid"`
	Handle   string `json:"handle"`
	Name     string `json:"name,omitempty"`
	JoinedAt string `json:"joined_at"`
}

// GetUser handles public user profile lookup.
func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	uid, err := strconv.ParseInt(chi.URLParam(r, "uid"), 10, 64)
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid user ID format")
		return
	}

	user, err := h.users.GetUserByUID(r.Context(), uid)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}

	if user == nil {
		h.Error(w, http.StatusNotFound, "user not found")
		return
	}

	h.JSON(w, http.StatusOK, UserResponse{
		UID:      user.UID,
		Handle:   user.Handle.String(),
		Name:     user.Name,
		JoinedAt: user.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	})
}
