package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"

	"github.com/parley-chat/parley/internal/metrics"
)

// emailRegex validates email addresses per RFC 5322 (simplified).
var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// RegisterRequest represents the registration request body.
type RegisterRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// RegisterResponse represents the registration response.
type RegisterResponse struct {
	UID        int64  `json:"uid"`
	Handle     string `json:"handle"`
	ProfileURL string `json:"profile_url"`
}

// Register handles user registration.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	name := sanitizeName(req.Name)
	if name == "" {
		h.Error(w, http.StatusBadRequest, "name is required")
		return
	}

	if !isValidEmail(req.Email) {
		h.Error(w, http.StatusBadRequest, "invalid email format")
		return
	}

	user, err := h.users.CreateUser(r.Context(), name, req.Email)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to create user")
		return
	}

	metrics.UsersRegistered.Inc()

	h.JSON(w, http.StatusCreated, RegisterResponse{
		UID:        user.UID,
		Handle:     user.Handle.String(),
		ProfileURL: fmt.Sprintf("/users/%d", user.UID),
	})
}

// isValidEmail validates email addresses using RFC 5322 pattern.
func isValidEmail(email string) bool {
	if email == "" {
		return true // Empty is valid (optional field)
	}
	if len(email) > 254 {
		return false
	}
	return emailRegex.MatchString(email)
}
