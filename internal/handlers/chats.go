package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/parley-chat/parley/internal/api/middleware"
	"github.com/parley-chat/parley/internal/messaging"
	"github.com/parley-chat/parley/internal/models"
)

// CreateChatRequest represents the chat creation request body. Timestamp is
// optional; the server clock is used when it is absent.
type CreateChatRequest struct {
	To        []int64 `json:"to"`
	Content   string  `json:"content"`
	Timestamp int64   `json:"ts,omitempty"`
}

// PostMessageRequest represents the message send request body.
type PostMessageRequest struct {
	Content   string `json:"content"`
	Timestamp int64  `json:"ts,omitempty"`
}

// ChatListResponse represents the recent chats response.
type ChatListResponse struct {
	Rooms []models.RoomEntry `json:"rooms"`
}

// ChatMessagesResponse represents the room history response.
type ChatMessagesResponse struct {
	RoomID   int64                 `json:"room_id"`
	Messages []*models.MessageView `json:"messages"`
}

// MembersResponse represents the room membership response.
type MembersResponse struct {
	RoomID  int64           `json:"room_id"`
	Members []models.Member `json:"members"`
}

// CreateChat handles creation of a new chat room with an opening message.
func (h *Handler) CreateChat(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		h.Error(w, http.StatusUnauthorized, "identity required")
		return
	}

	var req CreateChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if len(req.To) == 0 {
		h.Error(w, http.StatusBadRequest, "at least one recipient is required")
		return
	}

	// Recipients must exist; a typo here would otherwise fan out into
	// indices nobody ever reads.
	for _, uid := range req.To {
		recipient, err := h.users.GetUserByUID(r.Context(), uid)
		if err != nil {
			h.Error(w, http.StatusInternalServerError, "database error")
			return
		}
		if recipient == nil {
			h.Error(w, http.StatusNotFound, "recipient not found")
			return
		}
	}

	view, err := h.msg.CreateRoom(r.Context(), user.UID, req.To, req.Content, orNow(req.Timestamp))
	if err != nil {
		h.messagingError(w, err)
		return
	}

	h.JSON(w, http.StatusCreated, view)
}

// PostMessage handles sending a message to an existing chat.
func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		h.Error(w, http.StatusUnauthorized, "identity required")
		return
	}

	roomID, ok := h.roomParam(w, r)
	if !ok {
		return
	}

	var req PostMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	view, err := h.msg.SendMessage(r.Context(), user.UID, roomID, req.Content, orNow(req.Timestamp))
	if err != nil {
		h.messagingError(w, err)
		return
	}

	h.JSON(w, http.StatusCreated, view)
}

// GetChatMessages returns the caller's view of a room's history.
func (h *Handler) GetChatMessages(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		h.Error(w, http.StatusUnauthorized, "identity required")
		return
	}

	roomID, ok := h.roomParam(w, r)
	if !ok {
		return
	}

	if !h.requireMembership(w, r, user.UID, roomID) {
		return
	}

	limit := queryInt(r, "limit", 50)
	if limit > 200 {
		limit = 200
	}
	before := int64(queryInt(r, "before", 0))

	views, err := h.msg.RoomHistory(r.Context(), user.UID, roomID, limit, before)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to fetch messages")
		return
	}

	h.JSON(w, http.StatusOK, ChatMessagesResponse{RoomID: roomID, Messages: views})
}

// ListChats returns the caller's recent chats with unread state.
func (h *Handler) ListChats(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		h.Error(w, http.StatusUnauthorized, "identity required")
		return
	}

	rooms, err := h.msg.RecentRooms(r.Context(), user.UID, queryInt(r, "limit", 20))
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to fetch chats")
		return
	}

	h.JSON(w, http.StatusOK, ChatListResponse{Rooms: rooms})
}

// ListUnread returns the caller's unread chats.
func (h *Handler) ListUnread(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		h.Error(w, http.StatusUnauthorized, "identity required")
		return
	}

	rooms, err := h.msg.UnreadRooms(r.Context(), user.UID)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to fetch unread chats")
		return
	}

	h.JSON(w, http.StatusOK, ChatListResponse{Rooms: rooms})
}

// MarkChatRead acknowledges a room for the caller.
func (h *Handler) MarkChatRead(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		h.Error(w, http.StatusUnauthorized, "identity required")
		return
	}

	roomID, ok := h.roomParam(w, r)
	if !ok {
		return
	}

	if !h.requireMembership(w, r, user.UID, roomID) {
		return
	}

	if err := h.msg.MarkRead(r.Context(), user.UID, roomID); err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to mark chat read")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetChatMembers returns a room's membership.
func (h *Handler) GetChatMembers(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		h.Error(w, http.StatusUnauthorized, "identity required")
		return
	}

	roomID, ok := h.roomParam(w, r)
	if !ok {
		return
	}

	if !h.requireMembership(w, r, user.UID, roomID) {
		return
	}

	members, err := h.msg.RoomMembers(r.Context(), roomID)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to fetch members")
		return
	}

	h.JSON(w, http.StatusOK, MembersResponse{RoomID: roomID, Members: members})
}

// roomParam parses the roomID URL parameter, writing the error response on
// failure.
func (h *Handler) roomParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	roomID, err := strconv.ParseInt(chi.URLParam(r, "roomID"), 10, 64)
	if err != nil || roomID <= 0 {
		h.Error(w, http.StatusBadRequest, "invalid room ID format")
		return 0, false
	}
	return roomID, true
}

// requireMembership enforces that uid belongs to the room, writing the
// error response when it does not.
func (h *Handler) requireMembership(w http.ResponseWriter, r *http.Request, uid, roomID int64) bool {
	inRoom, err := h.msg.IsUserInRoom(r.Context(), uid, roomID)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "membership check failed")
		return false
	}
	if !inRoom {
		h.Error(w, http.StatusForbidden, "not a member of this chat")
		return false
	}
	return true
}

// messagingError maps pipeline errors to HTTP responses. Validation and
// authorization failures get specific rejections; storage and allocation
// failures surface as a generic retryable error.
func (h *Handler) messagingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, messaging.ErrContentEmpty):
		h.Error(w, http.StatusBadRequest, "message content is required")
	case errors.Is(err, messaging.ErrContentTooLong):
		h.Error(w, http.StatusUnprocessableEntity, "message content too long")
	case errors.Is(err, messaging.ErrNotAllowed):
		h.Error(w, http.StatusForbidden, "not a member of this chat")
	case errors.Is(err, messaging.ErrHookRejected):
		h.Error(w, http.StatusUnprocessableEntity, "message rejected")
	default:
		h.Error(w, http.StatusInternalServerError, "failed to send message")
	}
}

func orNow(ts int64) int64 {
	if ts > 0 {
		return ts
	}
	return time.Now().UnixMilli()
}

func queryInt(r *http.Request, name string, fallback int) int {
	if v := r.URL.Query().Get(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}
