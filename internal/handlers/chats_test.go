package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parley-chat/parley/internal/api"
	"github.com/parley-chat/parley/internal/config"
	"github.com/parley-chat/parley/internal/messaging"
	"github.com/parley-chat/parley/internal/models"
	"github.com/parley-chat/parley/internal/store"
)

// fakeUsers is an in-memory DataStore for handler tests.
type fakeUsers struct {
	mu    sync.Mutex
	users map[int64]*models.User
	next  int64
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{users: make(map[int64]*models.User)}
}

func (f *fakeUsers) Close()                         {}
func (f *fakeUsers) Ping(ctx context.Context) error { return nil }

func (f *fakeUsers) CreateUser(ctx context.Context, name, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	now := time.Now()
	u := &models.User{
		UID:       f.next,
		Handle:    uuid.New(),
		Name:      name,
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.users[u.UID] = u
	return u, nil
}

func (f *fakeUsers) GetUserByUID(ctx context.Context, uid int64) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users[uid], nil
}

func (f *fakeUsers) GetUserByHandle(ctx context.Context, handle string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Handle.String() == handle {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUsers) CountUsers(ctx context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.users)), nil
}

type testEnv struct {
	router http.Handler
	users  *fakeUsers
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := &config.Config{
		Env:              "test",
		MaxMessageLength: config.DefaultMaxMessageLength,
		GroupWindow:      config.DefaultGroupWindow,
	}
	users := newFakeUsers()
	kv := store.NewMemoryStore()
	msg := messaging.NewService(kv, messaging.Sanitizer{}, nil, cfg, zerolog.Nop())
	router := api.NewRouter(cfg, zerolog.Nop(), users, kv, msg, nil)
	return &testEnv{router: router, users: users}
}

// do issues a JSON request, optionally identified as uid (0 = anonymous).
func (e *testEnv) do(t *testing.T, method, path string, uid int64, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if uid > 0 {
		req.Header.Set("X-Parley-UID", fmt.Sprint(uid))
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), "body: %s", rec.Body.String())
	return v
}

func (e *testEnv) register(t *testing.T, name string) int64 {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/register", 0, map[string]string{"name": name})
	require.Equal(t, http.StatusCreated, rec.Code, "body: %s", rec.Body.String())
	resp := decode[map[string]any](t, rec)
	return int64(resp["uid"].(float64))
}

func TestRegister(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/register", 0, map[string]string{
		"name":  "  Ada \x00 ",
		"email": "ada@example.com",
	})
	require.Equal(t, http.StatusCreated, rec.Code, "body: %s", rec.Body.String())
	resp := decode[map[string]any](t, rec)
	assert.Equal(t, float64(1), resp["uid"])
	assert.NotEmpty(t, resp["handle"])
	assert.Equal(t, "/users/1", resp["profile_url"])

	rec = env.do(t, http.MethodPost, "/register", 0, map[string]string{"name": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/register", 0, map[string]string{
		"name":  "Bob",
		"email": "not-an-email",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatLifecycle(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "Alice")
	bob := env.register(t, "Bob")

	// Alice opens a chat with Bob.
	rec := env.do(t, http.MethodPost, "/chats", alice, map[string]any{
		"to":      []int64{bob},
		"content": "hello",
		"ts":      1000,
	})
	require.Equal(t, http.StatusCreated, rec.Code, "body: %s", rec.Body.String())
	view := decode[models.MessageView](t, rec)
	assert.Equal(t, int64(1), view.ID)
	assert.Equal(t, int64(1), view.RoomID)
	assert.Equal(t, alice, view.FromUID)
	assert.Equal(t, "hello", view.Content)
	assert.True(t, view.NewSet)

	roomPath := fmt.Sprintf("/chats/%d", view.RoomID)

	// Bob sees the room, unread.
	rec = env.do(t, http.MethodGet, "/chats", bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[map[string][]models.RoomEntry](t, rec)
	require.Len(t, list["rooms"], 1)
	assert.Equal(t, view.RoomID, list["rooms"][0].RoomID)
	assert.True(t, list["rooms"][0].Unread)

	// Bob replies.
	rec = env.do(t, http.MethodPost, roomPath+"/messages", bob, map[string]any{
		"content": "hi back",
		"ts":      2000,
	})
	require.Equal(t, http.StatusCreated, rec.Code, "body: %s", rec.Body.String())
	reply := decode[models.MessageView](t, rec)
	assert.Equal(t, int64(2), reply.ID)
	assert.True(t, reply.NewSet, "different sender starts a new group")

	// History from Bob's side, newest first.
	rec = env.do(t, http.MethodGet, roomPath+"/messages", bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	hist := decode[struct {
		RoomID   int64                 `json:"room_id"`
		Messages []*models.MessageView `json:"messages"`
	}](t, rec)
	require.Len(t, hist.Messages, 2)
	assert.Equal(t, "hi back", hist.Messages[0].Content)
	assert.Equal(t, "hello", hist.Messages[1].Content)

	// Alice acknowledges the room; her unread list empties.
	rec = env.do(t, http.MethodPost, roomPath+"/read", alice, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = env.do(t, http.MethodGet, "/chats/unread", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	unread := decode[map[string][]models.RoomEntry](t, rec)
	assert.Empty(t, unread["rooms"])

	// Membership listing.
	rec = env.do(t, http.MethodGet, roomPath+"/members", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	members := decode[struct {
		RoomID  int64           `json:"room_id"`
		Members []models.Member `json:"members"`
	}](t, rec)
	assert.Len(t, members.Members, 2)
}

func TestChatAuthorization(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "Alice")
	bob := env.register(t, "Bob")
	carol := env.register(t, "Carol")

	rec := env.do(t, http.MethodPost, "/chats", alice, map[string]any{
		"to":      []int64{bob},
		"content": "private",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	// No identity header.
	rec = env.do(t, http.MethodPost, "/chats/1/messages", 0, map[string]any{"content": "anon"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Unknown uid.
	rec = env.do(t, http.MethodPost, "/chats/1/messages", 999, map[string]any{"content": "ghost"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Registered but not a member.
	rec = env.do(t, http.MethodPost, "/chats/1/messages", carol, map[string]any{"content": "barging in"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodGet, "/chats/1/messages", carol, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(t, http.MethodGet, "/chats/1/members", carol, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCreateChatValidation(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "Alice")
	bob := env.register(t, "Bob")

	// No recipients.
	rec := env.do(t, http.MethodPost, "/chats", alice, map[string]any{
		"to":      []int64{},
		"content": "hello",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Unknown recipient.
	rec = env.do(t, http.MethodPost, "/chats", alice, map[string]any{
		"to":      []int64{999},
		"content": "hello",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Empty content.
	rec = env.do(t, http.MethodPost, "/chats", alice, map[string]any{
		"to":      []int64{bob},
		"content": "",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Nothing was created by the failed attempts.
	rec = env.do(t, http.MethodGet, "/chats", bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[map[string][]models.RoomEntry](t, rec)
	assert.Empty(t, list["rooms"])
}

func TestPostMessageBadRoomParam(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "Alice")

	for _, path := range []string{"/chats/abc/messages", "/chats/0/messages", "/chats/-3/messages"} {
		rec := env.do(t, http.MethodPost, path, alice, map[string]any{"content": "x"})
		assert.Equal(t, http.StatusBadRequest, rec.Code, "path %s", path)
	}
}

func TestGetUser(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "Alice")

	rec := env.do(t, http.MethodGet, fmt.Sprintf("/users/%d", alice), 0, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[map[string]any](t, rec)
	assert.Equal(t, "Alice", resp["name"])

	rec = env.do(t, http.MethodGet, "/users/999", 0, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSearchUnavailableWithoutRedis(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "Alice")

	rec := env.do(t, http.MethodGet, "/find?q=hello", alice, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStats(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "Alice")
	bob := env.register(t, "Bob")

	rec := env.do(t, http.MethodPost, "/chats", alice, map[string]any{
		"to":      []int64{bob},
		"content": "hi",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = env.do(t, http.MethodGet, "/stats", 0, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[map[string]any](t, rec)
	assert.Equal(t, float64(2), stats["total_users"])
	assert.Equal(t, float64(1), stats["total_rooms"])
	assert.Equal(t, float64(1), stats["total_messages"])
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/health", 0, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
