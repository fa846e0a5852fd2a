package models

// Message is a chat message record as persisted in the key/value store.
// Records are immutable once written; the numeric ID is the authoritative
// identity and is allocated from the message counter, never derived.
type Message struct {
	ID        int64  `json:"id"`
	EventID   string `json:"eid"` // ULID, for tracing and client dedup
	RoomID    int64  `json:"room_id"`
	FromUID   int64  `json:"from"`
	Content   string `json:"content"`
	Timestamp int64  `json:"ts"` // Unix ms, caller-supplied
}

// MessageView is the externally visible shape of a created or fetched
// message. NewSet reports whether the message starts a new visual group
// rather than continuing the sender's previous one.
type MessageView struct {
	ID        int64  `json:"id"`
	EventID   string `json:"eid"`
	RoomID    int64  `json:"room_id"`
	FromUID   int64  `json:"from"`
	Content   string `json:"content"`
	Timestamp int64  `json:"ts"`
	NewSet    bool   `json:"new_set"`
}

// View converts a stored record into its API shape with a grouping decision.
func (m *Message) View(newSet bool) *MessageView {
	return &MessageView{
		ID:        m.ID,
		EventID:   m.EventID,
		RoomID:    m.RoomID,
		FromUID:   m.FromUID,
		Content:   m.Content,
		Timestamp: m.Timestamp,
		NewSet:    newSet,
	}
}
