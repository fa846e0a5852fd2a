package models

// RoomEntry is one row of a user's room index: a room the user belongs to
// together with the timestamp of the last message that landed in it.
type RoomEntry struct {
	RoomID       int64 `json:"room_id"`
	LastActivity int64 `json:"last_activity"` // Unix ms
	Unread       bool  `json:"unread"`
}

// Member is one row of a room's membership set.
type Member struct {
	UID      int64 `json:"uid"`
	JoinedAt int64 `json:"joined_at"` // Unix ms, refreshed on re-add
}
