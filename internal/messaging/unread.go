package messaging

import (
	"context"
	"fmt"

	"github.com/parley-chat/parley/internal/models"
)

// markRead advances the sender's read marker for the room to now and clears
// the room from their unread set. The sender has always read their own
// message.
func (s *Service) markRead(ctx context.Context, uid, roomID int64) error {
	member := formatID(roomID)
	if err := s.kv.SortedSetRemove(ctx, userUnreadKey(uid), member); err != nil {
		return fmt.Errorf("clear unread room %d for user %d: %w", roomID, uid, err)
	}
	if err := s.kv.SortedSetAdd(ctx, userReadKey(uid), float64(s.now().UnixMilli()), member); err != nil {
		return fmt.Errorf("advance read marker for user %d room %d: %w", uid, roomID, err)
	}
	return nil
}

// markUnread registers the room as unread for every member except the
// sender. Re-registering an already-unread room only refreshes its score,
// so re-applying the fan-out is safe.
func (s *Service) markUnread(ctx context.Context, uids []int64, fromUID, roomID int64, timestamp int64) error {
	keys := make([]string, 0, len(uids))
	for _, uid := range uids {
		if uid == fromUID {
			continue
		}
		keys = append(keys, userUnreadKey(uid))
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.kv.SortedSetsAdd(ctx, keys, float64(timestamp), formatID(roomID)); err != nil {
		return fmt.Errorf("mark room %d unread: %w", roomID, err)
	}
	return nil
}

// MarkRead acknowledges a room for a user, clearing its unread state and
// advancing the read marker. Exposed for the read-acknowledgement endpoint.
func (s *Service) MarkRead(ctx context.Context, uid, roomID int64) error {
	return s.markRead(ctx, uid, roomID)
}

// HasUnread reports whether the room is currently unread for the user.
func (s *Service) HasUnread(ctx context.Context, uid, roomID int64) (bool, error) {
	return s.kv.IsSortedSetMember(ctx, userUnreadKey(uid), formatID(roomID))
}

// UnreadRooms returns the user's unread rooms, most recent activity first.
func (s *Service) UnreadRooms(ctx context.Context, uid int64) ([]models.RoomEntry, error) {
	entries, err := s.kv.SortedSetRevRangeWithScores(ctx, userUnreadKey(uid), 0, -1)
	if err != nil {
		return nil, fmt.Errorf("read unread rooms for user %d: %w", uid, err)
	}
	rooms := make([]models.RoomEntry, 0, len(entries))
	for _, e := range entries {
		roomID, err := parseID(e.Member)
		if err != nil {
			continue
		}
		rooms = append(rooms, models.RoomEntry{
			RoomID:       roomID,
			LastActivity: int64(e.Score),
			Unread:       true,
		})
	}
	return rooms, nil
}

// UnreadCount returns how many rooms are unread for the user.
func (s *Service) UnreadCount(ctx context.Context, uid int64) (int64, error) {
	return s.kv.SortedSetCard(ctx, userUnreadKey(uid))
}

// RecentRooms returns the user's room index, most recent activity first,
// with each room's unread state attached.
func (s *Service) RecentRooms(ctx context.Context, uid int64, limit int) ([]models.RoomEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	entries, err := s.kv.SortedSetRevRangeWithScores(ctx, userRoomsKey(uid), 0, int64(limit)-1)
	if err != nil {
		return nil, fmt.Errorf("read room index for user %d: %w", uid, err)
	}
	rooms := make([]models.RoomEntry, 0, len(entries))
	for _, e := range entries {
		roomID, err := parseID(e.Member)
		if err != nil {
			continue
		}
		unread, err := s.HasUnread(ctx, uid, roomID)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, models.RoomEntry{
			RoomID:       roomID,
			LastActivity: int64(e.Score),
			Unread:       unread,
		})
	}
	return rooms, nil
}
