package messaging

import (
	"context"
	"fmt"

	"github.com/parley-chat/parley/internal/models"
)

// AddUsersToRoom adds users to a room's membership set, scored by the call
// time. Re-adding an existing member refreshes their score; a user can
// never appear twice.
func (s *Service) AddUsersToRoom(ctx context.Context, uids []int64, roomID int64) error {
	joinedAt := float64(s.now().UnixMilli())
	key := roomMembersKey(roomID)
	for _, uid := range uids {
		if err := s.kv.SortedSetAdd(ctx, key, joinedAt, formatID(uid)); err != nil {
			return fmt.Errorf("add user %d to room %d: %w", uid, roomID, err)
		}
	}
	return nil
}

// IsUserInRoom reports whether uid is in the room's membership set.
func (s *Service) IsUserInRoom(ctx context.Context, uid, roomID int64) (bool, error) {
	return s.kv.IsSortedSetMember(ctx, roomMembersKey(roomID), formatID(uid))
}

// RoomMembers returns the room's members with their join scores, most
// recently active first.
func (s *Service) RoomMembers(ctx context.Context, roomID int64) ([]models.Member, error) {
	entries, err := s.kv.SortedSetRevRangeWithScores(ctx, roomMembersKey(roomID), 0, -1)
	if err != nil {
		return nil, fmt.Errorf("read members of room %d: %w", roomID, err)
	}
	members := make([]models.Member, 0, len(entries))
	for _, e := range entries {
		uid, err := parseID(e.Member)
		if err != nil {
			continue
		}
		members = append(members, models.Member{UID: uid, JoinedAt: int64(e.Score)})
	}
	return members, nil
}

// roomMemberIDs reads the full membership list, the single snapshot every
// fan-out write is keyed off.
func (s *Service) roomMemberIDs(ctx context.Context, roomID int64) ([]int64, error) {
	members, err := s.kv.SortedSetRange(ctx, roomMembersKey(roomID), 0, -1)
	if err != nil {
		return nil, fmt.Errorf("read members of room %d: %w", roomID, err)
	}
	uids := make([]int64, 0, len(members))
	for _, m := range members {
		uid, err := parseID(m)
		if err != nil {
			continue
		}
		uids = append(uids, uid)
	}
	return uids, nil
}
