package messaging

import (
	"context"
	"errors"
	"fmt"

	"github.com/parley-chat/parley/internal/models"
	"github.com/parley-chat/parley/internal/store"
)

// GetMessage fetches one message record, nil if it does not exist.
func (s *Service) GetMessage(ctx context.Context, mid int64) (*models.Message, error) {
	msg := &models.Message{}
	err := s.kv.GetObject(ctx, messageKey(mid), msg)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch message %d: %w", mid, err)
	}
	return msg, nil
}

// GetMessages fetches several message records, skipping missing ids.
func (s *Service) GetMessages(ctx context.Context, mids []int64) ([]*models.Message, error) {
	msgs := make([]*models.Message, 0, len(mids))
	for _, mid := range mids {
		msg, err := s.GetMessage(ctx, mid)
		if err != nil {
			return nil, err
		}
		if msg == nil {
			continue
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// RoomHistory returns the caller's view of a room: the messages in their
// per-room index, newest first, with grouping decisions attached. before
// bounds results to messages strictly older than the given timestamp; zero
// means no bound. The caller's membership must already be verified.
func (s *Service) RoomHistory(ctx context.Context, uid, roomID int64, limit int, before int64) ([]*models.MessageView, error) {
	if limit <= 0 {
		limit = 50
	}

	// Fetch one entry past the page: the extra message decides the oldest
	// view's grouping without being returned. Cursor reads range the index
	// by score so arbitrarily deep history stays reachable.
	key := userRoomMidsKey(uid, roomID)
	var entries []store.ScoredMember
	var err error
	if before > 0 {
		entries, err = s.kv.SortedSetRevRangeByScore(ctx, key, float64(before), int64(limit)+1)
	} else {
		entries, err = s.kv.SortedSetRevRangeWithScores(ctx, key, 0, int64(limit))
	}
	if err != nil {
		return nil, fmt.Errorf("read message index for user %d room %d: %w", uid, roomID, err)
	}

	views := make([]*models.MessageView, 0, limit)
	var newer *models.Message // the message one position later in time
	for _, e := range entries {
		mid, err := parseID(e.Member)
		if err != nil {
			continue
		}
		msg, err := s.GetMessage(ctx, mid)
		if err != nil {
			return nil, err
		}
		if msg == nil {
			continue
		}
		// Walking newest to oldest: the previously seen message is the one
		// that follows this one, so its grouping is decided now.
		if newer != nil {
			views[len(views)-1].NewSet = !s.continuesGroup(msg, newer)
		}
		if len(views) == limit {
			break
		}
		views = append(views, msg.View(true))
		newer = msg
	}
	return views, nil
}
