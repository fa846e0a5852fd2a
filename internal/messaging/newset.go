package messaging

import (
	"context"
	"fmt"

	"github.com/parley-chat/parley/internal/models"
)

// isNewSet decides whether msg starts a new visual message group or
// continues the sender's previous one. The prior message is found through
// the sender's own per-room index, which holds the full room history by the
// time this runs (the fan-out has completed). Read-only; runs after
// persistence so its result never blocks durability.
func (s *Service) isNewSet(ctx context.Context, msg *models.Message) (bool, error) {
	entries, err := s.kv.SortedSetRevRangeWithScores(ctx, userRoomMidsKey(msg.FromUID, msg.RoomID), 0, 2)
	if err != nil {
		return false, fmt.Errorf("read recent messages for grouping: %w", err)
	}

	// The most recent prior message is the first entry that is not the
	// message being classified.
	for _, e := range entries {
		mid, err := parseID(e.Member)
		if err != nil || mid == msg.ID {
			continue
		}
		prior, err := s.GetMessage(ctx, mid)
		if err != nil {
			return false, err
		}
		if prior == nil {
			break
		}
		return !s.continuesGroup(prior, msg), nil
	}

	// First message in the room always starts a new group.
	return true, nil
}

// continuesGroup reports whether msg continues the group of the message
// immediately before it: same sender, within the recency window.
func (s *Service) continuesGroup(prior, msg *models.Message) bool {
	if prior.FromUID != msg.FromUID {
		return false
	}
	diff := msg.Timestamp - prior.Timestamp
	return diff >= 0 && diff < s.window.Milliseconds()
}
