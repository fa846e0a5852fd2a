package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/parley-chat/parley/internal/metrics"
	"github.com/parley-chat/parley/internal/models"
)

// CreateRoom allocates a new room, establishes its membership, and sends
// the opening message. Each step is a hard precondition for the next. If a
// step after membership creation fails, the room is left without a message;
// nothing is rolled back (see AddMessage for the consistency contract).
func (s *Service) CreateRoom(ctx context.Context, uid int64, toUids []int64, content string, timestamp int64) (*models.MessageView, error) {
	if err := s.CheckContent(content); err != nil {
		return nil, err
	}

	roomID, err := s.kv.IncrCounter(ctx, counterRoomID)
	if err != nil {
		return nil, fmt.Errorf("allocate room id: %w", err)
	}

	// The initiator joins at the message timestamp; recipients join at the
	// call time via AddUsersToRoom.
	if err := s.kv.SortedSetAdd(ctx, roomMembersKey(roomID), float64(timestamp), formatID(uid)); err != nil {
		return nil, fmt.Errorf("add initiator to room %d: %w", roomID, err)
	}

	if err := s.AddUsersToRoom(ctx, toUids, roomID); err != nil {
		return nil, err
	}

	metrics.RoomsCreated.Inc()

	return s.SendMessage(ctx, uid, roomID, content, timestamp)
}

// SendMessage is the authorization gate: every message, whether from the
// room-creation path or a standing room, passes through the membership
// check before anything is written.
func (s *Service) SendMessage(ctx context.Context, uid, roomID int64, content string, timestamp int64) (*models.MessageView, error) {
	if err := s.CheckContent(content); err != nil {
		return nil, err
	}

	inRoom, err := s.IsUserInRoom(ctx, uid, roomID)
	if err != nil {
		return nil, fmt.Errorf("membership check for user %d in room %d: %w", uid, roomID, err)
	}
	if !inRoom {
		return nil, ErrNotAllowed
	}

	return s.AddMessage(ctx, uid, roomID, content, timestamp)
}

// AddMessage persists a message and fans it out into every member's
// indices. The message record is durable before the membership snapshot is
// taken, and the snapshot is taken before any fan-out write is issued. The
// four fan-out branches run concurrently and are joined; if any fails the
// call reports failure, but the persisted message is not rolled back — it
// stays authoritative and the fan-out is safe to re-apply (every branch is
// an idempotent upsert).
func (s *Service) AddMessage(ctx context.Context, fromUID, roomID int64, content string, timestamp int64) (*models.MessageView, error) {
	if err := s.CheckContent(content); err != nil {
		return nil, err
	}

	mid, err := s.kv.IncrCounter(ctx, counterMessageID)
	if err != nil {
		return nil, fmt.Errorf("allocate message id: %w", err)
	}

	msg := &models.Message{
		ID:        mid,
		EventID:   ulid.Make().String(),
		RoomID:    roomID,
		FromUID:   fromUID,
		Content:   content,
		Timestamp: timestamp,
	}

	msg, err = s.hook.TransformMessage(ctx, msg)
	if err != nil {
		metrics.HookRejections.Inc()
		return nil, fmt.Errorf("%w: %v", ErrHookRejected, err)
	}

	if err := s.kv.SetObject(ctx, messageKey(mid), msg); err != nil {
		return nil, fmt.Errorf("persist message %d: %w", mid, err)
	}

	uids, err := s.roomMemberIDs(ctx, roomID)
	if err != nil {
		return nil, err
	}

	fanoutStart := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.updateChatTime(gctx, roomID, uids, timestamp) })
	g.Go(func() error { return s.addMessageToUsers(gctx, roomID, uids, mid, timestamp) })
	g.Go(func() error { return s.markRead(gctx, fromUID, roomID) })
	g.Go(func() error { return s.markUnread(gctx, uids, fromUID, roomID, timestamp) })
	if err := g.Wait(); err != nil {
		metrics.FanoutFailures.Inc()
		s.logger.Error().Err(err).
			Int64("mid", mid).
			Int64("room_id", roomID).
			Msg("fan-out failed after message persisted")
		return nil, fmt.Errorf("fan-out for message %d: %w", mid, err)
	}
	metrics.FanoutDuration.Observe(time.Since(fanoutStart).Seconds())

	if s.indexer != nil {
		if err := s.indexer.IndexMessage(ctx, msg); err != nil {
			s.logger.Warn().Err(err).Int64("mid", mid).Msg("search indexing failed")
		}
	}

	stored, err := s.GetMessage(ctx, mid)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, fmt.Errorf("message %d missing after persist", mid)
	}

	newSet, err := s.isNewSet(ctx, stored)
	if err != nil {
		return nil, err
	}

	metrics.MessagesCreated.Inc()

	return stored.View(newSet), nil
}

// updateChatTime upserts the room into every member's room index with the
// message timestamp. An empty member list is a trivial success.
func (s *Service) updateChatTime(ctx context.Context, roomID int64, uids []int64, timestamp int64) error {
	if len(uids) == 0 {
		return nil
	}
	keys := make([]string, len(uids))
	for i, uid := range uids {
		keys[i] = userRoomsKey(uid)
	}
	if err := s.kv.SortedSetsAdd(ctx, keys, float64(timestamp), formatID(roomID)); err != nil {
		return fmt.Errorf("update chat time for room %d: %w", roomID, err)
	}
	return nil
}

// addMessageToUsers upserts the message into every member's per-room
// message index. An empty member list is a trivial success.
func (s *Service) addMessageToUsers(ctx context.Context, roomID int64, uids []int64, mid, timestamp int64) error {
	if len(uids) == 0 {
		return nil
	}
	keys := make([]string, len(uids))
	for i, uid := range uids {
		keys[i] = userRoomMidsKey(uid, roomID)
	}
	if err := s.kv.SortedSetsAdd(ctx, keys, float64(timestamp), formatID(mid)); err != nil {
		return fmt.Errorf("add message %d to user indices: %w", mid, err)
	}
	return nil
}
