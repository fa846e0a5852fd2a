// Package messaging implements the message-creation pipeline: room
// creation, membership-gated sends, and the per-user index fan-out that
// turns one message into a consistent multi-recipient chat event.
package messaging

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/parley-chat/parley/internal/config"
	"github.com/parley-chat/parley/internal/models"
	"github.com/parley-chat/parley/internal/store"
)

// Indexer receives persisted messages for best-effort search indexing.
// Message durability never depends on it.
type Indexer interface {
	IndexMessage(ctx context.Context, msg *models.Message) error
}

// Service coordinates message creation over the key/value store. All
// mutations of shared state go through the store's atomic operations; the
// service itself holds no locks.
type Service struct {
	kv      store.KVStore
	hook    Transformer
	indexer Indexer // nil when the backend has no search index
	logger  zerolog.Logger

	maxLength int
	window    time.Duration

	now func() time.Time
}

// NewService builds the messaging service. hook may be nil for a
// pass-through pipeline; indexer may be nil to disable search indexing.
func NewService(kv store.KVStore, hook Transformer, indexer Indexer, cfg *config.Config, logger zerolog.Logger) *Service {
	if hook == nil {
		hook = NopTransformer{}
	}
	maxLength := cfg.MaxMessageLength
	if maxLength <= 0 {
		maxLength = config.DefaultMaxMessageLength
	}
	window := cfg.GroupWindow
	if window <= 0 {
		window = config.DefaultGroupWindow
	}
	return &Service{
		kv:        kv,
		hook:      hook,
		indexer:   indexer,
		logger:    logger,
		maxLength: maxLength,
		window:    window,
		now:       time.Now,
	}
}

// Totals reports how many rooms and messages have ever been allocated. The
// counters only grow, so these double as lifetime creation totals.
func (s *Service) Totals(ctx context.Context) (rooms, messages int64, err error) {
	rooms, err = s.kv.CounterValue(ctx, counterRoomID)
	if err != nil {
		return 0, 0, err
	}
	messages, err = s.kv.CounterValue(ctx, counterMessageID)
	if err != nil {
		return 0, 0, err
	}
	return rooms, messages, nil
}
