package store

import (
	"context"
	"errors"

	"github.com/parley-chat/parley/internal/models"
)

// ErrNotFound is returned by object reads for keys that do not exist.
var ErrNotFound = errors.New("store: not found")

// ScoredMember is one entry of a sorted set: a member string with its score.
// Scores are Unix millisecond timestamps throughout the messaging core.
type ScoredMember struct {
	Member string
	Score  float64
}

// KVStore is the persistent key/value and sorted-set store the messaging
// core coordinates over. Every operation is individually atomic and
// eventually durable; no multi-key transaction is assumed or offered.
// RedisStore is the production implementation, MemoryStore serves
// development and tests.
type KVStore interface {
	// IncrCounter atomically increments the named global counter and
	// returns the new value. Counters start at zero, so the first
	// allocation returns 1. Counters are the only shared mutable state in
	// the system; callers never compute or reuse identifiers themselves.
	IncrCounter(ctx context.Context, name string) (int64, error)

	// CounterValue reads the named counter without incrementing it.
	CounterValue(ctx context.Context, name string) (int64, error)

	// SortedSetAdd upserts member into the sorted set at key. Re-adding an
	// existing member updates its score.
	SortedSetAdd(ctx context.Context, key string, score float64, member string) error

	// SortedSetsAdd upserts the same member/score pair into every listed
	// set. The batch is issued in one round trip but the writes are
	// independent, not transactional.
	SortedSetsAdd(ctx context.Context, keys []string, score float64, member string) error

	// SortedSetRemove removes member from the set; removing an absent
	// member is a no-op.
	SortedSetRemove(ctx context.Context, key, member string) error

	// SortedSetRange returns members ordered by ascending score over the
	// index range [start, stop]; negative indices count from the end, so
	// (0, -1) is the whole set.
	SortedSetRange(ctx context.Context, key string, start, stop int64) ([]string, error)

	// SortedSetRevRangeWithScores returns members with scores, ordered by
	// descending score, over the index range [start, stop].
	SortedSetRevRangeWithScores(ctx context.Context, key string, start, stop int64) ([]ScoredMember, error)

	// SortedSetRevRangeByScore returns up to limit members with scores
	// strictly below max, ordered by descending score. This is the cursor
	// read: a caller pages backwards through a set by passing the score of
	// the last member it saw.
	SortedSetRevRangeByScore(ctx context.Context, key string, max float64, limit int64) ([]ScoredMember, error)

	// SortedSetScore returns the score of member, or ok=false if member is
	// not in the set.
	SortedSetScore(ctx context.Context, key, member string) (score float64, ok bool, err error)

	// IsSortedSetMember reports whether member is in the set at key.
	IsSortedSetMember(ctx context.Context, key, member string) (bool, error)

	// SortedSetCard returns the number of members in the set at key.
	SortedSetCard(ctx context.Context, key string) (int64, error)

	// SetObject stores v as a JSON record under key, replacing any
	// previous value.
	SetObject(ctx context.Context, key string, v any) error

	// GetObject loads the JSON record at key into v, or ErrNotFound.
	GetObject(ctx context.Context, key string, v any) error

	Ping(ctx context.Context) error
	Close() error
}

// DataStore is the relational user registry. PostgresStore and SQLiteStore
// both implement it.
type DataStore interface {
	Close()
	Ping(ctx context.Context) error

	CreateUser(ctx context.Context, name, email string) (*models.User, error)
	GetUserByUID(ctx context.Context, uid int64) (*models.User, error)
	GetUserByHandle(ctx context.Context, handle string) (*models.User, error)
	CountUsers(ctx context.Context) (int64, error)
}
