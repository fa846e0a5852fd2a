package store

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/parley-chat/parley/internal/metrics"
	"github.com/parley-chat/parley/internal/models"
)

// globalKey is the hash holding all named counters, so that counter state
// survives under a single well-known key.
const globalKey = "global"

const searchTTL = 30 * 24 * time.Hour

// RedisStore implements KVStore on Redis. It also carries the best-effort
// search index and the rate-limit counters, which are Redis-only concerns.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis using a redis:// URL.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisStore{client: client}, nil
}

// Client exposes the underlying client for middleware that needs raw
// commands (rate limiting).
func (s *RedisStore) Client() *redis.Client {
	return s.client
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// observe records operation latency for the Redis histogram.
func observe(start time.Time) {
	metrics.RedisLatency.Observe(time.Since(start).Seconds())
}

// IncrCounter atomically increments a named counter field on the global
// hash and returns the new value.
func (s *RedisStore) IncrCounter(ctx context.Context, name string) (int64, error) {
	defer observe(time.Now())
	return s.client.HIncrBy(ctx, globalKey, name, 1).Result()
}

// CounterValue reads a counter field without incrementing it. A counter
// that was never incremented reads as zero.
func (s *RedisStore) CounterValue(ctx context.Context, name string) (int64, error) {
	val, err := s.client.HGet(ctx, globalKey, name).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseInt(val, 10, 64)
}

// SortedSetAdd upserts a member into a sorted set.
func (s *RedisStore) SortedSetAdd(ctx context.Context, key string, score float64, member string) error {
	defer observe(time.Now())
	return s.client.ZAdd(ctx, key, redis.Z{Score: score, Member: member}).Err()
}

// SortedSetsAdd upserts the same member into several sorted sets in one
// pipelined round trip. The writes stay independent; a partial failure
// leaves the successful ones in place.
func (s *RedisStore) SortedSetsAdd(ctx context.Context, keys []string, score float64, member string) error {
	if len(keys) == 0 {
		return nil
	}
	defer observe(time.Now())

	pipe := s.client.Pipeline()
	for _, key := range keys {
		pipe.ZAdd(ctx, key, redis.Z{Score: score, Member: member})
	}
	_, err := pipe.Exec(ctx)
	return err
}

// SortedSetRemove removes a member from a sorted set.
func (s *RedisStore) SortedSetRemove(ctx context.Context, key, member string) error {
	return s.client.ZRem(ctx, key, member).Err()
}

// SortedSetRange returns members by ascending score over [start, stop].
func (s *RedisStore) SortedSetRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	defer observe(time.Now())
	return s.client.ZRange(ctx, key, start, stop).Result()
}

// SortedSetRevRangeWithScores returns members with scores by descending
// score over [start, stop].
func (s *RedisStore) SortedSetRevRangeWithScores(ctx context.Context, key string, start, stop int64) ([]ScoredMember, error) {
	defer observe(time.Now())
	zs, err := s.client.ZRevRangeWithScores(ctx, key, start, stop).Result()
	if err != nil {
		return nil, err
	}
	out := make([]ScoredMember, len(zs))
	for i, z := range zs {
		out[i] = ScoredMember{Member: fmt.Sprint(z.Member), Score: z.Score}
	}
	return out, nil
}

// SortedSetRevRangeByScore returns up to limit members with scores strictly
// below max, descending.
func (s *RedisStore) SortedSetRevRangeByScore(ctx context.Context, key string, max float64, limit int64) ([]ScoredMember, error) {
	defer observe(time.Now())
	zs, err := s.client.ZRevRangeByScoreWithScores(ctx, key, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   "(" + strconv.FormatFloat(max, 'f', -1, 64),
		Count: limit,
	}).Result()
	if err != nil {
		return nil, err
	}
	out := make([]ScoredMember, len(zs))
	for i, z := range zs {
		out[i] = ScoredMember{Member: fmt.Sprint(z.Member), Score: z.Score}
	}
	return out, nil
}

// SortedSetScore returns a member's score, with ok=false for absent members.
func (s *RedisStore) SortedSetScore(ctx context.Context, key, member string) (float64, bool, error) {
	score, err := s.client.ZScore(ctx, key, member).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return score, true, nil
}

// IsSortedSetMember reports membership via ZScore.
func (s *RedisStore) IsSortedSetMember(ctx context.Context, key, member string) (bool, error) {
	_, ok, err := s.SortedSetScore(ctx, key, member)
	return ok, err
}

// SortedSetCard returns the cardinality of a sorted set.
func (s *RedisStore) SortedSetCard(ctx context.Context, key string) (int64, error) {
	return s.client.ZCard(ctx, key).Result()
}

// SetObject stores a JSON record under key.
func (s *RedisStore) SetObject(ctx context.Context, key string, v any) error {
	defer observe(time.Now())
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, data, 0).Err()
}

// GetObject loads a JSON record into v, or returns ErrNotFound.
func (s *RedisStore) GetObject(ctx context.Context, key string, v any) error {
	defer observe(time.Now())
	data, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// searchWordKey returns the key for a search word index.
func searchWordKey(word string) string {
	return fmt.Sprintf("search:words:%s", strings.ToLower(word))
}

// wordRegex matches word characters for search indexing.
var wordRegex = regexp.MustCompile(`\w+`)

// Tokenize splits text into lowercase search tokens, dropping short words.
func Tokenize(text string) []string {
	words := wordRegex.FindAllString(strings.ToLower(text), -1)
	tokens := make([]string, 0, len(words))
	seen := make(map[string]bool)
	for _, w := range words {
		if len(w) < 3 || seen[w] {
			continue
		}
		seen[w] = true
		tokens = append(tokens, w)
	}
	return tokens
}

// IndexMessage indexes a message for word search. Indexing is best-effort;
// message durability never depends on it.
func (s *RedisStore) IndexMessage(ctx context.Context, msg *models.Message) error {
	ref := fmt.Sprintf("%d:%d", msg.RoomID, msg.ID)
	for _, word := range Tokenize(msg.Content) {
		key := searchWordKey(word)
		if err := s.client.ZAdd(ctx, key, redis.Z{
			Score:  float64(msg.Timestamp),
			Member: ref,
		}).Err(); err != nil {
			return err
		}
		s.client.Expire(ctx, key, searchTTL)
	}
	return nil
}

// SearchMessages returns room:message references matching every token,
// newest first, filtered to the given room.
func (s *RedisStore) SearchMessages(ctx context.Context, tokens []string, roomID int64, limit int) ([]int64, error) {
	if len(tokens) == 0 || limit <= 0 {
		return nil, nil
	}

	keys := make([]string, len(tokens))
	for i, t := range tokens {
		keys[i] = searchWordKey(t)
	}

	var refs []string
	if len(keys) == 1 {
		var err error
		refs, err = s.client.ZRevRange(ctx, keys[0], 0, int64(limit*3)).Result()
		if err != nil {
			return nil, err
		}
	} else {
		// Multi-word queries intersect their indices into a scratch set.
		tempKey := fmt.Sprintf("search:temp:%d", time.Now().UnixNano())
		if err := s.client.ZInterStore(ctx, tempKey, &redis.ZStore{
			Keys:      keys,
			Aggregate: "MIN",
		}).Err(); err != nil {
			return nil, err
		}
		s.client.Expire(ctx, tempKey, 10*time.Second)
		var err error
		refs, err = s.client.ZRevRange(ctx, tempKey, 0, int64(limit*3)).Result()
		s.client.Del(ctx, tempKey)
		if err != nil {
			return nil, err
		}
	}

	mids := make([]int64, 0, limit)
	prefix := strconv.FormatInt(roomID, 10) + ":"
	for _, ref := range refs {
		if !strings.HasPrefix(ref, prefix) {
			continue
		}
		mid, err := strconv.ParseInt(ref[len(prefix):], 10, 64)
		if err != nil {
			continue
		}
		mids = append(mids, mid)
		if len(mids) >= limit {
			break
		}
	}
	return mids, nil
}
