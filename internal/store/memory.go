package store

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
)

// MemoryStore implements KVStore in process, for development without a
// Redis instance and for tests. Single-instance deployments only: the
// counter contract holds across goroutines but not across processes.
type MemoryStore struct {
	mu       sync.RWMutex
	counters map[string]int64
	zsets    map[string]map[string]float64
	objects  map[string][]byte
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		counters: make(map[string]int64),
		zsets:    make(map[string]map[string]float64),
		objects:  make(map[string][]byte),
	}
}

// Close is a no-op for the in-process store.
func (s *MemoryStore) Close() error { return nil }

// Ping always succeeds for the in-process store.
func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

// IncrCounter atomically increments a named counter.
func (s *MemoryStore) IncrCounter(ctx context.Context, name string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[name]++
	return s.counters[name], nil
}

// CounterValue reads a counter, zero if never incremented.
func (s *MemoryStore) CounterValue(ctx context.Context, name string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.counters[name], nil
}

// SortedSetAdd upserts a member into a sorted set.
func (s *MemoryStore) SortedSetAdd(ctx context.Context, key string, score float64, member string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.zadd(key, score, member)
	return nil
}

// SortedSetsAdd upserts the same member into several sorted sets.
func (s *MemoryStore) SortedSetsAdd(ctx context.Context, keys []string, score float64, member string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		s.zadd(key, score, member)
	}
	return nil
}

func (s *MemoryStore) zadd(key string, score float64, member string) {
	zset, ok := s.zsets[key]
	if !ok {
		zset = make(map[string]float64)
		s.zsets[key] = zset
	}
	zset[member] = score
}

// SortedSetRemove removes a member; absent members are a no-op.
func (s *MemoryStore) SortedSetRemove(ctx context.Context, key, member string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if zset, ok := s.zsets[key]; ok {
		delete(zset, member)
	}
	return nil
}

// sortedEntries returns the set at key ordered by ascending score, ties
// broken by member, matching Redis ordering.
func (s *MemoryStore) sortedEntries(key string) []ScoredMember {
	zset := s.zsets[key]
	entries := make([]ScoredMember, 0, len(zset))
	for member, score := range zset {
		entries = append(entries, ScoredMember{Member: member, Score: score})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score < entries[j].Score
		}
		return entries[i].Member < entries[j].Member
	})
	return entries
}

// clampRange resolves Redis-style start/stop indices (negatives count from
// the end) against a set of length n.
func clampRange(start, stop, n int64) (int64, int64, bool) {
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if n == 0 || start > stop || start >= n {
		return 0, 0, false
	}
	return start, stop, true
}

// SortedSetRange returns members by ascending score over [start, stop].
func (s *MemoryStore) SortedSetRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := s.sortedEntries(key)
	start, stop, ok := clampRange(start, stop, int64(len(entries)))
	if !ok {
		return nil, nil
	}
	members := make([]string, 0, stop-start+1)
	for _, e := range entries[start : stop+1] {
		members = append(members, e.Member)
	}
	return members, nil
}

// SortedSetRevRangeWithScores returns members with scores by descending
// score over [start, stop].
func (s *MemoryStore) SortedSetRevRangeWithScores(ctx context.Context, key string, start, stop int64) ([]ScoredMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := s.sortedEntries(key)
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	start, stop, ok := clampRange(start, stop, int64(len(entries)))
	if !ok {
		return nil, nil
	}
	return entries[start : stop+1], nil
}

// SortedSetRevRangeByScore returns up to limit members with scores strictly
// below max, by descending score.
func (s *MemoryStore) SortedSetRevRangeByScore(ctx context.Context, key string, max float64, limit int64) ([]ScoredMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := s.sortedEntries(key)
	out := make([]ScoredMember, 0, limit)
	for i := len(entries) - 1; i >= 0 && int64(len(out)) < limit; i-- {
		if entries[i].Score < max {
			out = append(out, entries[i])
		}
	}
	return out, nil
}

// SortedSetScore returns a member's score, ok=false if absent.
func (s *MemoryStore) SortedSetScore(ctx context.Context, key, member string) (float64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	zset, ok := s.zsets[key]
	if !ok {
		return 0, false, nil
	}
	score, ok := zset[member]
	return score, ok, nil
}

// IsSortedSetMember reports set membership.
func (s *MemoryStore) IsSortedSetMember(ctx context.Context, key, member string) (bool, error) {
	_, ok, err := s.SortedSetScore(ctx, key, member)
	return ok, err
}

// SortedSetCard returns the cardinality of the set at key.
func (s *MemoryStore) SortedSetCard(ctx context.Context, key string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.zsets[key])), nil
}

// SetObject stores v as JSON under key.
func (s *MemoryStore) SetObject(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = data
	return nil
}

// GetObject loads the JSON record at key into v, or ErrNotFound.
func (s *MemoryStore) GetObject(ctx context.Context, key string, v any) error {
	s.mu.RLock()
	data, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}
	return json.Unmarshal(data, v)
}
