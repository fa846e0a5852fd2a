package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

func TestMemoryCounters(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	v, err := s.CounterValue(ctx, "nextMsgId")
	if err != nil {
		t.Fatalf("CounterValue: %v", err)
	}
	if v != 0 {
		t.Errorf("fresh counter = %d, want 0", v)
	}

	for want := int64(1); want <= 5; want++ {
		got, err := s.IncrCounter(ctx, "nextMsgId")
		if err != nil {
			t.Fatalf("IncrCounter: %v", err)
		}
		if got != want {
			t.Errorf("IncrCounter = %d, want %d", got, want)
		}
	}

	// Counters are independent of each other.
	got, err := s.IncrCounter(ctx, "nextChatRoomId")
	if err != nil {
		t.Fatalf("IncrCounter: %v", err)
	}
	if got != 1 {
		t.Errorf("second counter = %d, want 1", got)
	}
}

func TestMemoryCountersConcurrent(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	const n = 100
	ids := make(chan int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := s.IncrCounter(ctx, "nextMsgId")
			if err != nil {
				t.Errorf("IncrCounter: %v", err)
				return
			}
			ids <- id
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[int64]bool, n)
	for id := range ids {
		if seen[id] {
			t.Fatalf("id %d allocated twice", id)
		}
		seen[id] = true
	}
	if len(seen) != n {
		t.Errorf("got %d unique ids, want %d", len(seen), n)
	}
}

func TestMemorySortedSetOrdering(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	// Insert out of order; ties break by member.
	for _, e := range []ScoredMember{
		{Member: "c", Score: 30},
		{Member: "a", Score: 10},
		{Member: "b", Score: 20},
		{Member: "b2", Score: 20},
	} {
		if err := s.SortedSetAdd(ctx, "k", e.Score, e.Member); err != nil {
			t.Fatalf("SortedSetAdd: %v", err)
		}
	}

	members, err := s.SortedSetRange(ctx, "k", 0, -1)
	if err != nil {
		t.Fatalf("SortedSetRange: %v", err)
	}
	want := []string{"a", "b", "b2", "c"}
	if fmt.Sprint(members) != fmt.Sprint(want) {
		t.Errorf("range = %v, want %v", members, want)
	}

	rev, err := s.SortedSetRevRangeWithScores(ctx, "k", 0, 1)
	if err != nil {
		t.Fatalf("SortedSetRevRangeWithScores: %v", err)
	}
	if len(rev) != 2 || rev[0].Member != "c" || rev[1].Member != "b2" {
		t.Errorf("rev range = %v, want [c b2]", rev)
	}
}

func TestMemorySortedSetUpsert(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.SortedSetAdd(ctx, "k", 10, "m"); err != nil {
		t.Fatal(err)
	}
	if err := s.SortedSetAdd(ctx, "k", 99, "m"); err != nil {
		t.Fatal(err)
	}

	score, ok, err := s.SortedSetScore(ctx, "k", "m")
	if err != nil || !ok {
		t.Fatalf("SortedSetScore ok=%v err=%v", ok, err)
	}
	if score != 99 {
		t.Errorf("score = %f, want 99", score)
	}
	card, err := s.SortedSetCard(ctx, "k")
	if err != nil {
		t.Fatal(err)
	}
	if card != 1 {
		t.Errorf("card = %d, want 1", card)
	}
}

func TestMemorySortedSetsAddBatch(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	keys := []string{"k1", "k2", "k3"}
	if err := s.SortedSetsAdd(ctx, keys, 42, "room:7"); err != nil {
		t.Fatalf("SortedSetsAdd: %v", err)
	}
	for _, k := range keys {
		ok, err := s.IsSortedSetMember(ctx, k, "room:7")
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			t.Errorf("member missing from %s", k)
		}
	}
}

func TestMemorySortedSetRemove(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.SortedSetAdd(ctx, "k", 1, "m"); err != nil {
		t.Fatal(err)
	}
	if err := s.SortedSetRemove(ctx, "k", "m"); err != nil {
		t.Fatal(err)
	}
	// Removing again, and from a missing key, are no-ops.
	if err := s.SortedSetRemove(ctx, "k", "m"); err != nil {
		t.Fatal(err)
	}
	if err := s.SortedSetRemove(ctx, "missing", "m"); err != nil {
		t.Fatal(err)
	}
	ok, err := s.IsSortedSetMember(ctx, "k", "m")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("member still present after remove")
	}
}

func TestMemoryNegativeRanges(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := s.SortedSetAdd(ctx, "k", float64(i), fmt.Sprintf("m%d", i)); err != nil {
			t.Fatal(err)
		}
	}

	cases := []struct {
		start, stop int64
		want        []string
	}{
		{0, -1, []string{"m0", "m1", "m2", "m3", "m4"}},
		{-2, -1, []string{"m3", "m4"}},
		{1, 2, []string{"m1", "m2"}},
		{3, 99, []string{"m3", "m4"}},
		{-99, 0, []string{"m0"}},
		{4, 2, nil},
		{9, 10, nil},
	}
	for _, tc := range cases {
		got, err := s.SortedSetRange(ctx, "k", tc.start, tc.stop)
		if err != nil {
			t.Fatalf("SortedSetRange(%d, %d): %v", tc.start, tc.stop, err)
		}
		if fmt.Sprint(got) != fmt.Sprint(tc.want) {
			t.Errorf("range(%d, %d) = %v, want %v", tc.start, tc.stop, got, tc.want)
		}
	}

	empty, err := s.SortedSetRange(ctx, "missing", 0, -1)
	if err != nil {
		t.Fatal(err)
	}
	if len(empty) != 0 {
		t.Errorf("missing key range = %v, want empty", empty)
	}
}

func TestMemoryRevRangeByScore(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := s.SortedSetAdd(ctx, "k", float64(10+i), fmt.Sprintf("m%d", i)); err != nil {
			t.Fatal(err)
		}
	}

	// The max bound is exclusive: a cursor at a member's own score skips it.
	got, err := s.SortedSetRevRangeByScore(ctx, "k", 13, 10)
	if err != nil {
		t.Fatalf("SortedSetRevRangeByScore: %v", err)
	}
	want := []string{"m2", "m1", "m0"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i].Member != want[i] {
			t.Errorf("got[%d] = %q, want %q", i, got[i].Member, want[i])
		}
	}

	// The limit caps the page.
	got, err = s.SortedSetRevRangeByScore(ctx, "k", 100, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Member != "m4" || got[1].Member != "m3" {
		t.Errorf("limited page = %v, want [m4 m3]", got)
	}

	// A cursor below every score, and a missing key, yield empty pages.
	got, err = s.SortedSetRevRangeByScore(ctx, "k", 10, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("below-all cursor = %v, want empty", got)
	}
	got, err = s.SortedSetRevRangeByScore(ctx, "missing", 100, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("missing key = %v, want empty", got)
	}
}

func TestMemoryObjects(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	type record struct {
		ID   int64  `json:"id"`
		Body string `json:"body"`
	}

	if err := s.SetObject(ctx, "message:1", record{ID: 1, Body: "hello"}); err != nil {
		t.Fatalf("SetObject: %v", err)
	}

	var got record
	if err := s.GetObject(ctx, "message:1", &got); err != nil {
		t.Fatalf("GetObject: %v", err)
	}
	if got.ID != 1 || got.Body != "hello" {
		t.Errorf("got %+v", got)
	}

	err := s.GetObject(ctx, "message:2", &got)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("missing object err = %v, want ErrNotFound", err)
	}
}
