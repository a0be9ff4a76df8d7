package daily

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/webutan/lain/internal/lookup"
	"github.com/webutan/lain/internal/lookup/lookuptest"
)

var jst = time.FixedZone("JST", 9*60*60)

func TestDateKeyUsesReferenceZone(t *testing.T) {
	// 16:30 UTC is already the next day in Tokyo.
	ts := time.Date(2026, 10, 17, 16, 30, 0, 0, time.UTC)
	require.Equal(t, "2026-10-17", DateKey(ts, nil))
	require.Equal(t, "2026-10-18", DateKey(ts, jst))
	require.Equal(t, time.Date(2026, 10, 19, 0, 0, 0, 0, jst), NextReset(ts, jst))
}

func TestSeedIsDeterministic(t *testing.T) {
	require.Equal(t, Seed("2026-10-18", "salt"), Seed("2026-10-18", "salt"))
	require.NotEqual(t, Seed("2026-10-18", "salt"), Seed("2026-10-19", "salt"))
	require.NotEqual(t, Seed("2026-10-18", "salt"), Seed("2026-10-18", "pepper"))
}

func compounds() *lookuptest.Memory {
	return lookuptest.New(
		lookup.Entry{Word: "空港", Reading: "くうこう"},
		lookup.Entry{Word: "空気", Reading: "くうき"},
		lookup.Entry{Word: "空間", Reading: "くうかん"},
		lookup.Entry{Word: "海港", Reading: "かいこう"},
		lookup.Entry{Word: "海水", Reading: "かいすい"},
		lookup.Entry{Word: "電車", Reading: "でんしゃ"},
		lookup.Entry{Word: "電気", Reading: "でんき"},
	)
}

func newTestSelector(mem *lookuptest.Memory, now time.Time) *Selector {
	s := NewSelector(mem, []rune("空海電"), "salt", jst, 10)
	s.Now = func() time.Time { return now }
	return s
}

func TestSelectorTodayIsCached(t *testing.T) {
	ctx := context.Background()
	mem := compounds()
	var searches atomic.Int32
	mem.Hook = func(op, _ string) {
		if op == "search" {
			searches.Add(1)
		}
	}
	now := time.Date(2026, 10, 18, 3, 0, 0, 0, time.UTC)
	s := newTestSelector(mem, now)

	date, a, err := s.Today(ctx)
	require.NoError(t, err)
	require.Equal(t, "2026-10-18", date)
	n := searches.Load()
	require.Positive(t, n)

	_, b, err := s.Today(ctx)
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.Equal(t, n, searches.Load())

	// A fresh process on the same date reproduces the answer.
	_, c, err := newTestSelector(compounds(), now).Today(ctx)
	require.NoError(t, err)
	require.Equal(t, a, c)
}

func TestSelectorConcurrentFirstCalls(t *testing.T) {
	s := newTestSelector(compounds(), time.Date(2026, 10, 18, 3, 0, 0, 0, time.UTC))
	var wg sync.WaitGroup
	got := make([]lookup.Entry, 16)
	for i := range got {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, e, err := s.Today(context.Background())
			if err == nil {
				got[i] = e
			}
		}(i)
	}
	wg.Wait()
	for _, e := range got {
		require.Equal(t, got[0], e)
		require.NotEmpty(t, e.Word)
	}
}

func TestSelectorFailureIsNotCached(t *testing.T) {
	ctx := context.Background()
	mem := compounds()
	mem.Err = errors.New("down")
	s := newTestSelector(mem, time.Date(2026, 10, 18, 3, 0, 0, 0, time.UTC))

	_, _, err := s.Today(ctx)
	require.Error(t, err)
	require.True(t, lookup.IsUpstream(err))

	mem.Err = nil
	_, e, err := s.Today(ctx)
	require.NoError(t, err)
	require.Len(t, []rune(e.Word), 2)
}

func TestSelectorNoCandidate(t *testing.T) {
	s := NewSelector(lookuptest.New(), []rune("猫"), "salt", jst, 10)
	_, err := s.ForDate(context.Background(), "2026-10-18")
	require.ErrorIs(t, err, ErrNoCandidate)
}
