// internal/daily/daily.go
//
// Daily compound puzzle selection.
// Responsibilities:
//   - Map an instant to its calendar day in the reference timezone (DateKey).
//   - Derive a deterministic seed from the date (HMAC-SHA256 with a salt).
//   - Pick and cache the day's answer so every user gets the same compound.
//
// The cache holds one {date, answer} pair and is replaced on the first request
// of a new day. Concurrent first requests share a single pick via singleflight.
// Failed picks are not cached, so a later request retries.

package daily

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/webutan/lain/internal/game"
	"github.com/webutan/lain/internal/lookup"
)

// ErrNoCandidate means none of the candidate kanji produced a compound.
var ErrNoCandidate = errors.New("daily: no candidate compound")

// DateKey returns YYYY-MM-DD of t in loc (UTC when loc is nil).
func DateKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format("2006-01-02")
}

// NextReset returns the start of the calendar day after t in loc.
func NextReset(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	lt := t.In(loc)
	y, m, d := lt.Date()
	return time.Date(y, m, d+1, 0, 0, 0, 0, loc)
}

// Seed returns a deterministic seed for a date key using HMAC(salt, date).
func Seed(date, salt string) uint64 {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(date))
	sum := h.Sum(nil)
	// first 8 bytes as a big-endian integer
	return binary.BigEndian.Uint64(sum[:8])
}

// Selector picks and caches the daily answer.
type Selector struct {
	svc        lookup.Service
	candidates []rune
	salt       string
	loc        *time.Location
	limit      int

	// Now is the clock; tests replace it.
	Now func() time.Time

	mu     sync.Mutex
	date   string
	answer lookup.Entry
	group  singleflight.Group
}

// NewSelector returns a Selector drawing from candidates with svc.
func NewSelector(svc lookup.Service, candidates []rune, salt string, loc *time.Location, limit int) *Selector {
	if loc == nil {
		loc = time.UTC
	}
	return &Selector{
		svc:        svc,
		candidates: candidates,
		salt:       salt,
		loc:        loc,
		limit:      limit,
		Now:        time.Now,
	}
}

// Location returns the reference timezone.
func (s *Selector) Location() *time.Location { return s.loc }

// TodayKey returns today's date key in the reference timezone.
func (s *Selector) TodayKey() string { return DateKey(s.Now(), s.loc) }

// Today returns today's date key and answer.
func (s *Selector) Today(ctx context.Context) (string, lookup.Entry, error) {
	date := s.TodayKey()
	e, err := s.ForDate(ctx, date)
	return date, e, err
}

// ForDate returns the answer for date. Only today's answer is cached.
func (s *Selector) ForDate(ctx context.Context, date string) (lookup.Entry, error) {
	s.mu.Lock()
	if s.date == date {
		e := s.answer
		s.mu.Unlock()
		return e, nil
	}
	s.mu.Unlock()

	v, err, _ := s.group.Do(date, func() (any, error) {
		rng := game.NewRandom(Seed(date, s.salt))
		e, err := game.PickCompound(ctx, s.svc, s.candidates, rng, s.limit)
		if errors.Is(err, game.ErrNoCompound) {
			return nil, fmt.Errorf("%s: %w", date, ErrNoCandidate)
		}
		if err != nil {
			return nil, fmt.Errorf("daily: pick %s: %w", date, err)
		}
		if date == s.TodayKey() {
			s.mu.Lock()
			s.date, s.answer = date, e
			s.mu.Unlock()
		}
		return e, nil
	})
	if err != nil {
		return lookup.Entry{}, err
	}
	return v.(lookup.Entry), nil
}
