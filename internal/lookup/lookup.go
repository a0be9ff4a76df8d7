// internal/lookup/lookup.go
//
// Dictionary lookup abstraction used by every game.
// Responsibilities:
//   - Define the Service interface (noun validation + prefix search).
//   - Define the error taxonomy shared by all implementations.
//   - Provide the reading-matching helper implementations share.
//
// Implementations live alongside: Jisho (HTTP), Kagome (offline morphological
// analysis), Fallback (primary → secondary). lookuptest holds an in-memory fake.

package lookup

import (
	"context"
	"errors"
	"fmt"

	"github.com/webutan/lain/internal/kana"
)

// Entry is a dictionary noun.
type Entry struct {
	Word    string `json:"word"`    // surface form (kanji or kana)
	Reading string `json:"reading"` // kana reading
	Gloss   string `json:"gloss"`   // short English meaning, may be empty
}

// Service validates nouns and produces candidate words.
type Service interface {
	// Lookup validates word as a dictionary noun. When startKana is non-zero,
	// only a reading whose first normalized kana equals it is accepted, even
	// if other readings of the same surface exist.
	Lookup(ctx context.Context, word string, startKana rune) (Entry, error)

	// Search returns noun entries whose surface or reading begins with prefix,
	// in the upstream's order.
	Search(ctx context.Context, prefix string) ([]Entry, error)
}

var (
	// ErrNotFound means no noun matched the word.
	ErrNotFound = errors.New("lookup: not found")
	// ErrStartMismatch means the noun exists but none of its readings starts
	// with the required kana.
	ErrStartMismatch = errors.New("lookup: no reading with required start")
)

// UpstreamError wraps transport or payload failures of a lookup backend.
type UpstreamError struct {
	Backend string
	Err     error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("lookup: %s: %v", e.Backend, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// IsUpstream reports whether err came from a failing backend.
func IsUpstream(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue)
}

// StartsWith reports whether reading's first kana equals start after normalization.
// A zero start accepts any reading.
func StartsWith(reading string, start rune) bool {
	if start == 0 {
		return true
	}
	first := kana.FirstKana(reading)
	return first != 0 && kana.Equal(first, start)
}

// Matcher picks the first acceptable reading among several candidates for the
// same surface and remembers whether a noun was seen at all.
type Matcher struct {
	Start   rune
	sawNoun bool
	hit     *Entry
}

// Offer considers one noun candidate. It returns true once a match is found.
func (m *Matcher) Offer(e Entry) bool {
	if m.hit != nil {
		return true
	}
	m.sawNoun = true
	if StartsWith(e.Reading, m.Start) {
		m.hit = &e
		return true
	}
	return false
}

// Result returns the matched entry, ErrStartMismatch when only other readings
// were offered, or ErrNotFound when nothing was offered.
func (m *Matcher) Result() (Entry, error) {
	switch {
	case m.hit != nil:
		return *m.hit, nil
	case m.sawNoun:
		return Entry{}, ErrStartMismatch
	default:
		return Entry{}, ErrNotFound
	}
}
