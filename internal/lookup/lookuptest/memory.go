// Package lookuptest provides an in-memory lookup.Service for tests and
// local development without network access.
package lookuptest

import (
	"context"
	"strings"
	"sync"

	"github.com/webutan/lain/internal/lookup"
)

// Memory is a fixed noun dictionary. Every entry is treated as a noun.
type Memory struct {
	mu      sync.Mutex
	entries []lookup.Entry

	// Err, when set, is returned by Lookup and Search as an upstream failure.
	Err error
	// Hook runs at the start of every call, outside the lock. Tests use it to
	// interleave other operations with a pending lookup.
	Hook func(op, arg string)
}

// New returns a dictionary holding entries in search order.
func New(entries ...lookup.Entry) *Memory {
	return &Memory{entries: entries}
}

// Add appends entries.
func (m *Memory) Add(entries ...lookup.Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entries...)
}

func (m *Memory) Lookup(ctx context.Context, word string, startKana rune) (lookup.Entry, error) {
	if m.Hook != nil {
		m.Hook("lookup", word)
	}
	if err := m.fail(ctx); err != nil {
		return lookup.Entry{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	lm := lookup.Matcher{Start: startKana}
	for _, e := range m.entries {
		if e.Word != word && e.Reading != word {
			continue
		}
		if lm.Offer(lookup.Entry{Word: word, Reading: e.Reading, Gloss: e.Gloss}) {
			break
		}
	}
	return lm.Result()
}

func (m *Memory) Search(ctx context.Context, prefix string) ([]lookup.Entry, error) {
	if m.Hook != nil {
		m.Hook("search", prefix)
	}
	if err := m.fail(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []lookup.Entry
	for _, e := range m.entries {
		if strings.HasPrefix(e.Word, prefix) || strings.HasPrefix(e.Reading, prefix) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *Memory) fail(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return &lookup.UpstreamError{Backend: "memory", Err: err}
	}
	if m.Err != nil {
		return &lookup.UpstreamError{Backend: "memory", Err: m.Err}
	}
	return nil
}
