// Package results records finished chain games.
package results

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Summary describes a finished chain game.
type Summary struct {
	ID          string         `json:"id"`
	ChannelID   string         `json:"channelId"`
	Mode        string         `json:"mode"`
	Reason      string         `json:"reason"` // outcome or "ended"
	ChainLength int            `json:"chainLength"`
	LastWord    string         `json:"lastWord"`
	Scores      map[string]int `json:"scores,omitempty"`
	EndedAt     time.Time      `json:"endedAt"`
}

// Store persists summaries in game_results.
type Store struct {
	db *sql.DB

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db, entropy: ulid.Monotonic(rand.Reader, 0)}
}

// Record stores s, filling ID and EndedAt when empty, and returns the stored summary.
func (s *Store) Record(ctx context.Context, sum Summary) (Summary, error) {
	if sum.EndedAt.IsZero() {
		sum.EndedAt = time.Now()
	}
	sum.EndedAt = sum.EndedAt.UTC()
	if sum.ID == "" {
		s.mu.Lock()
		sum.ID = ulid.MustNew(ulid.Timestamp(sum.EndedAt), s.entropy).String()
		s.mu.Unlock()
	}
	scores, err := json.Marshal(sum.Scores)
	if err != nil {
		return sum, err
	}
	if sum.Scores == nil {
		scores = []byte("{}")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO game_results(id, channel_id, mode, reason, chain_length, last_word, scores_json, ended_at)
		VALUES(?,?,?,?,?,?,?,?)`,
		sum.ID, sum.ChannelID, sum.Mode, sum.Reason, sum.ChainLength, sum.LastWord, string(scores),
		sum.EndedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return sum, fmt.Errorf("record result: %w", err)
	}
	return sum, nil
}

// Recent returns up to limit summaries for channelID, newest first.
func (s *Store) Recent(ctx context.Context, channelID string, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, channel_id, mode, reason, chain_length, last_word, scores_json, ended_at
		FROM game_results WHERE channel_id=?
		ORDER BY id DESC LIMIT ?`, channelID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Summary
	for rows.Next() {
		var (
			r      Summary
			scores string
			ended  string
		)
		if err := rows.Scan(&r.ID, &r.ChannelID, &r.Mode, &r.Reason, &r.ChainLength, &r.LastWord, &scores, &ended); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(scores), &r.Scores); err != nil {
			return nil, fmt.Errorf("decode scores %s: %w", r.ID, err)
		}
		if len(r.Scores) == 0 {
			r.Scores = nil
		}
		r.EndedAt, _ = time.Parse(time.RFC3339Nano, ended)
		out = append(out, r)
	}
	return out, rows.Err()
}
