// internal/flashcard/queue.go
//
// Token-authenticated per-user flashcard queue for the desktop sync plugin.
// Responsibilities:
//   - Issue sync tokens ("<userID>.<secret>"); only a bcrypt hash of the
//     secret is stored, and issuing a new token revokes the old one.
//   - Enqueue cards with ULID ids so id order is arrival order.
//   - Serve pending cards FIFO and mark them delivered on confirmation.

package flashcard

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidToken is returned for unknown, malformed or revoked tokens.
	ErrInvalidToken = errors.New("flashcard: invalid token")
	// ErrEmptyCard is returned when front or back is blank.
	ErrEmptyCard = errors.New("flashcard: front and back are required")
)

// Card is one queued flashcard.
type Card struct {
	ID    string `json:"id"`
	Front string `json:"front"`
	Back  string `json:"back"`
}

// Queue stores flashcards in SQLite.
type Queue struct {
	db *sql.DB

	mu      sync.Mutex // guards entropy
	entropy io.Reader
	now     func() time.Time
}

// NewQueue returns a Queue over db (already migrated).
func NewQueue(db *sql.DB) *Queue {
	return &Queue{
		db:      db,
		entropy: ulid.Monotonic(rand.Reader, 0),
		now:     time.Now,
	}
}

func (q *Queue) newID() string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(q.now()), q.entropy).String()
}

// ---- tokens ----

// IssueToken creates a fresh token for userID, replacing any previous one.
func (q *Queue) IssueToken(ctx context.Context, userID string) (string, error) {
	if userID == "" || strings.Contains(userID, ".") {
		return "", fmt.Errorf("flashcard: bad user id %q", userID)
	}
	var raw [24]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	secret := base64.RawURLEncoding.EncodeToString(raw[:])
	hash, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	_, err = q.db.ExecContext(ctx,
		`INSERT INTO sync_tokens(user_id, secret_hash, created_at) VALUES(?,?,?)
		ON CONFLICT(user_id) DO UPDATE SET secret_hash=excluded.secret_hash, created_at=excluded.created_at`,
		userID, string(hash), q.now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return "", fmt.Errorf("store token: %w", err)
	}
	return userID + "." + secret, nil
}

// Authenticate resolves a token to its user id.
func (q *Queue) Authenticate(ctx context.Context, token string) (string, error) {
	userID, secret, ok := strings.Cut(strings.TrimSpace(token), ".")
	if !ok || userID == "" || secret == "" {
		return "", ErrInvalidToken
	}
	var hash string
	err := q.db.QueryRowContext(ctx, `SELECT secret_hash FROM sync_tokens WHERE user_id=?`, userID).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrInvalidToken
	}
	if err != nil {
		return "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) != nil {
		return "", ErrInvalidToken
	}
	return userID, nil
}

// ---- cards ----

// Enqueue adds a card for userID and returns it.
func (q *Queue) Enqueue(ctx context.Context, userID, front, back string) (Card, error) {
	front, back = strings.TrimSpace(front), strings.TrimSpace(back)
	if front == "" || back == "" {
		return Card{}, ErrEmptyCard
	}
	c := Card{ID: q.newID(), Front: front, Back: back}
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO flashcards(id, user_id, front, back, created_at) VALUES(?,?,?,?,?)`,
		c.ID, userID, c.Front, c.Back, q.now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return Card{}, fmt.Errorf("enqueue: %w", err)
	}
	return c, nil
}

// FetchPending returns the token owner's undelivered cards, oldest first.
func (q *Queue) FetchPending(ctx context.Context, token string) ([]Card, error) {
	userID, err := q.Authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	return q.pending(ctx, userID)
}

func (q *Queue) pending(ctx context.Context, userID string) ([]Card, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT id, front, back FROM flashcards
		WHERE user_id=? AND delivered_at IS NULL
		ORDER BY id ASC`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Card{}
	for rows.Next() {
		var c Card
		if err := rows.Scan(&c.ID, &c.Front, &c.Back); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ConfirmDelivered marks ids delivered for the token owner and returns how
// many were updated. Ids belonging to other users or already delivered are ignored.
func (q *Queue) ConfirmDelivered(ctx context.Context, token string, ids []string) (int, error) {
	userID, err := q.Authenticate(ctx, token)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		`UPDATE flashcards SET delivered_at=? WHERE id=? AND user_id=? AND delivered_at IS NULL`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	at := q.now().UTC().Format(time.RFC3339)
	n := 0
	for _, id := range ids {
		res, err := stmt.ExecContext(ctx, at, id, userID)
		if err != nil {
			return 0, err
		}
		k, _ := res.RowsAffected()
		n += int(k)
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return n, nil
}

// PendingCount returns how many cards userID has waiting.
func (q *Queue) PendingCount(ctx context.Context, userID string) (int, error) {
	var n int
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM flashcards WHERE user_id=? AND delivered_at IS NULL`, userID,
	).Scan(&n)
	return n, err
}
