package game

import (
	"context"
	"sync"

	"github.com/webutan/lain/internal/lookup"
)

// DailyPuzzle is a CompoundPuzzle owned by a single user for one calendar day.
// Its public view carries feedback tiers only, never guessed characters.
type DailyPuzzle struct {
	*CompoundPuzzle
	OwnerID   string
	ChannelID string
	Date      string

	refMu     sync.Mutex
	publicRef string
}

// NewDailyPuzzle builds the owner's puzzle for date.
func NewDailyPuzzle(answer lookup.Entry, rs RadicalSource, maxGuesses int, ownerID, channelID, date string) (*DailyPuzzle, error) {
	p, err := NewCompoundPuzzle(answer, rs, maxGuesses)
	if err != nil {
		return nil, err
	}
	return &DailyPuzzle{CompoundPuzzle: p, OwnerID: ownerID, ChannelID: channelID, Date: date}, nil
}

// Accepts reports whether userID may guess.
func (d *DailyPuzzle) Accepts(userID string) bool { return userID == d.OwnerID }

// GuessAs is Guess restricted to the owner.
func (d *DailyPuzzle) GuessAs(ctx context.Context, svc lookup.Service, userID, word string) (GuessResult, error) {
	if !d.Accepts(userID) {
		return GuessResult{}, reject(ReasonNotOwner, "not your puzzle", nil)
	}
	return d.Guess(ctx, svc, word)
}

// SetPublicRef stores the handle of the shared progress message.
func (d *DailyPuzzle) SetPublicRef(ref string) {
	d.refMu.Lock()
	defer d.refMu.Unlock()
	d.publicRef = ref
}

// PublicRef returns the handle of the shared progress message, if any.
func (d *DailyPuzzle) PublicRef() string {
	d.refMu.Lock()
	defer d.refMu.Unlock()
	return d.publicRef
}

// PublicView is what other channel members may see.
type PublicView struct {
	OwnerID    string
	Date       string
	Rows       [][]Tier // one tier sequence per guess so far
	Latest     []Tier   // tiers of the most recent guess, nil before the first
	Remaining  int      // blank placeholders still to fill
	MaxGuesses int
	State      State
}

// PublicView projects the puzzle onto tiers only.
func (d *DailyPuzzle) PublicView() PublicView {
	s := d.Snapshot()
	v := PublicView{
		OwnerID:    d.OwnerID,
		Date:       d.Date,
		Rows:       make([][]Tier, len(s.Rows)),
		Remaining:  s.Remaining,
		MaxGuesses: s.MaxGuesses,
		State:      s.State,
	}
	for i, r := range s.Rows {
		v.Rows[i] = r.Tiers()
	}
	if n := len(v.Rows); n > 0 {
		v.Latest = v.Rows[n-1]
	}
	return v
}
