package bot

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/webutan/lain/internal/daily"
	"github.com/webutan/lain/internal/game"
	"github.com/webutan/lain/internal/lookup"
)

// errStale marks results for a puzzle that is no longer registered.
var errStale = errors.New("bot: stale puzzle result")

// rejectText handles a guess rejection shared by the puzzle handlers. It
// returns "" when nothing should be said.
func rejectText(err error, word string) (string, game.Reason, error) {
	re, ok := game.AsReject(err)
	if !ok {
		return "", "", err
	}
	if re.Reason == game.ReasonGameOver {
		return "", re.Reason, nil
	}
	if re.Err != nil && lookup.IsUpstream(re.Err) {
		log.Warn().Err(re.Err).Str("word", word).Msg("lookup upstream failure")
	}
	return renderReject(re, 0, 0) + ": **" + word + "**", re.Reason, nil
}

func (d *Dispatcher) handleCompound(ctx context.Context, m Message, p *game.CompoundPuzzle, word string) error {
	res, err := p.Guess(ctx, d.deps.Lookup, word)
	if err != nil {
		text, reason, err := rejectText(err, word)
		if err != nil || text == "" {
			return err
		}
		if err := d.p.React(ctx, m.ChannelID, m.ID, rejectReaction(reason)); err != nil {
			return err
		}
		return d.p.Reply(ctx, m.ChannelID, m.ID, text)
	}
	if cur, ok := d.compounds.Get(m.ChannelID); !ok || cur != p {
		return nil
	}

	snap := p.Snapshot()
	text := renderBoard(snap, true)
	if res.State != game.StatePlaying {
		d.compounds.Release(m.ChannelID, p)
		a := p.Answer()
		text += "\n\n" + renderPuzzleEnd(res.State, a.Word, a.Reading, a.Gloss, len(snap.Rows))
	}
	return d.p.Reply(ctx, m.ChannelID, m.ID, text)
}

func (d *Dispatcher) handleKanji(ctx context.Context, m Message, p *game.KanjiPuzzle, word string) error {
	_, state, err := p.Guess(ctx, d.deps.Lookup, word)
	if err != nil {
		text, reason, err := rejectText(err, word)
		if err != nil || text == "" {
			return err
		}
		if err := d.p.React(ctx, m.ChannelID, m.ID, rejectReaction(reason)); err != nil {
			return err
		}
		return d.p.Reply(ctx, m.ChannelID, m.ID, text)
	}
	if cur, ok := d.kanji.Get(m.ChannelID); !ok || cur != p {
		return nil
	}

	rows := p.Rows()
	text := renderKanjiRows(rows, p.Remaining())
	if state != game.StatePlaying {
		d.kanji.Release(m.ChannelID, p)
		a := p.Answer()
		text += "\n\n" + renderPuzzleEnd(state, a.Word, a.Reading, a.Gloss, len(rows))
	}
	return d.p.Reply(ctx, m.ChannelID, m.ID, text)
}

// handleDaily scores a daily guess. Feedback with characters goes to the
// owner privately; the channel only sees the tier board.
func (d *Dispatcher) handleDaily(ctx context.Context, s *dailySession, userID, word string) error {
	p := s.puzzle
	res, err := p.GuessAs(ctx, d.deps.Lookup, userID, word)
	if err != nil {
		text, _, err := rejectText(err, word)
		if err != nil || text == "" {
			return err
		}
		return d.p.SendPrivate(ctx, userID, text)
	}
	if cur, ok := d.dailies.Get(userID); !ok || cur != s {
		return nil
	}

	if err := d.refreshPublicDaily(ctx, p); err != nil {
		log.Warn().Err(err).Str("user", userID).Msg("edit daily board")
	}
	snap := p.Snapshot()
	text := renderBoard(snap, true)
	if res.State == game.StatePlaying {
		return d.p.SendPrivate(ctx, userID, text)
	}

	if err := d.finishDaily(ctx, s, res.State == game.StateWon, len(snap.Rows)); err != nil {
		log.Error().Err(err).Str("user", userID).Msg("record daily result")
	}
	a := p.Answer()
	return d.p.SendPrivate(ctx, userID, text+"\n\n"+renderPuzzleEnd(res.State, a.Word, a.Reading, a.Gloss, len(snap.Rows)))
}

func (d *Dispatcher) refreshPublicDaily(ctx context.Context, p *game.DailyPuzzle) error {
	ref := p.PublicRef()
	if ref == "" {
		return nil
	}
	return d.p.Edit(ctx, p.ChannelID, ref, renderPublicDaily(p.PublicView()))
}

// finishDaily unregisters the session and stores the result.
func (d *Dispatcher) finishDaily(ctx context.Context, s *dailySession, solved bool, guesses int) error {
	p := s.puzzle
	if !d.dailies.Release(p.OwnerID, s) {
		return errStale
	}
	if d.deps.DailyResults == nil {
		return nil
	}
	return d.deps.DailyResults.InsertResult(ctx, daily.Result{
		UserID:    p.OwnerID,
		Date:      p.Date,
		Answer:    p.Answer().Word,
		Guesses:   guesses,
		Solved:    solved,
		ElapsedMs: d.deps.Now().Sub(s.started).Milliseconds(),
	})
}
