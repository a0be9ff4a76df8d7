// internal/bot/commands.go
//
// Slash-command handlers.
//   - /shiritori1, /shiritori2, /wordbasket, /endgame, /history: chain games.
//   - /waaduru, /kanji, /giveup: shared compound puzzles.
//   - /waaduru_daily: per-user daily puzzle.
//   - /anki_setup, /anki_add: flashcard handoff.

package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/webutan/lain/internal/game"
	"github.com/webutan/lain/internal/kana"
	"github.com/webutan/lain/internal/store"
)

const (
	msgGameRunning   = "A game is already running in this channel! Use `/endgame` to end it first.\nこのチャンネルではすでにゲームが進行中です！"
	msgNoGame        = "No game is running in this channel. / このチャンネルではゲームが進行していません。"
	msgPuzzleRunning = "A puzzle is already running in this channel! Use `/giveup` to end it.\nこのチャンネルではすでにパズルが進行中です！"
	msgUnavailable   = "This feature is not available right now. / この機能は現在利用できません。"
	msgTryLater      = "Couldn't pick a word, try again later. / 言葉を選べませんでした。"
)

// HandleCommand runs a slash command.
func (d *Dispatcher) HandleCommand(ctx context.Context, c Command) error {
	log.Info().Str("cmd", c.Name).Str("channel", c.ChannelID).Str("user", c.UserID).Msg("command")
	switch c.Name {
	case "ping":
		return d.p.Respond(ctx, c.ID, "Pong! 🏓", false)
	case "shiritori1":
		return d.cmdChain(ctx, c, game.ModeVsComputer)
	case "shiritori2":
		return d.cmdChain(ctx, c, game.ModeMultiplayer)
	case "wordbasket":
		return d.cmdChain(ctx, c, game.ModeWordBasket)
	case "endgame":
		return d.cmdEndGame(ctx, c)
	case "history":
		return d.cmdHistory(ctx, c)
	case "waaduru":
		return d.cmdCompound(ctx, c)
	case "kanji":
		return d.cmdKanji(ctx, c)
	case "giveup":
		return d.cmdGiveUp(ctx, c)
	case "waaduru_daily":
		return d.cmdDaily(ctx, c)
	case "anki_setup":
		return d.cmdAnkiSetup(ctx, c)
	case "anki_add":
		return d.cmdAnkiAdd(ctx, c)
	}
	return d.p.Respond(ctx, c.ID, "Unknown command: "+c.Name, true)
}

// ---- chain ----

func (d *Dispatcher) cmdChain(ctx context.Context, c Command, mode game.Mode) error {
	g, err := d.startChain(c.ChannelID, mode)
	if errors.Is(err, store.ErrAlreadyActive) {
		return d.p.Respond(ctx, c.ID, msgGameRunning, true)
	}
	if err != nil {
		return err
	}
	return d.p.Respond(ctx, c.ID, renderChainStart(g.Snapshot()), false)
}

func (d *Dispatcher) cmdEndGame(ctx context.Context, c Command) error {
	g, err := d.chains.End(c.ChannelID)
	if errors.Is(err, store.ErrNotActive) {
		return d.p.Respond(ctx, c.ID, msgNoGame, true)
	}
	if err != nil {
		return err
	}
	st, wasOpen := g.Close()
	if wasOpen {
		d.recordChain(ctx, c.ChannelID, st, "ended")
	}
	return d.p.Respond(ctx, c.ID, renderEndGame(st), false)
}

func (d *Dispatcher) cmdHistory(ctx context.Context, c Command) error {
	if d.deps.Results == nil {
		return d.p.Respond(ctx, c.ID, msgUnavailable, true)
	}
	rows, err := d.deps.Results.Recent(ctx, c.ChannelID, 5)
	if err != nil {
		return err
	}
	return d.p.Respond(ctx, c.ID, renderHistory(rows), false)
}

// ---- puzzles ----

func (d *Dispatcher) puzzleRunning(channelID string) bool {
	_, c := d.compounds.Get(channelID)
	_, k := d.kanji.Get(channelID)
	return c || k
}

func (d *Dispatcher) cmdCompound(ctx context.Context, c Command) error {
	if d.puzzleRunning(c.ChannelID) {
		return d.p.Respond(ctx, c.ID, msgPuzzleRunning, true)
	}
	answer, err := game.PickCompound(ctx, d.deps.Lookup, d.deps.Candidates(), d.deps.Random(), d.cfg.CandidateLimit)
	if err != nil {
		log.Warn().Err(err).Msg("pick compound")
		return d.p.Respond(ctx, c.ID, msgTryLater, true)
	}
	p, err := d.compounds.Start(c.ChannelID, func() (*game.CompoundPuzzle, error) {
		if _, busy := d.kanji.Get(c.ChannelID); busy {
			return nil, store.ErrAlreadyActive
		}
		return game.NewCompoundPuzzle(answer, d.deps.Radicals, d.cfg.MaxGuesses)
	})
	if errors.Is(err, store.ErrAlreadyActive) {
		return d.p.Respond(ctx, c.ID, msgPuzzleRunning, true)
	}
	if err != nil {
		return err
	}
	log.Debug().Str("puzzle", p.ID).Str("channel", c.ChannelID).Msg("compound puzzle started")
	return d.p.Respond(ctx, c.ID, renderCompoundStart(p), false)
}

func (d *Dispatcher) cmdKanji(ctx context.Context, c Command) error {
	if d.puzzleRunning(c.ChannelID) {
		return d.p.Respond(ctx, c.ID, msgPuzzleRunning, true)
	}
	answer, err := game.PickCompound(ctx, d.deps.Lookup, d.deps.Candidates(), d.deps.Random(), d.cfg.CandidateLimit)
	if err != nil {
		log.Warn().Err(err).Msg("pick compound")
		return d.p.Respond(ctx, c.ID, msgTryLater, true)
	}
	p, err := d.kanji.Start(c.ChannelID, func() (*game.KanjiPuzzle, error) {
		if _, busy := d.compounds.Get(c.ChannelID); busy {
			return nil, store.ErrAlreadyActive
		}
		return game.NewKanjiPuzzle(answer, d.deps.Radicals, d.cfg.MaxGuesses)
	})
	if errors.Is(err, store.ErrAlreadyActive) {
		return d.p.Respond(ctx, c.ID, msgPuzzleRunning, true)
	}
	if err != nil {
		return err
	}
	return d.p.Respond(ctx, c.ID, renderKanjiStart(p), false)
}

// cmdGiveUp ends the caller's daily puzzle in this channel, or else the
// channel's shared puzzle, revealing the answer.
func (d *Dispatcher) cmdGiveUp(ctx context.Context, c Command) error {
	if s, ok := d.dailies.Get(c.UserID); ok && s.puzzle.ChannelID == c.ChannelID {
		s.puzzle.Close()
		if err := d.finishDaily(ctx, s, false, len(s.puzzle.Snapshot().Rows)); err != nil && !errors.Is(err, errStale) {
			log.Error().Err(err).Str("user", c.UserID).Msg("record daily result")
		}
		if err := d.refreshPublicDaily(ctx, s.puzzle); err != nil {
			log.Warn().Err(err).Msg("edit daily board")
		}
		a := s.puzzle.Answer()
		return d.p.Respond(ctx, c.ID, fmt.Sprintf("The answer was / 正解は **%s** (%s) %s", a.Word, a.Reading, a.Gloss), true)
	}
	if p, err := d.compounds.End(c.ChannelID); err == nil {
		p.Close()
		a := p.Answer()
		return d.p.Respond(ctx, c.ID, renderPuzzleEnd(game.StateLost, a.Word, a.Reading, a.Gloss, 0), false)
	}
	if p, err := d.kanji.End(c.ChannelID); err == nil {
		p.Close()
		a := p.Answer()
		return d.p.Respond(ctx, c.ID, renderPuzzleEnd(game.StateLost, a.Word, a.Reading, a.Gloss, 0), false)
	}
	return d.p.Respond(ctx, c.ID, "No puzzle is running. / パズルは進行していません。", true)
}

func (d *Dispatcher) cmdDaily(ctx context.Context, c Command) error {
	if d.deps.Daily == nil {
		return d.p.Respond(ctx, c.ID, msgUnavailable, true)
	}
	if s, ok := d.dailies.Get(c.UserID); ok {
		return d.p.Respond(ctx, c.ID, fmt.Sprintf("You already have a daily puzzle running in <#%s>.", s.puzzle.ChannelID), true)
	}
	date, answer, err := d.deps.Daily.Today(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("daily answer")
		return d.p.Respond(ctx, c.ID, msgTryLater, true)
	}
	if d.deps.DailyResults != nil {
		played, err := d.deps.DailyResults.AlreadyPlayed(ctx, c.UserID, date)
		if err != nil {
			return err
		}
		if played {
			return d.p.Respond(ctx, c.ID, "You already played today's puzzle! / 今日のパズルはもう遊びました！", true)
		}
	}

	s, err := d.dailies.Start(c.UserID, func() (*dailySession, error) {
		p, err := game.NewDailyPuzzle(answer, d.deps.Radicals, d.cfg.MaxGuesses, c.UserID, c.ChannelID, date)
		if err != nil {
			return nil, err
		}
		return &dailySession{puzzle: p, started: d.deps.Now()}, nil
	})
	if errors.Is(err, store.ErrAlreadyActive) {
		return d.p.Respond(ctx, c.ID, "You already have a daily puzzle running.", true)
	}
	if err != nil {
		return err
	}

	ref, err := d.p.Send(ctx, c.ChannelID, renderPublicDaily(s.puzzle.PublicView()))
	if err != nil {
		log.Warn().Err(err).Msg("post daily board")
	} else {
		s.puzzle.SetPublicRef(ref)
	}
	return d.p.Respond(ctx, c.ID, fmt.Sprintf("Daily puzzle %s started! Type two-kanji guesses in this channel; they are hidden and answered privately.\n今日のパズル開始！", date), true)
}

// ---- flashcards ----

func (d *Dispatcher) cmdAnkiSetup(ctx context.Context, c Command) error {
	if d.deps.Cards == nil {
		return d.p.Respond(ctx, c.ID, msgUnavailable, true)
	}
	tok, err := d.deps.Cards.IssueToken(ctx, c.UserID)
	if err != nil {
		return err
	}
	msg := "Your flashcard sync token (keep it secret):\n`" + tok + "`\nPaste it into the sync add-on. Issuing a new token revokes this one."
	if err := d.p.SendPrivate(ctx, c.UserID, msg); err != nil {
		return err
	}
	return d.p.Respond(ctx, c.ID, "Check your DMs! / DMを確認してください！", true)
}

// cmdAnkiAdd queues a card. With front and back arguments it is stored as
// given; with a word argument the dictionary fills in the back.
func (d *Dispatcher) cmdAnkiAdd(ctx context.Context, c Command) error {
	if d.deps.Cards == nil {
		return d.p.Respond(ctx, c.ID, msgUnavailable, true)
	}
	front := strings.TrimSpace(c.Args["front"])
	back := strings.TrimSpace(c.Args["back"])
	if word := kana.FoldWidth(strings.TrimSpace(c.Args["word"])); word != "" && back == "" {
		e, err := d.deps.Lookup.Lookup(ctx, word, 0)
		if err != nil {
			return d.p.Respond(ctx, c.ID, "Word not found in dictionary / 辞書に見つかりません: **"+word+"**", true)
		}
		front = e.Word
		back = e.Reading
		if e.Gloss != "" {
			back += "\n" + e.Gloss
		}
	}
	card, err := d.deps.Cards.Enqueue(ctx, c.UserID, front, back)
	if err != nil {
		return d.p.Respond(ctx, c.ID, "Card needs a front and a back. / 表と裏が必要です。", true)
	}
	return d.p.Respond(ctx, c.ID, "Added / 追加しました: **"+card.Front+"**", true)
}
