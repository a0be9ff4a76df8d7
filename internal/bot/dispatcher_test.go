package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/webutan/lain/internal/daily"
	"github.com/webutan/lain/internal/flashcard"
	"github.com/webutan/lain/internal/game"
	"github.com/webutan/lain/internal/lookup"
	"github.com/webutan/lain/internal/lookup/lookuptest"
	"github.com/webutan/lain/internal/radical"
	"github.com/webutan/lain/internal/results"
)

// ---- fakes ----

type call struct {
	Op        string
	Channel   string
	Target    string // message id, ref, user id or interaction id
	Text      string
	Ephemeral bool
}

type fakePlatform struct {
	mu    sync.Mutex
	calls []call
	refs  int
}

func (f *fakePlatform) add(c call) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
}

func (f *fakePlatform) Respond(_ context.Context, id, text string, eph bool) error {
	f.add(call{Op: "respond", Target: id, Text: text, Ephemeral: eph})
	return nil
}

func (f *fakePlatform) Reply(_ context.Context, ch, msg, text string) error {
	f.add(call{Op: "reply", Channel: ch, Target: msg, Text: text})
	return nil
}

func (f *fakePlatform) Send(_ context.Context, ch, text string) (string, error) {
	f.mu.Lock()
	f.refs++
	ref := fmt.Sprintf("ref-%d", f.refs)
	f.mu.Unlock()
	f.add(call{Op: "send", Channel: ch, Target: ref, Text: text})
	return ref, nil
}

func (f *fakePlatform) Edit(_ context.Context, ch, ref, text string) error {
	f.add(call{Op: "edit", Channel: ch, Target: ref, Text: text})
	return nil
}

func (f *fakePlatform) React(_ context.Context, ch, msg, emoji string) error {
	f.add(call{Op: "react", Channel: ch, Target: msg, Text: emoji})
	return nil
}

func (f *fakePlatform) Delete(_ context.Context, ch, msg string) error {
	f.add(call{Op: "delete", Channel: ch, Target: msg})
	return nil
}

func (f *fakePlatform) SendPrivate(_ context.Context, user, text string) error {
	f.add(call{Op: "dm", Target: user, Text: text})
	return nil
}

func (f *fakePlatform) ops(op string) []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []call
	for _, c := range f.calls {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakePlatform) last(t *testing.T, op string) call {
	t.Helper()
	cs := f.ops(op)
	require.NotEmpty(t, cs, "no %s call", op)
	return cs[len(cs)-1]
}

type fixedRand int

func (f fixedRand) IntN(n int) int {
	if int(f) >= n {
		return n - 1
	}
	return int(f)
}

type memResults struct {
	mu   sync.Mutex
	rows []results.Summary
}

func (m *memResults) Record(_ context.Context, s results.Summary) (results.Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = fmt.Sprint(len(m.rows) + 1)
	m.rows = append(m.rows, s)
	return s, nil
}

func (m *memResults) Recent(_ context.Context, channelID string, limit int) ([]results.Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []results.Summary
	for i := len(m.rows) - 1; i >= 0 && len(out) < limit; i-- {
		if m.rows[i].ChannelID == channelID {
			out = append(out, m.rows[i])
		}
	}
	return out, nil
}

type fixedDaily struct {
	date   string
	answer lookup.Entry
}

func (f fixedDaily) Today(context.Context) (string, lookup.Entry, error) {
	return f.date, f.answer, nil
}

type memDailyResults struct {
	mu   sync.Mutex
	rows []daily.Result
}

func (m *memDailyResults) AlreadyPlayed(_ context.Context, userID, date string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.UserID == userID && r.Date == date {
			return true, nil
		}
	}
	return false, nil
}

func (m *memDailyResults) InsertResult(_ context.Context, r daily.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = append(m.rows, r)
	return nil
}

type memCards struct {
	cards []flashcard.Card
}

func (m *memCards) IssueToken(_ context.Context, userID string) (string, error) {
	return userID + ".secret", nil
}

func (m *memCards) Enqueue(_ context.Context, userID, front, back string) (flashcard.Card, error) {
	if front == "" || back == "" {
		return flashcard.Card{}, flashcard.ErrEmptyCard
	}
	c := flashcard.Card{ID: fmt.Sprint(len(m.cards) + 1), Front: front, Back: back}
	m.cards = append(m.cards, c)
	return c, nil
}

// ---- fixture ----

const radicalData = `空 : 宀 儿 工 穴
港 : 氵 共 巳
気 : 气 乂
海 : 氵 毎
`

type fixture struct {
	d       *Dispatcher
	p       *fakePlatform
	dict    *lookuptest.Memory
	results *memResults
	dailies *memDailyResults
	cards   *memCards
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	idx, err := radical.Load(strings.NewReader(radicalData))
	require.NoError(t, err)
	f := &fixture{
		p: &fakePlatform{},
		dict: lookuptest.New(
			lookup.Entry{Word: "かさ", Reading: "かさ", Gloss: "umbrella"},
			lookup.Entry{Word: "さかな", Reading: "さかな", Gloss: "fish"},
			lookup.Entry{Word: "らいおん", Reading: "らいおん", Gloss: "lion"},
			lookup.Entry{Word: "傘", Reading: "かさ", Gloss: "umbrella"},
			lookup.Entry{Word: "空港", Reading: "くうこう", Gloss: "airport"},
			lookup.Entry{Word: "空気", Reading: "くうき", Gloss: "air"},
			lookup.Entry{Word: "海港", Reading: "かいこう", Gloss: "seaport"},
		),
		results: &memResults{},
		dailies: &memDailyResults{},
		cards:   &memCards{},
	}
	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	f.d = New(f.p, Deps{
		Lookup:       f.dict,
		Radicals:     idx,
		Candidates:   func() []rune { return []rune("空") },
		Daily:        fixedDaily{date: "2026-10-18", answer: lookup.Entry{Word: "空港", Reading: "くうこう", Gloss: "airport"}},
		DailyResults: f.dailies,
		Cards:        f.cards,
		Results:      f.results,
		Random:       func() game.Random { return fixedRand(0) },
		Now:          func() time.Time { now = now.Add(time.Second); return now },
	}, cfg)
	return f
}

func (f *fixture) cmd(t *testing.T, name, channel, user string, args map[string]string) {
	t.Helper()
	require.NoError(t, f.d.HandleCommand(context.Background(), Command{
		ID: "i-" + name, Name: name, ChannelID: channel, UserID: user, UserName: user, Args: args,
	}))
}

func (f *fixture) say(t *testing.T, id, channel, user, text string) {
	t.Helper()
	require.NoError(t, f.d.HandleMessage(context.Background(), Message{
		ID: id, ChannelID: channel, AuthorID: user, AuthorName: user, Content: text,
	}))
}

// ---- chain games ----

func TestVsComputerRound(t *testing.T) {
	f := newFixture(t, Config{Kana: []rune("か")})
	f.cmd(t, "shiritori1", "c1", "alice", nil)
	require.Contains(t, f.p.last(t, "respond").Text, "**か**")

	f.say(t, "m1", "c1", "alice", "かさ")
	require.Equal(t, ReactAccepted, f.p.last(t, "react").Text)
	require.Contains(t, f.p.last(t, "reply").Text, "かさ")
	bot := f.p.last(t, "send")
	require.Contains(t, bot.Text, "さかな")
	require.Contains(t, bot.Text, "**な**")
	require.Contains(t, bot.Text, "Chain: 2")
}

func TestSecondGameInChannelRefused(t *testing.T) {
	f := newFixture(t, Config{Kana: []rune("か")})
	f.cmd(t, "shiritori2", "c1", "alice", nil)
	f.cmd(t, "wordbasket", "c1", "bob", nil)

	r := f.p.last(t, "respond")
	require.True(t, r.Ephemeral)
	require.Contains(t, r.Text, "already running")
	require.Equal(t, 1, f.d.ActiveGames()["chain"])

	// Other channels are independent.
	f.cmd(t, "wordbasket", "c2", "bob", nil)
	require.Equal(t, 2, f.d.ActiveGames()["chain"])
}

func TestIgnoresBotsAndNonJapanese(t *testing.T) {
	f := newFixture(t, Config{Kana: []rune("か")})
	f.cmd(t, "shiritori2", "c1", "alice", nil)
	require.NoError(t, f.d.HandleMessage(context.Background(), Message{ID: "m1", ChannelID: "c1", AuthorID: "b", Content: "かさ", IsBot: true}))
	f.say(t, "m2", "c1", "alice", "hello there")
	require.Empty(t, f.p.ops("react"))
	require.Empty(t, f.p.ops("reply"))
}

func TestStartMismatchAndNotFound(t *testing.T) {
	f := newFixture(t, Config{Kana: []rune("か")})
	f.cmd(t, "shiritori2", "c1", "alice", nil)

	f.say(t, "m1", "c1", "alice", "さかな")
	require.Equal(t, ReactWrong, f.p.last(t, "react").Text)
	require.Contains(t, f.p.last(t, "reply").Text, "start with **か**")

	f.say(t, "m2", "c1", "alice", "かかかか")
	require.Equal(t, ReactNotFound, f.p.last(t, "react").Text)
}

func TestTerminalKanaEndsAndRecords(t *testing.T) {
	f := newFixture(t, Config{Kana: []rune("ら")})
	f.cmd(t, "shiritori2", "c1", "alice", nil)
	f.say(t, "m1", "c1", "alice", "らいおん")

	require.Equal(t, ReactDead, f.p.last(t, "react").Text)
	require.Contains(t, f.p.last(t, "reply").Text, "Final chain: 0")
	require.Zero(t, f.d.ActiveGames()["chain"])
	require.Len(t, f.results.rows, 1)
	require.Equal(t, string(game.OutcomeTerminalKana), f.results.rows[0].Reason)

	// The channel is free again.
	f.cmd(t, "shiritori2", "c1", "alice", nil)
	require.False(t, f.p.last(t, "respond").Ephemeral)
}

func TestEndGame(t *testing.T) {
	f := newFixture(t, Config{Kana: []rune("か")})
	f.cmd(t, "endgame", "c1", "alice", nil)
	require.True(t, f.p.last(t, "respond").Ephemeral)

	f.cmd(t, "shiritori2", "c1", "alice", nil)
	f.say(t, "m1", "c1", "alice", "かさ")
	f.cmd(t, "endgame", "c1", "alice", nil)

	r := f.p.last(t, "respond")
	require.Contains(t, r.Text, "Final chain: 1")
	require.Contains(t, r.Text, "<@alice>: 1 pts")
	require.Zero(t, f.d.ActiveGames()["chain"])
	require.Equal(t, "ended", f.results.rows[0].Reason)

	f.cmd(t, "history", "c1", "alice", nil)
	require.Contains(t, f.p.last(t, "respond").Text, "multiplayer")
}

func TestRateLimitDropsBurst(t *testing.T) {
	f := newFixture(t, Config{Kana: []rune("か"), RatePerSec: 0.001, RateBurst: 1})
	f.cmd(t, "shiritori2", "c1", "alice", nil)
	f.say(t, "m1", "c1", "alice", "かさ")
	f.say(t, "m2", "c1", "alice", "さかな")
	require.Len(t, f.p.ops("react"), 1)

	// Limits are per user.
	f.say(t, "m3", "c1", "bob", "さかな")
	require.Len(t, f.p.ops("react"), 2)
}

// ---- puzzles ----

func TestCompoundPuzzleInChannel(t *testing.T) {
	f := newFixture(t, Config{})
	f.cmd(t, "waaduru", "c1", "alice", nil)
	require.False(t, f.p.last(t, "respond").Ephemeral)
	require.Equal(t, 1, f.d.ActiveGames()["compound"])

	f.cmd(t, "kanji", "c1", "bob", nil)
	require.True(t, f.p.last(t, "respond").Ephemeral)

	f.say(t, "m1", "c1", "bob", "海港")
	require.Contains(t, f.p.last(t, "reply").Text, "🟧🟩 海港")

	f.say(t, "m2", "c1", "alice", "海港")
	require.Equal(t, ReactUsed, f.p.last(t, "react").Text)

	f.say(t, "m3", "c1", "alice", "空港")
	require.Contains(t, f.p.last(t, "reply").Text, "正解")
	require.Zero(t, f.d.ActiveGames()["compound"])
}

func TestKanjiPuzzleGiveUp(t *testing.T) {
	f := newFixture(t, Config{})
	f.cmd(t, "kanji", "c1", "alice", nil)
	start := f.p.last(t, "respond").Text
	require.Contains(t, start, "儿 宀 工 穴")
	require.Contains(t, start, "共 巳 氵")

	f.say(t, "m1", "c1", "bob", "空気")
	require.Contains(t, f.p.last(t, "reply").Text, "🟩⬜ 空気")

	f.cmd(t, "giveup", "c1", "bob", nil)
	require.Contains(t, f.p.last(t, "respond").Text, "空港")
	require.Zero(t, f.d.ActiveGames()["kanji"])
}

func TestDailyKeepsGuessesPrivate(t *testing.T) {
	f := newFixture(t, Config{})
	f.cmd(t, "waaduru_daily", "c1", "alice", nil)
	require.True(t, f.p.last(t, "respond").Ephemeral)
	board := f.p.last(t, "send")

	f.say(t, "m1", "c1", "alice", "空気")
	require.Equal(t, "m1", f.p.last(t, "delete").Target)
	dm := f.p.last(t, "dm")
	require.Equal(t, "alice", dm.Target)
	require.Contains(t, dm.Text, "空気")
	edit := f.p.last(t, "edit")
	require.Equal(t, board.Target, edit.Target)
	require.Contains(t, edit.Text, "🟩⬜")
	require.NotContains(t, edit.Text, "空")
	require.NotContains(t, edit.Text, "気")

	// Someone else's two-kanji message is left alone.
	f.say(t, "m2", "c1", "bob", "空港")
	require.Len(t, f.p.ops("delete"), 1)

	f.say(t, "m3", "c1", "alice", "空港")
	require.Contains(t, f.p.last(t, "dm").Text, "Solved in 2")
	require.Zero(t, f.d.ActiveGames()["daily"])
	require.Len(t, f.dailies.rows, 1)
	r := f.dailies.rows[0]
	require.Equal(t, "alice", r.UserID)
	require.Equal(t, "2026-10-18", r.Date)
	require.True(t, r.Solved)
	require.Equal(t, 2, r.Guesses)
	require.Positive(t, r.ElapsedMs)

	f.cmd(t, "waaduru_daily", "c1", "alice", nil)
	require.Contains(t, f.p.last(t, "respond").Text, "already played")
}

func TestDailyLeavesNonJapaneseChat(t *testing.T) {
	f := newFixture(t, Config{})
	f.cmd(t, "waaduru_daily", "c1", "alice", nil)
	f.say(t, "m1", "c1", "alice", "kuuki?")
	f.say(t, "m2", "c1", "alice", "good luck everyone")
	require.Empty(t, f.p.ops("delete"))
	require.Empty(t, f.p.ops("dm"))
	require.Equal(t, 1, f.d.ActiveGames()["daily"])

	f.say(t, "m3", "c1", "alice", "空気")
	require.Len(t, f.p.ops("delete"), 1)
}

func TestDailyRejectionIsPrivate(t *testing.T) {
	f := newFixture(t, Config{})
	f.cmd(t, "waaduru_daily", "c1", "alice", nil)
	f.say(t, "m1", "c1", "alice", "無無")
	require.Len(t, f.p.ops("delete"), 1)
	require.Contains(t, f.p.last(t, "dm").Text, "not found")
	require.Empty(t, f.p.ops("reply"))
	require.Empty(t, f.p.ops("edit"))
}

// ---- flashcards ----

func TestAnkiCommands(t *testing.T) {
	f := newFixture(t, Config{})
	f.cmd(t, "anki_setup", "c1", "alice", nil)
	require.Contains(t, f.p.last(t, "dm").Text, "alice.secret")

	f.cmd(t, "anki_add", "c1", "alice", map[string]string{"word": "傘"})
	require.Len(t, f.cards.cards, 1)
	require.Equal(t, "傘", f.cards.cards[0].Front)
	require.Equal(t, "かさ\numbrella", f.cards.cards[0].Back)

	f.cmd(t, "anki_add", "c1", "alice", map[string]string{"front": "犬", "back": "dog"})
	require.Len(t, f.cards.cards, 2)

	f.cmd(t, "anki_add", "c1", "alice", map[string]string{"front": "犬"})
	require.Len(t, f.cards.cards, 2)
	require.True(t, f.p.last(t, "respond").Ephemeral)
}
