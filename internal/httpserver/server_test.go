package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/webutan/lain/internal/bot"
	"github.com/webutan/lain/internal/daily"
	"github.com/webutan/lain/internal/db/dbtest"
	"github.com/webutan/lain/internal/flashcard"
)

const testSecret = "0123456789abcdef-test"

type recorder struct {
	mu       sync.Mutex
	messages []bot.Message
	commands []bot.Command
	got      chan struct{}
}

func newRecorder() *recorder { return &recorder{got: make(chan struct{}, 16)} }

func (r *recorder) HandleMessage(_ context.Context, m bot.Message) error {
	r.mu.Lock()
	r.messages = append(r.messages, m)
	r.mu.Unlock()
	r.got <- struct{}{}
	return nil
}

func (r *recorder) HandleCommand(_ context.Context, c bot.Command) error {
	r.mu.Lock()
	r.commands = append(r.commands, c)
	r.mu.Unlock()
	r.got <- struct{}{}
	return nil
}

type fixture struct {
	srv   *Server
	rec   *recorder
	cards *flashcard.Queue
	daily *daily.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := dbtest.Open(t)
	f := &fixture{rec: newRecorder(), cards: flashcard.NewQueue(conn), daily: daily.NewStore(conn)}
	relay := NewRelay(2 * time.Second)
	relay.Bind(f.rec)
	f.srv = New(Options{
		Events:      f.rec,
		Relay:       relay,
		Cards:       f.cards,
		Daily:       f.daily,
		Today:       func() string { return "2026-10-18" },
		Games:       func() map[string]int { return map[string]int{"chain": 1} },
		RelaySecret: testSecret,
	})
	return f
}

func (f *fixture) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.srv.Router().ServeHTTP(w, req)
	return w
}

func relayToken(t *testing.T) string {
	t.Helper()
	tok, err := SignRelayToken(testSecret, "gateway", time.Hour)
	require.NoError(t, err)
	return tok
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Header().Get("Content-Type"), "application/json")
	var body struct {
		OK    bool           `json:"ok"`
		Relay bool           `json:"relay"`
		Games map[string]int `json:"games"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.True(t, body.OK)
	require.False(t, body.Relay)
	require.Equal(t, 1, body.Games["chain"])

	w = f.do(t, http.MethodGet, "/nope", "", "")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestEventsAuth(t *testing.T) {
	f := newFixture(t)
	ev := `{"type":"message","message":{"id":"m1","channelId":"c1","authorId":"u1","content":"かさ"}}`

	require.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodPost, "/events", "", ev).Code)
	require.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodPost, "/events", "garbage", ev).Code)

	other, err := SignRelayToken("another-secret-entirely", "gateway", time.Hour)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodPost, "/events", other, ev).Code)

	forever, err := SignRelayToken(testSecret, "gateway", -time.Hour)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/events", forever, ev).Code, "non-positive ttl never expires")

	w := f.do(t, http.MethodPost, "/events", relayToken(t), ev)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, f.rec.messages, 2)
	require.Equal(t, "かさ", f.rec.messages[1].Content)
}

func TestEventsValidation(t *testing.T) {
	f := newFixture(t)
	tok := relayToken(t)
	require.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/events", tok, `{`).Code)
	require.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/events", tok, `{"type":"message"}`).Code)
	require.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/events", tok, `{"type":"other"}`).Code)

	w := f.do(t, http.MethodPost, "/events", tok, `{"type":"command","command":{"id":"i1","name":"ping","channelId":"c1","userId":"u1"}}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "ping", f.rec.commands[0].Name)
}

func TestLeaderboard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.daily.InsertResult(ctx, daily.Result{UserID: "slow", Date: "2026-10-18", Answer: "空港", Guesses: 3, Solved: true, ElapsedMs: 9000}))
	require.NoError(t, f.daily.InsertResult(ctx, daily.Result{UserID: "fast", Date: "2026-10-18", Answer: "空港", Guesses: 3, Solved: true, ElapsedMs: 1000}))
	require.NoError(t, f.daily.InsertResult(ctx, daily.Result{UserID: "lost", Date: "2026-10-18", Answer: "空港", Guesses: 5, ElapsedMs: 1}))

	w := f.do(t, http.MethodGet, "/daily/leaderboard", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var res lbRes
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.Equal(t, "2026-10-18", res.Date)
	require.Len(t, res.Top, 3)
	require.Equal(t, []string{"fast", "slow", "lost"}, []string{res.Top[0].UserID, res.Top[1].UserID, res.Top[2].UserID})

	w = f.do(t, http.MethodGet, "/daily/leaderboard?date=2026-10-17", "", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.Empty(t, res.Top)

	require.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/daily/leaderboard?date=yesterday", "", "").Code)
}

func TestSyncFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tok, err := f.cards.IssueToken(ctx, "u1")
	require.NoError(t, err)
	_, err = f.cards.Enqueue(ctx, "u1", "傘", "かさ")
	require.NoError(t, err)
	_, err = f.cards.Enqueue(ctx, "u1", "魚", "さかな")
	require.NoError(t, err)

	require.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/anki/cards", "u1.wrong", "").Code)
	require.Equal(t, http.StatusUnauthorized, f.do(t, http.MethodGet, "/anki/ping", "", "").Code)

	w := f.do(t, http.MethodGet, "/anki/ping", tok, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"ok":true,"pending":2}`, w.Body.String())

	// The add-on passes the token as a query parameter.
	w = f.do(t, http.MethodGet, "/anki/cards?token="+tok, "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var res cardsRes
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.Len(t, res.Cards, 2)
	require.Equal(t, "傘", res.Cards[0].Front)

	body, _ := json.Marshal(confirmReq{CardIDs: []string{res.Cards[0].ID, "unknown"}})
	w = f.do(t, http.MethodPost, "/anki/confirm?token="+tok, "", string(body))
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"ok":true,"confirmed":1}`, w.Body.String())

	w = f.do(t, http.MethodGet, "/anki/cards", tok, "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.Len(t, res.Cards, 1)
	require.Equal(t, "魚", res.Cards[0].Front)
}

// ---- relay ----

func dialRelay(t *testing.T, ts *httptest.Server, tok string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	u := "ws" + strings.TrimPrefix(ts.URL, "http") + "/relay/ws"
	h := http.Header{}
	if tok != "" {
		h.Set("Authorization", "Bearer "+tok)
	}
	return websocket.DefaultDialer.Dial(u, h)
}

func TestRelayRequiresToken(t *testing.T) {
	f := newFixture(t)
	ts := httptest.NewServer(f.srv.Router())
	defer ts.Close()

	_, resp, err := dialRelay(t, ts, "")
	require.Error(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRelayRoundTrip(t *testing.T) {
	f := newFixture(t)
	ts := httptest.NewServer(f.srv.Router())
	defer ts.Close()

	relay := f.srv.opts.Relay
	_, err := relay.Send(context.Background(), "c1", "hi")
	require.ErrorIs(t, err, ErrNoGateway)

	conn, _, err := dialRelay(t, ts, relayToken(t))
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, relay.Connected, 2*time.Second, 10*time.Millisecond)

	// inbound event
	require.NoError(t, conn.WriteJSON(frame{Type: "command", Command: &bot.Command{ID: "i1", Name: "ping"}}))
	select {
	case <-f.rec.got:
	case <-time.After(2 * time.Second):
		t.Fatal("event not dispatched")
	}

	// outbound action acked with a ref
	type result struct {
		ref string
		err error
	}
	done := make(chan result, 1)
	go func() {
		ref, err := relay.Send(context.Background(), "c1", "board")
		done <- result{ref, err}
	}()
	var act frame
	require.NoError(t, conn.ReadJSON(&act))
	require.Equal(t, "action", act.Type)
	require.Equal(t, "send", act.Op)
	require.Equal(t, "c1", act.ChannelID)
	require.Equal(t, "board", act.Text)
	require.NotEmpty(t, act.Nonce)
	require.NoError(t, conn.WriteJSON(frame{Type: "ack", Nonce: act.Nonce, Ref: "msg-42"}))

	res := <-done
	require.NoError(t, res.err)
	require.Equal(t, "msg-42", res.ref)

	// gateway-side failure surfaces as an error
	errc := make(chan error, 1)
	go func() { errc <- relay.Delete(context.Background(), "c1", "m1") }()
	require.NoError(t, conn.ReadJSON(&act))
	require.Equal(t, "delete", act.Op)
	require.NoError(t, conn.WriteJSON(frame{Type: "ack", Nonce: act.Nonce, Error: "missing permissions"}))
	require.ErrorContains(t, <-errc, "missing permissions")
}

func TestRelayAckTimeout(t *testing.T) {
	f := newFixture(t)
	f.srv.opts.Relay.ackTimeout = 50 * time.Millisecond
	ts := httptest.NewServer(f.srv.Router())
	defer ts.Close()

	conn, _, err := dialRelay(t, ts, relayToken(t))
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, f.srv.opts.Relay.Connected, 2*time.Second, 10*time.Millisecond)

	err = f.srv.opts.Relay.React(context.Background(), "c1", "m1", "✅")
	require.ErrorIs(t, err, ErrAckTimeout)
}
