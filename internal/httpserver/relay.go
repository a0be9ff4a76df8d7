// internal/httpserver/relay.go
//
// WebSocket relay between the chat gateway and the dispatcher.
// Responsibilities:
//   - Accept one gateway connection at a time (a new one replaces the old).
//   - Hand inbound event frames (message, command) to the EventHandler.
//   - Implement bot.Platform: each outbound action is a frame with a nonce,
//     and the caller waits for the gateway's ack carrying the same nonce.
//
// Frames are JSON text messages. Pings keep idle connections alive.

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog/log"

	"github.com/webutan/lain/internal/bot"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxFrame   = 64 << 10
)

var (
	// ErrNoGateway is returned by platform actions while no gateway is connected.
	ErrNoGateway = errors.New("relay: no gateway connected")
	// ErrAckTimeout is returned when the gateway does not ack an action in time.
	ErrAckTimeout = errors.New("relay: ack timeout")
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The gateway is a server process, not a browser; auth is the relay JWT.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// EventHandler consumes inbound chat events.
type EventHandler interface {
	HandleMessage(ctx context.Context, m bot.Message) error
	HandleCommand(ctx context.Context, c bot.Command) error
}

// frame is the envelope for every relay message.
type frame struct {
	Type  string `json:"type"` // message | command | action | ack
	Nonce string `json:"nonce,omitempty"`

	Message *bot.Message `json:"message,omitempty"`
	Command *bot.Command `json:"command,omitempty"`

	// action fields
	Op        string `json:"op,omitempty"` // respond | reply | send | edit | react | delete | dm
	ChannelID string `json:"channelId,omitempty"`
	Target    string `json:"target,omitempty"` // message id, message ref, user id or interaction id
	Text      string `json:"text,omitempty"`
	Ephemeral bool   `json:"ephemeral,omitempty"`

	// ack fields
	Ref   string `json:"ref,omitempty"`
	Error string `json:"error,omitempty"`
}

// dispatchEvent routes one inbound event frame to h.
func dispatchEvent(ctx context.Context, h EventHandler, f frame) error {
	switch {
	case f.Type == "message" && f.Message != nil:
		return h.HandleMessage(ctx, *f.Message)
	case f.Type == "command" && f.Command != nil:
		return h.HandleCommand(ctx, *f.Command)
	}
	return fmt.Errorf("unknown event type %q", f.Type)
}

type relayConn struct {
	ws   *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func (c *relayConn) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.ws.Close()
	})
}

// Relay bridges a gateway websocket and the dispatcher.
type Relay struct {
	ackTimeout   time.Duration
	eventTimeout time.Duration

	mu      sync.Mutex // guards handler, conn, pending
	handler EventHandler
	conn    *relayConn
	pending map[string]chan frame
}

// NewRelay returns a Relay waiting up to ackTimeout for each action ack.
func NewRelay(ackTimeout time.Duration) *Relay {
	if ackTimeout <= 0 {
		ackTimeout = 5 * time.Second
	}
	return &Relay{
		ackTimeout:   ackTimeout,
		eventTimeout: 30 * time.Second,
		pending:      make(map[string]chan frame),
	}
}

// Bind sets the handler for inbound events.
func (r *Relay) Bind(h EventHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handler = h
}

// Connected reports whether a gateway is attached.
func (r *Relay) Connected() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.conn != nil
}

// ServeWS upgrades the request and serves the gateway until it disconnects.
func (r *Relay) ServeWS(w http.ResponseWriter, req *http.Request) {
	ws, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		log.Warn().Err(err).Msg("relay upgrade")
		return
	}
	c := &relayConn{ws: ws, send: make(chan []byte, 64), done: make(chan struct{})}

	r.mu.Lock()
	old := r.conn
	r.conn = c
	r.mu.Unlock()
	if old != nil {
		old.close()
	}
	log.Info().Str("relay", relayName(req)).Msg("gateway connected")

	go r.writePump(c)
	r.readPump(c)

	r.mu.Lock()
	if r.conn == c {
		r.conn = nil
	}
	r.mu.Unlock()
	c.close()
	log.Info().Str("relay", relayName(req)).Msg("gateway disconnected")
}

func (r *Relay) readPump(c *relayConn) {
	c.ws.SetReadLimit(maxFrame)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		var f frame
		if err := c.ws.ReadJSON(&f); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Msg("relay read")
			}
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))

		if f.Type == "ack" {
			r.deliverAck(f)
			continue
		}
		r.mu.Lock()
		h := r.handler
		r.mu.Unlock()
		if h == nil {
			log.Warn().Str("type", f.Type).Msg("relay event dropped: no handler")
			continue
		}
		go func(f frame) {
			ctx, cancel := context.WithTimeout(context.Background(), r.eventTimeout)
			defer cancel()
			if err := dispatchEvent(ctx, h, f); err != nil {
				log.Error().Err(err).Str("type", f.Type).Msg("relay event")
			}
		}(f)
	}
}

func (r *Relay) writePump(c *relayConn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case msg := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.close()
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		case <-c.done:
			return
		}
	}
}

func (r *Relay) deliverAck(f frame) {
	r.mu.Lock()
	ch, ok := r.pending[f.Nonce]
	delete(r.pending, f.Nonce)
	r.mu.Unlock()
	if !ok {
		log.Debug().Str("nonce", f.Nonce).Msg("relay ack for unknown nonce")
		return
	}
	ch <- f
}

// do sends an action frame and waits for its ack.
func (r *Relay) do(ctx context.Context, f frame) (frame, error) {
	f.Type = "action"
	f.Nonce = ulid.Make().String()
	b, err := json.Marshal(f)
	if err != nil {
		return frame{}, err
	}
	ack := make(chan frame, 1)

	r.mu.Lock()
	c := r.conn
	if c == nil {
		r.mu.Unlock()
		return frame{}, ErrNoGateway
	}
	r.pending[f.Nonce] = ack
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		delete(r.pending, f.Nonce)
		r.mu.Unlock()
	}()

	timer := time.NewTimer(r.ackTimeout)
	defer timer.Stop()
	select {
	case c.send <- b:
	case <-c.done:
		return frame{}, ErrNoGateway
	case <-ctx.Done():
		return frame{}, ctx.Err()
	}
	select {
	case a := <-ack:
		if a.Error != "" {
			return a, fmt.Errorf("relay %s: %s", f.Op, a.Error)
		}
		return a, nil
	case <-c.done:
		return frame{}, ErrNoGateway
	case <-timer.C:
		return frame{}, ErrAckTimeout
	case <-ctx.Done():
		return frame{}, ctx.Err()
	}
}

// ---- bot.Platform ----

var _ bot.Platform = (*Relay)(nil)

func (r *Relay) Respond(ctx context.Context, interactionID, text string, ephemeral bool) error {
	_, err := r.do(ctx, frame{Op: "respond", Target: interactionID, Text: text, Ephemeral: ephemeral})
	return err
}

func (r *Relay) Reply(ctx context.Context, channelID, messageID, text string) error {
	_, err := r.do(ctx, frame{Op: "reply", ChannelID: channelID, Target: messageID, Text: text})
	return err
}

func (r *Relay) Send(ctx context.Context, channelID, text string) (string, error) {
	a, err := r.do(ctx, frame{Op: "send", ChannelID: channelID, Text: text})
	return a.Ref, err
}

func (r *Relay) Edit(ctx context.Context, channelID, messageRef, text string) error {
	_, err := r.do(ctx, frame{Op: "edit", ChannelID: channelID, Target: messageRef, Text: text})
	return err
}

func (r *Relay) React(ctx context.Context, channelID, messageID, emoji string) error {
	_, err := r.do(ctx, frame{Op: "react", ChannelID: channelID, Target: messageID, Text: emoji})
	return err
}

func (r *Relay) Delete(ctx context.Context, channelID, messageID string) error {
	_, err := r.do(ctx, frame{Op: "delete", ChannelID: channelID, Target: messageID})
	return err
}

func (r *Relay) SendPrivate(ctx context.Context, userID, text string) error {
	_, err := r.do(ctx, frame{Op: "dm", Target: userID, Text: text})
	return err
}
