// internal/bot/platform.go
//
// Boundary between the dispatcher and the chat platform.
//   - Message / Command: inbound events, already decoded by the transport.
//   - Platform: outbound actions the dispatcher performs.
//
// Message ids, channel ids and user ids are opaque strings chosen by the
// platform. Send returns an opaque reference usable with Edit.

package bot

import "context"

// Message is a chat message posted in a channel.
type Message struct {
	ID         string `json:"id"`
	ChannelID  string `json:"channelId"`
	AuthorID   string `json:"authorId"`
	AuthorName string `json:"authorName"`
	Content    string `json:"content"`
	IsBot      bool   `json:"isBot"`
}

// Command is a slash-command invocation.
type Command struct {
	ID        string            `json:"id"` // interaction id, used to respond
	Name      string            `json:"name"`
	ChannelID string            `json:"channelId"`
	UserID    string            `json:"userId"`
	UserName  string            `json:"userName"`
	Args      map[string]string `json:"args,omitempty"`
}

// Platform performs outbound chat actions.
type Platform interface {
	// Respond answers a command. Ephemeral responses are visible to the invoker only.
	Respond(ctx context.Context, interactionID, text string, ephemeral bool) error
	Reply(ctx context.Context, channelID, messageID, text string) error
	Send(ctx context.Context, channelID, text string) (string, error)
	Edit(ctx context.Context, channelID, messageRef, text string) error
	React(ctx context.Context, channelID, messageID, emoji string) error
	Delete(ctx context.Context, channelID, messageID string) error
	SendPrivate(ctx context.Context, userID, text string) error
}

// Reactions used on chain game messages.
const (
	ReactAccepted = "✅"
	ReactNotFound = "❓"
	ReactWrong    = "❌"
	ReactUsed     = "🔄"
	ReactDead     = "💀"
	ReactBusy     = "⏳"
)
