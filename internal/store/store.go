// Package store persists conversations and their messages. Two backends are
// available: SQL (libsql/Turso or local SQLite) and Supabase's REST gateway.
package store

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

var ErrNotFound = errors.New("conversation not found")

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"

	previewRunes = 100
	defaultTitle = "New Chat"
)

// timeLayout keeps stored timestamps lexically sortable.
const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

type Conversation struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Mode        string    `json:"mode"`
	Title       string    `json:"title"`
	LastMessage string    `json:"last_message"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// Backend is the storage contract shared by SQLStore and RESTStore.
type Backend interface {
	CreateConversation(ctx context.Context, userID, title, mode string) (Conversation, error)
	GetConversation(ctx context.Context, conversationID string) (Conversation, error)
	AppendMessage(ctx context.Context, conversationID, role, content string) error
	ListConversations(ctx context.Context, userID string) ([]Conversation, error)
	ListMessages(ctx context.Context, conversationID string) ([]Message, error)
}

// EscapeContent encodes line breaks of assistant replies the way they are
// stored; UnescapeContent reverses it on read. Backslashes are doubled so a
// literal `\n` in a reply survives the round trip. Both replacers make a
// single left-to-right pass, so an escaped backslash is never reread.
var (
	contentEscaper   = strings.NewReplacer(`\`, `\\`, "\n", `\n`, "\r", `\r`)
	contentUnescaper = strings.NewReplacer(`\\`, `\`, `\n`, "\n", `\r`, "\r")
)

func EscapeContent(content string) string {
	return contentEscaper.Replace(content)
}

func UnescapeContent(content string) string {
	return contentUnescaper.Replace(content)
}

func preview(text string) string {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) <= previewRunes {
		return text
	}
	return string([]rune(text)[:previewRunes])
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(raw string) time.Time {
	for _, layout := range []string{timeLayout, time.RFC3339Nano, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}
