package store

import (
	"context"
	"errors"
	"log/slog"
	"strings"
)

const guestPrefix = "guest-user-"

// IsGuest reports whether a user id belongs to an unauthenticated visitor.
// Nothing is ever persisted for guests.
func IsGuest(userID string) bool {
	userID = strings.TrimSpace(userID)
	return userID == "" || strings.HasPrefix(userID, guestPrefix)
}

// Conversations gates every backend call behind the guest check and turns
// write failures into log lines so a chat reply is never blocked by storage.
type Conversations struct {
	backend Backend
	logger  *slog.Logger
}

func NewConversations(backend Backend, logger *slog.Logger) *Conversations {
	if logger == nil {
		logger = slog.Default()
	}
	return &Conversations{backend: backend, logger: logger}
}

func (c *Conversations) Enabled() bool {
	return c != nil && c.backend != nil
}

// Turn tracks the conversation a single chat exchange is written to.
type Turn struct {
	owner          *Conversations
	userID         string
	conversationID string
}

func (t Turn) ConversationID() string {
	return t.conversationID
}

func (t Turn) Persisting() bool {
	return t.owner.Enabled() && t.conversationID != ""
}

// StartTurn makes sure the conversation exists and stores the user's message.
// The returned Turn has no conversation id when nothing could be persisted.
func (c *Conversations) StartTurn(ctx context.Context, userID, mode, conversationID, userText string) Turn {
	turn := Turn{owner: c, userID: userID}
	if !c.Enabled() || IsGuest(userID) {
		return turn
	}

	conversationID = strings.TrimSpace(conversationID)
	if conversationID != "" {
		owned, err := c.owns(ctx, userID, conversationID)
		if err != nil {
			c.logger.Error("lookup conversation failed", "user_id", userID, "conversation_id", conversationID, "err", err)
			return turn
		}
		if !owned {
			c.logger.Warn("conversation not owned by user, starting a new one", "user_id", userID, "conversation_id", conversationID)
			conversationID = ""
		}
	}
	if conversationID == "" {
		created, err := c.backend.CreateConversation(ctx, userID, preview(userText), mode)
		if err != nil {
			c.logger.Error("create conversation failed", "user_id", userID, "mode", mode, "err", err)
			return turn
		}
		conversationID = created.ID
	}
	turn.conversationID = conversationID

	if err := c.backend.AppendMessage(ctx, conversationID, RoleUser, userText); err != nil {
		c.logger.Error("save user message failed", "user_id", userID, "conversation_id", conversationID, "err", err)
	}
	return turn
}

// SaveAssistant stores the assistant reply of the turn. Empty replies are skipped.
func (t Turn) SaveAssistant(ctx context.Context, text string) error {
	if !t.Persisting() || strings.TrimSpace(text) == "" {
		return nil
	}
	return t.owner.backend.AppendMessage(ctx, t.conversationID, RoleAssistant, text)
}

func (c *Conversations) List(ctx context.Context, userID string) ([]Conversation, error) {
	if !c.Enabled() || IsGuest(userID) {
		return []Conversation{}, nil
	}
	return c.backend.ListConversations(ctx, userID)
}

// Messages returns the history of a conversation owned by userID. A
// conversation of another user is reported as ErrNotFound.
func (c *Conversations) Messages(ctx context.Context, userID, conversationID string) ([]Message, error) {
	if !c.Enabled() || IsGuest(userID) {
		return nil, ErrNotFound
	}
	owned, err := c.owns(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}
	if !owned {
		return nil, ErrNotFound
	}
	return c.backend.ListMessages(ctx, conversationID)
}

// owns reports false for unknown conversations as well as foreign ones.
func (c *Conversations) owns(ctx context.Context, userID, conversationID string) (bool, error) {
	conv, err := c.backend.GetConversation(ctx, conversationID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return conv.UserID == userID, nil
}
