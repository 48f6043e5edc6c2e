package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type SQLStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLStore(db *sql.DB) SQLStore {
	return SQLStore{db: db, now: time.Now}
}

func (s SQLStore) CreateConversation(ctx context.Context, userID, title, mode string) (Conversation, error) {
	now := s.now()
	out := Conversation{
		ID:        uuid.NewString(),
		UserID:    userID,
		Mode:      mode,
		Title:     fallback(title, defaultTitle),
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}

	query := `
INSERT INTO conversations (id, user_id, mode, title, last_message, created_at, updated_at)
VALUES (?, ?, ?, ?, '', ?, ?);
`
	if _, err := s.db.ExecContext(ctx, query, out.ID, out.UserID, out.Mode, out.Title, formatTime(now), formatTime(now)); err != nil {
		return Conversation{}, fmt.Errorf("create conversation: %w", err)
	}
	return out, nil
}

func (s SQLStore) GetConversation(ctx context.Context, conversationID string) (Conversation, error) {
	var (
		c                    Conversation
		createdAt, updatedAt string
	)
	err := s.db.QueryRowContext(ctx, `
SELECT id, user_id, mode, title, last_message, created_at, updated_at
FROM conversations
WHERE id = ?;
`, conversationID).Scan(&c.ID, &c.UserID, &c.Mode, &c.Title, &c.LastMessage, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Conversation{}, ErrNotFound
	}
	if err != nil {
		return Conversation{}, fmt.Errorf("get conversation: %w", err)
	}
	c.CreatedAt, c.UpdatedAt = parseTime(createdAt), parseTime(updatedAt)
	return c, nil
}

// AppendMessage inserts the message and bumps the conversation preview in one transaction.
func (s SQLStore) AppendMessage(ctx context.Context, conversationID, role, content string) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin append message: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := formatTime(s.now())
	res, err := tx.ExecContext(ctx, `
UPDATE conversations SET last_message = ?, updated_at = ? WHERE id = ?;
`, preview(content), now, conversationID)
	if err != nil {
		return fmt.Errorf("update conversation preview: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	stored := content
	if role == RoleAssistant {
		stored = EscapeContent(content)
	}
	if _, err = tx.ExecContext(ctx, `
INSERT INTO messages (id, conversation_id, role, content, created_at) VALUES (?, ?, ?, ?, ?);
`, uuid.NewString(), conversationID, role, stored, now); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit append message: %w", err)
	}
	return nil
}

func (s SQLStore) ListConversations(ctx context.Context, userID string) ([]Conversation, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT id, user_id, mode, title, last_message, created_at, updated_at
FROM conversations
WHERE user_id = ?
ORDER BY updated_at DESC;
`, userID)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	conversations := make([]Conversation, 0, 16)
	for rows.Next() {
		var (
			c                    Conversation
			createdAt, updatedAt string
		)
		if err := rows.Scan(&c.ID, &c.UserID, &c.Mode, &c.Title, &c.LastMessage, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		c.CreatedAt, c.UpdatedAt = parseTime(createdAt), parseTime(updatedAt)
		conversations = append(conversations, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversations: %w", err)
	}
	return conversations, nil
}

func (s SQLStore) ListMessages(ctx context.Context, conversationID string) ([]Message, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM conversations WHERE id = ?;`, conversationID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup conversation: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT id, conversation_id, role, content, created_at
FROM messages
WHERE conversation_id = ?
ORDER BY created_at ASC, rowid ASC;
`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	messages := make([]Message, 0, 32)
	for rows.Next() {
		var (
			m         Message
			createdAt string
		)
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if m.Role == RoleAssistant {
			m.Content = UnescapeContent(m.Content)
		}
		m.CreatedAt = parseTime(createdAt)
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return messages, nil
}

func fallback(value, other string) string {
	if strings.TrimSpace(value) == "" {
		return other
	}
	return strings.TrimSpace(value)
}
