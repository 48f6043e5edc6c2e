package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const maxErrorBodyBytes = 8 * 1024

// RESTStore talks to a Supabase project through its PostgREST gateway using
// the service role key.
type RESTStore struct {
	baseURL    string
	serviceKey string
	httpClient *http.Client
	now        func() time.Time
}

func NewRESTStore(supabaseURL, serviceKey string, httpClient *http.Client) RESTStore {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return RESTStore{
		baseURL:    strings.TrimRight(strings.TrimSpace(supabaseURL), "/") + "/rest/v1",
		serviceKey: strings.TrimSpace(serviceKey),
		httpClient: httpClient,
		now:        time.Now,
	}
}

type restConversation struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	Mode        string `json:"mode"`
	Title       string `json:"title"`
	LastMessage string `json:"last_message"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

func (c restConversation) toConversation() Conversation {
	return Conversation{
		ID:          c.ID,
		UserID:      c.UserID,
		Mode:        c.Mode,
		Title:       c.Title,
		LastMessage: c.LastMessage,
		CreatedAt:   parseTime(c.CreatedAt),
		UpdatedAt:   parseTime(c.UpdatedAt),
	}
}

type restMessage struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversation_id"`
	Role           string `json:"role"`
	Content        string `json:"content"`
	CreatedAt      string `json:"created_at"`
}

func (s RESTStore) CreateConversation(ctx context.Context, userID, title, mode string) (Conversation, error) {
	var created []restConversation
	err := s.do(ctx, http.MethodPost, "/conversations", nil, map[string]string{
		"user_id": userID,
		"title":   fallback(title, defaultTitle),
		"mode":    mode,
	}, &created)
	if err != nil {
		return Conversation{}, fmt.Errorf("create conversation: %w", err)
	}
	if len(created) == 0 {
		return Conversation{}, fmt.Errorf("create conversation: empty response")
	}
	return created[0].toConversation(), nil
}

func (s RESTStore) GetConversation(ctx context.Context, conversationID string) (Conversation, error) {
	var rows []restConversation
	query := url.Values{
		"select": {"*"},
		"id":     {"eq." + conversationID},
		"limit":  {"1"},
	}
	if err := s.do(ctx, http.MethodGet, "/conversations", query, nil, &rows); err != nil {
		return Conversation{}, fmt.Errorf("get conversation: %w", err)
	}
	if len(rows) == 0 {
		return Conversation{}, ErrNotFound
	}
	return rows[0].toConversation(), nil
}

func (s RESTStore) AppendMessage(ctx context.Context, conversationID, role, content string) error {
	stored := content
	if role == RoleAssistant {
		stored = EscapeContent(content)
	}
	if err := s.do(ctx, http.MethodPost, "/messages", nil, map[string]string{
		"conversation_id": conversationID,
		"role":            role,
		"content":         stored,
	}, nil); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	filter := url.Values{"id": {"eq." + conversationID}}
	if err := s.do(ctx, http.MethodPatch, "/conversations", filter, map[string]string{
		"last_message": preview(content),
		"updated_at":   formatTime(s.now()),
	}, nil); err != nil {
		return fmt.Errorf("update conversation preview: %w", err)
	}
	return nil
}

func (s RESTStore) ListConversations(ctx context.Context, userID string) ([]Conversation, error) {
	var rows []restConversation
	query := url.Values{
		"select":  {"*"},
		"user_id": {"eq." + userID},
		"order":   {"updated_at.desc"},
	}
	if err := s.do(ctx, http.MethodGet, "/conversations", query, nil, &rows); err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	out := make([]Conversation, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toConversation())
	}
	return out, nil
}

// ListMessages returns ErrNotFound for an unknown conversation rather than
// an empty history, matching SQLStore.
func (s RESTStore) ListMessages(ctx context.Context, conversationID string) ([]Message, error) {
	if _, err := s.GetConversation(ctx, conversationID); err != nil {
		return nil, err
	}

	var rows []restMessage
	query := url.Values{
		"select":          {"*"},
		"conversation_id": {"eq." + conversationID},
		"order":           {"created_at.asc"},
	}
	if err := s.do(ctx, http.MethodGet, "/messages", query, nil, &rows); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	out := make([]Message, 0, len(rows))
	for _, row := range rows {
		content := row.Content
		if row.Role == RoleAssistant {
			content = UnescapeContent(content)
		}
		out = append(out, Message{
			ID:             row.ID,
			ConversationID: row.ConversationID,
			Role:           row.Role,
			Content:        content,
			CreatedAt:      parseTime(row.CreatedAt),
		})
	}
	return out, nil
}

func (s RESTStore) do(ctx context.Context, method, path string, query url.Values, body any, target any) error {
	endpoint := s.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("apikey", s.serviceKey)
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if target != nil && method != http.MethodGet {
		req.Header.Set("Prefer", "return=representation")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request supabase: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return fmt.Errorf("supabase returned %d: %s", resp.StatusCode, strings.TrimSpace(string(excerpt)))
	}
	if target == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decode supabase response: %w", err)
	}
	return nil
}
