package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"oneai/backend/internal/chunkstream"
	"oneai/backend/internal/providers"
)

const anthropicVersion = "2023-06-01"

type Claude struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewClaude(apiKey, baseURL string, httpClient *http.Client) *Claude {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Claude{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: httpClient,
	}
}

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeAPIRequest struct {
	Model       string          `json:"model"`
	System      string          `json:"system,omitempty"`
	Messages    []claudeMessage `json:"messages"`
	MaxTokens   int             `json:"max_tokens"`
	Temperature float32         `json:"temperature"`
	Stream      bool            `json:"stream"`
}

type claudeEvent struct {
	Type    string `json:"type"`
	Message struct {
		Usage struct {
			InputTokens int `json:"input_tokens"`
		} `json:"usage"`
	} `json:"message"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
	Usage struct {
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Claude) Stream(ctx context.Context, req Request) (io.ReadCloser, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	messages := make([]claudeMessage, 0, len(req.Messages))
	for _, msg := range req.Messages {
		role := RoleUser
		if msg.Role == RoleAssistant {
			role = RoleAssistant
		}
		messages = append(messages, claudeMessage{Role: role, Content: msg.Content})
	}

	body, err := postStream(ctx, c.httpClient, providers.Claude, c.baseURL+"/messages",
		map[string]string{"x-api-key": c.apiKey, "anthropic-version": anthropicVersion},
		claudeAPIRequest{
			Model:       req.Model,
			System:      req.System,
			Messages:    messages,
			MaxTokens:   req.MaxTokens,
			Temperature: req.Temperature,
			Stream:      true,
		},
	)
	if err != nil {
		return nil, err
	}
	return newReader(&claudeSource{events: newEventScanner(providers.Claude, body)}, req), nil
}

type claudeSource struct {
	events    *eventScanner
	usage     chunkstream.Usage
	sawUsage  bool
	completed bool
}

func (s *claudeSource) Next() (string, error) {
	if s.completed {
		return "", io.EOF
	}
	for {
		payload, err := s.events.next()
		if err != nil {
			return "", err
		}

		var event claudeEvent
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			continue
		}
		switch event.Type {
		case "message_start":
			s.usage.PromptTokens = event.Message.Usage.InputTokens
			s.sawUsage = true
		case "content_block_delta":
			if event.Delta.Text != "" {
				return event.Delta.Text, nil
			}
		case "message_delta":
			s.usage.CompletionTokens = event.Usage.OutputTokens
			s.sawUsage = true
		case "message_stop":
			s.completed = true
			return "", io.EOF
		case "error":
			msg := strings.TrimSpace(event.Error.Message)
			if msg == "" {
				msg = "claude stream error"
			}
			return "", errors.New(msg)
		}
	}
}

func (s *claudeSource) Usage() (chunkstream.Usage, bool) {
	return s.usage, s.sawUsage
}

func (s *claudeSource) Close() error {
	return s.events.Close()
}
