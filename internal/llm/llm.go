// Package llm talks to the upstream model vendors. Every client returns its
// reply already encoded in the chunk protocol so the relay can forward the
// bytes verbatim.
package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"oneai/backend/internal/chunkstream"
	"oneai/backend/internal/config"
	"oneai/backend/internal/providers"
	"oneai/backend/internal/tokens"
)

const maxErrorBodyBytes = 8 * 1024

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

var ErrMissingAPIKey = errors.New("provider api key is not configured")

type Message struct {
	Role    string
	Content string
}

// Media is a base64 payload sent as a binary part by providers that accept one.
type Media struct {
	MIMEType string
	Data     string
}

type Request struct {
	Model       string
	System      string
	Messages    []Message
	Media       []Media
	Temperature float32
	MaxTokens   int
}

func (r Request) validate() error {
	if strings.TrimSpace(r.Model) == "" {
		return errors.New("model is required")
	}
	if len(r.Messages) == 0 {
		return errors.New("messages are required")
	}
	return nil
}

// promptTokens is the local estimate used when the vendor reports no usage.
func (r Request) promptTokens() int {
	total := tokens.Count(r.System)
	for _, msg := range r.Messages {
		total += tokens.Count(msg.Content)
	}
	return total
}

// Client opens one streamed completion. Vendor HTTP failures are reported by
// Stream itself, before any byte of the reply is available.
type Client interface {
	Stream(ctx context.Context, req Request) (io.ReadCloser, error)
}

type APIError struct {
	Provider   providers.ID
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s returned %d: %s", e.Provider, e.StatusCode, e.Body)
}

// Clients holds one client per configured provider.
type Clients map[providers.ID]Client

func NewClients(cfg config.Config, httpClient *http.Client) Clients {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	clients := Clients{}
	if strings.TrimSpace(cfg.GroqAPIKey) != "" {
		clients[providers.Groq] = NewOpenAICompatible(providers.Groq, cfg.GroqAPIKey, cfg.GroqBaseURL, httpClient)
	}
	if strings.TrimSpace(cfg.OpenAIAPIKey) != "" {
		clients[providers.OpenAI] = NewOpenAICompatible(providers.OpenAI, cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, httpClient)
	}
	if strings.TrimSpace(cfg.GeminiAPIKey) != "" {
		clients[providers.Gemini] = NewGemini(cfg.GeminiAPIKey, cfg.GeminiBaseURL, httpClient)
	}
	if strings.TrimSpace(cfg.AnthropicAPIKey) != "" {
		clients[providers.Claude] = NewClaude(cfg.AnthropicAPIKey, cfg.AnthropicBaseURL, httpClient)
	}
	return clients
}

func (c Clients) For(id providers.ID) (Client, error) {
	client, ok := c[id]
	if !ok || client == nil {
		return nil, fmt.Errorf("%s: %w", id, ErrMissingAPIKey)
	}
	return client, nil
}

// Complete runs a streamed request to the end and returns the decoded text.
func Complete(ctx context.Context, client Client, req Request) (string, error) {
	stream, err := client.Stream(ctx, req)
	if err != nil {
		return "", err
	}
	defer stream.Close()

	decoder := chunkstream.NewDecoder()
	if _, err := io.Copy(decoder, stream); err != nil {
		return decoder.Text(), fmt.Errorf("read completion: %w", err)
	}
	_ = decoder.Close()
	return decoder.Text(), nil
}

func newReader(src chunkstream.Source, req Request) io.ReadCloser {
	return chunkstream.NewReader(src, chunkstream.ReaderOptions{
		PromptTokens: req.promptTokens(),
		CountTokens:  tokens.Count,
	})
}
