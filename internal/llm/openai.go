package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"oneai/backend/internal/chunkstream"
	"oneai/backend/internal/providers"

	"github.com/sashabaranov/go-openai"
)

// OpenAICompatible serves every vendor that speaks the OpenAI chat API
// (Groq and OpenAI itself).
type OpenAICompatible struct {
	provider providers.ID
	client   *openai.Client
}

func NewOpenAICompatible(provider providers.ID, apiKey, baseURL string, httpClient *http.Client) *OpenAICompatible {
	clientConfig := openai.DefaultConfig(strings.TrimSpace(apiKey))
	if base := strings.TrimRight(strings.TrimSpace(baseURL), "/"); base != "" {
		clientConfig.BaseURL = base
	}
	if httpClient != nil {
		clientConfig.HTTPClient = httpClient
	}
	return &OpenAICompatible{provider: provider, client: openai.NewClientWithConfig(clientConfig)}
}

func (c *OpenAICompatible) Stream(ctx context.Context, req Request) (io.ReadCloser, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: req.System})
	}
	for _, msg := range req.Messages {
		role := openai.ChatMessageRoleUser
		if msg.Role == RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{Role: role, Content: msg.Content})
	}

	stream, err := c.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model:         req.Model,
		Messages:      messages,
		Temperature:   req.Temperature,
		MaxTokens:     req.MaxTokens,
		Stream:        true,
		StreamOptions: &openai.StreamOptions{IncludeUsage: true},
	})
	if err != nil {
		return nil, c.wrapError(err)
	}
	return newReader(&openAISource{provider: c.provider, stream: stream}, req), nil
}

func (c *OpenAICompatible) wrapError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode > 0 {
		return &APIError{Provider: c.provider, StatusCode: apiErr.HTTPStatusCode, Body: apiErr.Message}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		return &APIError{Provider: c.provider, StatusCode: reqErr.HTTPStatusCode, Body: strings.TrimSpace(string(reqErr.Body))}
	}
	return fmt.Errorf("request %s: %w", c.provider, err)
}

type openAISource struct {
	provider providers.ID
	stream   *openai.ChatCompletionStream
	usage    *openai.Usage
}

func (s *openAISource) Next() (string, error) {
	for {
		resp, err := s.stream.Recv()
		if errors.Is(err, io.EOF) {
			return "", io.EOF
		}
		if err != nil {
			return "", fmt.Errorf("read %s stream: %w", s.provider, err)
		}
		if resp.Usage != nil {
			s.usage = resp.Usage
		}
		var delta strings.Builder
		for _, choice := range resp.Choices {
			delta.WriteString(choice.Delta.Content)
		}
		if delta.Len() > 0 {
			return delta.String(), nil
		}
	}
}

func (s *openAISource) Usage() (chunkstream.Usage, bool) {
	if s.usage == nil {
		return chunkstream.Usage{}, false
	}
	return chunkstream.Usage{PromptTokens: s.usage.PromptTokens, CompletionTokens: s.usage.CompletionTokens}, true
}

func (s *openAISource) Close() error {
	return s.stream.Close()
}
