package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"

	"oneai/backend/internal/chunkstream"
	"oneai/backend/internal/providers"
)

type Gemini struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewGemini(apiKey, baseURL string, httpClient *http.Client) *Gemini {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Gemini{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: httpClient,
	}
}

type geminiInlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     float32 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type geminiAPIRequest struct {
	SystemInstruction *geminiContent         `json:"systemInstruction,omitempty"`
	Contents          []geminiContent        `json:"contents"`
	GenerationConfig  geminiGenerationConfig `json:"generationConfig"`
}

type geminiAPIResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	UsageMetadata *struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata,omitempty"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (c *Gemini) Stream(ctx context.Context, req Request) (io.ReadCloser, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	body, err := postStream(ctx, c.httpClient, providers.Gemini,
		c.baseURL+"/models/"+url.PathEscape(req.Model)+":streamGenerateContent?alt=sse",
		map[string]string{"x-goog-api-key": c.apiKey},
		buildGeminiRequest(req),
	)
	if err != nil {
		return nil, err
	}
	return newReader(&geminiSource{events: newEventScanner(providers.Gemini, body)}, req), nil
}

// buildGeminiRequest attaches media to the last user turn as inline parts.
func buildGeminiRequest(req Request) geminiAPIRequest {
	out := geminiAPIRequest{
		GenerationConfig: geminiGenerationConfig{Temperature: req.Temperature, MaxOutputTokens: req.MaxTokens},
	}
	if req.System != "" {
		out.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.System}}}
	}

	lastUser := -1
	for i, msg := range req.Messages {
		role := "user"
		if msg.Role == RoleAssistant {
			role = "model"
		} else {
			lastUser = i
		}
		out.Contents = append(out.Contents, geminiContent{Role: role, Parts: []geminiPart{{Text: msg.Content}}})
	}
	if lastUser >= 0 {
		for _, media := range req.Media {
			out.Contents[lastUser].Parts = append(out.Contents[lastUser].Parts, geminiPart{
				InlineData: &geminiInlineData{MIMEType: media.MIMEType, Data: media.Data},
			})
		}
	}
	return out
}

type geminiSource struct {
	events *eventScanner
	usage  *chunkstream.Usage
}

func (s *geminiSource) Next() (string, error) {
	for {
		payload, err := s.events.next()
		if err != nil {
			return "", err
		}

		var parsed geminiAPIResponse
		if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
			continue
		}
		if parsed.Error != nil && strings.TrimSpace(parsed.Error.Message) != "" {
			return "", errors.New(strings.TrimSpace(parsed.Error.Message))
		}
		if parsed.UsageMetadata != nil {
			s.usage = &chunkstream.Usage{
				PromptTokens:     parsed.UsageMetadata.PromptTokenCount,
				CompletionTokens: parsed.UsageMetadata.CandidatesTokenCount,
			}
		}

		var delta strings.Builder
		for _, candidate := range parsed.Candidates {
			for _, part := range candidate.Content.Parts {
				delta.WriteString(part.Text)
			}
		}
		if delta.Len() > 0 {
			return delta.String(), nil
		}
	}
}

func (s *geminiSource) Usage() (chunkstream.Usage, bool) {
	if s.usage == nil {
		return chunkstream.Usage{}, false
	}
	return *s.usage, true
}

func (s *geminiSource) Close() error {
	return s.events.Close()
}
