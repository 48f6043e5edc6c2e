package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"oneai/backend/internal/providers"
)

// postStream sends a JSON body and returns the open event stream. Non-2xx
// replies are turned into an APIError with a bounded body excerpt.
func postStream(ctx context.Context, httpClient *http.Client, provider providers.ID, url string, headers map[string]string, body any) (io.ReadCloser, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal %s request: %w", provider, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", provider, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	for key, value := range headers {
		httpReq.Header.Set(key, value)
	}

	resp, err := httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", provider, err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		defer resp.Body.Close()
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, &APIError{Provider: provider, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(excerpt))}
	}
	return resp.Body, nil
}

// eventScanner yields the payload of each `data:` line of a server-sent event stream.
type eventScanner struct {
	provider providers.ID
	body     io.ReadCloser
	scanner  *bufio.Scanner
}

func newEventScanner(provider providers.ID, body io.ReadCloser) *eventScanner {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &eventScanner{provider: provider, body: body, scanner: scanner}
}

// next returns io.EOF when the body ends.
func (s *eventScanner) next() (string, error) {
	for s.scanner.Scan() {
		line := strings.TrimSpace(s.scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" {
			continue
		}
		return payload, nil
	}
	if err := s.scanner.Err(); err != nil {
		return "", fmt.Errorf("read %s stream: %w", s.provider, err)
	}
	return "", io.EOF
}

func (s *eventScanner) Close() error {
	return s.body.Close()
}
