package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"oneai/backend/internal/providers"
	"oneai/backend/internal/search"
)

func postJSON(handler http.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	handler(resp, req)
	return resp
}

func webSearchOptions() *search.Options {
	longText := strings.Repeat("Go channels let goroutines communicate safely. ", 5)
	return &search.Options{
		Web: []search.WebBackend{stubWeb{results: []search.WebResult{
			{Title: "Channels", URL: "https://go.dev/channels", Snippet: "channels", DisplayLink: "go.dev"},
			{Title: "Missing", URL: "https://example.com/gone", Snippet: "gone", DisplayLink: "example.com"},
		}}},
		Pages: stubPages{"https://go.dev/channels": longText},
	}
}

func TestWebSearchRequiresQuery(t *testing.T) {
	env := newTestEnv(t, envOptions{providers: []providers.ID{providers.Gemini}, search: webSearchOptions()})

	for _, body := range []string{`{}`, `{"query":""}`, `{"query":42}`, `not json`} {
		resp := postJSON(env.handler.WebSearch, "/api/web-search", body)
		assertErrorMessage(t, resp, http.StatusBadRequest, msgQueryRequired)
	}
}

func TestWebSearchSummarisesWithGeminiByDefault(t *testing.T) {
	env := newTestEnv(t, envOptions{providers: []providers.ID{providers.Groq, providers.Gemini}, search: webSearchOptions()})
	env.clients[providers.Gemini].reply = "Channels connect goroutines."

	resp := postJSON(env.handler.WebSearch, "/api/web-search", `{"query":"go channels"}`)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d (%s)", http.StatusOK, resp.Code, resp.Body.String())
	}
	var body search.WebResponse
	decodeJSONBody(t, resp, &body)
	if !body.Success {
		t.Fatalf("expected success, got %+v", body)
	}
	if body.Summary != "Channels connect goroutines." {
		t.Fatalf("unexpected summary %q", body.Summary)
	}
	if body.SourcesAnalyzed != 1 || body.TotalResults != 2 {
		t.Fatalf("unexpected counts: analyzed=%d total=%d", body.SourcesAnalyzed, body.TotalResults)
	}
	if body.SearchMethod != "Stub Web" {
		t.Fatalf("unexpected search method %q", body.SearchMethod)
	}
	if got := len(env.clients[providers.Groq].calls()); got != 0 {
		t.Fatalf("groq must not summarise by default, got %d calls", got)
	}
}

func TestWebSearchHonoursRequestedProvider(t *testing.T) {
	env := newTestEnv(t, envOptions{providers: []providers.ID{providers.Groq, providers.Gemini}, search: webSearchOptions()})

	resp := postJSON(env.handler.WebSearch, "/api/web-search", `{"query":"go channels","provider":"groq"}`)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.Code)
	}
	if got := len(env.clients[providers.Groq].calls()); got != 1 {
		t.Fatalf("expected groq to summarise, got %d calls", got)
	}
}

func TestWebSearchWithoutModelFails(t *testing.T) {
	env := newTestEnv(t, envOptions{search: webSearchOptions()})

	resp := postJSON(env.handler.WebSearch, "/api/web-search", `{"query":"go channels"}`)

	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, resp.Code)
	}
	var body search.WebResponse
	decodeJSONBody(t, resp, &body)
	if body.Success || body.Error != "Failed to perform web search" {
		t.Fatalf("unexpected failure payload %+v", body)
	}
}

func TestWebSearchWithoutBackendsReturnsSetupGuidance(t *testing.T) {
	env := newTestEnv(t, envOptions{providers: []providers.ID{providers.Gemini}, search: &search.Options{}})

	resp := postJSON(env.handler.WebSearch, "/api/web-search", `{"query":"go channels"}`)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.Code)
	}
	var body search.WebResponse
	decodeJSONBody(t, resp, &body)
	if body.Success || body.SetupInstructions == nil {
		t.Fatalf("expected setup guidance, got %+v", body)
	}
}

func TestImageSearch(t *testing.T) {
	env := newTestEnv(t, envOptions{search: &search.Options{Images: []search.ImageBackend{stubImages{images: []search.Image{
		{Title: "Lighthouse", ImageURL: "https://img.example.com/lh.jpg", SourceDomain: "example.com", Width: 640, Height: 480},
	}}}}})

	resp := postJSON(env.handler.ImageSearch, "/api/image-search", `{"query":"lighthouse"}`)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, resp.Code)
	}
	var body search.ImageResponse
	decodeJSONBody(t, resp, &body)
	if len(body.Images) != 1 || body.Images[0].ImageURL != "https://img.example.com/lh.jpg" {
		t.Fatalf("unexpected images %+v", body.Images)
	}
	if body.Message != `Found 1 images for "lighthouse"` {
		t.Fatalf("unexpected message %q", body.Message)
	}
	if body.SearchMethod != "Stub Images" {
		t.Fatalf("unexpected method %q", body.SearchMethod)
	}
}

func TestImageSearchWithoutBackends(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	resp := postJSON(env.handler.ImageSearch, "/api/image-search", `{"query":"lighthouse"}`)

	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, resp.Code)
	}
	var body errorDetailsResponse
	decodeJSONBody(t, resp, &body)
	if body.Error != "Image search failed" || body.Details == "" {
		t.Fatalf("unexpected failure payload %+v", body)
	}
}

func TestImageSearchRequiresQuery(t *testing.T) {
	env := newTestEnv(t, envOptions{})

	resp := postJSON(env.handler.ImageSearch, "/api/image-search", `{"query":"   "}`)

	assertErrorMessage(t, resp, http.StatusBadRequest, msgQueryRequired)
}
