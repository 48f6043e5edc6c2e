package search

import (
	"compress/gzip"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/andybalholm/brotli"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oneai/backend/internal/chunkstream"
	"oneai/backend/internal/llm"
	"oneai/backend/internal/providers"
)

type fakeWeb struct {
	name    string
	results []WebResult
	err     error
	calls   int
}

func (f *fakeWeb) Name() string { return f.name }

func (f *fakeWeb) Search(_ context.Context, _ string, _ int) ([]WebResult, error) {
	f.calls++
	return f.results, f.err
}

type fakeImages struct {
	method string
	images []Image
	err    error
	calls  int
}

func (f *fakeImages) ImageMethod() string { return f.method }

func (f *fakeImages) SearchImages(_ context.Context, _ string, _ int) ([]Image, error) {
	f.calls++
	return f.images, f.err
}

type fakePages map[string]string

func (p fakePages) Read(_ context.Context, rawURL string) (string, error) {
	text, ok := p[rawURL]
	if !ok {
		return "", errors.New("unreachable")
	}
	return text, nil
}

type recordingLLM struct {
	mu       sync.Mutex
	reply    string
	requests []llm.Request
}

func (c *recordingLLM) Stream(_ context.Context, req llm.Request) (io.ReadCloser, error) {
	c.mu.Lock()
	c.requests = append(c.requests, req)
	c.mu.Unlock()
	return chunkstream.Synthesize(c.reply, chunkstream.ReaderOptions{}), nil
}

func threeResults() []WebResult {
	return []WebResult{
		{Title: "T1", URL: "https://a.example/1", Snippet: "s1", DisplayLink: "a.example"},
		{Title: "T2", URL: "https://b.example/2", Snippet: "s2", DisplayLink: "b.example"},
		{Title: "T3", URL: "https://c.example/3", Snippet: "s3", DisplayLink: "c.example"},
	}
}

func newTestService(opts Options) *Service {
	svc := New(opts)
	svc.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestWebFallsBackAndSummarisesReadablePages(t *testing.T) {
	broken := &fakeWeb{name: "Google Custom Search", err: errors.New("quota exceeded")}
	serp := &fakeWeb{name: "SerpAPI (fallback)", results: threeResults()}
	model := &recordingLLM{reply: "# Report\n\nAll good."}
	svc := newTestService(Options{
		Web: []WebBackend{broken, serp},
		Pages: fakePages{
			"https://a.example/1": strings.Repeat("alpha ", 30),
			"https://b.example/2": "too short",
			"https://c.example/3": strings.Repeat("gamma ", 30),
		},
		Clients:  llm.Clients{providers.Gemini: model},
		Registry: providers.NewRegistryFromKeys(map[providers.ID]string{providers.Gemini: "k"}),
	})

	resp, err := svc.Web(context.Background(), "go generics", providers.Gemini)
	require.NoError(t, err)

	assert.True(t, resp.Success)
	assert.Equal(t, "SerpAPI (fallback)", resp.SearchMethod)
	assert.Equal(t, 2, resp.SourcesAnalyzed)
	assert.Equal(t, 3, resp.TotalResults)
	assert.Len(t, resp.SearchResults, 3)
	assert.Equal(t, "# Report\n\nAll good.", resp.Summary)
	assert.Equal(t, "2025-03-01T12:00:00.000Z", resp.Timestamp)
	assert.Equal(t, 1, broken.calls)

	require.Len(t, model.requests, 1)
	req := model.requests[0]
	assert.Equal(t, "gemini-2.5-flash", req.Model)
	require.Len(t, req.Messages, 1)
	assert.Contains(t, req.Messages[0].Content, "*Search performed using: SerpAPI (fallback)*")
	assert.Contains(t, req.Messages[0].Content, "*Sources analyzed: 2 out of 3 found*")
	assert.NotContains(t, req.Messages[0].Content, "too short")
}

func TestWebWithoutBackendsReturnsSetupGuidance(t *testing.T) {
	svc := newTestService(Options{})

	resp, err := svc.Web(context.Background(), "anything", providers.Gemini)
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, "Web search is not properly configured", resp.Message)
	assert.Equal(t, "No web search backend is configured", resp.Error)
	require.NotNil(t, resp.SetupInstructions)
	assert.Equal(t, "https://serpapi.com/", resp.SetupInstructions.SerpAPIAlternative)
	assert.NotNil(t, resp.SearchResults)
}

func TestWebAllBackendsFailing(t *testing.T) {
	svc := newTestService(Options{Web: []WebBackend{
		&fakeWeb{name: "one", err: errors.New("boom")},
		&fakeWeb{name: "two", err: errors.New("bang")},
	}})

	resp, err := svc.Web(context.Background(), "q", "")
	require.NoError(t, err)
	assert.Equal(t, "All configured web search backends failed", resp.Error)
	assert.NotNil(t, resp.SetupInstructions)
}

func TestWebNoResults(t *testing.T) {
	svc := newTestService(Options{Web: []WebBackend{&fakeWeb{name: "one"}}})

	resp, err := svc.Web(context.Background(), "zzzz", "")
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, "No search results found", resp.Message)
	assert.Contains(t, resp.Summary, `search query "zzzz"`)
}

func TestWebUnreadablePagesListResults(t *testing.T) {
	model := &recordingLLM{reply: "unused"}
	svc := newTestService(Options{
		Web:     []WebBackend{&fakeWeb{name: "one", results: threeResults()}},
		Pages:   fakePages{},
		Clients: llm.Clients{providers.Gemini: model},
	})

	resp, err := svc.Web(context.Background(), "q", providers.Gemini)
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, "Could not fetch content from search results", resp.Message)
	assert.Contains(t, resp.Summary, "I found 3 search results for \"q\"")
	assert.Contains(t, resp.Summary, "1. **T1**\n   s1\n   Source: a.example\n   URL: https://a.example/1")
	assert.Empty(t, model.requests)
}

func TestWebSummarizerFallsBackToFirstConfiguredProvider(t *testing.T) {
	groq := &recordingLLM{reply: "ok"}
	svc := newTestService(Options{
		Web:      []WebBackend{&fakeWeb{name: "one", results: threeResults()[:1]}},
		Pages:    fakePages{"https://a.example/1": strings.Repeat("x", 150)},
		Clients:  llm.Clients{providers.Groq: groq},
		Registry: providers.NewRegistryFromKeys(map[providers.ID]string{providers.Groq: "k"}),
	})

	resp, err := svc.Web(context.Background(), "q", providers.Claude)
	require.NoError(t, err)
	assert.True(t, resp.Success)
	require.Len(t, groq.requests, 1)
	assert.Equal(t, "llama-3.1-8b-instant", groq.requests[0].Model)
}

func TestWebWithoutModelFails(t *testing.T) {
	svc := newTestService(Options{
		Web:   []WebBackend{&fakeWeb{name: "one", results: threeResults()[:1]}},
		Pages: fakePages{"https://a.example/1": strings.Repeat("x", 150)},
	})

	_, err := svc.Web(context.Background(), "q", providers.Gemini)
	require.Error(t, err)
	assert.True(t, errors.Is(err, llm.ErrMissingAPIKey))

	failure := svc.WebFailure(err)
	assert.False(t, failure.Success)
	assert.Equal(t, "Failed to perform web search", failure.Error)
	assert.Equal(t, "2025-03-01T12:00:00.000Z", failure.Timestamp)
}

func TestImagesFallBackAndCache(t *testing.T) {
	broken := &fakeImages{method: "Google Custom Search Images", err: errors.New("403")}
	braveImages := &fakeImages{method: "Brave Image Search", images: []Image{
		{Title: "cat 1", ImageURL: "https://img.example/1.jpg"},
		{Title: "cat 2", ImageURL: "https://img.example/2.jpg"},
	}}
	svc := newTestService(Options{Images: []ImageBackend{broken, braveImages}})

	resp, err := svc.Images(context.Background(), "cats")
	require.NoError(t, err)
	assert.Equal(t, `Found 2 images for "cats"`, resp.Message)
	assert.Equal(t, "Brave Image Search", resp.SearchMethod)
	assert.Len(t, resp.Images, 2)

	again, err := svc.Images(context.Background(), "  Cats ")
	require.NoError(t, err)
	assert.Equal(t, resp, again)
	assert.Equal(t, 1, broken.calls)
	assert.Equal(t, 1, braveImages.calls)
}

func TestImagesEmptyResult(t *testing.T) {
	svc := newTestService(Options{Images: []ImageBackend{&fakeImages{method: "Google Custom Search Images"}}})

	resp, err := svc.Images(context.Background(), "nothing")
	require.NoError(t, err)
	assert.Empty(t, resp.SearchMethod)
	assert.NotNil(t, resp.Images)
	assert.True(t, strings.HasPrefix(resp.Message, `I couldn't find any images for "nothing".`))
}

func TestImagesErrors(t *testing.T) {
	_, err := newTestService(Options{}).Images(context.Background(), "q")
	assert.True(t, errors.Is(err, ErrNotConfigured))

	svc := newTestService(Options{Images: []ImageBackend{&fakeImages{method: "x", err: errors.New("denied")}}})
	_, err = svc.Images(context.Background(), "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "denied")
}

func TestGoogleUsesCustomSearchParameters(t *testing.T) {
	var seen []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/customsearch/v1", r.URL.Path)
		seen = append(seen, r.URL.RawQuery)
		q := r.URL.Query()
		assert.Equal(t, "engine-1", q.Get("cx"))
		assert.Equal(t, "golang", q.Get("q"))

		w.Header().Set("Content-Type", "application/json")
		if q.Get("searchType") == "image" {
			assert.Equal(t, "6", q.Get("num"))
			assert.Equal(t, "active", q.Get("safe"))
			assert.Equal(t, "medium", q.Get("imgSize"))
			assert.Equal(t, "photo", q.Get("imgType"))
			_, _ = io.WriteString(w, `{"items":[{"title":"Gopher","link":"https://img.example/g.png","displayLink":"img.example",
				"image":{"contextLink":"https://img.example/page","thumbnailLink":"https://img.example/t.png","width":640,"height":480}}]}`)
			return
		}
		assert.Equal(t, "8", q.Get("num"))
		_, _ = io.WriteString(w, `{"items":[{"title":"Go","link":"https://go.dev","snippet":"The Go language","displayLink":"go.dev"},{"title":"no link"}]}`)
	}))
	defer server.Close()

	google, err := NewGoogle(context.Background(), "key", "engine-1", server.URL+"/")
	require.NoError(t, err)

	results, err := google.Search(context.Background(), "golang", 0)
	require.NoError(t, err)
	assert.Equal(t, []WebResult{{Title: "Go", URL: "https://go.dev", Snippet: "The Go language", DisplayLink: "go.dev"}}, results)

	images, err := google.SearchImages(context.Background(), "golang", 0)
	require.NoError(t, err)
	assert.Equal(t, []Image{{
		Title:        "Gopher",
		ImageURL:     "https://img.example/g.png",
		ThumbnailURL: "https://img.example/t.png",
		SourceURL:    "https://img.example/page",
		SourceDomain: "img.example",
		Width:        640,
		Height:       480,
	}}, images)
	assert.Len(t, seen, 2)

	_, err = NewGoogle(context.Background(), "key", "", "")
	assert.True(t, errors.Is(err, ErrNotConfigured))
}

func TestSerpAPIMapsOrganicResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search.json", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "google", q.Get("engine"))
		assert.Equal(t, "serp-key", q.Get("api_key"))
		assert.Equal(t, "8", q.Get("num"))
		_, _ = io.WriteString(w, `{"organic_results":[
			{"title":"A","link":"https://a.example","snippet":"sa","displayed_link":"a.example › docs"},
			{"title":"B","link":"https://b.example","snippet":"sb"}]}`)
	}))
	defer server.Close()

	serp, err := NewSerpAPI("serp-key", server.URL+"/", server.Client())
	require.NoError(t, err)

	results, err := serp.Search(context.Background(), "q", 0)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a.example › docs", results[0].DisplayLink)
	assert.Equal(t, "https://b.example", results[1].DisplayLink)
}

func TestSerpAPIReportsHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "invalid key", http.StatusUnauthorized)
	}))
	defer server.Close()

	serp, err := NewSerpAPI("bad", server.URL, server.Client())
	require.NoError(t, err)
	_, err = serp.Search(context.Background(), "q", 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "serpapi returned 401: invalid key")
}

func localPageReader() *PageReader {
	r := NewPageReader(time.Second)
	r.allowPrivate = true
	r.httpClient.Transport = &http.Transport{DisableCompression: true}
	return r
}

const samplePage = `<html><head><title>ignored</title><style>.x{}</style></head><body>
<nav>Home | About</nav><header>Site header</header>
<article><h1>Gophers</h1><p>Gophers   dig
tunnels.</p><script>track()</script></article>
<footer>Copyright</footer></body></html>`

func TestPageReaderStripsChromeAndDecodesBodies(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, pageUserAgent, r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		switch r.URL.Path {
		case "/gzip":
			w.Header().Set("Content-Encoding", "gzip")
			gz := gzip.NewWriter(w)
			_, _ = io.WriteString(gz, samplePage)
			_ = gz.Close()
		case "/br":
			w.Header().Set("Content-Encoding", "br")
			br := brotli.NewWriter(w)
			_, _ = io.WriteString(br, samplePage)
			_ = br.Close()
		default:
			_, _ = io.WriteString(w, samplePage)
		}
	}))
	defer server.Close()

	reader := localPageReader()
	for _, path := range []string{"/plain", "/gzip", "/br"} {
		text, err := reader.Read(context.Background(), server.URL+path)
		require.NoError(t, err, path)
		assert.Equal(t, "Gophers Gophers dig tunnels.", text, path)
	}
}

func TestPageReaderCapsTextAndRejectsBinary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bin" {
			w.Header().Set("Content-Type", "application/octet-stream")
			_, _ = w.Write([]byte{0, 1, 2})
			return
		}
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		_, _ = io.WriteString(w, strings.Repeat("é", 3000))
	}))
	defer server.Close()

	reader := localPageReader()
	text, err := reader.Read(context.Background(), server.URL+"/long")
	require.NoError(t, err)
	assert.Equal(t, pageMaxRunes, utf8.RuneCountInString(text))

	_, err = reader.Read(context.Background(), server.URL+"/bin")
	assert.Error(t, err)

	_, err = reader.Read(context.Background(), server.URL+"/missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestPageReaderBlocksInternalTargets(t *testing.T) {
	reader := NewPageReader(time.Second)
	cases := map[string]error{
		"http://127.0.0.1/admin":        errBlockedURLHost,
		"http://localhost/":             errBlockedURLHost,
		"http://metadata.internal/":     errBlockedURLHost,
		"http://[::1]/":                 errBlockedURLHost,
		"http://10.1.2.3/":              errBlockedURLHost,
		"ftp://example.com/file":        errInvalidURLScheme,
		"http://example.com:8080/page":  errBlockedURLPort,
		"https://example.com:22/tunnel": errBlockedURLPort,
	}
	for rawURL, want := range cases {
		_, err := reader.Read(context.Background(), rawURL)
		assert.True(t, errors.Is(err, want), "%s: %v", rawURL, err)
	}
}
