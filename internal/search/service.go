package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"oneai/backend/internal/brave"
	"oneai/backend/internal/config"
	"oneai/backend/internal/llm"
	"oneai/backend/internal/prompt"
	"oneai/backend/internal/providers"
)

const (
	pagesToFetch       = 5
	pageFetchLimit     = 3
	minSourceRunes     = 100
	summaryMaxTokens   = 2500
	summaryTemperature = 0.7
	defaultImageTTL    = 10 * time.Minute
)

const setupSummary = "I'm sorry, but web search is currently not available due to API configuration issues. \n\n" +
	"**Setup Required:**\n" +
	"1. Create a Google Custom Search Engine at https://programmablesearchengine.google.com/\n" +
	"2. Enable the Custom Search API in Google Cloud Console\n" +
	"3. Configure the search engine to \"Search the entire web\"\n" +
	"4. Add your Search Engine ID to environment variables\n\n" +
	"**Alternative:** Sign up for SerpAPI (100 free searches/month) at https://serpapi.com/"

type SetupInstructions struct {
	GoogleCustomSearch string `json:"googleCustomSearch"`
	EnableAPI          string `json:"enableAPI"`
	SerpAPIAlternative string `json:"serpApiAlternative"`
}

// WebResponse is the body of POST /api/web-search for both outcomes.
type WebResponse struct {
	Success           bool               `json:"success"`
	Query             string             `json:"query,omitempty"`
	SearchMethod      string             `json:"searchMethod,omitempty"`
	Message           string             `json:"message,omitempty"`
	Error             string             `json:"error,omitempty"`
	SearchResults     []WebResult        `json:"searchResults"`
	SourcesAnalyzed   int                `json:"sourcesAnalyzed,omitempty"`
	TotalResults      int                `json:"totalResults,omitempty"`
	Summary           string             `json:"summary"`
	SetupInstructions *SetupInstructions `json:"setupInstructions,omitempty"`
	Timestamp         string             `json:"timestamp,omitempty"`
}

type ImageResponse struct {
	Message      string  `json:"message"`
	Images       []Image `json:"images"`
	Query        string  `json:"query"`
	SearchMethod string  `json:"searchMethod,omitempty"`
}

type PageFetcher interface {
	Read(ctx context.Context, rawURL string) (string, error)
}

type Options struct {
	Web           []WebBackend
	Images        []ImageBackend
	Pages         PageFetcher
	Clients       llm.Clients
	Registry      providers.Registry
	RatePerSecond int
	ImageCacheTTL time.Duration
	Logger        *slog.Logger
}

type Service struct {
	web        []WebBackend
	images     []ImageBackend
	pages      PageFetcher
	clients    llm.Clients
	registry   providers.Registry
	limiter    *rate.Limiter
	imageCache *cache.Cache
	logger     *slog.Logger
	now        func() time.Time
}

func New(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	limit := rate.Inf
	burst := 1
	if opts.RatePerSecond > 0 {
		limit = rate.Limit(opts.RatePerSecond)
		burst = opts.RatePerSecond
	}
	ttl := opts.ImageCacheTTL
	if ttl <= 0 {
		ttl = defaultImageTTL
	}
	return &Service{
		web:        opts.Web,
		images:     opts.Images,
		pages:      opts.Pages,
		clients:    opts.Clients,
		registry:   opts.Registry,
		limiter:    rate.NewLimiter(limit, burst),
		imageCache: cache.New(ttl, 2*ttl),
		logger:     logger,
		now:        time.Now,
	}
}

// NewFromConfig wires every backend that has credentials, in fallback order.
func NewFromConfig(ctx context.Context, cfg config.Config, clients llm.Clients, registry providers.Registry, httpClient *http.Client, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	opts := Options{
		Pages:         NewPageReader(cfg.PageFetchTimeout),
		Clients:       clients,
		Registry:      registry,
		RatePerSecond: cfg.SearchRatePerSecond,
		ImageCacheTTL: cfg.ImageCacheTTL,
		Logger:        logger,
	}

	if google, err := NewGoogle(ctx, cfg.GoogleSearchAPIKey, cfg.GoogleSearchEngineID, cfg.GoogleSearchEndpoint); err == nil {
		opts.Web = append(opts.Web, google)
		opts.Images = append(opts.Images, google)
	} else if !errors.Is(err, ErrNotConfigured) {
		logger.Warn("google custom search disabled", "error", err)
	}
	if serp, err := NewSerpAPI(cfg.SerpAPIKey, cfg.SerpAPIBaseURL, httpClient); err == nil {
		opts.Web = append(opts.Web, serp)
	}
	if b, err := NewBrave(brave.NewClient(cfg, httpClient)); err == nil {
		opts.Web = append(opts.Web, b)
		opts.Images = append(opts.Images, b)
	}
	return New(opts)
}

// Web searches, reads the top pages and asks a model for a markdown report.
// A non-nil error means the request failed outright; every other outcome is
// described by the returned payload.
func (s *Service) Web(ctx context.Context, query string, requested providers.ID) (WebResponse, error) {
	results, method, err := s.searchWeb(ctx, query)
	if err != nil {
		s.logger.Warn("web search unavailable", "query", query, "error", err)
		return setupGuidance(err), nil
	}
	if len(results) == 0 {
		return WebResponse{
			Success:       false,
			Message:       "No search results found",
			SearchResults: []WebResult{},
			Summary:       fmt.Sprintf("No relevant information found for your search query \"%s\". Please try different keywords or check if the search terms are correct.", query),
		}, nil
	}

	sources := s.fetchSources(ctx, results)
	s.logger.Info("web search pages fetched", "method", method, "results", len(results), "sources", len(sources))
	if len(sources) == 0 {
		return contentUnavailable(query, results), nil
	}

	client, model, err := s.summarizer(requested)
	if err != nil {
		return WebResponse{}, err
	}
	summary, err := llm.Complete(ctx, client, llm.Request{
		Model:       model,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: prompt.WebSummaryPrompt(query, method, sources, len(results))}},
		Temperature: summaryTemperature,
		MaxTokens:   summaryMaxTokens,
	})
	if err != nil {
		return WebResponse{}, fmt.Errorf("summarise search results: %w", err)
	}

	return WebResponse{
		Success:         true,
		Query:           query,
		SearchMethod:    method,
		SearchResults:   results,
		SourcesAnalyzed: len(sources),
		TotalResults:    len(results),
		Summary:         summary,
		Timestamp:       s.timestamp(),
	}, nil
}

// WebFailure is the 500 payload for an error returned by Web.
func (s *Service) WebFailure(err error) WebResponse {
	return WebResponse{
		Success: false,
		Error:   "Failed to perform web search",
		Message: err.Error(),
		Summary: fmt.Sprintf("I encountered an error while trying to search the web: %s. \n\n", err.Error()) +
			"This might be due to:\n- API configuration issues\n- Network connectivity problems  \n- Rate limiting\n\nPlease try again later.",
		Timestamp: s.timestamp(),
	}
}

func (s *Service) searchWeb(ctx context.Context, query string) ([]WebResult, string, error) {
	if len(s.web) == 0 {
		return nil, "", ErrNotConfigured
	}
	var errs []error
	for _, backend := range s.web {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, "", err
		}
		results, err := backend.Search(ctx, query, defaultWebResults)
		if err != nil {
			s.logger.Warn("web search backend failed", "backend", backend.Name(), "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", backend.Name(), err))
			continue
		}
		return results, backend.Name(), nil
	}
	return nil, "", errors.Join(errs...)
}

func (s *Service) fetchSources(ctx context.Context, results []WebResult) []prompt.WebSource {
	top := results
	if len(top) > pagesToFetch {
		top = top[:pagesToFetch]
	}

	contents := make([]string, len(top))
	var g errgroup.Group
	g.SetLimit(pageFetchLimit)
	for i, result := range top {
		g.Go(func() error {
			text, err := s.pages.Read(ctx, result.URL)
			if err != nil {
				s.logger.Debug("page fetch failed", "url", result.URL, "error", err)
				return nil
			}
			contents[i] = text
			return nil
		})
	}
	_ = g.Wait()

	sources := make([]prompt.WebSource, 0, len(top))
	for i, result := range top {
		if utf8.RuneCountInString(contents[i]) <= minSourceRunes {
			continue
		}
		sources = append(sources, prompt.WebSource{
			Title:       result.Title,
			URL:         result.URL,
			DisplayLink: result.DisplayLink,
			Snippet:     result.Snippet,
			Content:     contents[i],
		})
	}
	return sources
}

// summarizer prefers the requested provider, then gemini, then the first
// configured one.
func (s *Service) summarizer(requested providers.ID) (llm.Client, string, error) {
	candidates := []providers.ID{requested, providers.Gemini}
	candidates = append(candidates, providers.Priority...)
	for _, id := range candidates {
		if id == "" || id == providers.Auto {
			continue
		}
		client, err := s.clients.For(id)
		if err != nil {
			continue
		}
		return client, s.registry.ResolveModel(id, s.registry.DefaultClass(id)), nil
	}
	return nil, "", fmt.Errorf("summarise search results: %w", llm.ErrMissingAPIKey)
}

// Images returns image hits from the first backend that answers. Successful
// lookups are cached by normalised query.
func (s *Service) Images(ctx context.Context, query string) (ImageResponse, error) {
	key := strings.ToLower(strings.Join(strings.Fields(query), " "))
	if cached, ok := s.imageCache.Get(key); ok {
		return cached.(ImageResponse), nil
	}
	if len(s.images) == 0 {
		return ImageResponse{}, ErrNotConfigured
	}

	var errs []error
	for _, backend := range s.images {
		if err := s.limiter.Wait(ctx); err != nil {
			return ImageResponse{}, err
		}
		images, err := backend.SearchImages(ctx, query, defaultImageResults)
		if err != nil {
			s.logger.Warn("image search backend failed", "backend", backend.ImageMethod(), "error", err)
			errs = append(errs, err)
			continue
		}

		resp := ImageResponse{Images: images, Query: query}
		if len(images) == 0 {
			resp.Images = []Image{}
			resp.Message = fmt.Sprintf("I couldn't find any images for \"%s\". You might try searching with different keywords or checking image search engines like Google Images directly.", query)
		} else {
			resp.Message = fmt.Sprintf("Found %d images for \"%s\"", len(images), query)
			resp.SearchMethod = backend.ImageMethod()
		}
		s.imageCache.Set(key, resp, cache.DefaultExpiration)
		return resp, nil
	}
	return ImageResponse{}, errors.Join(errs...)
}

func (s *Service) timestamp() string {
	return s.now().UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

func setupGuidance(err error) WebResponse {
	reason := "No web search backend is configured"
	if !errors.Is(err, ErrNotConfigured) {
		reason = "All configured web search backends failed"
	}
	return WebResponse{
		Success:       false,
		Message:       "Web search is not properly configured",
		Error:         reason,
		SearchResults: []WebResult{},
		Summary:       setupSummary,
		SetupInstructions: &SetupInstructions{
			GoogleCustomSearch: "https://programmablesearchengine.google.com/",
			EnableAPI:          "https://console.cloud.google.com/apis/library/customsearch.googleapis.com",
			SerpAPIAlternative: "https://serpapi.com/",
		},
	}
}

func contentUnavailable(query string, results []WebResult) WebResponse {
	lines := make([]string, 0, len(results))
	for i, r := range results {
		lines = append(lines, fmt.Sprintf("%d. **%s**\n   %s\n   Source: %s\n   URL: %s", i+1, r.Title, r.Snippet, r.DisplayLink, r.URL))
	}
	return WebResponse{
		Success:       false,
		Message:       "Could not fetch content from search results",
		SearchResults: results,
		Summary: fmt.Sprintf("I found %d search results for \"%s\", but I couldn't access the content of these pages to provide a detailed analysis. Here are the search results:\n\n", len(results), query) +
			strings.Join(lines, "\n\n"),
	}
}
