// Package search finds web pages and images for the web-search and
// image-search endpoints and summarises fetched pages through an LLM.
package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"

	"oneai/backend/internal/brave"
)

const (
	maxErrorBodyBytes = 8 * 1024

	defaultWebResults   = 8
	defaultImageResults = 6
)

var ErrNotConfigured = errors.New("search backend is not configured")

type WebResult struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Snippet     string `json:"snippet"`
	DisplayLink string `json:"displayLink"`
}

type Image struct {
	Title        string `json:"title"`
	ImageURL     string `json:"imageUrl"`
	ThumbnailURL string `json:"thumbnailUrl"`
	SourceURL    string `json:"sourceUrl"`
	SourceDomain string `json:"sourceDomain"`
	Width        int64  `json:"width"`
	Height       int64  `json:"height"`
}

// WebBackend is one provider in the web-search fallback chain.
type WebBackend interface {
	Name() string
	Search(ctx context.Context, query string, count int) ([]WebResult, error)
}

type ImageBackend interface {
	ImageMethod() string
	SearchImages(ctx context.Context, query string, count int) ([]Image, error)
}

// Google queries a Programmable Search Engine through the Custom Search JSON API.
type Google struct {
	engineID string
	service  *customsearch.Service
}

func NewGoogle(ctx context.Context, apiKey, engineID, endpoint string) (*Google, error) {
	apiKey = strings.TrimSpace(apiKey)
	engineID = strings.TrimSpace(engineID)
	if apiKey == "" || engineID == "" {
		return nil, ErrNotConfigured
	}

	opts := []option.ClientOption{option.WithAPIKey(apiKey)}
	if endpoint = strings.TrimSpace(endpoint); endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}
	service, err := customsearch.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create custom search service: %w", err)
	}
	return &Google{engineID: engineID, service: service}, nil
}

func (g *Google) Name() string {
	return "Google Custom Search"
}

func (g *Google) Search(ctx context.Context, query string, count int) ([]WebResult, error) {
	if count <= 0 {
		count = defaultWebResults
	}
	resp, err := g.service.Cse.List().Cx(g.engineID).Q(query).Num(int64(count)).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("google custom search: %w", err)
	}

	results := make([]WebResult, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item == nil || strings.TrimSpace(item.Link) == "" {
			continue
		}
		results = append(results, WebResult{
			Title:       item.Title,
			URL:         item.Link,
			Snippet:     item.Snippet,
			DisplayLink: item.DisplayLink,
		})
	}
	return results, nil
}

func (g *Google) ImageMethod() string {
	return "Google Custom Search Images"
}

func (g *Google) SearchImages(ctx context.Context, query string, count int) ([]Image, error) {
	if count <= 0 {
		count = defaultImageResults
	}
	resp, err := g.service.Cse.List().
		Cx(g.engineID).
		Q(query).
		SearchType("image").
		Num(int64(count)).
		Safe("active").
		ImgSize("medium").
		ImgType("photo").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("google image search: %w", err)
	}

	images := make([]Image, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item == nil || strings.TrimSpace(item.Link) == "" {
			continue
		}
		img := Image{
			Title:        item.Title,
			ImageURL:     item.Link,
			SourceDomain: item.DisplayLink,
		}
		if item.Image != nil {
			img.ThumbnailURL = item.Image.ThumbnailLink
			img.SourceURL = item.Image.ContextLink
			img.Width = item.Image.Width
			img.Height = item.Image.Height
		}
		images = append(images, img)
	}
	return images, nil
}

// SerpAPI is the first fallback when Google Custom Search is unavailable.
type SerpAPI struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

type serpAPIResponse struct {
	OrganicResults []struct {
		Title         string `json:"title"`
		Link          string `json:"link"`
		Snippet       string `json:"snippet"`
		DisplayedLink string `json:"displayed_link"`
	} `json:"organic_results"`
	Error string `json:"error"`
}

func NewSerpAPI(apiKey, baseURL string, httpClient *http.Client) (*SerpAPI, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, ErrNotConfigured
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &SerpAPI{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: httpClient,
	}, nil
}

func (s *SerpAPI) Name() string {
	return "SerpAPI (fallback)"
}

func (s *SerpAPI) Search(ctx context.Context, query string, count int) ([]WebResult, error) {
	if count <= 0 {
		count = defaultWebResults
	}
	endpoint, err := url.Parse(s.baseURL + "/search.json")
	if err != nil {
		return nil, fmt.Errorf("parse serpapi endpoint: %w", err)
	}
	endpoint.RawQuery = url.Values{
		"engine":  {"google"},
		"q":       {query},
		"num":     {strconv.Itoa(count)},
		"api_key": {s.apiKey},
	}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build serpapi request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request serpapi: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, fmt.Errorf("serpapi returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed serpAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode serpapi response: %w", err)
	}
	if parsed.Error != "" {
		return nil, fmt.Errorf("serpapi: %s", parsed.Error)
	}

	results := make([]WebResult, 0, len(parsed.OrganicResults))
	for _, item := range parsed.OrganicResults {
		if strings.TrimSpace(item.Link) == "" {
			continue
		}
		display := item.DisplayedLink
		if display == "" {
			display = item.Link
		}
		results = append(results, WebResult{
			Title:       item.Title,
			URL:         item.Link,
			Snippet:     item.Snippet,
			DisplayLink: display,
		})
	}
	return results, nil
}

// Brave adapts the Brave Search client to both backend interfaces.
type Brave struct {
	client brave.Client
}

func NewBrave(client brave.Client) (*Brave, error) {
	if !client.Configured() {
		return nil, ErrNotConfigured
	}
	return &Brave{client: client}, nil
}

func (b *Brave) Name() string {
	return "Brave Search (fallback)"
}

func (b *Brave) Search(ctx context.Context, query string, count int) ([]WebResult, error) {
	if count <= 0 {
		count = defaultWebResults
	}
	found, err := b.client.Search(ctx, query, count)
	if err != nil {
		return nil, err
	}
	results := make([]WebResult, 0, len(found))
	for _, item := range found {
		results = append(results, WebResult{
			Title:       item.Title,
			URL:         item.URL,
			Snippet:     item.Snippet,
			DisplayLink: item.DisplayLink,
		})
	}
	return results, nil
}

func (b *Brave) ImageMethod() string {
	return "Brave Image Search"
}

func (b *Brave) SearchImages(ctx context.Context, query string, count int) ([]Image, error) {
	found, err := b.client.SearchImages(ctx, query, count)
	if err != nil {
		return nil, err
	}
	images := make([]Image, 0, len(found))
	for _, item := range found {
		images = append(images, Image{
			Title:        item.Title,
			ImageURL:     item.ImageURL,
			ThumbnailURL: item.ThumbnailURL,
			SourceURL:    item.PageURL,
			SourceDomain: item.SourceDomain,
		})
	}
	return images, nil
}
