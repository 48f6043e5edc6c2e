// Package brave is a small client for the Brave Search web and image APIs,
// used as the last web-search fallback and the image-search fallback.
package brave

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

	"oneai/backend/internal/config"
)

const maxErrorBodyBytes = 8 * 1024
const maxQueryWords = 50

var ErrMissingAPIKey = errors.New("brave api key is not configured")

type APIError struct {
	StatusCode int
	Body       string
}

func (e APIError) Error() string {
	return fmt.Sprintf("brave returned %d: %s", e.StatusCode, e.Body)
}

type SearchResult struct {
	URL         string
	Title       string
	Snippet     string
	DisplayLink string
}

type ImageResult struct {
	Title        string
	ImageURL     string
	ThumbnailURL string
	PageURL      string
	SourceDomain string
}

type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

type webAPIResponse struct {
	Web struct {
		Results []webAPIResult `json:"results"`
	} `json:"web"`
	Results []webAPIResult `json:"results"`
}

type webAPIResult struct {
	URL           string   `json:"url"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Snippet       string   `json:"snippet"`
	ExtraSnippets []string `json:"extra_snippets"`
	MetaURL       struct {
		Hostname string `json:"hostname"`
	} `json:"meta_url"`
}

type imageAPIResponse struct {
	Results []struct {
		Title     string `json:"title"`
		URL       string `json:"url"`
		Source    string `json:"source"`
		Thumbnail struct {
			Src string `json:"src"`
		} `json:"thumbnail"`
		Properties struct {
			URL string `json:"url"`
		} `json:"properties"`
	} `json:"results"`
}

func NewClient(cfg config.Config, httpClient *http.Client) Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return Client{
		apiKey:     strings.TrimSpace(cfg.BraveAPIKey),
		baseURL:    strings.TrimRight(strings.TrimSpace(cfg.BraveBaseURL), "/"),
		httpClient: httpClient,
	}
}

func (c Client) Configured() bool {
	return c.apiKey != ""
}

func (c Client) Search(ctx context.Context, query string, count int) ([]SearchResult, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	trimmedQuery := trimToWordLimit(query, maxQueryWords)
	if trimmedQuery == "" {
		return nil, nil
	}
	if count <= 0 {
		count = 5
	}

	var parsed webAPIResponse
	if err := c.get(ctx, "/web/search", url.Values{
		"q":                {trimmedQuery},
		"count":            {strconv.Itoa(count)},
		"spellcheck":       {"0"},
		"text_decorations": {"0"},
	}, &parsed); err != nil {
		return nil, err
	}

	rawResults := parsed.Web.Results
	if len(rawResults) == 0 {
		rawResults = parsed.Results
	}

	results := make([]SearchResult, 0, len(rawResults))
	seenURLs := make(map[string]struct{}, len(rawResults))
	for _, item := range rawResults {
		rawURL := strings.TrimSpace(item.URL)
		if rawURL == "" {
			continue
		}
		if _, exists := seenURLs[rawURL]; exists {
			continue
		}
		seenURLs[rawURL] = struct{}{}

		title := strings.TrimSpace(item.Title)
		if title == "" {
			title = rawURL
		}

		snippet := strings.TrimSpace(item.Description)
		if snippet == "" {
			snippet = strings.TrimSpace(item.Snippet)
		}
		if snippet == "" && len(item.ExtraSnippets) > 0 {
			snippet = strings.TrimSpace(item.ExtraSnippets[0])
		}

		results = append(results, SearchResult{
			URL:         rawURL,
			Title:       title,
			Snippet:     snippet,
			DisplayLink: displayLink(item.MetaURL.Hostname, rawURL),
		})
		if len(results) >= count {
			break
		}
	}
	return results, nil
}

// SearchImages queries the image vertical with strict safe search.
func (c Client) SearchImages(ctx context.Context, query string, count int) ([]ImageResult, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	trimmedQuery := trimToWordLimit(query, maxQueryWords)
	if trimmedQuery == "" {
		return nil, nil
	}
	if count <= 0 {
		count = 6
	}

	var parsed imageAPIResponse
	if err := c.get(ctx, "/images/search", url.Values{
		"q":          {trimmedQuery},
		"count":      {strconv.Itoa(count)},
		"safesearch": {"strict"},
	}, &parsed); err != nil {
		return nil, err
	}

	images := make([]ImageResult, 0, len(parsed.Results))
	for _, item := range parsed.Results {
		imageURL := strings.TrimSpace(item.Properties.URL)
		if imageURL == "" {
			imageURL = strings.TrimSpace(item.Thumbnail.Src)
		}
		if imageURL == "" {
			continue
		}
		images = append(images, ImageResult{
			Title:        strings.TrimSpace(item.Title),
			ImageURL:     imageURL,
			ThumbnailURL: strings.TrimSpace(item.Thumbnail.Src),
			PageURL:      strings.TrimSpace(item.URL),
			SourceDomain: displayLink(item.Source, item.URL),
		})
		if len(images) >= count {
			break
		}
	}
	return images, nil
}

func (c Client) get(ctx context.Context, path string, params url.Values, target any) error {
	endpoint, err := url.Parse(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("parse brave endpoint: %w", err)
	}
	endpoint.RawQuery = params.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return fmt.Errorf("build brave request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Subscription-Token", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request brave: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decode brave response: %w", err)
	}
	return nil
}

func displayLink(hostname, rawURL string) string {
	if host := strings.TrimSpace(hostname); host != "" {
		return host
	}
	if parsed, err := url.Parse(rawURL); err == nil {
		return parsed.Hostname()
	}
	return ""
}

func trimToWordLimit(input string, maxWords int) string {
	if maxWords <= 0 {
		return ""
	}
	words := strings.Fields(strings.TrimSpace(input))
	if len(words) <= maxWords {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:maxWords], " ")
}
