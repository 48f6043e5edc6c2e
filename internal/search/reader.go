package search

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"golang.org/x/net/html"
)

const (
	pageUserAgent    = "Mozilla/5.0 (compatible; OneAI-Bot/1.0)"
	pageMaxRunes     = 2500
	pageMaxBodyBytes = int64(2_000_000)
	pageMaxRedirects = 3
	defaultPageFetch = 8 * time.Second
)

// PageReader fetches a result page and reduces it to plain text.
type PageReader struct {
	timeout      time.Duration
	httpClient   *http.Client
	allowPrivate bool
}

func NewPageReader(timeout time.Duration) *PageReader {
	if timeout <= 0 {
		timeout = defaultPageFetch
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = guardedDialContext(&net.Dialer{Timeout: timeout})
	// decodedBody handles gzip and br
	transport.DisableCompression = true

	r := &PageReader{timeout: timeout}
	r.httpClient = &http.Client{
		Transport:     transport,
		CheckRedirect: r.checkRedirect,
	}
	return r
}

func (r *PageReader) checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= pageMaxRedirects {
		return errors.New("too many redirects")
	}
	if r.allowPrivate {
		return nil
	}
	_, err := validatePageURL(req.URL.String())
	return err
}

// Read returns at most pageMaxRunes of whitespace-collapsed page text.
func (r *PageReader) Read(ctx context.Context, rawURL string) (string, error) {
	target := rawURL
	if !r.allowPrivate {
		parsed, err := validatePageURL(rawURL)
		if err != nil {
			return "", err
		}
		target = parsed.String()
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", fmt.Errorf("build page request: %w", err)
	}
	req.Header.Set("User-Agent", pageUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,text/plain;q=0.9,*/*;q=0.2")
	req.Header.Set("Accept-Encoding", "gzip, br")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("page returned status %d", resp.StatusCode)
	}

	body, err := decodedBody(resp)
	if err != nil {
		return "", err
	}
	payload, err := io.ReadAll(io.LimitReader(body, pageMaxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("read page: %w", err)
	}
	return extractPageText(resp.Header.Get("Content-Type"), payload)
}

func decodedBody(resp *http.Response) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("open gzip body: %w", err)
		}
		return gz, nil
	case "br":
		return brotli.NewReader(resp.Body), nil
	default:
		return resp.Body, nil
	}
}

func extractPageText(contentType string, payload []byte) (string, error) {
	mediaType := "text/html"
	if parsed, _, err := mime.ParseMediaType(contentType); err == nil {
		mediaType = strings.ToLower(parsed)
	}

	var text string
	switch {
	case mediaType == "text/html", mediaType == "application/xhtml+xml":
		doc, err := html.Parse(bytes.NewReader(payload))
		if err != nil {
			return "", fmt.Errorf("parse html: %w", err)
		}
		var b strings.Builder
		collectText(doc, &b)
		text = b.String()
	case strings.HasPrefix(mediaType, "text/"):
		text = string(payload)
	default:
		return "", fmt.Errorf("unsupported content type %q", mediaType)
	}

	text = strings.Join(strings.Fields(strings.ToValidUTF8(text, "")), " ")
	return trimToRunes(text, pageMaxRunes), nil
}

func collectText(node *html.Node, out *strings.Builder) {
	if node.Type == html.ElementNode {
		switch strings.ToLower(node.Data) {
		case "script", "style", "nav", "header", "footer", "noscript", "svg", "iframe", "head":
			return
		}
	}
	if node.Type == html.TextNode {
		out.WriteString(node.Data)
		out.WriteByte(' ')
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		collectText(child, out)
	}
}

func trimToRunes(raw string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(raw)
	if len(runes) <= limit {
		return raw
	}
	return string(runes[:limit])
}
