package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"oneai/backend/internal/config"
	"oneai/backend/internal/ingest"
	"oneai/backend/internal/llm"
	"oneai/backend/internal/providers"
	"oneai/backend/internal/relay"
	"oneai/backend/internal/router"
	"oneai/backend/internal/search"
	"oneai/backend/internal/store"
)

const (
	ipCacheKey = "public-ip"
	ipCacheTTL = 5 * time.Minute
)

// Deps are the long-lived collaborators built once in main.
type Deps struct {
	Config        config.Config
	Logger        *slog.Logger
	Registry      providers.Registry
	Clients       llm.Clients
	Conversations *store.Conversations
	Relay         *relay.Relay
	Search        *search.Service
	Archiver      *ingest.Archiver
	HTTPClient    *http.Client
}

type Handler struct {
	cfg           config.Config
	logger        *slog.Logger
	registry      providers.Registry
	router        router.Router
	clients       llm.Clients
	conversations *store.Conversations
	relay         *relay.Relay
	search        *search.Service
	archiver      *ingest.Archiver
	httpClient    *http.Client
	ipCache       *cache.Cache
	now           func() time.Time
}

func NewHandler(deps Deps) Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	httpClient := deps.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	relayer := deps.Relay
	if relayer == nil {
		relayer = relay.New(logger, deps.Config.PersistTimeout)
	}
	return Handler{
		cfg:           deps.Config,
		logger:        logger,
		registry:      deps.Registry,
		router:        router.New(deps.Registry),
		clients:       deps.Clients,
		conversations: deps.Conversations,
		relay:         relayer,
		search:        deps.Search,
		archiver:      deps.Archiver,
		httpClient:    httpClient,
		ipCache:       cache.New(ipCacheTTL, 2*ipCacheTTL),
		now:           time.Now,
	}
}

func (h Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type modelClassResponse struct {
	Class string `json:"class"`
	Model string `json:"model"`
}

type providerResponse struct {
	ID           string               `json:"id"`
	Name         string               `json:"name"`
	Available    bool                 `json:"available"`
	DefaultClass string               `json:"defaultClass"`
	Classes      []modelClassResponse `json:"classes"`
}

func (h Handler) ListModels(w http.ResponseWriter, _ *http.Request) {
	list := make([]providerResponse, 0, len(providers.Priority))
	for _, id := range providers.Priority {
		classes := h.registry.Classes(id)
		entry := providerResponse{
			ID:           string(id),
			Name:         providers.Describe(id).Name,
			Available:    h.registry.Available(id),
			DefaultClass: h.registry.DefaultClass(id),
			Classes:      make([]modelClassResponse, 0, len(classes)),
		}
		for _, class := range classes {
			entry.Classes = append(entry.Classes, modelClassResponse{Class: class, Model: h.registry.ResolveModel(id, class)})
		}
		list = append(list, entry)
	}

	defaultProvider := ""
	if id, ok := h.registry.FirstAvailable(); ok {
		defaultProvider = string(id)
	}
	writeJSON(w, http.StatusOK, map[string]any{"providers": list, "defaultProvider": defaultProvider})
}

// IP reports the server's public address, cached for five minutes.
func (h Handler) IP(w http.ResponseWriter, r *http.Request) {
	if cached, ok := h.ipCache.Get(ipCacheKey); ok {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	payload, err := h.lookupIP(r.Context())
	if err != nil {
		h.logger.Error("public ip lookup failed", "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to fetch IP address")
		return
	}
	h.ipCache.Set(ipCacheKey, payload, cache.DefaultExpiration)
	writeJSON(w, http.StatusOK, payload)
}

func (h Handler) lookupIP(ctx context.Context) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.cfg.IPLookupURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build ip lookup request: %w", err)
	}
	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request ip lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("ip lookup returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	var payload map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode ip lookup: %w", err)
	}
	return payload, nil
}

func fallback(value, other string) string {
	if strings.TrimSpace(value) == "" {
		return other
	}
	return strings.TrimSpace(value)
}
