package httpapi

import (
	"net/http"
	"strings"

	"oneai/backend/internal/providers"
	"oneai/backend/internal/search"
)

const msgQueryRequired = "Query is required and must be a string"

type webSearchRequest struct {
	Query    string `json:"query"`
	Provider string `json:"provider"`
}

type imageSearchRequest struct {
	Query string `json:"query"`
}

func (h Handler) WebSearch(w http.ResponseWriter, r *http.Request) {
	var req webSearchRequest
	if err := decodeJSON(r, &req); err != nil || strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, msgQueryRequired)
		return
	}
	if h.search == nil {
		writeJSON(w, http.StatusInternalServerError, errorDetailsResponse{Error: "Failed to perform web search", Details: search.ErrNotConfigured.Error()})
		return
	}

	// summaries default to gemini rather than the chat default
	requested := providers.Gemini
	if strings.TrimSpace(req.Provider) != "" {
		requested = providers.Parse(req.Provider)
	}

	resp, err := h.search.Web(r.Context(), req.Query, requested)
	if err != nil {
		h.logger.Error("web search failed", "query", req.Query, "provider", requested, "err", err)
		writeJSON(w, http.StatusInternalServerError, h.search.WebFailure(err))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h Handler) ImageSearch(w http.ResponseWriter, r *http.Request) {
	var req imageSearchRequest
	if err := decodeJSON(r, &req); err != nil || strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, msgQueryRequired)
		return
	}

	resp, err := h.searchImages(r.Context(), req.Query)
	if err != nil {
		h.logger.Error("image search failed", "query", req.Query, "err", err)
		writeJSON(w, http.StatusInternalServerError, errorDetailsResponse{Error: "Image search failed", Details: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
