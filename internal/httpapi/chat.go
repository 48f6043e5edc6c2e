package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"oneai/backend/internal/chunkstream"
	"oneai/backend/internal/ingest"
	"oneai/backend/internal/llm"
	"oneai/backend/internal/prompt"
	"oneai/backend/internal/providers"
	"oneai/backend/internal/router"
	"oneai/backend/internal/search"
	"oneai/backend/internal/store"
	"oneai/backend/internal/tokens"
)

const (
	conversationIDHeader = "X-Conversation-Id"

	msgNoProviders   = "No AI providers are configured. Please check your API keys."
	msgChatFailed    = "Failed to process chat request"
	msgInvalidBody   = "Invalid request body"
	msgEmptyMessages = "Messages array is required and must not be empty"
	msgInvalidFormat = "Invalid message format"
)

type chatMessage struct {
	Role           string `json:"role"`
	Content        string `json:"content"`
	ConversationID string `json:"conversation_id"`
}

type chatRequest struct {
	Messages []chatMessage `json:"messages"`
	Mode     string        `json:"mode"`
	UserID   string        `json:"userId"`
	Provider string        `json:"provider"`
	Model    string        `json:"model"`
}

// chatTurn is everything the streaming path needs, whichever endpoint
// produced it.
type chatTurn struct {
	userID         string
	mode           prompt.Mode
	provider       providers.ID
	model          string
	conversationID string
	userText       string
	history        []chatMessage
	attachments    []ingest.Block
	// fileAnalysis marks a chat-with-files turn. It keeps the vision route
	// even when every upload was dropped.
	fileAnalysis bool
}

func (h Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}
	if len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, msgEmptyMessages)
		return
	}
	last := req.Messages[len(req.Messages)-1]
	if strings.TrimSpace(last.Content) == "" {
		writeError(w, http.StatusBadRequest, msgInvalidFormat)
		return
	}

	h.streamChat(w, r, chatTurn{
		userID:         strings.TrimSpace(req.UserID),
		mode:           prompt.ParseMode(req.Mode),
		provider:       providers.Parse(req.Provider),
		model:          strings.TrimSpace(req.Model),
		conversationID: last.ConversationID,
		userText:       last.Content,
		history:        req.Messages,
	})
}

func (h Handler) streamChat(w http.ResponseWriter, r *http.Request, turn chatTurn) {
	ctx := r.Context()
	if h.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.cfg.RequestTimeout)
		defer cancel()
	}

	hasAttachments := turn.fileAnalysis || len(turn.attachments) > 0
	if !hasAttachments && prompt.IsImageDisplayRequest(prompt.Enrich(turn.userText, turn.provider)) {
		h.streamImageReply(ctx, w, turn)
		return
	}

	sel, err := h.router.Route(router.Input{
		Mode:           turn.mode,
		Provider:       turn.provider,
		Text:           turn.userText,
		HasAttachments: hasAttachments,
		Model:          turn.model,
	})
	if errors.Is(err, router.ErrNoProviderConfigured) {
		writeError(w, http.StatusInternalServerError, msgNoProviders)
		return
	}
	if err != nil {
		h.logger.Error("route chat request failed", "mode", turn.mode, "provider", turn.provider, "err", err)
		writeError(w, http.StatusInternalServerError, msgChatFailed)
		return
	}

	client, err := h.clients.For(sel.Provider)
	if err != nil {
		h.logger.Error("no client for routed provider", "provider", sel.Provider, "err", err)
		writeError(w, http.StatusInternalServerError, msgNoProviders)
		return
	}

	saved := h.conversations.StartTurn(ctx, turn.userID, string(turn.mode), turn.conversationID, turn.userText)
	stream, err := client.Stream(ctx, buildLLMRequest(turn, sel))
	if err != nil {
		h.logger.Error("open model stream failed",
			"conversation_id", saved.ConversationID(),
			"mode", turn.mode,
			"provider", sel.Provider,
			"model_class", sel.ModelClass,
			"err", err,
		)
		writeError(w, http.StatusInternalServerError, msgChatFailed)
		return
	}

	h.logger.Info("chat stream started",
		"conversation_id", saved.ConversationID(),
		"mode", turn.mode,
		"requested", sel.Requested,
		"provider", sel.Provider,
		"model", sel.Model,
		"auto_rule", sel.AutoRule,
		"attachments", len(turn.attachments),
	)
	h.relayStream(ctx, w, stream, saved)
}

func buildLLMRequest(turn chatTurn, sel router.Selection) llm.Request {
	req := llm.Request{
		Model:       sel.Model,
		System:      sel.SystemPrompt,
		Temperature: sel.Temperature,
		MaxTokens:   sel.MaxTokens,
	}

	if turn.fileAnalysis || len(turn.attachments) > 0 {
		content, media := ingest.Compose(turn.userText, turn.attachments, sel.InlineMedia)
		req.Messages = []llm.Message{{Role: llm.RoleUser, Content: content}}
		for _, m := range media {
			req.Media = append(req.Media, llm.Media{MIMEType: m.MIMEType, Data: m.Data})
		}
		return req
	}

	for _, msg := range turn.history {
		switch msg.Role {
		case llm.RoleUser:
			req.Messages = append(req.Messages, llm.Message{Role: llm.RoleUser, Content: prompt.Enrich(msg.Content, sel.Provider)})
		case llm.RoleAssistant:
			req.Messages = append(req.Messages, llm.Message{Role: llm.RoleAssistant, Content: msg.Content})
		}
	}
	return req
}

// streamImageReply answers "show me a picture of ..." with image search
// results framed as a model reply.
func (h Handler) streamImageReply(ctx context.Context, w http.ResponseWriter, turn chatTurn) {
	query := prompt.ImageSearchQuery(turn.userText)
	saved := h.conversations.StartTurn(ctx, turn.userID, string(turn.mode), turn.conversationID, turn.userText)

	var reply string
	found, err := h.searchImages(ctx, query)
	switch {
	case err != nil:
		h.logger.Warn("image search for chat failed", "query", query, "err", err)
		reply = prompt.ImageSearchFailedReply(query)
	case len(found.Images) == 0:
		reply = prompt.ImageNotFoundReply(query)
	default:
		hits := make([]prompt.ImageResult, 0, len(found.Images))
		for _, img := range found.Images {
			hits = append(hits, prompt.ImageResult{Title: img.Title, ImageURL: img.ImageURL, SourceDomain: img.SourceDomain})
		}
		reply = prompt.ImageFoundReply(query, hits)
	}

	stream := chunkstream.Synthesize(reply, chunkstream.ReaderOptions{
		PromptTokens: tokens.Count(turn.userText),
		CountTokens:  tokens.Count,
	})
	h.relayStream(ctx, w, stream, saved)
}

func (h Handler) searchImages(ctx context.Context, query string) (search.ImageResponse, error) {
	if h.search == nil {
		return search.ImageResponse{}, search.ErrNotConfigured
	}
	return h.search.Images(ctx, query)
}

func (h Handler) relayStream(ctx context.Context, w http.ResponseWriter, stream io.ReadCloser, saved store.Turn) {
	defer stream.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	if saved.Persisting() {
		w.Header().Set(conversationIDHeader, saved.ConversationID())
	}
	w.WriteHeader(http.StatusOK)

	outcome, err := h.relay.Stream(ctx, stream, w, saved.SaveAssistant)
	if err != nil {
		h.logger.Warn("model stream ended early",
			"conversation_id", saved.ConversationID(),
			"bytes", outcome.BytesForwarded,
			"err", err,
		)
		return
	}
	h.logger.Debug("chat stream finished",
		"conversation_id", saved.ConversationID(),
		"done", outcome.Done,
		"client_gone", outcome.ClientGone,
		"bytes", outcome.BytesForwarded,
	)
}
