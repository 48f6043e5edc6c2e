package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"oneai/backend/internal/store"
)

type conversationResponse struct {
	store.Conversation
	ModeLabel string `json:"mode_label"`
	ModeEmoji string `json:"mode_emoji"`
}

func (h Handler) ListConversations(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("userId"))
	conversations, err := h.conversations.List(r.Context(), userID)
	if err != nil {
		h.logger.Error("list conversations failed", "user_id", userID, "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to load conversations")
		return
	}

	list := make([]conversationResponse, 0, len(conversations))
	for _, conv := range conversations {
		info := store.ModeDisplay(conv.Mode)
		list = append(list, conversationResponse{Conversation: conv, ModeLabel: info.Label, ModeEmoji: info.Emoji})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"conversations": list,
		"groups":        store.GroupByRecency(conversations, h.now()),
	})
}

func (h Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	conversationID := strings.TrimSpace(chi.URLParam(r, "conversationID"))
	if conversationID == "" {
		writeError(w, http.StatusBadRequest, "Conversation id is required")
		return
	}

	userID := strings.TrimSpace(r.URL.Query().Get("userId"))
	messages, err := h.conversations.Messages(r.Context(), userID, conversationID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Conversation not found")
		return
	}
	if err != nil {
		h.logger.Error("list messages failed", "conversation_id", conversationID, "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to load messages")
		return
	}
	if messages == nil {
		messages = []store.Message{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": messages})
}
