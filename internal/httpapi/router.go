package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func NewRouter(h Handler, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(accessLog(h.logger))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With"},
		ExposedHeaders:   []string{"Content-Type", conversationIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", h.Healthz)

	r.Route("/api", func(api chi.Router) {
		api.Post("/chat", h.Chat)
		api.Post("/chat-with-files", h.ChatWithFiles)
		api.Post("/web-search", h.WebSearch)
		api.Post("/image-search", h.ImageSearch)
		api.Get("/conversations", h.ListConversations)
		api.Get("/conversations/{conversationID}/messages", h.ListMessages)
		api.Get("/models", h.ListModels)
		api.Get("/ip", h.IP)
	})

	return r
}
