package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(apiHandler *APIHandler, sendLimiter *LimiterStore) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)       // Basic request logging
	r.Use(middleware.Recoverer)    // Recover from panics
	r.Use(middleware.StripSlashes) // Ensure consistent path handling

	// All API routes will be under /api
	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Post("/register", apiHandler.RegisterHandler)
		r.Post("/login", apiHandler.LoginHandler)
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok"}`))
		})

		// User-authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(apiHandler.JWTAuthMiddleware)

			// Skill routes (the ownership facts the swap engine checks)
			r.Post("/skills", apiHandler.CreateSkillHandler)
			r.Get("/skills", apiHandler.ListMySkillsHandler)
			r.Get("/users/{userID}/skills", apiHandler.ListUserSkillsHandler)

			// Swap request routes
			r.Post("/swaps", apiHandler.CreateSwapHandler)
			r.Get("/swaps", apiHandler.ListSwapsHandler)
			r.Post("/swaps/{swapID}/status", apiHandler.SwapStatusHandler)

			// Conversation routes
			r.Post("/conversations", apiHandler.FindOrCreateConversationHandler)
			r.Get("/conversations", apiHandler.ListConversationsHandler)
			r.Get("/conversations/{conversationID}/messages", apiHandler.GetMessagesHandler)
			r.With(RateLimitMiddleware(sendLimiter)).
				Post("/conversations/{conversationID}/messages", apiHandler.SendMessageHandler)
			r.Post("/conversations/{conversationID}/read", apiHandler.MarkReadHandler)

			// Rating routes
			r.Post("/swaps/{swapID}/ratings", apiHandler.RateSwapHandler)
			r.Patch("/ratings/{ratingID}", apiHandler.UpdateRatingHandler)
			r.Get("/users/{userID}/rating", apiHandler.UserRatingHandler)

			// Polling/reconciliation route
			r.Get("/sync", apiHandler.SyncHandler)
		})
	})

	return r
}
