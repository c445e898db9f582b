package handler

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

// NewRouter creates a new HTTP router with all routes configured
func NewRouter(
	sessionHandler *SessionHandler,
	highlightHandler *HighlightHandler,
	authMiddleware func(http.Handler) http.Handler,
	allowedOrigins []string,
) http.Handler {
	router := mux.NewRouter()

	// Health check endpoint (no auth required)
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok","service":"reader-sync"}`))
	}).Methods("GET")

	api := router.PathPrefix("/api/v1").Subrouter()
	protected := api.PathPrefix("").Subrouter()
	protected.Use(authMiddleware)

	// Session routes
	protected.HandleFunc("/sessions", sessionHandler.OpenSession).Methods("POST")
	protected.HandleFunc("/sessions/{documentId}", sessionHandler.GetSession).Methods("GET")
	protected.HandleFunc("/sessions/{documentId}", sessionHandler.CloseSession).Methods("DELETE")
	protected.HandleFunc("/sessions/{documentId}/position", sessionHandler.GoTo).Methods("PUT")
	protected.HandleFunc("/sessions/{documentId}/advance", sessionHandler.Advance).Methods("POST")
	protected.HandleFunc("/sessions/{documentId}/layout", sessionHandler.SetLayout).Methods("PUT")
	protected.HandleFunc("/sessions/{documentId}/scroll", sessionHandler.ObserveScroll).Methods("POST")
	protected.HandleFunc("/sessions/{documentId}/view-mode", sessionHandler.SetViewMode).Methods("PUT")
	protected.HandleFunc("/sessions/{documentId}/progress", sessionHandler.GetProgress).Methods("GET")

	// Highlight routes
	protected.HandleFunc("/sessions/{documentId}/highlights", highlightHandler.ListHighlights).Methods("GET")
	protected.HandleFunc("/sessions/{documentId}/highlights", highlightHandler.CreateHighlight).Methods("POST")
	protected.HandleFunc("/sessions/{documentId}/highlights/reload", highlightHandler.ReloadHighlights).Methods("POST")
	protected.HandleFunc("/sessions/{documentId}/highlights/{id}", highlightHandler.UpdateHighlight).Methods("PATCH")
	protected.HandleFunc("/sessions/{documentId}/highlights/{id}", highlightHandler.DeleteHighlight).Methods("DELETE")
	protected.HandleFunc("/sessions/{documentId}/highlights/{id}/color", highlightHandler.ApplyColor).Methods("POST")

	// Configure CORS
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
		},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	})

	return c.Handler(router)
}
