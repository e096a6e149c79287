package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/lychee-technology/formview"
	"github.com/lychee-technology/formview/internal"
	"github.com/lychee-technology/formview/internal/logging"
	"github.com/rs/cors"
)

// Server exposes a Manager over HTTP.
type Server struct {
	manager formview.Manager
	store   formview.Store
	config  *formview.Config
}

// NewServer creates a new Server instance
func NewServer(manager formview.Manager, store formview.Store, config *formview.Config) *Server {
	if config == nil {
		config = formview.DefaultConfig()
	}
	return &Server{
		manager: manager,
		store:   store,
		config:  config,
	}
}

// Routes builds the router with every API route registered.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(logging.RequestLogger)
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   s.config.Server.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
	}).Handler)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		if s.config.Server.RequestTimeout > 0 {
			r.Use(middleware.Timeout(s.config.Server.RequestTimeout))
		}
		r.Use(internal.ReferenceLoaderMiddleware(s.store))

		r.Route("/forms/{formId}", func(r chi.Router) {
			r.Get("/submissions", s.handleListSubmissions)
			r.Post("/submissions", s.handleCreateSubmission)
			r.Post("/submissions/validate", s.handleValidateSubmission)
			r.Put("/submissions/{submissionId}", s.handleUpdateSubmission)
			r.Get("/fields/{fieldKey}/values", s.handleFieldValues)
			r.Get("/fields/{fieldKey}/submission-options", s.handleSubmissionOptions)
		})

		r.Post("/views/preview", s.handleViewPreview)
		r.Get("/views/{viewId}/data", s.handleViewData)
		r.Get("/views/{viewId}/export", s.handleViewExport)
	})
	return r
}
