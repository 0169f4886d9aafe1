// Package server provides the HTTP API service for inkwell.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/thebtf/inkwell/internal/config"
	"github.com/thebtf/inkwell/internal/db"
)

// Service configuration constants
const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second

	// MaxRequestBodySize caps incoming JSON payloads.
	MaxRequestBodySize = 1 << 20 // 1 MiB
)

// Service is the HTTP API orchestrator.
type Service struct {
	config *config.Config

	store      *db.Store
	users      *db.UserStore
	posts      *db.PostStore
	categories *db.CategoryStore

	router    *chi.Mux
	server    *http.Server
	startTime time.Time
}

// NewService wires the stores and routes onto a ready-to-start service.
func NewService(cfg *config.Config, store *db.Store) *Service {
	s := &Service{
		config:     cfg,
		store:      store,
		users:      db.NewUserStore(store),
		posts:      db.NewPostStore(store),
		categories: db.NewCategoryStore(store),
		startTime:  time.Now(),
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(RequestLogger)
	r.Use(Recover)
	r.Use(SecurityHeaders)
	r.Use(MaxBodySize(MaxRequestBodySize))

	r.Get("/health", s.handleHealth)
	r.Get("/health/detail", s.handleHealthDetail)

	r.Route("/api", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			r.Get("/", s.handleListUsers)
			r.Post("/", s.handleCreateUser)
			r.Get("/{publicID}", s.handleGetUser)
			r.Post("/{publicID}/roles", s.handleGrantRole)
			r.Delete("/{publicID}/roles/{role}", s.handleRevokeRole)
		})

		r.Route("/posts", func(r chi.Router) {
			r.Get("/", s.handleListPosts)
			r.Post("/", s.handleCreatePost)
			r.Get("/{slug}", s.handleGetPost)
			r.Post("/{slug}/publish", s.handlePublishPost)
			r.Post("/{slug}/comments", s.handleAddComment)
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", s.handleListCategories)
			r.Post("/", s.handleCreateCategory)
		})

		r.Get("/stats/authors", s.handleAuthorStats)
	})

	s.router = r
	s.server = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      r,
		ReadTimeout:  DefaultHTTPTimeout,
		WriteTimeout: DefaultHTTPTimeout,
	}
	return s
}

// Router exposes the chi mux, mainly for tests.
func (s *Service) Router() http.Handler {
	return s.router
}

// Start begins serving HTTP. It blocks until the listener fails or the
// server is shut down.
func (s *Service) Start() error {
	log.Info().Str("addr", s.config.ListenAddr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and closes the database.
func (s *Service) Shutdown(ctx context.Context) error {
	log.Info().Msg("Shutting down HTTP API")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return s.store.Close()
}
