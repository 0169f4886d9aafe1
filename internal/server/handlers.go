// Package server provides the HTTP API service for inkwell.
package server

import (
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/thebtf/inkwell/internal/db"
	"github.com/thebtf/inkwell/pkg/models"
)

// writeJSON writes a JSON response with proper error handling.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeError maps store errors onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, db.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, db.ErrDuplicate):
		status = http.StatusConflict
	case errors.Is(err, db.ErrInvalidInput):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("Request failed")
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// decodeJSON reads a request body into dst.
func decodeJSON(r *http.Request, dst interface{}) error {
	defer func() { _ = r.Body.Close() }()
	return json.NewDecoder(r.Body).Decode(dst)
}

// --- health ---

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unhealthy",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
		"driver": s.store.Driver(),
		"uptime": time.Since(s.startTime).String(),
	})
}

func (s *Service) handleHealthDetail(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.HealthCheck(r.Context()))
}

// --- users ---

// CreateUserRequest is the payload for POST /api/users.
type CreateUserRequest struct {
	Email       string   `json:"email"`
	DisplayName string   `json:"display_name"`
	Bio         string   `json:"bio"`
	Interests   []string `json:"interests"`
}

func (s *Service) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	user := &db.User{
		Email:       req.Email,
		DisplayName: req.DisplayName,
		Interests:   models.JSONStringArray(req.Interests),
		Active:      true,
	}
	if req.Bio != "" {
		user.Bio = sql.NullString{String: req.Bio, Valid: true}
	}

	if err := s.users.CreateUser(r.Context(), user); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (s *Service) handleListUsers(w http.ResponseWriter, r *http.Request) {
	page := ParsePaginationParams(r)
	users, total, err := s.users.ListUsers(r.Context(), page.Limit, page.Offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"users":  users,
		"total":  total,
		"limit":  page.Limit,
		"offset": page.Offset,
	})
}

func (s *Service) handleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.users.GetUserByPublicID(r.Context(), chi.URLParam(r, "publicID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// GrantRoleRequest is the payload for POST /api/users/{publicID}/roles.
type GrantRoleRequest struct {
	Role      string `json:"role"`
	GrantedBy string `json:"granted_by"`
}

func (s *Service) handleGrantRole(w http.ResponseWriter, r *http.Request) {
	var req GrantRoleRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	user, err := s.users.GetUserByPublicID(r.Context(), chi.URLParam(r, "publicID"))
	if err != nil {
		writeError(w, err)
		return
	}

	if err := s.users.GrantRole(r.Context(), user.ID, req.Role, req.GrantedBy); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "granted"})
}

func (s *Service) handleRevokeRole(w http.ResponseWriter, r *http.Request) {
	user, err := s.users.GetUserByPublicID(r.Context(), chi.URLParam(r, "publicID"))
	if err != nil {
		writeError(w, err)
		return
	}

	if err := s.users.RevokeRole(r.Context(), user.ID, chi.URLParam(r, "role")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "revoked"})
}

// --- posts ---

// postOptions translates ?include=author,tags,comments,category into
// eager-loading options.
func postOptions(r *http.Request) []db.PostOption {
	includes := ParseIncludeParam(r)
	var opts []db.PostOption
	if includes["author"] {
		opts = append(opts, db.WithAuthor())
	}
	if includes["tags"] {
		opts = append(opts, db.WithTags())
	}
	if includes["comments"] {
		opts = append(opts, db.WithComments())
	}
	if includes["category"] {
		opts = append(opts, db.WithCategory())
	}
	return opts
}

// CreatePostRequest is the payload for POST /api/posts.
type CreatePostRequest struct {
	AuthorID   int64    `json:"author_id"`
	CategoryID *int64   `json:"category_id"`
	Title      string   `json:"title"`
	Slug       string   `json:"slug"`
	Body       string   `json:"body"`
	Tags       []string `json:"tags"`
}

func (s *Service) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	var req CreatePostRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	post := &db.Post{
		AuthorID: req.AuthorID,
		Title:    req.Title,
		Slug:     req.Slug,
		Body:     req.Body,
	}
	if req.CategoryID != nil {
		post.CategoryID = sql.NullInt64{Int64: *req.CategoryID, Valid: true}
	}

	if err := s.posts.CreatePost(r.Context(), post, req.Tags); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

func (s *Service) handleListPosts(w http.ResponseWriter, r *http.Request) {
	page := ParsePaginationParams(r)

	if tag := r.URL.Query().Get("tag"); tag != "" {
		posts, err := s.posts.ListByTag(r.Context(), tag, postOptions(r)...)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"posts": posts})
		return
	}

	posts, total, err := s.posts.ListPublished(r.Context(), page.Limit, page.Offset, postOptions(r)...)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"posts":  posts,
		"total":  total,
		"limit":  page.Limit,
		"offset": page.Offset,
	})
}

func (s *Service) handleGetPost(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	post, err := s.posts.GetPostBySlug(r.Context(), slug, postOptions(r)...)
	if err != nil {
		writeError(w, err)
		return
	}

	// View counting is best effort; a failed bump never fails the read.
	if err := s.posts.IncrementViews(r.Context(), post.ID); err != nil {
		log.Warn().Err(err).Str("slug", slug).Msg("Failed to bump view count")
	}

	writeJSON(w, http.StatusOK, post)
}

func (s *Service) handlePublishPost(w http.ResponseWriter, r *http.Request) {
	post, err := s.posts.GetPostBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, err)
		return
	}

	if err := s.posts.Publish(r.Context(), post.ID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "published"})
}

// AddCommentRequest is the payload for POST /api/posts/{slug}/comments.
type AddCommentRequest struct {
	AuthorID int64  `json:"author_id"`
	ParentID *int64 `json:"parent_id"`
	Body     string `json:"body"`
}

func (s *Service) handleAddComment(w http.ResponseWriter, r *http.Request) {
	var req AddCommentRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	post, err := s.posts.GetPostBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, err)
		return
	}

	comment := &db.Comment{
		PostID:   post.ID,
		AuthorID: req.AuthorID,
		Body:     req.Body,
	}
	if req.ParentID != nil {
		comment.ParentID = sql.NullInt64{Int64: *req.ParentID, Valid: true}
	}

	if err := s.posts.AddComment(r.Context(), comment); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

// --- categories ---

// CreateCategoryRequest is the payload for POST /api/categories.
type CreateCategoryRequest struct {
	Name     string `json:"name"`
	Slug     string `json:"slug"`
	ParentID *int64 `json:"parent_id"`
}

func (s *Service) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CreateCategoryRequest
	if err := decodeJSON(r, &req); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	cat := &db.Category{Name: req.Name, Slug: req.Slug}
	if req.ParentID != nil {
		cat.ParentID = sql.NullInt64{Int64: *req.ParentID, Valid: true}
	}

	if err := s.categories.CreateCategory(r.Context(), cat); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, cat)
}

func (s *Service) handleListCategories(w http.ResponseWriter, r *http.Request) {
	roots, err := s.categories.ListRoots(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"categories": roots})
}

// --- stats ---

func (s *Service) handleAuthorStats(w http.ResponseWriter, r *http.Request) {
	counts, err := s.posts.CountByAuthor(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"authors": counts})
}
