package handler

import (
	"encoding/json"
	"errors"
	"go-taxonomy-service/internal/logger"
	"go-taxonomy-service/internal/middleware"
	"go-taxonomy-service/internal/service"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// PostHandler holds the dependencies for the post handlers.
type PostHandler struct {
	posts *service.PostService
	log   logger.Logger
}

// NewPostHandler creates a new PostHandler with the given dependencies.
func NewPostHandler(posts *service.PostService, log logger.Logger) *PostHandler {
	return &PostHandler{
		posts: posts,
		log:   log,
	}
}

// publishRequest is the payload for publishing a post.
type publishRequest struct {
	Title        string   `json:"title"`
	Content      string   `json:"content"`
	OwnerID      int64    `json:"owner_id"`
	CategoryPath []string `json:"category_path"`
	Tags         []string `json:"tags"`
}

// publishHandler stores a new post with its resolved category path and tags.
func (h *PostHandler) publishHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	var req publishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return &middleware.AppError{Error: err, Message: "Invalid request body", Code: http.StatusBadRequest}
	}
	if req.Title == "" {
		return &middleware.AppError{Error: errors.New("missing title"), Message: "Post title is required", Code: http.StatusBadRequest}
	}

	post, err := h.posts.PublishPost(r.Context(), req.Title, req.Content, req.OwnerID, req.CategoryPath, req.Tags)
	if err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to publish post", Code: http.StatusInternalServerError}
	}

	respondJSON(w, http.StatusCreated, post)
	return nil
}

// getHandler returns a single post with its tags.
func (h *PostHandler) getHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return &middleware.AppError{Error: err, Message: "Invalid post id", Code: http.StatusBadRequest}
	}

	post, err := h.posts.GetPost(r.Context(), id)
	if err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to load post", Code: http.StatusInternalServerError}
	}
	if post == nil {
		return &middleware.AppError{Error: errors.New("post not found"), Message: "Post not found", Code: http.StatusNotFound}
	}

	tags, err := h.posts.GetPostTags(r.Context(), id)
	if err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to load post tags", Code: http.StatusInternalServerError}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"post": post,
		"tags": tags,
	})
	return nil
}
