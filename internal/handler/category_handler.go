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

// CategoryHandler holds the dependencies for the category handlers.
type CategoryHandler struct {
	taxonomy *service.TaxonomyService
	log      logger.Logger
}

// NewCategoryHandler creates a new CategoryHandler with the given dependencies.
func NewCategoryHandler(taxonomy *service.TaxonomyService, log logger.Logger) *CategoryHandler {
	return &CategoryHandler{
		taxonomy: taxonomy,
		log:      log,
	}
}

// resolveRequest is the payload for resolving a category path.
type resolveRequest struct {
	Path    []string `json:"path"`
	OwnerID int64    `json:"owner_id"`
}

// resolveResponse carries the leaf category id, or null for an empty path.
type resolveResponse struct {
	LeafID *int64 `json:"leaf_id"`
}

// resolveHandler upserts a whole category path and returns the leaf id.
func (h *CategoryHandler) resolveHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return &middleware.AppError{Error: err, Message: "Invalid request body", Code: http.StatusBadRequest}
	}

	leafID, err := h.taxonomy.ResolveHierarchy(r.Context(), req.Path, req.OwnerID)
	if err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to resolve category path", Code: http.StatusInternalServerError}
	}

	respondJSON(w, http.StatusOK, resolveResponse{LeafID: leafID})
	return nil
}

// treeHandler renders the whole category forest.
func (h *CategoryHandler) treeHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	tree, err := h.taxonomy.GetCategoryTree(r.Context())
	if err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to load category tree", Code: http.StatusInternalServerError}
	}
	respondJSON(w, http.StatusOK, tree)
	return nil
}

// getHandler returns a single category by id.
func (h *CategoryHandler) getHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, appErr := categoryID(r)
	if appErr != nil {
		return appErr
	}
	category, err := h.taxonomy.GetCategory(r.Context(), id)
	if err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to load category", Code: http.StatusInternalServerError}
	}
	if category == nil {
		return &middleware.AppError{Error: errors.New("category not found"), Message: "Category not found", Code: http.StatusNotFound}
	}
	respondJSON(w, http.StatusOK, category)
	return nil
}

// lookupHandler returns a category by its globally unique title.
func (h *CategoryHandler) lookupHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	title := r.URL.Query().Get("title")
	if title == "" {
		return &middleware.AppError{Error: errors.New("missing title parameter"), Message: "Missing 'title' query parameter", Code: http.StatusBadRequest}
	}
	category, err := h.taxonomy.LookupCategory(r.Context(), title)
	if err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to look up category", Code: http.StatusInternalServerError}
	}
	if category == nil {
		return &middleware.AppError{Error: errors.New("category not found"), Message: "Category not found", Code: http.StatusNotFound}
	}
	respondJSON(w, http.StatusOK, category)
	return nil
}

// childrenHandler returns the direct children of a category.
func (h *CategoryHandler) childrenHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, appErr := categoryID(r)
	if appErr != nil {
		return appErr
	}
	children, err := h.taxonomy.GetCategoryChildren(r.Context(), id)
	if err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to load children", Code: http.StatusInternalServerError}
	}
	respondJSON(w, http.StatusOK, children)
	return nil
}

// pathHandler returns the root-to-node chain for a category.
func (h *CategoryHandler) pathHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, appErr := categoryID(r)
	if appErr != nil {
		return appErr
	}
	path, err := h.taxonomy.GetCategoryPath(r.Context(), id)
	if err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to load category path", Code: http.StatusInternalServerError}
	}
	respondJSON(w, http.StatusOK, path)
	return nil
}

// descendantsHandler returns every category below the given one.
func (h *CategoryHandler) descendantsHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, appErr := categoryID(r)
	if appErr != nil {
		return appErr
	}
	descendants, err := h.taxonomy.GetCategoryDescendants(r.Context(), id)
	if err != nil {
		return &middleware.AppError{Error: err, Message: "Failed to load descendants", Code: http.StatusInternalServerError}
	}
	respondJSON(w, http.StatusOK, descendants)
	return nil
}

// categoryID parses the {id} URL parameter.
func categoryID(r *http.Request) (int64, *middleware.AppError) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, &middleware.AppError{Error: err, Message: "Invalid category id", Code: http.StatusBadRequest}
	}
	return id, nil
}
