package handler

import (
	"go-taxonomy-service/internal/middleware"
	"go-taxonomy-service/internal/snowflake"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// IDHandler exposes the identifier generator over HTTP.
type IDHandler struct {
	generator *snowflake.Generator
}

// NewIDHandler creates a new IDHandler.
func NewIDHandler(generator *snowflake.Generator) *IDHandler {
	return &IDHandler{generator: generator}
}

// nextHandler issues a fresh identifier.
func (h *IDHandler) nextHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, err := h.generator.Next()
	if err != nil {
		// Clock regression is surfaced as unavailability; the client may
		// retry after a delay.
		return &middleware.AppError{Error: err, Message: "ID generation temporarily unavailable", Code: http.StatusServiceUnavailable}
	}
	respondJSON(w, http.StatusOK, map[string]int64{"id": id})
	return nil
}

// decodeHandler splits an identifier into its embedded fields.
func (h *IDHandler) decodeHandler(w http.ResponseWriter, r *http.Request) *middleware.AppError {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return &middleware.AppError{Error: err, Message: "Invalid id", Code: http.StatusBadRequest}
	}
	parts := snowflake.Decode(id)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"id":         id,
		"timestamp":  parts.Timestamp,
		"machine_id": parts.MachineID,
		"sequence":   parts.Sequence,
		"time":       parts.Time(),
	})
	return nil
}
