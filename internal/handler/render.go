package handler

import (
	"encoding/json"
	"net/http"
)

// respondJSON writes v as a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
