package response

import (
	"encoding/json"
	"net/http"
)

// JSON writes data as the response body with the given status. Bodies
// hold profile data and tokens and must not be cached.
func JSON(w http.ResponseWriter, status int, data any) {
	h := w.Header()
	h.Set("Content-Type", "application/json")
	h.Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// Created writes a 201 with the new resource
func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, data)
}

// NoContent writes a bare 204
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}
