package handler

import (
	"net/http"

	"github.com/danhlc/poslite/internal/adapter/http/dto"
	"github.com/danhlc/poslite/internal/textsearch"
)

// Normalize returns the search key of the text query parameter.
func Normalize(w http.ResponseWriter, r *http.Request) {
	text := r.URL.Query().Get("text")
	writeJSON(w, http.StatusOK, dto.NormalizeResponse{
		Text:       text,
		Normalized: textsearch.Normalize(text),
	})
}
