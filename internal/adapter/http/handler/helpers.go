package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/danhlc/poslite/internal/adapter/http/dto"
	"github.com/danhlc/poslite/internal/domain"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, message, details string) {
	writeJSON(w, status, dto.ErrorResponse{
		Error:   message,
		Message: details,
	})
}

// writeDomainError maps err to a status and writes it. Store errors are
// logged and never echoed to the client. Constraint details such as index
// names only go to the log.
func writeDomainError(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := mapDomainError(err)

	switch {
	case errors.Is(err, domain.ErrConcurrencyConflict):
		writeJSON(w, status, dto.ErrorResponse{
			Error:     message,
			Message:   domain.ErrConcurrencyConflict.Error(),
			Retryable: true,
		})
	case errors.Is(err, domain.ErrConstraintViolation):
		log.Warn().
			Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg(message)
		writeError(w, status, message, constraintMessage(err))
	case status == http.StatusInternalServerError:
		log.Error().
			Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg(message)
		writeError(w, status, message, "internal error")
	default:
		writeError(w, status, message, err.Error())
	}
}

// constraintMessage returns the fixed text of the most specific constraint
// sentinel err wraps.
func constraintMessage(err error) string {
	for _, sentinel := range []error{domain.ErrDuplicateCode, domain.ErrDuplicateName} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return domain.ErrConstraintViolation.Error()
}

// mapDomainError maps domain errors to HTTP status codes.
func mapDomainError(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConcurrencyConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrConstraintViolation):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidMode),
		errors.Is(err, domain.ErrInvalidDirection),
		errors.Is(err, domain.ErrNoteTooLong),
		errors.Is(err, domain.ErrInvalidReference),
		errors.Is(err, domain.ErrInvalidName),
		errors.Is(err, domain.ErrInvalidCode),
		errors.Is(err, domain.ErrInvalidContact),
		errors.Is(err, domain.ErrInvalidSelection):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// parseIntQuery parses an integer query parameter with a default value.
func parseIntQuery(r *http.Request, key string, defaultValue int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}
	return i
}

// decodeJSON decodes the request body into dst, rejecting unknown fields.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// optionalQuery returns nil for an absent or empty query parameter.
func optionalQuery(r *http.Request, key string) *string {
	val := r.URL.Query().Get(key)
	if val == "" {
		return nil
	}
	return &val
}
