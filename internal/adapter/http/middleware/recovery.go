package middleware

import (
	"encoding/json"
	"net/http"
	"runtime/debug"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/danhlc/poslite/internal/adapter/http/dto"
	"github.com/danhlc/poslite/internal/usecase"
)

// Recovery turns a panicking handler into a 500. The deferred rollback of
// any open transaction has already run by the time the panic reaches here.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}

			log.Error().
				Interface("panic", rec).
				Bytes("stack", debug.Stack()).
				Str("request_id", chimiddleware.GetReqID(r.Context())).
				Str("actor", usecase.ActorFromContext(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Msg("handler panicked")

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_ = json.NewEncoder(w).Encode(dto.ErrorResponse{Error: "internal error"})
		}()

		next.ServeHTTP(w, r)
	})
}
