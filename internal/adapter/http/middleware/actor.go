package middleware

import (
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/danhlc/poslite/internal/usecase"
)

const (
	// ActorHeader carries the user name set by the identity proxy in front
	// of the service.
	ActorHeader = "X-User-Name"

	maxActorLength = 100
)

// Actor copies the acting user from ActorHeader into the request context.
// Requests without the header are attributed to the system actor.
func Actor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimSpace(r.Header.Get(ActorHeader))
		if name == "" {
			next.ServeHTTP(w, r)
			return
		}

		if utf8.RuneCountInString(name) > maxActorLength || !utf8.ValidString(name) {
			http.Error(w, "invalid "+ActorHeader+" header", http.StatusBadRequest)
			return
		}

		next.ServeHTTP(w, r.WithContext(usecase.WithActor(r.Context(), name)))
	})
}
