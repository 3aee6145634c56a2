package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/danhlc/poslite/internal/infrastructure/metrics"
	"github.com/danhlc/poslite/internal/usecase"
)

const (
	// IdempotencyKeyHeader is the header name for idempotency keys.
	IdempotencyKeyHeader = "Idempotency-Key"

	processingMarker = "processing"
)

type cachedResponse struct {
	Status int    `json:"status"`
	Body   []byte `json:"body"`
}

// IdempotencyMiddleware replays the stored response of a repeated mutating
// request instead of running it twice.
type IdempotencyMiddleware struct {
	store   usecase.IdempotencyStore
	ttl     time.Duration
	metrics *metrics.Metrics
}

// NewIdempotencyMiddleware creates a new IdempotencyMiddleware.
func NewIdempotencyMiddleware(store usecase.IdempotencyStore, ttl time.Duration) *IdempotencyMiddleware {
	if ttl <= 0 {
		ttl = usecase.IdempotencyKeyTTL
	}
	return &IdempotencyMiddleware{store: store, ttl: ttl}
}

// WithMetrics counts replayed responses.
func (m *IdempotencyMiddleware) WithMetrics(mt *metrics.Metrics) *IdempotencyMiddleware {
	m.metrics = mt
	return m
}

// Wrap wraps an http.Handler with idempotency checking.
func (m *IdempotencyMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost && r.Method != http.MethodPut {
			next.ServeHTTP(w, r)
			return
		}

		header := r.Header.Get(IdempotencyKeyHeader)
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}

		// The same key on another endpoint is a different request.
		key := r.Method + " " + r.URL.Path + " " + header

		exists, stored, err := m.store.CheckAndSet(r.Context(), key, nil, m.ttl)
		if err != nil {
			http.Error(w, "idempotency check failed", http.StatusInternalServerError)
			return
		}

		if exists {
			m.replay(w, stored)
			return
		}

		recorder := &responseRecorder{
			ResponseWriter: w,
			body:           &bytes.Buffer{},
			statusCode:     http.StatusOK,
		}

		// Release the claim unless a successful response was stored, so a
		// failed or panicking request can be retried with the same key.
		completed := false
		defer func() {
			if completed {
				return
			}
			if err := m.store.Release(context.WithoutCancel(r.Context()), key); err != nil {
				log.Warn().Err(err).Str("key", header).Msg("failed to release idempotency key")
			}
		}()

		next.ServeHTTP(recorder, r)

		if recorder.statusCode < 200 || recorder.statusCode >= 300 {
			return
		}

		payload, err := json.Marshal(cachedResponse{Status: recorder.statusCode, Body: recorder.body.Bytes()})
		if err != nil {
			return
		}
		if err := m.store.Update(context.WithoutCancel(r.Context()), key, payload, m.ttl); err != nil {
			log.Warn().Err(err).Str("key", header).Msg("failed to store idempotent response")
			return
		}
		completed = true
	})
}

func (m *IdempotencyMiddleware) replay(w http.ResponseWriter, stored []byte) {
	if string(stored) == processingMarker {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"error":"request with this idempotency key is still processing","retryable":true}`))
		return
	}

	var cached cachedResponse
	if err := json.Unmarshal(stored, &cached); err != nil || cached.Status == 0 {
		http.Error(w, "corrupt idempotency record", http.StatusInternalServerError)
		return
	}

	if m.metrics != nil {
		m.metrics.IdempotencyReplays.Inc()
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Idempotency-Replay", "true")
	w.WriteHeader(cached.Status)
	w.Write(cached.Body)
}

type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *responseRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}
