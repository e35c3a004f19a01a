package middleware

import (
	"errors"
	"net/http"
	"runtime/debug"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/buzzhunt/buzzhunt-api/internal/pkg/logger"
	"github.com/buzzhunt/buzzhunt-api/internal/pkg/metrics"
	"github.com/buzzhunt/buzzhunt-api/internal/pkg/response"
)

// Recover turns a handler panic into a 500 and logs it with the request's
// logger. http.ErrAbortHandler is re-raised so net/http can drop the
// connection.
func Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if err, ok := rec.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(rec)
			}

			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			metrics.PanicsTotal.WithLabelValues(route).Inc()

			event := logger.FromContext(r.Context()).Error().
				Interface("panic", rec).
				Str("stack", string(debug.Stack())).
				Str("method", r.Method).
				Str("route", route)
			if ownerID := GetUserID(r.Context()); ownerID != uuid.Nil {
				event = event.Str("owner_id", ownerID.String())
			}
			event.Msg("panic recovered")

			response.InternalError(w)
		}()

		next.ServeHTTP(w, r)
	})
}
