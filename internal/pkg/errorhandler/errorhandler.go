// Package errorhandler logs failed requests with the request-scoped logger
// before writing the JSON error envelope.
package errorhandler

import (
	"context"
	"net/http"

	"github.com/buzzhunt/buzzhunt-api/internal/pkg/logger"
	"github.com/buzzhunt/buzzhunt-api/internal/pkg/response"
)

// HandleError logs err and sends status with code and message. The error
// itself never reaches the client.
func HandleError(ctx context.Context, w http.ResponseWriter, status int, code, message string, err error) {
	event := logger.FromContext(ctx).Error().
		Str("error_code", code).
		Int("status_code", status)
	if err != nil {
		event = event.Err(err)
	}
	event.Msg(message)

	response.Error(w, status, code, message)
}

// Internal logs err under op and sends a generic 500.
func Internal(ctx context.Context, w http.ResponseWriter, op string, err error) {
	logger.FromContext(ctx).Error().Err(err).Str("op", op).Msg("Request failed")
	response.InternalError(w)
}
