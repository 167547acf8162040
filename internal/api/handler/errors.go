package handler

import (
	"log/slog"
	"net/http"

	"github.com/joyverse/joyverse-backend/internal/api/apierr"
)

// fail writes err to the client, logging it first when it has no known
// kind and the client only sees a generic 500
func fail(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	if apierr.IsInternal(err) {
		logger.ErrorContext(r.Context(), "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
	}
	apierr.WriteError(w, err)
}
