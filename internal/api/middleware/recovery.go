package middleware

import (
	"log/slog"
	"net/http"

	"github.com/joyverse/joyverse-backend/internal/api/apierr"
	"github.com/joyverse/joyverse-backend/internal/middleware"
)

// Recovery answers panics with a JSON INTERNAL_ERROR body
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return middleware.Recovery(logger, func(w http.ResponseWriter, _ *http.Request, _ any) {
		apierr.WriteError(w, apierr.NewInternalError())
	})
}
