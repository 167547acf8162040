package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/joyverse/joyverse-backend/internal/api/apierr"
	"github.com/joyverse/joyverse-backend/internal/api/handler"
	"github.com/joyverse/joyverse-backend/internal/api/middleware"
	"github.com/joyverse/joyverse-backend/internal/api/response"
	"github.com/joyverse/joyverse-backend/internal/feed"
	"github.com/joyverse/joyverse-backend/internal/model"
	"github.com/joyverse/joyverse-backend/internal/services/auth"
	"github.com/joyverse/joyverse-backend/internal/services/profile"
	"github.com/joyverse/joyverse-backend/internal/services/report"
	"github.com/joyverse/joyverse-backend/internal/services/sessions"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger         *slog.Logger
	AuthService    *auth.Service
	ProfileService *profile.Service
	SessionService *sessions.Service
	ReportService  *report.Service
	Feed           *feed.Feed

	// CORSOrigins lists the browser origins allowed to call the API.
	// Empty disables CORS headers.
	CORSOrigins []string
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	notAllowed := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		apierr.WriteError(w, apierr.NewMethodNotAllowedError())
	})

	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		apierr.WriteError(w, apierr.NewNotFoundError())
	})
	r.MethodNotAllowedHandler = notAllowed

	authHandler := handler.NewAuthHandler(cfg.AuthService, cfg.ProfileService, cfg.Logger)
	userHandler := handler.NewUserHandler(cfg.ProfileService, cfg.SessionService, cfg.ReportService, cfg.Feed, cfg.Logger)
	sessionHandler := handler.NewSessionHandler(cfg.SessionService, cfg.ProfileService, cfg.Logger)
	therapistHandler := handler.NewTherapistHandler(cfg.ProfileService, cfg.Logger)
	feedHandler := handler.NewFeedHandler(cfg.Feed, cfg.ProfileService, cfg.Logger)

	authMiddleware := middleware.Auth(cfg.AuthService)
	staffOnly := middleware.RequireRole(model.RoleTherapist, model.RoleAdmin)
	adminOnly := middleware.RequireRole(model.RoleAdmin)

	// each router level answers a method mismatch itself; mux does not
	// hand it up to the parent's handler
	api := r.PathPrefix("/api/v1").Subrouter()
	api.MethodNotAllowedHandler = notAllowed
	api.Use(middleware.Recovery(cfg.Logger))
	api.Use(middleware.Logging(cfg.Logger))

	api.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	// Public auth routes
	api.HandleFunc("/auth/signup", authHandler.Signup).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", authHandler.Login).Methods(http.MethodPost)

	protected := api.NewRoute().Subrouter()
	protected.MethodNotAllowedHandler = notAllowed
	protected.Use(authMiddleware)
	protected.HandleFunc("/auth/logout", authHandler.Logout).Methods(http.MethodPost)

	// Users; /users/me must be registered before /users/{ref}
	protected.HandleFunc("/users/me", authHandler.Me).Methods(http.MethodGet)
	protected.Handle("/users", staffOnly(http.HandlerFunc(userHandler.List))).Methods(http.MethodGet)
	protected.HandleFunc("/users/{ref}", userHandler.Get).Methods(http.MethodGet)
	protected.Handle("/users/{id}", adminOnly(http.HandlerFunc(userHandler.Delete))).Methods(http.MethodDelete)
	protected.HandleFunc("/users/{ref}/emotions", userHandler.AppendEmotion).Methods(http.MethodPost)
	protected.HandleFunc("/users/{ref}/game-plays", userHandler.AppendGamePlay).Methods(http.MethodPost)
	protected.Handle("/users/{ref}/suggestions", staffOnly(http.HandlerFunc(userHandler.Suggest))).Methods(http.MethodPost)
	protected.HandleFunc("/users/{ref}/sessions", userHandler.Sessions).Methods(http.MethodGet)
	protected.HandleFunc("/users/{ref}/report", userHandler.Report).Methods(http.MethodGet)

	// Live emotion feed
	protected.HandleFunc("/users/{ref}/emotion/current", feedHandler.Publish).Methods(http.MethodPost)
	protected.HandleFunc("/users/{ref}/emotion/stream", feedHandler.Stream).Methods(http.MethodGet)

	// Game sessions
	protected.HandleFunc("/sessions/observations", sessionHandler.Record).Methods(http.MethodPost)
	protected.HandleFunc("/sessions", sessionHandler.Create).Methods(http.MethodPost)
	protected.HandleFunc("/sessions/{id}", sessionHandler.Get).Methods(http.MethodGet)

	// Therapist approval (admin)
	protected.Handle("/therapists", adminOnly(http.HandlerFunc(therapistHandler.List))).Methods(http.MethodGet)
	protected.Handle("/therapists/{username}/approve", adminOnly(http.HandlerFunc(therapistHandler.Approve))).Methods(http.MethodPost)

	if len(cfg.CORSOrigins) == 0 {
		return r
	}
	return handlers.CORS(
		handlers.AllowedOrigins(cfg.CORSOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
		handlers.ExposedHeaders([]string{"X-Request-ID"}),
		handlers.AllowCredentials(),
	)(r)
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	response.JSON(w, http.StatusOK, response.Health{Status: "ok"})
}
