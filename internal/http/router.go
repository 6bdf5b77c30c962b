package http

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/taskager/taskager/internal/auth"
	"github.com/taskager/taskager/internal/config"
	"github.com/taskager/taskager/internal/httputil"
	"github.com/taskager/taskager/internal/logging"
	"github.com/taskager/taskager/internal/task"
)

// NewRouter creates and configures the HTTP router
func NewRouter(
	cfg *config.Config,
	authHandler *auth.Handler,
	authMiddleware *auth.Middleware,
	taskHandler *task.Handler,
	logger *logging.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// CORS - must be first
	if len(cfg.Server.TrustedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.Server.TrustedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           300, // 5 minutes
		}))
	}

	// Global middleware
	r.Use(SecurityHeaders)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger(logger))
	r.Use(middleware.Compress(5))

	// Public routes
	r.Get("/", handleRoot)
	r.Get("/health", handleHealth)

	// Auth routes (public)
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Get("/verify-email/{token}", authHandler.VerifyEmail)
		r.Post("/resend-verification", authHandler.ResendVerification)
		r.Post("/forgot-password", authHandler.ForgotPassword)
		r.Post("/reset-password", authHandler.ResetPassword)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.RequireAuth)
			r.Get("/me", authHandler.Me)
		})
	})

	// Task routes (require authentication)
	r.Route("/tasks", func(r chi.Router) {
		r.Use(authMiddleware.RequireAuth)
		r.Get("/", taskHandler.List)
		r.Post("/", taskHandler.Create)
		r.Get("/{id}", taskHandler.Get)
		r.Put("/{id}", taskHandler.Update)
		r.Patch("/{id}/toggle", taskHandler.Toggle)
		r.Delete("/{id}", taskHandler.Delete)
	})

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		httputil.RespondError(w, fmt.Sprintf("Route %s not found", req.URL.Path), http.StatusNotFound)
	})

	return r
}

func handleRoot(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, httputil.Envelope{
		Success: true,
		Message: "Taskager API is running",
	}, http.StatusOK)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, httputil.Envelope{
		Success: true,
		Message: "Server is healthy",
	}, http.StatusOK)
}
