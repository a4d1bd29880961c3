package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/tasker/internal/config"
	"github.com/pribylovaa/tasker/internal/http/handlers"
	"github.com/pribylovaa/tasker/internal/http/middleware"
)

// Options: параметры сборки HTTP-роутера.
type Options struct {
	Logger   *slog.Logger
	Timeout  time.Duration
	BasePath string // например, "/api"; если пустой: роуты регистрируются на корне.
	Cookie   config.CookieConfig
}

// NewRouter собирает http.Handler с chi и подключёнными middleware/роутами.
func NewRouter(auth handlers.AuthService, opts Options) http.Handler {
	root := chi.NewRouter()

	// Middleware (внешний -> внутренний).
	root.Use(
		middleware.Recover(),
		middleware.RequestID(), // до логирования
		middleware.Logging(opts.Logger),
	)
	if opts.Timeout > 0 {
		root.Use(middleware.Timeout(opts.Timeout))
	}

	h := handlers.New(auth, opts.Cookie)
	guard := middleware.RequireIdentity(auth)

	if opts.BasePath != "" {
		sub := chi.NewRouter()
		registerRoutes(sub, h, guard)
		root.Mount(opts.BasePath, sub)
		return root
	}

	registerRoutes(root, h, guard)
	return root
}

// registerRoutes: единая точка регистрации REST-эндпойнтов.
// Маршруты, которым нужен субъект, явно собраны в группу с guard.
func registerRoutes(r chi.Router, h *handlers.Handlers, guard middleware.Middleware) {
	r.Post("/auth/register", h.Register)
	r.Post("/auth/login", h.Login)
	r.Post("/auth/refresh-tokens", h.RefreshTokens)
	r.Post("/auth/validate", h.Validate)

	r.Group(func(r chi.Router) {
		r.Use(guard)
		r.Post("/auth/logout", h.Logout)
		r.Get("/auth/me", h.Me)
	})
}
