package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/isdelr/profileapp-be/internal/api/handlers"
	"github.com/isdelr/profileapp-be/internal/auth"
	"github.com/isdelr/profileapp-be/internal/upload"
)

// Handlers bundles the HTTP handlers mounted by the router.
type Handlers struct {
	Profiles  *handlers.ProfileHandler
	Users     *handlers.UserHandler
	Events    *handlers.EventHandler
	Health    *handlers.HealthHandler
	WebSocket *handlers.WebSocketHandler
	Legacy    *handlers.LegacyUploadHandler
}

// Options configures cross-cutting router behavior.
type Options struct {
	AllowedOrigins []string
	RequestTimeout time.Duration
	UploadDir      string
}

// NewRouter creates and configures a new Chi router.
func NewRouter(h Handlers, tokens *auth.TokenManager, opts Options) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	r.Route("/api", func(r chi.Router) {
		// Long-lived; stays outside the request timeout.
		r.Get("/ws", h.WebSocket.Serve)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(timeout))

			r.Get("/health", h.Health.Check)
			r.Get("/events", h.Events.GetRecent)

			r.Post("/register", h.Users.Register)
			r.Post("/login", h.Users.Login)

			r.With(tokens.Optional()).Post("/logout", h.Users.Logout)
			r.With(tokens.Middleware()).Get("/user", h.Users.GetMe)

			r.Route("/profiles", func(r chi.Router) {
				r.Get("/", h.Profiles.GetAll)
				r.Get("/{id}", h.Profiles.Get)

				r.Group(func(r chi.Router) {
					r.Use(tokens.Middleware())
					r.Post("/", h.Profiles.Create)
					r.Put("/{id}", h.Profiles.Update)
					r.Delete("/{id}", h.Profiles.Delete)
				})
			})

			r.With(tokens.Require(h.Legacy.Reject)).Post("/legacy/upload", h.Legacy.Upload)
		})
	})

	r.Handle(upload.PublicPrefix+"/*", http.StripPrefix(upload.PublicPrefix+"/", uploadsHandler(opts.UploadDir)))

	return r
}

// uploadsHandler serves stored images without directory listings.
func uploadsHandler(dir string) http.Handler {
	fs := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") || strings.HasPrefix(r.URL.Path, ".") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Cache-Control", "public, max-age=86400")
		fs.ServeHTTP(w, r)
	})
}
