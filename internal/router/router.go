package router

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/leca/ourstory/internal/api"
	"github.com/leca/ourstory/internal/auth"
	"github.com/leca/ourstory/internal/config"
	"github.com/leca/ourstory/internal/handler"
	"github.com/leca/ourstory/internal/timeline"
	"github.com/leca/ourstory/internal/web"
)

// Server holds the application dependencies and HTTP router.
type Server struct {
	Handler *handler.Handler
	Config  *config.Config
	Router  chi.Router
}

// New creates a new Server with a fully configured chi router.
func New(tl *timeline.Service, authSvc *auth.Service, limiter *auth.Limiter, cfg *config.Config) *Server {
	s := &Server{Config: cfg}

	h := &handler.Handler{
		Timeline: tl,
		Auth:     authSvc,
		Limiter:  limiter,
		Config:   cfg,
	}
	s.Handler = h
	view := web.New(tl)

	r := chi.NewRouter()

	// CORS must be before other middleware to handle preflight OPTIONS.
	r.Use(cors.Handler(corsOptions(cfg.CORSOrigin)))

	r.Use(middleware.RequestID)
	// RealIP rewrites RemoteAddr from forwarding headers, which any client
	// can set. Limiters key on RemoteAddr, so only trust them behind a proxy.
	if cfg.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	requireSession := api.RequireSession(authSvc)
	writeLimit := writeLimiter(cfg.WriteRateLimit)

	r.Get("/", view.Timeline)

	r.Route("/api", func(r chi.Router) {
		// Health check (no auth required).
		r.Get("/health", s.Health)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", h.Login)
			r.Post("/logout", h.Logout)
			r.With(requireSession).Get("/me", h.Me)
		})

		r.Route("/memories", func(r chi.Router) {
			r.Get("/", h.ListMemories)
			r.Get("/{id}", h.GetMemory)

			r.Group(func(r chi.Router) {
				r.Use(requireSession, writeLimit)
				r.Post("/", h.CreateMemory)
				// Static /reorder wins over {id} in chi's tree.
				r.Put("/reorder", h.ReorderMemories)
				r.Put("/{id}", h.UpdateMemory)
				r.Delete("/{id}", h.DeleteMemory)
			})
		})

		r.Get("/valentine", h.GetValentine)
		r.With(requireSession, writeLimit).Put("/valentine", h.UpdateValentine)
	})

	r.Route("/uploads", func(r chi.Router) {
		r.Get("/{filename}", h.ServeUpload)

		r.Group(func(r chi.Router) {
			r.Use(requireSession, writeLimit)
			r.Post("/{memoryId}/images", h.UploadImages)
			r.Put("/{memoryId}/images/reorder", h.ReorderImages)
			r.Put("/{memoryId}/images/{imageId}", h.UpdateImage)
			r.Delete("/{memoryId}/images/{imageId}", h.DeleteImage)
		})
	})

	s.Router = r
	return s
}

// corsOptions allows credentials from the configured origins. An empty
// setting reflects whatever origin made the request.
func corsOptions(origin string) cors.Options {
	opts := cors.Options{
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	var origins []string
	for _, o := range strings.Split(origin, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		opts.AllowOriginFunc = func(*http.Request, string) bool { return true }
	} else {
		opts.AllowedOrigins = origins
	}
	return opts
}

// writeLimiter throttles authenticated writes per client address. A limit of
// zero disables it.
func writeLimiter(perMinute int) func(http.Handler) http.Handler {
	if perMinute <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(
		perMinute,
		1*time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			api.TooManyRequests(w, "Too many requests")
		}),
	)
}

// Health returns a simple health-check response.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]string{"status": "ok"}); err != nil {
		log.Printf("Health: failed to encode response: %v", err)
	}
}
