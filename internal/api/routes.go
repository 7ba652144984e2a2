package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter creates a new router with all routes configured
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware (all routes)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware)
	r.Use(MetricsMiddleware(h.metrics))
	r.Use(RecoveryMiddleware)
	r.Use(SessionMiddleware(h.gate, h.cookie.CookieName))

	r.Handle("/metrics", h.metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", h.Health)
		r.With(h.limiter.Middleware).Post("/login", h.Login)
		r.Post("/logout", h.Logout)

		r.Group(func(r chi.Router) {
			r.Use(RequireAuth)
			r.Get("/me", h.Me)
			r.Get("/dashboard", h.Dashboard)

			r.Get("/ideas", h.ListIdeas)
			r.Post("/ideas", h.AddIdea)
			r.Put("/ideas/{index:[0-9]+}", h.EditIdea)
			r.Post("/ideas/{index:[0-9]+}/status", h.SetIdeaStatus)
			r.Delete("/ideas/{index:[0-9]+}", h.DeleteIdea)

			r.Get("/memories", h.ListMemories)
			r.Post("/memories", h.AddMemory)
			r.Put("/memories/{index:[0-9]+}", h.EditMemory)
			r.Delete("/memories/{index:[0-9]+}", h.DeleteMemory)

			r.Get("/notes", h.ListNotes)
			r.Post("/notes", h.AddNote)
			r.Put("/notes/{index:[0-9]+}", h.EditNote)
			r.Delete("/notes/{index:[0-9]+}", h.DeleteNote)

			r.Get("/gallery", h.ListGallery)
			r.Post("/gallery", h.UploadImage)
			r.Get("/gallery/{index:[0-9]+}", h.GetImage)
			r.Put("/gallery/{index:[0-9]+}/note", h.SetImageNote)
			r.Delete("/gallery/{index:[0-9]+}", h.DeleteImage)

			r.Get("/music", h.ListMusic)
			r.Post("/music", h.AddTrack)
			r.Put("/music/{index:[0-9]+}", h.EditTrack)
			r.Delete("/music/{index:[0-9]+}", h.DeleteTrack)
		})
	})

	// Uploaded files are private to signed-in users.
	r.Group(func(r chi.Router) {
		r.Use(RequireAuth)
		r.Handle("/uploads/*", fileServer("/uploads/", h.galleryDir))
		r.Handle("/memory-photos/*", fileServer("/memory-photos/", h.photosDir))
	})

	return r
}

// fileServer serves the files in dir under prefix without directory listings.
func fileServer(prefix, dir string) http.Handler {
	fs := http.StripPrefix(prefix, http.FileServer(http.Dir(dir)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == prefix || strings.HasSuffix(r.URL.Path, "/") {
			WriteProblem(w, r, http.StatusNotFound, "Not found")
			return
		}
		fs.ServeHTTP(w, r)
	})
}
