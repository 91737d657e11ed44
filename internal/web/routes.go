package web

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes mounts the HTML pages on the given router, alongside the
// JSON API.
func (web *Web) RegisterRoutes(r chi.Router) {
	// Public pages.
	r.Group(func(r chi.Router) {
		r.Use(web.OptionalAuthMiddleware)

		r.Get("/", web.HandleHome)
		r.Get("/login", web.HandleLoginPage)
		r.Get("/rules", web.HandleRules)
	})

	// Authenticated pages.
	r.Group(func(r chi.Router) {
		r.Use(web.AuthMiddleware)

		r.Get("/profile", web.HandleProfile)
		r.Get("/cases", web.HandleCases)

		r.Group(func(r chi.Router) {
			r.Use(web.AdminMiddleware)
			r.Get("/admin", web.HandleAdmin)
		})
	})
}
