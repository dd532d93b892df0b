// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package router sets up all HTTP routes and middleware chains for the
// inkpost API. The API is served both at the root and under /api.
package router

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"inkpost/internal/auth"
	"inkpost/internal/handlers"
	"inkpost/internal/middleware"
	"inkpost/internal/respond"
)

// Deps carries everything the routes need.
type Deps struct {
	Posts      *handlers.Posts
	Categories *handlers.Categories
	Auth       *handlers.Auth
	Health     http.Handler

	Tokens  middleware.TokenVerifier
	Revoker auth.Revoker

	// AuthLimiter throttles /auth requests per client IP. Nil disables it.
	AuthLimiter middleware.Limiter

	// UploadsDir is served under /uploads when set (disk storage backend).
	UploadsDir string
}

// New creates and returns the configured Chi router with all middleware
// and route groups wired up.
func New(d Deps) chi.Router {
	r := chi.NewRouter()

	// Global middleware, applied to every request.
	r.Use(chimw.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.SecureHeaders)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respond.Fail(w, http.StatusNotFound, "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respond.Fail(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	if d.Health != nil {
		r.Method(http.MethodGet, "/health", d.Health)
	}

	if d.UploadsDir != "" {
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", uploadsHandler(d.UploadsDir)))
	}

	api := routes(d)
	r.Group(api)
	r.Route("/api", api)

	return r
}

// routes registers the REST surface on r.
func routes(d Deps) func(r chi.Router) {
	requireAuth := middleware.RequireAuth(d.Tokens, d.Revoker)

	return func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			if d.AuthLimiter != nil {
				r.Use(middleware.RateLimit(d.AuthLimiter))
			}
			r.Post("/register", d.Auth.Register)
			r.Post("/login", d.Auth.Login)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Use(middleware.NoStore)
				r.Post("/logout", d.Auth.Logout)
				r.Get("/me", d.Auth.Me)
			})
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", d.Categories.List)
			r.With(requireAuth).Post("/", d.Categories.Create)
		})

		r.Route("/posts", func(r chi.Router) {
			r.Use(requireAuth)
			r.Use(middleware.NoStore)
			r.Get("/", d.Posts.List)
			r.Post("/", d.Posts.Create)
			r.Get("/{idOrSlug}", d.Posts.Get)
			r.Put("/{id}", d.Posts.Update)
			r.Delete("/{id}", d.Posts.Delete)
		})
	}
}

// uploadsHandler serves stored images read-only without directory listings.
func uploadsHandler(dir string) http.Handler {
	files := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			respond.Fail(w, http.StatusNotFound, "Route not found")
			return
		}
		files.ServeHTTP(w, r)
	})
}
