// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package handlers implements the JSON REST surface of the inkpost API.
// Handlers translate HTTP requests into blog service calls and every
// failure into the uniform error envelope.
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"inkpost/internal/apperr"
	"inkpost/internal/blog"
	"inkpost/internal/middleware"
	"inkpost/internal/respond"
	"inkpost/internal/upload"
)

const serverError = "Server error"

// Posts groups the post endpoints.
type Posts struct {
	posts *blog.Posts
	forms *upload.Handler
}

// NewPosts creates the post handler group.
func NewPosts(posts *blog.Posts, forms *upload.Handler) *Posts {
	return &Posts{posts: posts, forms: forms}
}

// List handles GET /posts.
func (h *Posts) List(w http.ResponseWriter, r *http.Request) {
	posts, err := h.posts.List(r.Context())
	if err != nil {
		respond.Error(w, r, err, serverError)
		return
	}
	respond.JSON(w, http.StatusOK, posts)
}

// Get handles GET /posts/{idOrSlug}.
func (h *Posts) Get(w http.ResponseWriter, r *http.Request) {
	post, err := h.posts.Get(r.Context(), chi.URLParam(r, "idOrSlug"))
	if err != nil {
		respond.Error(w, r, err, serverError)
		return
	}
	respond.JSON(w, http.StatusOK, post)
}

// Create handles POST /posts.
func (h *Posts) Create(w http.ResponseWriter, r *http.Request) {
	form, err := h.forms.Parse(w, r)
	if err != nil {
		respond.Error(w, r, err, serverError)
		return
	}

	post, err := h.posts.Create(r.Context(), callerID(r), postInput(form))
	if err != nil {
		respond.Error(w, r, err, serverError)
		return
	}
	respond.JSON(w, http.StatusCreated, post)
}

// Update handles PUT /posts/{id}. Only the fields present are changed.
func (h *Posts) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := postID(w, r)
	if !ok {
		return
	}
	form, err := h.forms.Parse(w, r)
	if err != nil {
		respond.Error(w, r, err, serverError)
		return
	}

	post, err := h.posts.Update(r.Context(), callerID(r), id, postInput(form))
	if err != nil {
		respond.Error(w, r, err, serverError)
		return
	}
	respond.JSON(w, http.StatusOK, post)
}

// Delete handles DELETE /posts/{id}.
func (h *Posts) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := postID(w, r)
	if !ok {
		return
	}
	if err := h.posts.Delete(r.Context(), callerID(r), id); err != nil {
		respond.Error(w, r, err, serverError)
		return
	}
	respond.OK(w, "Post deleted")
}

func postInput(form *upload.Form) blog.PostInput {
	return blog.PostInput{
		Title:      form.Value("title"),
		Content:    form.Value("content"),
		CategoryID: form.Value("categoryId"),
		Image:      form.File,
	}
}

// postID parses the {id} URL parameter. A malformed id cannot name an
// existing post, so it answers 404.
func postID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, r, apperr.NotFound("Post not found"), "")
		return uuid.Nil, false
	}
	return id, true
}

// callerID returns the authenticated user id, or uuid.Nil when the route
// was mounted without RequireAuth.
func callerID(r *http.Request) uuid.UUID {
	if id := middleware.IdentityFromCtx(r.Context()); id != nil {
		return id.UserID
	}
	return uuid.Nil
}
