// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"net/http"

	"inkpost/internal/blog"
	"inkpost/internal/respond"
	"inkpost/internal/upload"
)

// Categories groups the category endpoints.
type Categories struct {
	categories *blog.Categories
	forms      *upload.Handler
}

// NewCategories creates the category handler group.
func NewCategories(categories *blog.Categories, forms *upload.Handler) *Categories {
	return &Categories{categories: categories, forms: forms}
}

// List handles GET /categories.
func (h *Categories) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.categories.List(r.Context())
	if err != nil {
		respond.Error(w, r, err, serverError)
		return
	}
	respond.JSON(w, http.StatusOK, items)
}

// Create handles POST /categories.
func (h *Categories) Create(w http.ResponseWriter, r *http.Request) {
	form, err := h.forms.Parse(w, r)
	if err != nil {
		respond.Error(w, r, err, serverError)
		return
	}

	c, err := h.categories.Create(r.Context(), form.Value("name"))
	if err != nil {
		respond.Error(w, r, err, serverError)
		return
	}
	respond.JSON(w, http.StatusCreated, c)
}
