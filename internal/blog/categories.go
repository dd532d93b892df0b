// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package blog

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"inkpost/internal/apperr"
	"inkpost/internal/models"
	"inkpost/internal/slug"
)

// slugRetries bounds how often Create re-resolves a slug after losing a
// race to a concurrent create with the same base slug.
const slugRetries = 3

type categoryFields struct {
	Name string `json:"name" validate:"required,min=2,max=50"`
}

// Categories creates and lists categories.
type Categories struct {
	repo CategoryRepository
}

// NewCategories returns a Categories service.
func NewCategories(repo CategoryRepository) *Categories {
	return &Categories{repo: repo}
}

// Create stores a category named name. The slug is the first free value
// among base, base-1, base-2 and so on. The repository's unique slug index
// catches concurrent creates; the loser re-runs the search.
func (s *Categories) Create(ctx context.Context, name string) (*models.Category, error) {
	name = strings.TrimSpace(name)
	if err := checkStruct(categoryFields{Name: name}); err != nil {
		return nil, err
	}

	base := slug.Generate(name)
	if base == "" {
		return nil, apperr.Validation("name", "Category name must contain letters or digits")
	}

	existing, err := s.repo.FindByName(ctx, name)
	if err != nil {
		return nil, apperr.Internal("find category", err)
	}
	if existing != nil {
		return nil, apperr.Conflict("name", "Category already exists", nil)
	}

	for attempt := 0; ; attempt++ {
		candidate, err := slug.EnsureUnique(ctx, base, s.repo.SlugExists)
		if err != nil {
			if errors.Is(err, slug.ErrExhausted) {
				return nil, apperr.Conflict("slug", "Could not allocate a unique slug", err)
			}
			return nil, apperr.Internal("resolve category slug", err)
		}

		created, err := s.repo.Create(ctx, &models.Category{Name: name, Slug: candidate})
		switch {
		case err == nil:
			slog.Info("category created", "category_id", created.ID, "slug", created.Slug)
			return created, nil
		case apperr.IsConflictOn(err, "name"):
			return nil, apperr.Conflict("name", "Category already exists", err)
		case apperr.IsConflictOn(err, "slug") && attempt < slugRetries:
			slog.Debug("category slug taken concurrently, retrying", "slug", candidate)
			continue
		case apperr.IsConflictOn(err, "slug"):
			return nil, apperr.Conflict("slug", "Duplicate slug detected", err)
		default:
			return nil, apperr.Internal("create category", err)
		}
	}
}

// List returns all categories ordered by name.
func (s *Categories) List(ctx context.Context) ([]models.Category, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperr.Internal("list categories", err)
	}
	if items == nil {
		items = []models.Category{}
	}
	return items, nil
}
