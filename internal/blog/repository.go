// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package blog implements the post authoring workflow: post, category and
// account services on top of pluggable repositories. Services return
// *apperr.Error values; the HTTP layer maps their kinds to status codes.
package blog

import (
	"context"
	"time"

	"github.com/google/uuid"

	"inkpost/internal/models"
	"inkpost/internal/upload"
)

// PostRepository persists posts. Reads return posts with Category and
// Author populated. Finders return (nil, nil) when nothing matches.
// A duplicate slug is reported as an apperr conflict on "slug".
type PostRepository interface {
	Create(ctx context.Context, p *models.Post) (*models.Post, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Post, error)
	FindBySlug(ctx context.Context, slug string) (*models.Post, error)
	List(ctx context.Context) ([]models.Post, error)
	Update(ctx context.Context, p *models.Post) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// CategoryRepository persists categories. Duplicate names and slugs are
// reported as apperr conflicts on "name" and "slug".
type CategoryRepository interface {
	Create(ctx context.Context, c *models.Category) (*models.Category, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error)
	FindByName(ctx context.Context, name string) (*models.Category, error)
	SlugExists(ctx context.Context, slug string) (bool, error)
	// List returns all categories ordered by name.
	List(ctx context.Context) ([]models.Category, error)
}

// UserRepository persists accounts. Duplicate emails and usernames are
// reported as apperr conflicts on "email" and "username".
type UserRepository interface {
	Create(ctx context.Context, u *models.User) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error)
}

// ImageStore saves and removes uploaded featured images.
type ImageStore interface {
	Save(ctx context.Context, f *upload.File) (string, error)
	Remove(ctx context.Context, ref string) error
}

// TokenIssuer mints bearer tokens for authenticated users.
type TokenIssuer interface {
	Issue(user *models.User) (token string, expiresAt time.Time, err error)
}
