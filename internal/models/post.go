// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// DefaultFeaturedImage is stored on posts created without an upload.
const DefaultFeaturedImage = "default-post.jpg"

// Post is a blog post. CategoryID and AuthorID are the stored references;
// Category and Author are the denormalized views filled in by the stores on
// read and are what clients see on the wire.
type Post struct {
	ID            uuid.UUID `json:"id"`
	Title         string    `json:"title"`
	Content       string    `json:"content"`
	ContentHTML   string    `json:"contentHtml,omitempty"`
	Slug          string    `json:"slug"`
	FeaturedImage string    `json:"featuredImage"`
	CategoryID    uuid.UUID `json:"-"`
	AuthorID      uuid.UUID `json:"-"`
	Category      *Category `json:"category,omitempty"`
	Author        *Author   `json:"author,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// IsAuthoredBy reports whether the given user owns the post.
func (p *Post) IsAuthoredBy(userID uuid.UUID) bool {
	return userID != uuid.Nil && p.AuthorID == userID
}

// HasDefaultImage returns true if no image was ever uploaded for the post.
func (p *Post) HasDefaultImage() bool {
	return p.FeaturedImage == "" || p.FeaturedImage == DefaultFeaturedImage
}
