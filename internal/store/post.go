// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"inkpost/internal/models"
)

// PostStore manages posts in the database.
type PostStore struct {
	db *sql.DB
}

// NewPostStore returns a new PostStore.
func NewPostStore(db *sql.DB) *PostStore {
	return &PostStore{db: db}
}

// postSelect joins each post with its category and author so reads return
// a display-ready record.
const postSelect = `
	SELECT p.id, p.title, p.content, p.slug, p.featured_image,
	       p.category_id, p.author_id, p.created_at, p.updated_at,
	       c.id, c.name, c.slug, c.created_at, c.updated_at,
	       u.id, u.username, u.email
	FROM posts p
	JOIN categories c ON c.id = p.category_id
	JOIN users u ON u.id = p.author_id`

// scanPost scans a postSelect row.
func scanPost(scanner interface{ Scan(...any) error }) (*models.Post, error) {
	var (
		p models.Post
		c models.Category
		a models.Author
	)
	err := scanner.Scan(
		&p.ID, &p.Title, &p.Content, &p.Slug, &p.FeaturedImage,
		&p.CategoryID, &p.AuthorID, &p.CreatedAt, &p.UpdatedAt,
		&c.ID, &c.Name, &c.Slug, &c.CreatedAt, &c.UpdatedAt,
		&a.ID, &a.Username, &a.Email,
	)
	if err != nil {
		return nil, err
	}
	p.Category = &c
	p.Author = &a
	return &p, nil
}

// Create inserts a post and returns the stored row. A duplicate slug is
// reported as a conflict.
func (s *PostStore) Create(ctx context.Context, p *models.Post) (*models.Post, error) {
	image := p.FeaturedImage
	if image == "" {
		image = models.DefaultFeaturedImage
	}

	created := *p
	created.Category, created.Author = nil, nil
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO posts (title, content, slug, featured_image, category_id, author_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, featured_image, created_at, updated_at`,
		p.Title, p.Content, p.Slug, image, p.CategoryID, p.AuthorID,
	).Scan(&created.ID, &created.FeaturedImage, &created.CreatedAt, &created.UpdatedAt)
	if err != nil {
		return nil, translate("create post", err)
	}
	return &created, nil
}

// FindByID retrieves a post by ID. Returns nil if not found.
func (s *PostStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	p, err := scanPost(s.db.QueryRowContext(ctx, postSelect+` WHERE p.id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find post by id: %w", err)
	}
	return p, nil
}

// FindBySlug retrieves a post by slug. Returns nil if not found.
func (s *PostStore) FindBySlug(ctx context.Context, slug string) (*models.Post, error) {
	p, err := scanPost(s.db.QueryRowContext(ctx, postSelect+` WHERE p.slug = $1`, slug))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find post by slug: %w", err)
	}
	return p, nil
}

// List returns all posts, newest first.
func (s *PostStore) List(ctx context.Context) ([]models.Post, error) {
	rows, err := s.db.QueryContext(ctx, postSelect+` ORDER BY p.created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	var items []models.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		items = append(items, *p)
	}
	return items, rows.Err()
}

// Update overwrites the mutable fields of a post. The author and creation
// time never change.
func (s *PostStore) Update(ctx context.Context, p *models.Post) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE posts SET
			title = $1, content = $2, slug = $3, featured_image = $4,
			category_id = $5, updated_at = NOW()
		WHERE id = $6
	`, p.Title, p.Content, p.Slug, p.FeaturedImage, p.CategoryID, p.ID)
	if err != nil {
		return translate("update post", err)
	}
	return nil
}

// Delete removes a post by ID.
func (s *PostStore) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM posts WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	return nil
}
