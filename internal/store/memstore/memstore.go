// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package memstore is an in-process implementation of the blog
// repositories. It enforces the same unique constraints as the Postgres
// schema and the Mongo indexes, and is used for local development
// (STORE_DRIVER=memory) and tests.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"inkpost/internal/apperr"
	"inkpost/internal/models"
)

// DB holds all records behind one lock.
type DB struct {
	mu         sync.RWMutex
	users      map[uuid.UUID]models.User
	categories map[uuid.UUID]models.Category
	posts      map[uuid.UUID]models.Post
	now        func() time.Time
}

// New returns an empty DB.
func New() *DB {
	return &DB{
		users:      make(map[uuid.UUID]models.User),
		categories: make(map[uuid.UUID]models.Category),
		posts:      make(map[uuid.UUID]models.Post),
		now:        time.Now,
	}
}

// SetClock replaces the timestamp source.
func (db *DB) SetClock(now func() time.Time) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.now = now
}

// Posts returns the post repository.
func (db *DB) Posts() *PostStore { return &PostStore{db: db} }

// Categories returns the category repository.
func (db *DB) Categories() *CategoryStore { return &CategoryStore{db: db} }

// Users returns the user repository.
func (db *DB) Users() *UserStore { return &UserStore{db: db} }

func duplicate(field string) error {
	return apperr.Conflict(field, "duplicate value for "+field, nil)
}

// PostStore implements blog.PostRepository.
type PostStore struct {
	db *DB
}

// Create inserts a post. The slug must be unique.
func (s *PostStore) Create(_ context.Context, p *models.Post) (*models.Post, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	for _, existing := range s.db.posts {
		if existing.Slug == p.Slug {
			return nil, duplicate("slug")
		}
	}

	stored := *p
	stored.ID = uuid.New()
	stored.CreatedAt = s.db.now()
	stored.UpdatedAt = stored.CreatedAt
	stored.Category, stored.Author, stored.ContentHTML = nil, nil, ""
	if stored.FeaturedImage == "" {
		stored.FeaturedImage = models.DefaultFeaturedImage
	}
	s.db.posts[stored.ID] = stored

	out := stored
	return &out, nil
}

// FindByID returns a post or nil.
func (s *PostStore) FindByID(_ context.Context, id uuid.UUID) (*models.Post, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	p, ok := s.db.posts[id]
	if !ok {
		return nil, nil
	}
	return s.db.resolve(p), nil
}

// FindBySlug returns a post or nil.
func (s *PostStore) FindBySlug(_ context.Context, slug string) (*models.Post, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	for _, p := range s.db.posts {
		if p.Slug == slug {
			return s.db.resolve(p), nil
		}
	}
	return nil, nil
}

// List returns all posts, newest first.
func (s *PostStore) List(_ context.Context) ([]models.Post, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	items := make([]models.Post, 0, len(s.db.posts))
	for _, p := range s.db.posts {
		items = append(items, *s.db.resolve(p))
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items, nil
}

// Update overwrites the mutable fields of a post.
func (s *PostStore) Update(_ context.Context, p *models.Post) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	stored, ok := s.db.posts[p.ID]
	if !ok {
		return nil
	}
	for id, existing := range s.db.posts {
		if id != p.ID && existing.Slug == p.Slug {
			return duplicate("slug")
		}
	}

	stored.Title = p.Title
	stored.Content = p.Content
	stored.Slug = p.Slug
	stored.FeaturedImage = p.FeaturedImage
	stored.CategoryID = p.CategoryID
	stored.UpdatedAt = s.db.now()
	s.db.posts[p.ID] = stored
	return nil
}

// Delete removes a post. Deleting a missing post is a no-op.
func (s *PostStore) Delete(_ context.Context, id uuid.UUID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	delete(s.db.posts, id)
	return nil
}

// resolve copies p and attaches its category and author. Callers hold the lock.
func (db *DB) resolve(p models.Post) *models.Post {
	if c, ok := db.categories[p.CategoryID]; ok {
		p.Category = &c
	}
	if u, ok := db.users[p.AuthorID]; ok {
		p.Author = u.Public()
	}
	return &p
}

// CategoryStore implements blog.CategoryRepository.
type CategoryStore struct {
	db *DB
}

// Create inserts a category. Name and slug must be unique.
func (s *CategoryStore) Create(_ context.Context, c *models.Category) (*models.Category, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	for _, existing := range s.db.categories {
		if existing.Name == c.Name {
			return nil, duplicate("name")
		}
		if existing.Slug == c.Slug {
			return nil, duplicate("slug")
		}
	}

	stored := *c
	stored.ID = uuid.New()
	stored.CreatedAt = s.db.now()
	stored.UpdatedAt = stored.CreatedAt
	s.db.categories[stored.ID] = stored

	out := stored
	return &out, nil
}

// FindByID returns a category or nil.
func (s *CategoryStore) FindByID(_ context.Context, id uuid.UUID) (*models.Category, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	c, ok := s.db.categories[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

// FindByName returns a category or nil.
func (s *CategoryStore) FindByName(_ context.Context, name string) (*models.Category, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	for _, c := range s.db.categories {
		if c.Name == name {
			return &c, nil
		}
	}
	return nil, nil
}

// SlugExists reports whether a category already uses slug.
func (s *CategoryStore) SlugExists(_ context.Context, slug string) (bool, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	for _, c := range s.db.categories {
		if c.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

// List returns all categories ordered by name.
func (s *CategoryStore) List(_ context.Context) ([]models.Category, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	items := make([]models.Category, 0, len(s.db.categories))
	for _, c := range s.db.categories {
		items = append(items, c)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items, nil
}

// UserStore implements blog.UserRepository.
type UserStore struct {
	db *DB
}

// Create inserts a user. Email and username must be unique.
func (s *UserStore) Create(_ context.Context, u *models.User) (*models.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	for _, existing := range s.db.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return nil, duplicate("email")
		}
		if existing.Username == u.Username {
			return nil, duplicate("username")
		}
	}

	stored := *u
	stored.ID = uuid.New()
	stored.CreatedAt = s.db.now()
	stored.UpdatedAt = stored.CreatedAt
	s.db.users[stored.ID] = stored

	out := stored
	return &out, nil
}

// FindByID returns a user or nil.
func (s *UserStore) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	u, ok := s.db.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

// FindByEmail returns a user or nil.
func (s *UserStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	for _, u := range s.db.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, nil
}

// ExistsByEmailOrUsername reports whether either value is taken.
func (s *UserStore) ExistsByEmailOrUsername(_ context.Context, email, username string) (bool, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	for _, u := range s.db.users {
		if strings.EqualFold(u.Email, email) || u.Username == username {
			return true, nil
		}
	}
	return false, nil
}
