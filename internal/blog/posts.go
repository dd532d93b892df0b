// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package blog

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"inkpost/internal/apperr"
	"inkpost/internal/markdown"
	"inkpost/internal/models"
	"inkpost/internal/slug"
	"inkpost/internal/upload"
)

// PostInput carries the user-editable fields of a post. On update, empty
// strings and a nil Image keep the stored values.
type PostInput struct {
	Title      string       `json:"title"`
	Content    string       `json:"content"`
	CategoryID string       `json:"categoryId"`
	Image      *upload.File `json:"-"`
}

type createPostFields struct {
	Title      string `json:"title" validate:"required,max=300"`
	Content    string `json:"content" validate:"required,max=100000"`
	CategoryID string `json:"categoryId" validate:"required,uuid"`
}

type updatePostFields struct {
	Title      string `json:"title" validate:"omitempty,max=300"`
	Content    string `json:"content" validate:"omitempty,max=100000"`
	CategoryID string `json:"categoryId" validate:"omitempty,uuid"`
}

// Posts creates, reads, updates and deletes posts. Only a post's author
// may modify or delete it.
type Posts struct {
	posts      PostRepository
	categories CategoryRepository
	images     ImageStore
}

// NewPosts returns a Posts service.
func NewPosts(posts PostRepository, categories CategoryRepository, images ImageStore) *Posts {
	return &Posts{posts: posts, categories: categories, images: images}
}

// Create validates the input, stores the optional image and persists a new
// post owned by authorID. The slug is derived from the title; uniqueness is
// enforced by the repository.
func (s *Posts) Create(ctx context.Context, authorID uuid.UUID, in PostInput) (*models.Post, error) {
	if authorID == uuid.Nil {
		return nil, apperr.Unauthenticated("User not authenticated")
	}

	if in.Title == "" || in.Content == "" || in.CategoryID == "" {
		return nil, apperr.Validation(firstMissing(in), "Title, content, and category are required")
	}
	if err := checkStruct(createPostFields{Title: in.Title, Content: in.Content, CategoryID: in.CategoryID}); err != nil {
		return nil, err
	}

	postSlug := slug.Generate(in.Title)
	if postSlug == "" {
		return nil, apperr.Validation("title", "Title must contain letters or digits")
	}

	category, err := s.resolveCategory(ctx, in.CategoryID)
	if err != nil {
		return nil, err
	}

	post := &models.Post{
		Title:         in.Title,
		Content:       in.Content,
		Slug:          postSlug,
		FeaturedImage: models.DefaultFeaturedImage,
		CategoryID:    category.ID,
		AuthorID:      authorID,
	}

	if in.Image != nil {
		ref, err := s.images.Save(ctx, in.Image)
		if err != nil {
			return nil, err
		}
		post.FeaturedImage = ref
	}

	created, err := s.posts.Create(ctx, post)
	if err != nil {
		s.discardImage(ctx, in.Image, post.FeaturedImage)
		if apperr.IsConflictOn(err, "slug") {
			return nil, apperr.Conflict("slug", "Duplicate slug detected", err)
		}
		return nil, apperr.Internal("create post", err)
	}

	slog.Info("post created", "post_id", created.ID, "slug", created.Slug, "author_id", authorID)
	return s.reload(ctx, created.ID)
}

// Get returns a post by UUID or slug with rendered HTML content.
func (s *Posts) Get(ctx context.Context, idOrSlug string) (*models.Post, error) {
	var (
		post *models.Post
		err  error
	)
	if id, parseErr := uuid.Parse(idOrSlug); parseErr == nil {
		post, err = s.posts.FindByID(ctx, id)
	} else {
		post, err = s.posts.FindBySlug(ctx, idOrSlug)
	}
	if err != nil {
		return nil, apperr.Internal("get post", err)
	}
	if post == nil {
		return nil, apperr.NotFound("Post not found")
	}

	html, err := markdown.ToHTML(post.Content)
	if err != nil {
		slog.Warn("render post content", "post_id", post.ID, "error", err)
	} else {
		post.ContentHTML = html
	}
	return post, nil
}

// List returns every post. Ordering is left to the caller.
func (s *Posts) List(ctx context.Context) ([]models.Post, error) {
	posts, err := s.posts.List(ctx)
	if err != nil {
		return nil, apperr.Internal("list posts", err)
	}
	if posts == nil {
		posts = []models.Post{}
	}
	return posts, nil
}

// Update applies the non-empty fields of in to the post. The slug is
// recomputed when the title changes; a collision with another post's slug
// surfaces as a conflict from the repository.
func (s *Posts) Update(ctx context.Context, requesterID, postID uuid.UUID, in PostInput) (*models.Post, error) {
	post, err := s.posts.FindByID(ctx, postID)
	if err != nil {
		return nil, apperr.Internal("find post", err)
	}
	if post == nil {
		return nil, apperr.NotFound("Post not found")
	}
	if !post.IsAuthoredBy(requesterID) {
		return nil, apperr.Forbidden("Not authorized to update this post")
	}

	if err := checkStruct(updatePostFields{Title: in.Title, Content: in.Content, CategoryID: in.CategoryID}); err != nil {
		return nil, err
	}

	if in.Title != "" && in.Title != post.Title {
		newSlug := slug.Generate(in.Title)
		if newSlug == "" {
			return nil, apperr.Validation("title", "Title must contain letters or digits")
		}
		post.Title = in.Title
		post.Slug = newSlug
	}
	if in.Content != "" {
		post.Content = in.Content
	}
	if in.CategoryID != "" {
		category, err := s.resolveCategory(ctx, in.CategoryID)
		if err != nil {
			return nil, err
		}
		post.CategoryID = category.ID
	}

	previousImage := post.FeaturedImage
	if in.Image != nil {
		ref, err := s.images.Save(ctx, in.Image)
		if err != nil {
			return nil, err
		}
		post.FeaturedImage = ref
	}

	if err := s.posts.Update(ctx, post); err != nil {
		if post.FeaturedImage != previousImage {
			s.discardImage(ctx, in.Image, post.FeaturedImage)
		}
		if apperr.IsConflictOn(err, "slug") {
			return nil, apperr.Conflict("slug", "Duplicate slug detected", err)
		}
		return nil, apperr.Internal("update post", err)
	}

	slog.Info("post updated", "post_id", post.ID, "slug", post.Slug)
	return s.reload(ctx, post.ID)
}

// Delete removes a post. The featured image is left in storage.
func (s *Posts) Delete(ctx context.Context, requesterID, postID uuid.UUID) error {
	post, err := s.posts.FindByID(ctx, postID)
	if err != nil {
		return apperr.Internal("find post", err)
	}
	if post == nil {
		return apperr.NotFound("Post not found")
	}
	if !post.IsAuthoredBy(requesterID) {
		return apperr.Forbidden("Not authorized to delete this post")
	}

	if err := s.posts.Delete(ctx, postID); err != nil {
		return apperr.Internal("delete post", err)
	}

	slog.Info("post deleted", "post_id", postID, "author_id", requesterID)
	return nil
}

// resolveCategory parses a category id and loads the category.
func (s *Posts) resolveCategory(ctx context.Context, raw string) (*models.Category, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, apperr.Validation("categoryId", "Invalid category ID")
	}
	category, err := s.categories.FindByID(ctx, id)
	if err != nil {
		return nil, apperr.Internal("find category", err)
	}
	if category == nil {
		return nil, apperr.NotFound("Category not found")
	}
	return category, nil
}

// reload re-reads a post so the caller gets category and author resolved.
func (s *Posts) reload(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	post, err := s.posts.FindByID(ctx, id)
	if err != nil {
		return nil, apperr.Internal("reload post", err)
	}
	if post == nil {
		return nil, apperr.NotFound("Post not found")
	}
	return post, nil
}

// discardImage removes an image stored for a write that then failed.
func (s *Posts) discardImage(ctx context.Context, file *upload.File, ref string) {
	if file == nil {
		return
	}
	if err := s.images.Remove(ctx, ref); err != nil {
		slog.Warn("remove orphaned image", "ref", ref, "error", err)
	}
}

func firstMissing(in PostInput) string {
	switch {
	case in.Title == "":
		return "title"
	case in.Content == "":
		return "content"
	default:
		return "categoryId"
	}
}
