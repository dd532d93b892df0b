// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package mongostore implements the blog repositories on MongoDB. Ids are
// UUID strings stored in _id so records keep the same identity scheme as the
// Postgres backend. Uniqueness is enforced by the indexes created in
// docstore.EnsureIndexes.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"inkpost/internal/apperr"
	"inkpost/internal/docstore"
	"inkpost/internal/models"
)

type postDoc struct {
	ID            string    `bson:"_id"`
	Title         string    `bson:"title"`
	Content       string    `bson:"content"`
	Slug          string    `bson:"slug"`
	FeaturedImage string    `bson:"featured_image"`
	CategoryID    string    `bson:"category_id"`
	AuthorID      string    `bson:"author_id"`
	CreatedAt     time.Time `bson:"created_at"`
	UpdatedAt     time.Time `bson:"updated_at"`
}

type categoryDoc struct {
	ID        string    `bson:"_id"`
	Name      string    `bson:"name"`
	Slug      string    `bson:"slug"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

type userDoc struct {
	ID           string    `bson:"_id"`
	Username     string    `bson:"username"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"password_hash"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

func (d categoryDoc) model() models.Category {
	return models.Category{
		ID:        uuid.MustParse(d.ID),
		Name:      d.Name,
		Slug:      d.Slug,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

func (d userDoc) model() *models.User {
	return &models.User{
		ID:           uuid.MustParse(d.ID),
		Username:     d.Username,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

func (d postDoc) model() models.Post {
	return models.Post{
		ID:            uuid.MustParse(d.ID),
		Title:         d.Title,
		Content:       d.Content,
		Slug:          d.Slug,
		FeaturedImage: d.FeaturedImage,
		CategoryID:    uuid.MustParse(d.CategoryID),
		AuthorID:      uuid.MustParse(d.AuthorID),
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}

// translate wraps err with op. Duplicate-key errors become apperr conflicts
// naming the field whose unique index rejected the write.
func translate(op string, err error) error {
	if mongo.IsDuplicateKeyError(err) {
		field := duplicateField(err)
		return apperr.Conflict(field, "duplicate value for "+field, fmt.Errorf("%s: %w", op, err))
	}
	return fmt.Errorf("%s: %w", op, err)
}

// duplicateField finds which uniq_<field> index appears in the error text.
func duplicateField(err error) string {
	msg := err.Error()
	for _, f := range []string{"username", "email", "slug", "name"} {
		if strings.Contains(msg, docstore.IndexName(f)+" ") || strings.HasSuffix(msg, docstore.IndexName(f)) {
			return f
		}
	}
	return "unknown"
}

// now is truncated to milliseconds, the resolution BSON dates keep.
func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// PostStore implements blog.PostRepository.
type PostStore struct {
	posts      *mongo.Collection
	categories *mongo.Collection
	users      *mongo.Collection
}

// NewPostStore returns a PostStore on db.
func NewPostStore(db *mongo.Database) *PostStore {
	return &PostStore{
		posts:      db.Collection(docstore.Posts),
		categories: db.Collection(docstore.Categories),
		users:      db.Collection(docstore.Users),
	}
}

// Create inserts a post.
func (s *PostStore) Create(ctx context.Context, p *models.Post) (*models.Post, error) {
	ts := now()
	doc := postDoc{
		ID:            uuid.NewString(),
		Title:         p.Title,
		Content:       p.Content,
		Slug:          p.Slug,
		FeaturedImage: p.FeaturedImage,
		CategoryID:    p.CategoryID.String(),
		AuthorID:      p.AuthorID.String(),
		CreatedAt:     ts,
		UpdatedAt:     ts,
	}
	if doc.FeaturedImage == "" {
		doc.FeaturedImage = models.DefaultFeaturedImage
	}
	if _, err := s.posts.InsertOne(ctx, doc); err != nil {
		return nil, translate("create post", err)
	}
	created := doc.model()
	return &created, nil
}

// FindByID returns a post or nil.
func (s *PostStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	return s.findOne(ctx, bson.M{"_id": id.String()}, "find post by id")
}

// FindBySlug returns a post or nil.
func (s *PostStore) FindBySlug(ctx context.Context, slug string) (*models.Post, error) {
	return s.findOne(ctx, bson.M{"slug": slug}, "find post by slug")
}

func (s *PostStore) findOne(ctx context.Context, filter bson.M, op string) (*models.Post, error) {
	var doc postDoc
	err := s.posts.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	posts, err := s.resolve(ctx, []postDoc{doc})
	if err != nil {
		return nil, err
	}
	return &posts[0], nil
}

// List returns all posts, newest first.
func (s *PostStore) List(ctx context.Context) ([]models.Post, error) {
	cur, err := s.posts.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	var docs []postDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode posts: %w", err)
	}
	return s.resolve(ctx, docs)
}

// resolve converts docs and attaches categories and authors using one $in
// query per collection.
func (s *PostStore) resolve(ctx context.Context, docs []postDoc) ([]models.Post, error) {
	if len(docs) == 0 {
		return nil, nil
	}

	catIDs := make([]string, 0, len(docs))
	userIDs := make([]string, 0, len(docs))
	for _, d := range docs {
		catIDs = append(catIDs, d.CategoryID)
		userIDs = append(userIDs, d.AuthorID)
	}

	var cats []categoryDoc
	cur, err := s.categories.Find(ctx, bson.M{"_id": bson.M{"$in": catIDs}})
	if err != nil {
		return nil, fmt.Errorf("resolve categories: %w", err)
	}
	if err := cur.All(ctx, &cats); err != nil {
		return nil, fmt.Errorf("decode categories: %w", err)
	}
	catByID := make(map[string]models.Category, len(cats))
	for _, c := range cats {
		catByID[c.ID] = c.model()
	}

	var users []userDoc
	cur, err = s.users.Find(ctx, bson.M{"_id": bson.M{"$in": userIDs}})
	if err != nil {
		return nil, fmt.Errorf("resolve authors: %w", err)
	}
	if err := cur.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("decode authors: %w", err)
	}
	authorByID := make(map[string]*models.Author, len(users))
	for _, u := range users {
		authorByID[u.ID] = u.model().Public()
	}

	out := make([]models.Post, 0, len(docs))
	for _, d := range docs {
		p := d.model()
		if c, ok := catByID[d.CategoryID]; ok {
			p.Category = &c
		}
		p.Author = authorByID[d.AuthorID]
		out = append(out, p)
	}
	return out, nil
}

// Update overwrites the mutable fields of a post.
func (s *PostStore) Update(ctx context.Context, p *models.Post) error {
	_, err := s.posts.UpdateByID(ctx, p.ID.String(), bson.M{"$set": bson.M{
		"title":          p.Title,
		"content":        p.Content,
		"slug":           p.Slug,
		"featured_image": p.FeaturedImage,
		"category_id":    p.CategoryID.String(),
		"updated_at":     now(),
	}})
	if err != nil {
		return translate("update post", err)
	}
	return nil
}

// Delete removes a post.
func (s *PostStore) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.posts.DeleteOne(ctx, bson.M{"_id": id.String()}); err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	return nil
}

// CategoryStore implements blog.CategoryRepository.
type CategoryStore struct {
	coll *mongo.Collection
}

// NewCategoryStore returns a CategoryStore on db.
func NewCategoryStore(db *mongo.Database) *CategoryStore {
	return &CategoryStore{coll: db.Collection(docstore.Categories)}
}

// Create inserts a category.
func (s *CategoryStore) Create(ctx context.Context, c *models.Category) (*models.Category, error) {
	ts := now()
	doc := categoryDoc{ID: uuid.NewString(), Name: c.Name, Slug: c.Slug, CreatedAt: ts, UpdatedAt: ts}
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return nil, translate("create category", err)
	}
	created := doc.model()
	return &created, nil
}

// FindByID returns a category or nil.
func (s *CategoryStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	return s.findOne(ctx, bson.M{"_id": id.String()}, "find category by id")
}

// FindByName returns a category or nil.
func (s *CategoryStore) FindByName(ctx context.Context, name string) (*models.Category, error) {
	return s.findOne(ctx, bson.M{"name": name}, "find category by name")
}

func (s *CategoryStore) findOne(ctx context.Context, filter bson.M, op string) (*models.Category, error) {
	var doc categoryDoc
	err := s.coll.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	c := doc.model()
	return &c, nil
}

// SlugExists reports whether a category already uses slug.
func (s *CategoryStore) SlugExists(ctx context.Context, slug string) (bool, error) {
	n, err := s.coll.CountDocuments(ctx, bson.M{"slug": slug}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("check category slug: %w", err)
	}
	return n > 0, nil
}

// List returns all categories ordered by name.
func (s *CategoryStore) List(ctx context.Context) ([]models.Category, error) {
	cur, err := s.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	var docs []categoryDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode categories: %w", err)
	}
	items := make([]models.Category, 0, len(docs))
	for _, d := range docs {
		items = append(items, d.model())
	}
	return items, nil
}

// UserStore implements blog.UserRepository.
type UserStore struct {
	coll *mongo.Collection
}

// NewUserStore returns a UserStore on db.
func NewUserStore(db *mongo.Database) *UserStore {
	return &UserStore{coll: db.Collection(docstore.Users)}
}

// Create inserts a user whose password is already hashed.
func (s *UserStore) Create(ctx context.Context, u *models.User) (*models.User, error) {
	ts := now()
	doc := userDoc{
		ID:           uuid.NewString(),
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		CreatedAt:    ts,
		UpdatedAt:    ts,
	}
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return nil, translate("create user", err)
	}
	return doc.model(), nil
}

// FindByID returns a user or nil.
func (s *UserStore) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.findOne(ctx, bson.M{"_id": id.String()}, "find user by id")
}

// FindByEmail returns a user or nil.
func (s *UserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"email": email}, "find user by email")
}

func (s *UserStore) findOne(ctx context.Context, filter bson.M, op string) (*models.User, error) {
	var doc userDoc
	err := s.coll.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return doc.model(), nil
}

// ExistsByEmailOrUsername reports whether either value is taken.
func (s *UserStore) ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error) {
	filter := bson.M{"$or": bson.A{bson.M{"email": email}, bson.M{"username": username}}}
	n, err := s.coll.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("check user exists: %w", err)
	}
	return n > 0, nil
}
