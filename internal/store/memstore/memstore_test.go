package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkpost/internal/apperr"
	"inkpost/internal/models"
)

func TestCategoryUniqueness(t *testing.T) {
	ctx := context.Background()
	cats := New().Categories()

	_, err := cats.Create(ctx, &models.Category{Name: "Tech", Slug: "tech"})
	require.NoError(t, err)

	_, err = cats.Create(ctx, &models.Category{Name: "Tech", Slug: "tech-1"})
	assert.True(t, apperr.IsConflictOn(err, "name"))

	_, err = cats.Create(ctx, &models.Category{Name: "tech!", Slug: "tech"})
	assert.True(t, apperr.IsConflictOn(err, "slug"))

	exists, err := cats.SlugExists(ctx, "tech")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestCategoryListSortedByName(t *testing.T) {
	ctx := context.Background()
	cats := New().Categories()
	for _, name := range []string{"Travel", "Art", "Music"} {
		_, err := cats.Create(ctx, &models.Category{Name: name, Slug: name})
		require.NoError(t, err)
	}

	items, err := cats.List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "Art", items[0].Name)
	assert.Equal(t, "Music", items[1].Name)
	assert.Equal(t, "Travel", items[2].Name)
}

func TestPostResolvesReferences(t *testing.T) {
	ctx := context.Background()
	db := New()

	user, err := db.Users().Create(ctx, &models.User{Username: "alice", Email: "alice@example.com"})
	require.NoError(t, err)
	cat, err := db.Categories().Create(ctx, &models.Category{Name: "Tech", Slug: "tech"})
	require.NoError(t, err)

	created, err := db.Posts().Create(ctx, &models.Post{
		Title: "Hello", Content: "World", Slug: "hello",
		CategoryID: cat.ID, AuthorID: user.ID,
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, models.DefaultFeaturedImage, created.FeaturedImage)

	got, err := db.Posts().FindBySlug(ctx, "hello")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.NotNil(t, got.Category)
	require.NotNil(t, got.Author)
	assert.Equal(t, "Tech", got.Category.Name)
	assert.Equal(t, "alice", got.Author.Username)

	missing, err := db.Posts().FindByID(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestPostSlugConflictOnUpdate(t *testing.T) {
	ctx := context.Background()
	posts := New().Posts()

	a, err := posts.Create(ctx, &models.Post{Title: "A", Slug: "a"})
	require.NoError(t, err)
	_, err = posts.Create(ctx, &models.Post{Title: "B", Slug: "b"})
	require.NoError(t, err)

	_, err = posts.Create(ctx, &models.Post{Title: "A again", Slug: "a"})
	assert.True(t, apperr.IsConflictOn(err, "slug"))

	a.Slug = "b"
	err = posts.Update(ctx, a)
	assert.True(t, apperr.IsConflictOn(err, "slug"))

	a.Slug = "a"
	a.Title = "A edited"
	require.NoError(t, posts.Update(ctx, a))
}

func TestPostListNewestFirst(t *testing.T) {
	ctx := context.Background()
	db := New()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	offsets := []int{1, 3, 2}

	for i, off := range offsets {
		at := base.Add(time.Duration(off) * time.Hour)
		db.SetClock(func() time.Time { return at })
		_, err := db.Posts().Create(ctx, &models.Post{Title: "p", Slug: string(rune('a' + i))})
		require.NoError(t, err)
	}

	items, err := db.Posts().List(ctx)
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "b", items[0].Slug)
	assert.Equal(t, "c", items[1].Slug)
	assert.Equal(t, "a", items[2].Slug)
}

func TestUserUniqueness(t *testing.T) {
	ctx := context.Background()
	users := New().Users()

	_, err := users.Create(ctx, &models.User{Username: "alice", Email: "alice@example.com"})
	require.NoError(t, err)

	_, err = users.Create(ctx, &models.User{Username: "alice2", Email: "ALICE@example.com"})
	assert.True(t, apperr.IsConflictOn(err, "email"))

	_, err = users.Create(ctx, &models.User{Username: "alice", Email: "other@example.com"})
	assert.True(t, apperr.IsConflictOn(err, "username"))

	exists, err := users.ExistsByEmailOrUsername(ctx, "nobody@example.com", "alice")
	require.NoError(t, err)
	assert.True(t, exists)

	found, err := users.FindByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "alice", found.Username)
}
