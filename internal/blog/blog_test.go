package blog

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"inkpost/internal/models"
	"inkpost/internal/store/memstore"
	"inkpost/internal/upload"
)

// fakeImages records saved and removed image references.
type fakeImages struct {
	mu      sync.Mutex
	n       int
	saved   []string
	removed []string
}

func (f *fakeImages) Save(_ context.Context, _ *upload.File) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.n++
	ref := fmt.Sprintf("uploads/img-%d.png", f.n)
	f.saved = append(f.saved, ref)
	return ref, nil
}

func (f *fakeImages) Remove(_ context.Context, ref string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, ref)
	return nil
}

// fakeTokens issues predictable tokens.
type fakeTokens struct{}

func (fakeTokens) Issue(u *models.User) (string, time.Time, error) {
	return "token-" + u.ID.String(), time.Date(2026, 1, 1, 1, 0, 0, 0, time.UTC), nil
}

type fixture struct {
	db         *memstore.DB
	images     *fakeImages
	posts      *Posts
	categories *Categories
	accounts   *Accounts
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := memstore.New()
	images := &fakeImages{}
	accounts := NewAccounts(db.Users(), fakeTokens{})
	accounts.cost = bcrypt.MinCost
	return &fixture{
		db:         db,
		images:     images,
		posts:      NewPosts(db.Posts(), db.Categories(), images),
		categories: NewCategories(db.Categories()),
		accounts:   accounts,
	}
}

func (f *fixture) user(t *testing.T, name string) uuid.UUID {
	t.Helper()
	u, err := f.db.Users().Create(context.Background(), &models.User{
		Username: name,
		Email:    name + "@example.com",
	})
	require.NoError(t, err)
	return u.ID
}

func (f *fixture) category(t *testing.T, name string) *models.Category {
	t.Helper()
	c, err := f.categories.Create(context.Background(), name)
	require.NoError(t, err)
	return c
}

func pngFile() *upload.File {
	return upload.NewFile("cover.png", "image/png", []byte("\x89PNG\r\n\x1a\n"))
}
