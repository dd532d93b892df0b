package store

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"inkpost/internal/apperr"
	"inkpost/internal/models"
)

func TestUserStoreCreate(t *testing.T) {
	db := testDB(t)
	s := NewUserStore(db)
	ctx := context.Background()

	email := "test-create@store-test.local"
	t.Cleanup(func() { cleanUsers(t, db, email) })

	user, err := s.Create(ctx, &models.User{Username: "store-create", Email: email, PasswordHash: "hash"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if user.ID == uuid.Nil {
		t.Error("expected non-nil UUID")
	}
	if user.Email != email {
		t.Errorf("email: got %q, want %q", user.Email, email)
	}
	if user.CreatedAt.IsZero() {
		t.Error("expected created_at to be set")
	}

	_, err = s.Create(ctx, &models.User{Username: "store-create-2", Email: email, PasswordHash: "hash"})
	if !apperr.IsConflictOn(err, "email") {
		t.Errorf("duplicate email: got %v, want conflict on email", err)
	}
	_, err = s.Create(ctx, &models.User{Username: "store-create", Email: "other-" + email, PasswordHash: "hash"})
	if !apperr.IsConflictOn(err, "username") {
		t.Errorf("duplicate username: got %v, want conflict on username", err)
	}
}

func TestUserStoreFind(t *testing.T) {
	db := testDB(t)
	s := NewUserStore(db)
	ctx := context.Background()

	email := "test-find@store-test.local"
	t.Cleanup(func() { cleanUsers(t, db, email) })

	user, err := s.FindByEmail(ctx, email)
	if err != nil {
		t.Fatalf("FindByEmail (not found): %v", err)
	}
	if user != nil {
		t.Fatal("expected nil for nonexistent user")
	}

	created, err := s.Create(ctx, &models.User{Username: "store-find", Email: email, PasswordHash: "hash"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	byEmail, err := s.FindByEmail(ctx, email)
	if err != nil || byEmail == nil {
		t.Fatalf("FindByEmail: %v, %v", byEmail, err)
	}
	if byEmail.ID != created.ID {
		t.Errorf("FindByEmail id: got %s, want %s", byEmail.ID, created.ID)
	}

	byID, err := s.FindByID(ctx, created.ID)
	if err != nil || byID == nil {
		t.Fatalf("FindByID: %v, %v", byID, err)
	}
	if byID.PasswordHash != "hash" {
		t.Errorf("password hash: got %q", byID.PasswordHash)
	}

	exists, err := s.ExistsByEmailOrUsername(ctx, "nobody@store-test.local", "store-find")
	if err != nil {
		t.Fatalf("ExistsByEmailOrUsername: %v", err)
	}
	if !exists {
		t.Error("expected username match")
	}
}
