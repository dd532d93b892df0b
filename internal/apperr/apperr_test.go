package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatusOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", Validation("title", "Title is required"), http.StatusBadRequest},
		{"not found", NotFound("Post not found"), http.StatusNotFound},
		{"unauthenticated", Unauthenticated("Invalid token"), http.StatusUnauthorized},
		{"forbidden", Forbidden("Not authorized"), http.StatusForbidden},
		{"unsupported media", UnsupportedMedia("Only image files are allowed"), http.StatusBadRequest},
		{"payload too large", PayloadTooLarge("File too large"), http.StatusBadRequest},
		{"conflict", Conflict("slug", "Duplicate slug detected", nil), http.StatusBadRequest},
		{"internal", Internal("boom", errors.New("db down")), http.StatusInternalServerError},
		{"plain error", errors.New("unclassified"), http.StatusInternalServerError},
		{"wrapped", fmt.Errorf("create post: %w", NotFound("Category not found")), http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusOf(tt.err); got != tt.want {
				t.Errorf("StatusOf: got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestPublicMessage(t *testing.T) {
	if got := PublicMessage(Validation("title", "Title is required"), "fallback"); got != "Title is required" {
		t.Errorf("validation message: got %q", got)
	}
	if got := PublicMessage(Internal("pq: relation missing", errors.New("x")), "Server error"); got != "Server error" {
		t.Errorf("internal message leaked: got %q", got)
	}
	if got := PublicMessage(errors.New("raw"), "Server error"); got != "Server error" {
		t.Errorf("plain error: got %q", got)
	}
}

func TestIsConflictOn(t *testing.T) {
	err := fmt.Errorf("insert: %w", Conflict("slug", "Duplicate slug detected", errors.New("23505")))

	if !IsConflictOn(err, "slug") {
		t.Error("expected conflict on slug")
	}
	if IsConflictOn(err, "name") {
		t.Error("did not expect conflict on name")
	}
	if !Is(err, KindConflict) {
		t.Error("expected KindConflict")
	}
	if !errors.Is(err, err) {
		t.Error("errors.Is should hold for identity")
	}
}

func TestErrorString(t *testing.T) {
	e := Internal("list posts", errors.New("connection refused"))
	if e.Error() != "internal: list posts: connection refused" {
		t.Errorf("Error(): got %q", e.Error())
	}
	if !errors.Is(e, e.Err) {
		t.Error("Unwrap should expose the cause")
	}
}
