// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"inkpost/internal/apperr"
	"inkpost/internal/auth"
	"inkpost/internal/respond"
)

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey string

const (
	// IdentityKey is the context key for the authenticated identity.
	IdentityKey contextKey = "identity"
)

// Identity is the authenticated caller of a request.
type Identity struct {
	UserID    uuid.UUID
	TokenID   string
	ExpiresAt time.Time
	Token     string
}

// TokenVerifier validates a bearer token.
type TokenVerifier interface {
	Verify(raw string) (*auth.Claims, error)
}

// RequireAuth rejects requests without a valid, unrevoked bearer token
// with 401 and stores the caller's Identity in the request context.
// revoked may be nil when logout revocation is disabled.
func RequireAuth(tokens TokenVerifier, revoked auth.Revoker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				respond.Error(w, r, apperr.Unauthenticated("No token provided"), "")
				return
			}

			claims, err := tokens.Verify(raw)
			if err != nil {
				respond.Error(w, r, apperr.Unauthenticated("Invalid token"), "")
				return
			}
			userID, err := claims.UserID()
			if err != nil {
				respond.Error(w, r, apperr.Unauthenticated("Invalid token"), "")
				return
			}

			if revoked != nil && claims.ID != "" {
				isRevoked, err := revoked.IsRevoked(r.Context(), claims.ID)
				if err != nil {
					respond.Error(w, r, apperr.Internal("check token revocation", err), "Server error")
					return
				}
				if isRevoked {
					respond.Error(w, r, apperr.Unauthenticated("Token has been revoked"), "")
					return
				}
			}

			id := &Identity{UserID: userID, TokenID: claims.ID, Token: raw}
			if claims.ExpiresAt != nil {
				id.ExpiresAt = claims.ExpiresAt.Time
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// bearerToken extracts the token from "Authorization: Bearer <token>".
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// WithIdentity returns ctx carrying id.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, IdentityKey, id)
}

// IdentityFromCtx extracts the caller identity from the request context.
// Returns nil if the request was not authenticated.
func IdentityFromCtx(ctx context.Context) *Identity {
	id, _ := ctx.Value(IdentityKey).(*Identity)
	return id
}
