// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"log/slog"
	"net/http"

	"inkpost/internal/apperr"
	"inkpost/internal/auth"
	"inkpost/internal/blog"
	"inkpost/internal/middleware"
	"inkpost/internal/respond"
	"inkpost/internal/upload"
)

// Auth groups the account endpoints.
type Auth struct {
	accounts *blog.Accounts
	revoker  auth.Revoker
	forms    *upload.Handler
}

// NewAuth creates the account handler group. Logout revokes tokens in
// revoker until they expire.
func NewAuth(accounts *blog.Accounts, revoker auth.Revoker, forms *upload.Handler) *Auth {
	return &Auth{accounts: accounts, revoker: revoker, forms: forms}
}

// Register handles POST /auth/register.
func (a *Auth) Register(w http.ResponseWriter, r *http.Request) {
	form, err := a.forms.Parse(w, r)
	if err != nil {
		respond.Error(w, r, err, serverError)
		return
	}

	sess, err := a.accounts.Register(r.Context(), form.Value("username"), form.Value("email"), form.Values.Get("password"))
	if err != nil {
		respond.Error(w, r, err, serverError)
		return
	}
	respond.JSON(w, http.StatusCreated, sess)
}

// Login handles POST /auth/login.
func (a *Auth) Login(w http.ResponseWriter, r *http.Request) {
	form, err := a.forms.Parse(w, r)
	if err != nil {
		respond.Error(w, r, err, serverError)
		return
	}

	sess, err := a.accounts.Login(r.Context(), form.Value("email"), form.Values.Get("password"))
	if err != nil {
		respond.Error(w, r, err, serverError)
		return
	}
	respond.JSON(w, http.StatusOK, sess)
}

// Logout handles POST /auth/logout by revoking the presented token.
func (a *Auth) Logout(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromCtx(r.Context())
	if id == nil {
		respond.Error(w, r, apperr.Unauthenticated("No token provided"), "")
		return
	}

	if err := a.revoker.Revoke(r.Context(), id.TokenID, id.ExpiresAt); err != nil {
		respond.Error(w, r, apperr.Internal("revoke token", err), serverError)
		return
	}
	slog.Info("user logged out", "user_id", id.UserID)
	respond.OK(w, "Logged out")
}

// Me handles GET /auth/me.
func (a *Auth) Me(w http.ResponseWriter, r *http.Request) {
	user, err := a.accounts.Me(r.Context(), callerID(r))
	if err != nil {
		respond.Error(w, r, err, serverError)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{"user": user})
}
