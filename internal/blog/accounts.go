// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package blog

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"inkpost/internal/apperr"
	"inkpost/internal/models"
)

// Session is the result of a successful register or login.
type Session struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expiresAt"`
	User      *models.Author `json:"user"`
}

type registerFields struct {
	Username string `json:"username" validate:"required,max=30"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type loginFields struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Accounts registers users and exchanges credentials for bearer tokens.
type Accounts struct {
	users  UserRepository
	tokens TokenIssuer
	cost   int
}

// NewAccounts returns an Accounts service hashing with bcrypt's default cost.
func NewAccounts(users UserRepository, tokens TokenIssuer) *Accounts {
	return &Accounts{users: users, tokens: tokens, cost: bcrypt.DefaultCost}
}

// Register creates an account and signs the new user in.
func (s *Accounts) Register(ctx context.Context, username, email, password string) (*Session, error) {
	username = strings.TrimSpace(username)
	email = normalizeEmail(email)
	if err := checkStruct(registerFields{Username: username, Email: email, Password: password}); err != nil {
		return nil, err
	}

	exists, err := s.users.ExistsByEmailOrUsername(ctx, email, username)
	if err != nil {
		return nil, apperr.Internal("check existing user", err)
	}
	if exists {
		return nil, apperr.Conflict("email", "User with this email or username already exists", nil)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, apperr.Internal("hash password", err)
	}

	user, err := s.users.Create(ctx, &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
	})
	if err != nil {
		if apperr.Is(err, apperr.KindConflict) {
			return nil, apperr.Conflict("email", "User with this email or username already exists", err)
		}
		return nil, apperr.Internal("create user", err)
	}

	slog.Info("user registered", "user_id", user.ID, "username", user.Username)
	return s.issue(user)
}

// Login verifies credentials and returns a fresh session. Unknown emails
// and wrong passwords produce the same error.
func (s *Accounts) Login(ctx context.Context, email, password string) (*Session, error) {
	email = normalizeEmail(email)
	if err := checkStruct(loginFields{Email: email, Password: password}); err != nil {
		return nil, err
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, apperr.Internal("find user", err)
	}
	if user == nil {
		return nil, apperr.Unauthenticated("Invalid credentials")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperr.Unauthenticated("Invalid credentials")
	}

	slog.Info("user logged in", "user_id", user.ID)
	return s.issue(user)
}

// Me returns the public profile of an authenticated user.
func (s *Accounts) Me(ctx context.Context, userID uuid.UUID) (*models.Author, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("find user", err)
	}
	if user == nil {
		return nil, apperr.Unauthenticated("Invalid token")
	}
	return user.Public(), nil
}

func (s *Accounts) issue(user *models.User) (*Session, error) {
	token, expiresAt, err := s.tokens.Issue(user)
	if err != nil {
		return nil, apperr.Internal("issue token", err)
	}
	return &Session{Token: token, ExpiresAt: expiresAt, User: user.Public()}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
