// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package models defines the data structures that map to database tables
// and documents, and the core types used throughout the application.
package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a registered author.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never serialize the hash
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Author is the public projection of a User embedded in post responses
// and returned alongside issued tokens.
type Author struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email,omitempty"`
}

// Public returns the author view of the user.
func (u *User) Public() *Author {
	return &Author{ID: u.ID, Username: u.Username, Email: u.Email}
}
