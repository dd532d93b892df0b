// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package database

import (
	"database/sql"
	"fmt"
	"log/slog"

	"inkpost/internal/slug"
)

// DefaultCategories are created by Seed on an empty database.
var DefaultCategories = []string{"General", "Technology", "Travel"}

// Seed populates an empty categories table with DefaultCategories so that
// a fresh installation can accept posts immediately.
func Seed(db *sql.DB) error {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM categories").Scan(&count); err != nil {
		return fmt.Errorf("seed check categories: %w", err)
	}

	if count > 0 {
		slog.Info("database already seeded, skipping")
		return nil
	}

	for _, name := range DefaultCategories {
		_, err := db.Exec(`
			INSERT INTO categories (name, slug)
			VALUES ($1, $2)
			ON CONFLICT DO NOTHING
		`, name, slug.Generate(name))
		if err != nil {
			return fmt.Errorf("seed insert category %q: %w", name, err)
		}
	}

	slog.Info("database seeded with default categories", "count", len(DefaultCategories))
	return nil
}
