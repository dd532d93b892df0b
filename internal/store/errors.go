// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"inkpost/internal/apperr"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// uniqueFields maps constraint name suffixes to the field they protect.
var uniqueFields = []string{"slug", "name", "email", "username"}

// translate wraps err with op. Unique violations become apperr conflicts
// naming the offending field so services can react to them.
func translate(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		field := conflictField(pgErr.ConstraintName)
		return apperr.Conflict(field, "duplicate value for "+field, fmt.Errorf("%s: %w", op, err))
	}
	return fmt.Errorf("%s: %w", op, err)
}

// conflictField extracts the field from a "<table>_<field>_key" constraint.
func conflictField(constraint string) string {
	name := strings.TrimSuffix(constraint, "_key")
	for _, f := range uniqueFields {
		if strings.HasSuffix(name, "_"+f) {
			return f
		}
	}
	return name
}
