// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package slug provides URL-friendly slug generation from arbitrary strings
// and a suffixing loop for entities whose slugs must be unique.
package slug

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxAttempts bounds the suffix search in EnsureUnique.
const MaxAttempts = 1000

// ErrExhausted is returned when EnsureUnique runs out of suffixes.
var ErrExhausted = errors.New("slug: no free suffix")

var (
	// nonSlugChars matches anything that isn't a letter, digit, whitespace, or hyphen.
	nonSlugChars = regexp.MustCompile(`[^a-z0-9\s-]`)
	// whitespaceRuns matches one or more whitespace characters.
	whitespaceRuns = regexp.MustCompile(`\s+`)
	// multipleHyphens collapses consecutive hyphens into one.
	multipleHyphens = regexp.MustCompile(`-{2,}`)
)

// Generate creates a URL-friendly slug from the given string.
// Diacritics are folded to their base letter before stripping.
// Example: "Café, Résumé! 2026" → "cafe-resume-2026"
func Generate(s string) string {
	result := strings.ToLower(strings.TrimSpace(foldDiacritics(s)))
	result = nonSlugChars.ReplaceAllString(result, "")
	result = whitespaceRuns.ReplaceAllString(result, "-")
	result = multipleHyphens.ReplaceAllString(result, "-")
	result = strings.Trim(result, "-")
	return result
}

// foldDiacritics decomposes s and drops combining marks, so "é" becomes "e".
// The transformer chain is stateful and is built per call.
func foldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// ExistsFunc reports whether a slug is already taken.
type ExistsFunc func(ctx context.Context, slug string) (bool, error)

// EnsureUnique returns base if it is free, otherwise the first free
// "base-n" for n = 1, 2, 3, ...
//
// The check and the later insert are not atomic. Callers must keep a unique
// index on the slug column and handle the conflict it raises.
func EnsureUnique(ctx context.Context, base string, exists ExistsFunc) (string, error) {
	candidate := base
	for n := 1; n <= MaxAttempts; n++ {
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("check slug %q: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
	return "", fmt.Errorf("%w for %q", ErrExhausted, base)
}
