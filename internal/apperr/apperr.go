// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package apperr defines the closed set of error kinds returned by the blog
// services and stores. Handlers map each kind to an HTTP status with an
// exhaustive switch, so adding a kind means updating StatusOf.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an application error.
type Kind int

const (
	// KindInternal is the zero value so unclassified errors are never
	// reported to clients as their fault.
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindUnauthenticated
	KindForbidden
	KindUnsupportedMedia
	KindPayloadTooLarge
	KindConflict
)

// String returns the variant name used in logs.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindUnsupportedMedia:
		return "unsupported_media"
	case KindPayloadTooLarge:
		return "payload_too_large"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

// Error is the tagged error carried across package boundaries.
// Message is safe to show to clients; Err is the underlying cause and is
// only ever logged.
type Error struct {
	Kind    Kind
	Message string
	Field   string // offending input or unique field, if any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Validation reports missing or malformed input.
func Validation(field, msg string) *Error {
	return &Error{Kind: KindValidation, Field: field, Message: msg}
}

// NotFound reports that a referenced entity does not exist.
func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

// Unauthenticated reports a missing or invalid credential.
func Unauthenticated(msg string) *Error {
	return &Error{Kind: KindUnauthenticated, Message: msg}
}

// Forbidden reports a valid credential acting on a resource it does not own.
func Forbidden(msg string) *Error {
	return &Error{Kind: KindForbidden, Message: msg}
}

// UnsupportedMedia reports an upload with a disallowed MIME type.
func UnsupportedMedia(msg string) *Error {
	return &Error{Kind: KindUnsupportedMedia, Field: "featuredImage", Message: msg}
}

// PayloadTooLarge reports an upload over the size limit.
func PayloadTooLarge(msg string) *Error {
	return &Error{Kind: KindPayloadTooLarge, Field: "featuredImage", Message: msg}
}

// Conflict reports a duplicate value on a unique field.
func Conflict(field, msg string, cause error) *Error {
	return &Error{Kind: KindConflict, Field: field, Message: msg, Err: cause}
}

// Internal wraps an unexpected failure. The cause is never sent to clients.
func Internal(msg string, cause error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: cause}
}

// KindOf returns the kind of the first *Error in err's chain, or
// KindInternal when there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// IsConflictOn reports whether err is a conflict on the given unique field.
func IsConflictOn(err error, field string) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindConflict && e.Field == field
}

// StatusOf maps an error to its HTTP status code.
func StatusOf(err error) int {
	switch KindOf(err) {
	case KindValidation, KindUnsupportedMedia, KindPayloadTooLarge, KindConflict:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindInternal:
		return http.StatusInternalServerError
	}
	return http.StatusInternalServerError
}

// PublicMessage returns the client-facing message for err. Internal errors
// always yield the generic fallback so causes never leak.
func PublicMessage(err error, fallback string) string {
	var e *Error
	if !errors.As(err, &e) || e.Kind == KindInternal || e.Message == "" {
		return fallback
	}
	return e.Message
}
