// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package storage persists uploaded post images. Disk writes under a local
// uploads directory; S3 writes to an S3-compatible bucket. Both return a
// reference string that is stored on the post and can later be passed back
// to Delete.
package storage

import (
	"context"
	"io"
)

// PublicPrefix is the URL path prefix under which stored images are served.
const PublicPrefix = "uploads"

// Backend stores and removes image objects.
type Backend interface {
	// Put writes body under name and returns the reference to persist.
	Put(ctx context.Context, name, contentType string, body io.Reader, size int64) (string, error)
	// Delete removes the object behind a reference previously returned by Put.
	// Deleting a missing object is not an error.
	Delete(ctx context.Context, ref string) error
}
