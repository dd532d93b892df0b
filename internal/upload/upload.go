// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package upload decodes post form submissions and validates the optional
// featured image: at most one file, an image/* MIME type, and a size limit.
// Accepted images are written through a storage.Backend under a
// timestamp-plus-random name.
package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"mime"
	"net/http"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"inkpost/internal/apperr"
	"inkpost/internal/storage"
)

const (
	// DefaultMaxBytes is the maximum accepted image size (2 MiB).
	DefaultMaxBytes = 2 << 20

	// FieldName is the only multipart field allowed to carry a file.
	FieldName = "featuredImage"

	// formOverhead is the extra body budget for text fields and multipart framing.
	formOverhead = 1 << 20

	// randomSuffixMax bounds the random component of generated filenames.
	randomSuffixMax = 1_000_000_000
)

// safeExt matches extensions that can be used verbatim in a stored filename.
var safeExt = regexp.MustCompile(`^\.[A-Za-z0-9]{1,10}$`)

// File is a validated image held in memory until it is saved.
type File struct {
	Filename    string // name supplied by the client
	ContentType string
	Size        int64
	data        []byte
}

// NewFile wraps raw image bytes. Used by callers that obtain images outside
// of a multipart request.
func NewFile(filename, contentType string, data []byte) *File {
	return &File{Filename: filename, ContentType: contentType, Size: int64(len(data)), data: data}
}

// Ext returns the extension of the original filename, or one derived from
// the content type when the original has none or an unusable one.
func (f *File) Ext() string {
	ext := filepath.Ext(f.Filename)
	if safeExt.MatchString(ext) {
		return ext
	}
	return extensionFromType(f.ContentType)
}

// Reader returns a fresh reader over the file contents.
func (f *File) Reader() io.Reader {
	return bytes.NewReader(f.data)
}

// Form is a decoded post submission.
type Form struct {
	Values url.Values
	File   *File // nil when no image was sent
}

// Value returns the trimmed value of a text field.
func (f *Form) Value(key string) string {
	return strings.TrimSpace(f.Values.Get(key))
}

// Handler parses submissions and saves accepted images.
type Handler struct {
	blobs    storage.Backend
	maxBytes int64
	now      func() time.Time
	random   func() int64
}

// NewHandler returns a Handler writing to blobs. maxBytes <= 0 selects
// DefaultMaxBytes.
func NewHandler(blobs storage.Backend, maxBytes int64) *Handler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return &Handler{
		blobs:    blobs,
		maxBytes: maxBytes,
		now:      time.Now,
		random:   func() int64 { return rand.Int64N(randomSuffixMax) },
	}
}

// MaxBytes returns the configured image size limit.
func (h *Handler) MaxBytes() int64 {
	return h.maxBytes
}

// Parse decodes the request body. Multipart bodies may carry one image in
// the featuredImage field; URL-encoded and JSON bodies carry text fields only.
func (h *Handler) Parse(w http.ResponseWriter, r *http.Request) (*Form, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+formOverhead)

	switch mediaType {
	case "multipart/form-data":
		return h.parseMultipart(r)
	case "application/json":
		return parseJSON(r)
	default:
		if err := r.ParseForm(); err != nil {
			if isTooLarge(err) {
				return nil, h.tooLarge()
			}
			return nil, apperr.Validation("", "Malformed form body")
		}
		return &Form{Values: r.PostForm}, nil
	}
}

func (h *Handler) parseMultipart(r *http.Request) (*Form, error) {
	if err := r.ParseMultipartForm(h.maxBytes + formOverhead); err != nil {
		if isTooLarge(err) {
			return nil, h.tooLarge()
		}
		return nil, apperr.Validation("", "Malformed multipart body")
	}
	defer r.MultipartForm.RemoveAll()

	form := &Form{Values: url.Values(r.MultipartForm.Value)}

	count := 0
	for field, headers := range r.MultipartForm.File {
		if field != FieldName {
			return nil, apperr.Validation(field, fmt.Sprintf("Unexpected file field %q", field))
		}
		count += len(headers)
	}
	if count == 0 {
		return form, nil
	}
	if count > 1 {
		return nil, apperr.Validation(FieldName, "Only one image may be uploaded")
	}

	hdr := r.MultipartForm.File[FieldName][0]
	src, err := hdr.Open()
	if err != nil {
		return nil, apperr.Internal("open uploaded file", err)
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, h.maxBytes+1))
	if err != nil {
		return nil, apperr.Internal("read uploaded file", err)
	}

	contentType := declaredType(hdr.Header.Get("Content-Type"))
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return nil, apperr.UnsupportedMedia("Only image files are allowed")
	}
	if hdr.Size > h.maxBytes || int64(len(data)) > h.maxBytes {
		return nil, h.tooLarge()
	}

	form.File = &File{
		Filename:    hdr.Filename,
		ContentType: contentType,
		Size:        int64(len(data)),
		data:        data,
	}
	return form, nil
}

// parseJSON accepts a flat JSON object of string fields.
func parseJSON(r *http.Request) (*Form, error) {
	var body map[string]string
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		if isTooLarge(err) {
			return nil, apperr.PayloadTooLarge("Request body too large")
		}
		return nil, apperr.Validation("", "Malformed JSON body")
	}
	values := url.Values{}
	for k, v := range body {
		values.Set(k, v)
	}
	return &Form{Values: values}, nil
}

// Save writes the file to the backend and returns the stored reference.
func (h *Handler) Save(ctx context.Context, f *File) (string, error) {
	name := h.objectName(f)
	ref, err := h.blobs.Put(ctx, name, f.ContentType, f.Reader(), f.Size)
	if err != nil {
		return "", apperr.Internal("Failed to store image", err)
	}
	slog.Info("image stored", "ref", ref, "size", f.Size, "type", f.ContentType)
	return ref, nil
}

// Remove deletes a previously saved image. The default-image sentinel and
// empty references are ignored.
func (h *Handler) Remove(ctx context.Context, ref string) error {
	if ref == "" || !strings.Contains(ref, "/") {
		return nil
	}
	return h.blobs.Delete(ctx, ref)
}

// objectName builds "<unix-millis>-<random><ext>". The random component
// keeps concurrent uploads in the same millisecond apart.
func (h *Handler) objectName(f *File) string {
	return fmt.Sprintf("%d-%d%s", h.now().UnixMilli(), h.random(), f.Ext())
}

func (h *Handler) tooLarge() error {
	return apperr.PayloadTooLarge(fmt.Sprintf("File too large (max %s)", humanSize(h.maxBytes)))
}

// declaredType normalizes the part's Content-Type; generic binary types
// count as undeclared so the content is sniffed instead.
func declaredType(v string) string {
	mt, _, err := mime.ParseMediaType(v)
	if err != nil || mt == "application/octet-stream" {
		return ""
	}
	return mt
}

func isTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}

// extensionFromType returns a file extension for known image MIME types.
func extensionFromType(contentType string) string {
	switch contentType {
	case "image/jpeg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "image/svg+xml":
		return ".svg"
	default:
		return ""
	}
}

// humanSize returns a human-readable byte count.
func humanSize(n int64) string {
	const (
		kb = 1024
		mb = 1024 * kb
	)
	switch {
	case n >= mb && n%mb == 0:
		return fmt.Sprintf("%d MB", n/mb)
	case n >= mb:
		return fmt.Sprintf("%.1f MB", float64(n)/float64(mb))
	case n >= kb:
		return fmt.Sprintf("%.0f KB", float64(n)/float64(kb))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
