// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package client is a Go client for the inkpost REST API. It carries the
// caller's Session, attaches the bearer token to every request, and signs
// the session out whenever the server answers 401.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"inkpost/internal/models"
)

// DefaultBaseURL is used when New is given an empty base URL.
const DefaultBaseURL = "http://localhost:5000/api"

// APIError is a non-2xx response carrying the server's error envelope.
type APIError struct {
	Status  int
	Message string
	Field   string
}

func (e *APIError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("api error (status %d, field %s): %s", e.Status, e.Field, e.Message)
	}
	return fmt.Sprintf("api error (status %d): %s", e.Status, e.Message)
}

// IsUnauthorized reports whether err is a 401 from the server.
func IsUnauthorized(err error) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Status == http.StatusUnauthorized
}

// Image is an image attached to a post submission.
type Image struct {
	Filename    string
	ContentType string
	Data        []byte
}

// PostDraft is the body of a create or update. Empty fields are left out,
// which on update keeps the stored values.
type PostDraft struct {
	Title      string
	Content    string
	CategoryID string
	Image      *Image
}

// Client talks to the API.
type Client struct {
	baseURL string
	http    *http.Client
	session *Session

	// OnUnauthorized runs after a 401 has cleared the session.
	OnUnauthorized func()
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a client for the API at baseURL using session for
// credentials. A nil session is replaced by an in-memory one.
func New(baseURL string, session *Session, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if session == nil {
		session = NewSession(nil)
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
		session: session,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Session returns the client's session.
func (c *Client) Session() *Session { return c.session }

// Register creates an account and signs the session in.
func (c *Client) Register(ctx context.Context, username, email, password string) (*Credentials, error) {
	var creds Credentials
	body := map[string]string{"username": username, "email": email, "password": password}
	if err := c.doJSON(ctx, http.MethodPost, "/auth/register", body, &creds); err != nil {
		return nil, err
	}
	if err := c.session.Set(&creds); err != nil {
		return nil, err
	}
	return &creds, nil
}

// Login signs the session in.
func (c *Client) Login(ctx context.Context, email, password string) (*Credentials, error) {
	var creds Credentials
	body := map[string]string{"email": email, "password": password}
	if err := c.doJSON(ctx, http.MethodPost, "/auth/login", body, &creds); err != nil {
		return nil, err
	}
	if err := c.session.Set(&creds); err != nil {
		return nil, err
	}
	return &creds, nil
}

// Logout revokes the token on the server and clears the session. The
// session is cleared even when the server call fails.
func (c *Client) Logout(ctx context.Context) error {
	var err error
	if c.session.Authenticated() {
		err = c.doJSON(ctx, http.MethodPost, "/auth/logout", nil, nil)
	}
	if clearErr := c.session.Clear(); clearErr != nil {
		return clearErr
	}
	if IsUnauthorized(err) {
		return nil
	}
	return err
}

// Me returns the signed-in user as the server sees it.
func (c *Client) Me(ctx context.Context) (*models.Author, error) {
	var out struct {
		User *models.Author `json:"user"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/auth/me", nil, &out); err != nil {
		return nil, err
	}
	return out.User, nil
}

// ListCategories returns all categories sorted by name.
func (c *Client) ListCategories(ctx context.Context) ([]models.Category, error) {
	var out []models.Category
	if err := c.doJSON(ctx, http.MethodGet, "/categories", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateCategory creates a category.
func (c *Client) CreateCategory(ctx context.Context, name string) (*models.Category, error) {
	var out models.Category
	if err := c.doJSON(ctx, http.MethodPost, "/categories", map[string]string{"name": name}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListPosts returns every post in server order.
func (c *Client) ListPosts(ctx context.Context) ([]models.Post, error) {
	var out []models.Post
	if err := c.doJSON(ctx, http.MethodGet, "/posts", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetPost fetches a post by id or slug.
func (c *Client) GetPost(ctx context.Context, idOrSlug string) (*models.Post, error) {
	var out models.Post
	if err := c.doJSON(ctx, http.MethodGet, "/posts/"+url.PathEscape(idOrSlug), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreatePost submits a new post as multipart form data.
func (c *Client) CreatePost(ctx context.Context, d PostDraft) (*models.Post, error) {
	var out models.Post
	if err := c.doMultipart(ctx, http.MethodPost, "/posts", d, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdatePost changes the fields set in d.
func (c *Client) UpdatePost(ctx context.Context, id string, d PostDraft) (*models.Post, error) {
	var out models.Post
	if err := c.doMultipart(ctx, http.MethodPut, "/posts/"+url.PathEscape(id), d, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeletePost removes a post.
func (c *Client) DeletePost(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/posts/"+url.PathEscape(id), nil, nil)
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
		contentType = "application/json"
	}
	return c.do(ctx, method, path, contentType, body, out)
}

func (c *Client) doMultipart(ctx context.Context, method, path string, d PostDraft, out any) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	for _, f := range []struct{ name, value string }{
		{"title", d.Title},
		{"content", d.Content},
		{"categoryId", d.CategoryID},
	} {
		if f.value == "" {
			continue
		}
		if err := mw.WriteField(f.name, f.value); err != nil {
			return fmt.Errorf("write field %s: %w", f.name, err)
		}
	}

	if d.Image != nil {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="featuredImage"; filename=%q`, d.Image.Filename))
		contentType := d.Image.ContentType
		if contentType == "" {
			contentType = http.DetectContentType(d.Image.Data)
		}
		h.Set("Content-Type", contentType)
		part, err := mw.CreatePart(h)
		if err != nil {
			return fmt.Errorf("create image part: %w", err)
		}
		if _, err := part.Write(d.Image.Data); err != nil {
			return fmt.Errorf("write image part: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("close multipart: %w", err)
	}

	return c.do(ctx, method, path, mw.FormDataContentType(), &buf, out)
}

// do performs the request. A 401 clears the session and fires
// OnUnauthorized before the error is returned.
func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token := c.session.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := decodeError(resp.StatusCode, respBody)
		if resp.StatusCode == http.StatusUnauthorized {
			c.unauthorized()
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) unauthorized() {
	if err := c.session.Clear(); err != nil {
		slog.Warn("clear session", "error", err)
	}
	if c.OnUnauthorized != nil {
		c.OnUnauthorized()
	}
}

func decodeError(status int, body []byte) *APIError {
	var env struct {
		Error string `json:"error"`
		Field string `json:"field"`
	}
	apiErr := &APIError{Status: status}
	if err := json.Unmarshal(body, &env); err == nil && env.Error != "" {
		apiErr.Message = env.Error
		apiErr.Field = env.Field
		return apiErr
	}
	apiErr.Message = http.StatusText(status)
	return apiErr
}
