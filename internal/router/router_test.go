package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkpost/internal/auth"
	"inkpost/internal/blog"
	"inkpost/internal/handlers"
	"inkpost/internal/middleware"
	"inkpost/internal/storage"
	"inkpost/internal/store/memstore"
	"inkpost/internal/upload"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR0000")

type testServer struct {
	*httptest.Server
	t *testing.T
}

func newTestServer(t *testing.T, limiter middleware.Limiter, health map[string]handlers.Check) *testServer {
	t.Helper()

	db := memstore.New()
	uploadsDir := t.TempDir()
	forms := upload.NewHandler(storage.NewDisk(uploadsDir), 0)
	tokens := auth.NewTokens("router-test-secret", time.Hour)
	denylist := auth.NewMemoryDenylist()

	if health == nil {
		health = map[string]handlers.Check{"store": func(context.Context) error { return nil }}
	}

	r := New(Deps{
		Posts:       handlers.NewPosts(blog.NewPosts(db.Posts(), db.Categories(), forms), forms),
		Categories:  handlers.NewCategories(blog.NewCategories(db.Categories()), forms),
		Auth:        handlers.NewAuth(blog.NewAccounts(db.Users(), tokens), denylist, forms),
		Health:      handlers.NewHealth(health),
		Tokens:      tokens,
		Revoker:     denylist,
		AuthLimiter: limiter,
		UploadsDir:  uploadsDir,
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, t: t}
}

// do sends a request and decodes the JSON response body into out when non-nil.
func (s *testServer) do(method, target, token, contentType string, body io.Reader, out any) int {
	s.t.Helper()
	req, err := http.NewRequest(method, s.URL+target, body)
	require.NoError(s.t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.Client().Do(req)
	require.NoError(s.t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(s.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (s *testServer) json(method, target, token string, payload any, out any) int {
	s.t.Helper()
	b, err := json.Marshal(payload)
	require.NoError(s.t, err)
	return s.do(method, target, token, "application/json", bytes.NewReader(b), out)
}

func (s *testServer) multipart(method, target, token string, fields map[string]string, image []byte, out any) int {
	s.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(s.t, mw.WriteField(k, v))
	}
	if image != nil {
		fw, err := mw.CreateFormFile(upload.FieldName, "cover.png")
		require.NoError(s.t, err)
		_, err = fw.Write(image)
		require.NoError(s.t, err)
	}
	require.NoError(s.t, mw.Close())
	return s.do(method, target, token, mw.FormDataContentType(), &buf, out)
}

type session struct {
	Token string `json:"token"`
	User  struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	} `json:"user"`
}

type envelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

type postBody struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Content       string `json:"content"`
	ContentHTML   string `json:"contentHtml"`
	Slug          string `json:"slug"`
	FeaturedImage string `json:"featuredImage"`
	Category      struct {
		Name string `json:"name"`
	} `json:"category"`
	Author struct {
		Username string `json:"username"`
	} `json:"author"`
}

func (s *testServer) register(username string) session {
	s.t.Helper()
	var sess session
	status := s.json(http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "secret1",
	}, &sess)
	require.Equal(s.t, http.StatusCreated, status)
	require.NotEmpty(s.t, sess.Token)
	return sess
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	var body map[string]any
	status := srv.do(http.MethodGet, "/health", "", "", nil, &body)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}

func TestHealthDegraded(t *testing.T) {
	srv := newTestServer(t, nil, map[string]handlers.Check{
		"store":  func(context.Context) error { return nil },
		"valkey": func(context.Context) error { return errors.New("connection refused") },
	})

	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	status := srv.do(http.MethodGet, "/health", "", "", nil, &body)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, map[string]string{"valkey": "connection refused"}, body.Checks)
}

func TestPostLifecycle(t *testing.T) {
	srv := newTestServer(t, nil, nil)
	alice := srv.register("alice")
	bob := srv.register("bob")

	var env envelope
	status := srv.json(http.MethodPost, "/api/categories", "", map[string]string{"name": "Tech"}, &env)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "No token provided", env.Error)

	var category struct {
		ID   string `json:"id"`
		Slug string `json:"slug"`
	}
	status = srv.json(http.MethodPost, "/api/categories", alice.Token, map[string]string{"name": "Tech"}, &category)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "tech", category.Slug)

	var categories []map[string]any
	status = srv.do(http.MethodGet, "/categories", "", "", nil, &categories)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, categories, 1)

	var created postBody
	status = srv.multipart(http.MethodPost, "/api/posts", alice.Token, map[string]string{
		"title":      "Hello World",
		"content":    "A **first** post",
		"categoryId": category.ID,
	}, pngBytes, &created)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "hello-world", created.Slug)
	assert.Equal(t, "Tech", created.Category.Name)
	assert.Equal(t, "alice", created.Author.Username)
	require.True(t, strings.HasPrefix(created.FeaturedImage, "uploads/"), created.FeaturedImage)

	resp, err := srv.Client().Get(srv.URL + "/" + created.FeaturedImage)
	require.NoError(t, err)
	served, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, pngBytes, served)
	assert.Equal(t, ".png", path.Ext(created.FeaturedImage))

	env = envelope{}
	status = srv.multipart(http.MethodPut, "/api/posts/"+created.ID, bob.Token, map[string]string{"title": "Hijacked"}, nil, &env)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "Not authorized to update this post", env.Error)

	var updated postBody
	status = srv.multipart(http.MethodPut, "/api/posts/"+created.ID, alice.Token, map[string]string{"title": "Hello Again"}, nil, &updated)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "hello-again", updated.Slug)
	assert.Equal(t, created.FeaturedImage, updated.FeaturedImage)

	var fetched postBody
	status = srv.do(http.MethodGet, "/api/posts/hello-again", alice.Token, "", nil, &fetched)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, created.ID, fetched.ID)
	assert.Contains(t, fetched.ContentHTML, "<strong>first</strong>")

	var list []postBody
	status = srv.do(http.MethodGet, "/posts", bob.Token, "", nil, &list)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, list, 1)
	assert.Equal(t, "Hello Again", list[0].Title)

	env = envelope{}
	status = srv.do(http.MethodDelete, "/api/posts/"+created.ID, bob.Token, "", nil, &env)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "Not authorized to delete this post", env.Error)

	env = envelope{}
	status = srv.do(http.MethodDelete, "/api/posts/"+created.ID, alice.Token, "", nil, &env)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, env.Success)
	assert.Equal(t, "Post deleted", env.Message)

	env = envelope{}
	status = srv.do(http.MethodGet, "/api/posts/"+created.ID, alice.Token, "", nil, &env)
	assert.Equal(t, http.StatusNotFound, status)
	assert.False(t, env.Success)
}

func TestCreatePostRejections(t *testing.T) {
	srv := newTestServer(t, nil, nil)
	alice := srv.register("alice")

	var category struct {
		ID string `json:"id"`
	}
	require.Equal(t, http.StatusCreated, srv.json(http.MethodPost, "/categories", alice.Token, map[string]string{"name": "Tech"}, &category))

	tests := []struct {
		name      string
		fields    map[string]string
		image     []byte
		wantError string
		wantField string
	}{
		{
			name:      "missing content",
			fields:    map[string]string{"title": "Hello", "categoryId": category.ID},
			wantError: "Title, content, and category are required",
			wantField: "content",
		},
		{
			name:      "not an image",
			fields:    map[string]string{"title": "Hello", "content": "Body text", "categoryId": category.ID},
			image:     []byte("plain text pretending to be a picture"),
			wantError: "Only image files are allowed",
			wantField: "featuredImage",
		},
		{
			name:      "oversize image",
			fields:    map[string]string{"title": "Hello", "content": "Body text", "categoryId": category.ID},
			image:     append(append([]byte{}, pngBytes...), make([]byte, upload.DefaultMaxBytes)...),
			wantError: "File too large (max 2 MB)",
			wantField: "featuredImage",
		},
		{
			name:      "malformed category",
			fields:    map[string]string{"title": "Hello", "content": "Body text", "categoryId": "nope"},
			wantError: "Invalid category ID",
			wantField: "categoryId",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var env envelope
			status := srv.multipart(http.MethodPost, "/api/posts", alice.Token, tt.fields, tt.image, &env)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.False(t, env.Success)
			assert.Equal(t, tt.wantError, env.Error)
			assert.Equal(t, tt.wantField, env.Field)
		})
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	srv := newTestServer(t, nil, nil)
	alice := srv.register("alice")

	var me struct {
		User struct {
			Username string `json:"username"`
		} `json:"user"`
	}
	require.Equal(t, http.StatusOK, srv.do(http.MethodGet, "/api/auth/me", alice.Token, "", nil, &me))
	assert.Equal(t, "alice", me.User.Username)

	var env envelope
	require.Equal(t, http.StatusOK, srv.do(http.MethodPost, "/api/auth/logout", alice.Token, "", nil, &env))
	assert.True(t, env.Success)

	env = envelope{}
	status := srv.do(http.MethodGet, "/api/posts", alice.Token, "", nil, &env)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Token has been revoked", env.Error)

	var login session
	status = srv.json(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "alice@example.com", "password": "secret1"}, &login)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, http.StatusOK, srv.do(http.MethodGet, "/api/posts", login.Token, "", nil, nil))
}

func TestLoginFailure(t *testing.T) {
	srv := newTestServer(t, nil, nil)
	srv.register("alice")

	var env envelope
	status := srv.json(http.MethodPost, "/auth/login", "", map[string]string{"email": "alice@example.com", "password": "wrong1"}, &env)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "Invalid credentials", env.Error)
}

func TestAuthRateLimit(t *testing.T) {
	limiter := middleware.NewRateLimiter(2, time.Minute)
	t.Cleanup(limiter.Stop)
	srv := newTestServer(t, limiter, nil)

	login := map[string]string{"email": "nobody@example.com", "password": "secret1"}
	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusUnauthorized, srv.json(http.MethodPost, "/api/auth/login", "", login, nil))
	}

	var env envelope
	assert.Equal(t, http.StatusTooManyRequests, srv.json(http.MethodPost, "/api/auth/login", "", login, &env))
	assert.Equal(t, "Too many requests", env.Error)

	// Other routes are not throttled.
	assert.Equal(t, http.StatusOK, srv.do(http.MethodGet, "/categories", "", "", nil, nil))
}

func TestUnknownRoute(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	var env envelope
	status := srv.do(http.MethodGet, "/api/nothing-here", "", "", nil, &env)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Route not found", env.Error)

	assert.Equal(t, http.StatusNotFound, srv.do(http.MethodGet, "/uploads/", "", "", nil, nil))
}

func TestSecurityHeadersApplied(t *testing.T) {
	srv := newTestServer(t, nil, nil)

	resp, err := srv.Client().Get(srv.URL + "/categories")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}
