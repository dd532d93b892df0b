// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"inkpost/internal/client"
	"inkpost/internal/models"
)

// ErrNotSignedIn is returned by Submit when no user is signed in.
var ErrNotSignedIn = errors.New("feed: not signed in")

// API is the part of the REST client the coordinator needs.
type API interface {
	ListPosts(ctx context.Context) ([]models.Post, error)
	CreatePost(ctx context.Context, d client.PostDraft) (*models.Post, error)
	UpdatePost(ctx context.Context, id string, d client.PostDraft) (*models.Post, error)
	DeletePost(ctx context.Context, id string) error
}

// Level is the severity of a Notice.
type Level int

const (
	Info Level = iota
	Success
	Error
)

func (l Level) String() string {
	switch l {
	case Success:
		return "success"
	case Error:
		return "error"
	default:
		return "info"
	}
}

// Notice is a transient message for the user.
type Notice struct {
	Level   Level
	Message string
}

// Phase is where a submission stands.
type Phase int

const (
	Optimistic Phase = iota
	Committed
	RolledBack
)

func (p Phase) String() string {
	switch p {
	case Committed:
		return "committed"
	case RolledBack:
		return "rolled back"
	default:
		return "optimistic"
	}
}

// Submission tracks one in-flight create, update or delete.
type Submission struct {
	done  chan struct{}
	mu    sync.Mutex
	phase Phase
	err   error
	post  *models.Post
}

func newSubmission() *Submission {
	return &Submission{done: make(chan struct{})}
}

// Done is closed once the server has answered.
func (s *Submission) Done() <-chan struct{} { return s.done }

// Phase returns the current phase.
func (s *Submission) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Err returns the failure that rolled the submission back, if any.
func (s *Submission) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Post returns the server's copy of a committed create or update.
func (s *Submission) Post() *models.Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.post
}

// Wait blocks until the submission settles or ctx ends.
func (s *Submission) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return s.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Submission) finish(post *models.Post, err error) {
	s.mu.Lock()
	s.post = post
	s.err = err
	if err != nil {
		s.phase = RolledBack
	} else {
		s.phase = Committed
	}
	s.mu.Unlock()
	close(s.done)
}

// Coordinator applies post changes to the Store optimistically and
// reconciles them with the server.
type Coordinator struct {
	api   API
	store *Store
	user  func() *models.Author
	now   func() time.Time

	mu         sync.Mutex
	categories map[string]models.Category
	lastTemp   string
	tempSeq    int

	notices chan Notice
	changed chan struct{}
}

// NewCoordinator returns a coordinator writing to store. user reports the
// signed-in author used for provisional items.
func NewCoordinator(api API, store *Store, user func() *models.Author) *Coordinator {
	return &Coordinator{
		api:        api,
		store:      store,
		user:       user,
		now:        time.Now,
		categories: make(map[string]models.Category),
		notices:    make(chan Notice, 16),
		changed:    make(chan struct{}, 1),
	}
}

// Notices delivers transient user messages. Messages are dropped when
// nobody reads them.
func (c *Coordinator) Notices() <-chan Notice { return c.notices }

// Changed fires once after each committed change. Several changes before
// a read coalesce into one signal.
func (c *Coordinator) Changed() <-chan struct{} { return c.changed }

// SetCategories records the categories known locally, used to label
// provisional items.
func (c *Coordinator) SetCategories(cats []models.Category) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.categories = make(map[string]models.Category, len(cats))
	for _, cat := range cats {
		c.categories[cat.ID.String()] = cat
	}
}

// Refresh loads the committed list from the server.
func (c *Coordinator) Refresh(ctx context.Context) error {
	posts, err := c.api.ListPosts(ctx)
	if err != nil {
		return fmt.Errorf("list posts: %w", err)
	}
	items := make([]Item, len(posts))
	for i, p := range posts {
		items[i] = FromPost(p)
	}
	c.store.Dispatch(Loaded{Items: items})
	return nil
}

// Submit validates d and, when it passes, shows a provisional item at
// once and sends the request in the background. Validation failures
// return FieldErrors and send nothing. A draft with an ID edits that post.
// The request is not cancelled when ctx ends.
func (c *Coordinator) Submit(ctx context.Context, d Draft) (*Submission, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	author := c.user()
	if author == nil {
		return nil, ErrNotSignedIn
	}

	item := c.provisional(d, author)
	c.store.Dispatch(Provisional{Item: item})

	verb := "Creating"
	if d.ID != "" {
		verb = "Updating"
	}
	c.notify(Info, verb+" post...")

	sub := newSubmission()
	reqCtx := context.WithoutCancel(ctx)
	go func() {
		post, err := c.send(reqCtx, d)
		c.store.Dispatch(Discard{ID: item.ID})
		if err != nil {
			slog.Debug("post submission rolled back", "id", item.ID, "error", err)
			c.notify(Error, errorMessage(err, "Failed to save post"))
			sub.finish(nil, err)
			return
		}

		if d.ID != "" {
			c.notify(Success, "Post updated successfully")
		} else {
			c.notify(Success, "Post created successfully")
		}
		if err := c.Refresh(reqCtx); err != nil {
			slog.Warn("refresh after submission failed", "error", err)
		}
		c.signalChanged()
		sub.finish(post, nil)
	}()
	return sub, nil
}

// Delete removes the post from the list at once and asks the server to
// delete it. On failure the list as it was before is restored.
func (c *Coordinator) Delete(ctx context.Context, id string) *Submission {
	snapshot := c.store.State().Committed
	c.store.Dispatch(Removed{ID: id})

	sub := newSubmission()
	reqCtx := context.WithoutCancel(ctx)
	go func() {
		if err := c.api.DeletePost(reqCtx, id); err != nil {
			c.store.Dispatch(Restored{Snapshot: snapshot})
			c.notify(Error, errorMessage(err, "Failed to delete post"))
			sub.finish(nil, err)
			return
		}
		c.notify(Success, "Post deleted")
		c.signalChanged()
		sub.finish(nil, nil)
	}()
	return sub
}

func (c *Coordinator) send(ctx context.Context, d Draft) (*models.Post, error) {
	draft := client.PostDraft{
		Title:      d.Title,
		Content:    d.Content,
		CategoryID: d.CategoryID,
		Image:      d.Image,
	}
	if d.ID != "" {
		return c.api.UpdatePost(ctx, d.ID, draft)
	}
	return c.api.CreatePost(ctx, draft)
}

// provisional builds the optimistic item from local data.
func (c *Coordinator) provisional(d Draft, author *models.Author) Item {
	now := c.now()
	it := Item{
		ID:            d.ID,
		Title:         d.Title,
		Content:       d.Content,
		FeaturedImage: models.DefaultFeaturedImage,
		Author:        author,
		CreatedAt:     now,
	}
	if d.Image != nil {
		it.FeaturedImage = d.Image.Filename
	}

	if d.ID != "" {
		// An edit keeps its place in the list.
		if prev, ok := c.store.State().Find(d.ID); ok {
			it.CreatedAt = prev.CreatedAt
			it.Slug = prev.Slug
			if d.Image == nil {
				it.FeaturedImage = prev.FeaturedImage
			}
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if cat, ok := c.categories[d.CategoryID]; ok {
		it.Category = &cat
	} else {
		it.Category = &models.Category{Name: "Loading..."}
	}
	if it.ID == "" {
		it.ID = c.tempID(now)
	}
	return it
}

// tempID returns temp-<millis>, suffixed when two drafts share a
// millisecond. Callers hold c.mu.
func (c *Coordinator) tempID(now time.Time) string {
	id := fmt.Sprintf("temp-%d", now.UnixMilli())
	if id == c.lastTemp {
		c.tempSeq++
		return fmt.Sprintf("%s-%d", id, c.tempSeq)
	}
	c.lastTemp = id
	c.tempSeq = 0
	return id
}

func (c *Coordinator) notify(level Level, msg string) {
	select {
	case c.notices <- Notice{Level: level, Message: msg}:
	default:
	}
}

func (c *Coordinator) signalChanged() {
	select {
	case c.changed <- struct{}{}:
	default:
	}
}

func errorMessage(err error, fallback string) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
