// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package feed keeps a client-side list of posts that reflects optimistic
// edits before the server confirms them. State changes go through a pure
// reducer; a Store broadcasts each new State to subscribers; a Coordinator
// drives submissions and deletions against the API.
package feed

import (
	"slices"
	"time"

	"inkpost/internal/models"
)

// Item is one post as the list shows it. Provisional items carry a
// temporary id until the server answers.
type Item struct {
	ID            string
	Title         string
	Content       string
	Slug          string
	FeaturedImage string
	Category      *models.Category
	Author        *models.Author
	CreatedAt     time.Time
	Provisional   bool
}

// FromPost converts a server post into an Item.
func FromPost(p models.Post) Item {
	return Item{
		ID:            p.ID.String(),
		Title:         p.Title,
		Content:       p.Content,
		Slug:          p.Slug,
		FeaturedImage: p.FeaturedImage,
		Category:      p.Category,
		Author:        p.Author,
		CreatedAt:     p.CreatedAt,
	}
}

// State is the list model. Committed mirrors the server; Pending holds
// provisional items, newest first.
type State struct {
	Committed []Item
	Pending   []Item
}

// Visible returns pending items ahead of committed ones, drops repeated
// ids keeping the first occurrence, and orders the result by CreatedAt
// descending. Equal timestamps keep their merged order.
func (s State) Visible() []Item {
	out := make([]Item, 0, len(s.Pending)+len(s.Committed))
	seen := make(map[string]struct{}, cap(out))
	for _, group := range [][]Item{s.Pending, s.Committed} {
		for _, it := range group {
			if _, dup := seen[it.ID]; dup {
				continue
			}
			seen[it.ID] = struct{}{}
			out = append(out, it)
		}
	}
	slices.SortStableFunc(out, func(a, b Item) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out
}

// Find returns the committed item with id.
func (s State) Find(id string) (Item, bool) {
	for _, it := range s.Committed {
		if it.ID == id {
			return it, true
		}
	}
	return Item{}, false
}

// Action is a state transition understood by Reduce.
type Action interface {
	apply(State) State
}

// Loaded replaces the committed list with the server's.
type Loaded struct{ Items []Item }

// Provisional adds an optimistic item ahead of other pending ones.
type Provisional struct{ Item Item }

// Discard drops the pending item with ID.
type Discard struct{ ID string }

// Removed drops the committed item with ID.
type Removed struct{ ID string }

// Restored puts a committed snapshot back after a failed deletion.
type Restored struct{ Snapshot []Item }

func (a Loaded) apply(s State) State {
	s.Committed = slices.Clone(a.Items)
	return s
}

func (a Provisional) apply(s State) State {
	it := a.Item
	it.Provisional = true
	s.Pending = append([]Item{it}, s.Pending...)
	return s
}

func (a Discard) apply(s State) State {
	s.Pending = without(s.Pending, a.ID)
	return s
}

func (a Removed) apply(s State) State {
	s.Committed = without(s.Committed, a.ID)
	return s
}

func (a Restored) apply(s State) State {
	s.Committed = slices.Clone(a.Snapshot)
	return s
}

// Reduce returns the state after applying a. The input is not modified.
func Reduce(s State, a Action) State {
	return a.apply(s)
}

func without(items []Item, id string) []Item {
	return slices.DeleteFunc(slices.Clone(items), func(it Item) bool { return it.ID == id })
}
