// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package feed

import (
	"errors"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"inkpost/internal/client"
)

// Draft is a post form as the user filled it in. A non-empty ID edits
// that post.
type Draft struct {
	ID         string        `json:"-"`
	Title      string        `json:"title" validate:"required,min=3,max=200"`
	Content    string        `json:"content" validate:"required,min=10"`
	CategoryID string        `json:"categoryId" validate:"required"`
	Image      *client.Image `json:"-"`
}

// FieldErrors maps form fields to messages. It is returned by Validate
// and Submit before any request is made.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + fe[k]
	}
	return "invalid post: " + strings.Join(parts, "; ")
}

var draftValidator = func() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}()

var draftMessages = map[string]string{
	"title.required":      "Title is required",
	"title.min":           "Title must be at least 3 characters",
	"title.max":           "Title cannot exceed 200 characters",
	"content.required":    "Content is required",
	"content.min":         "Content must be at least 10 characters",
	"categoryId.required": "Category is required",
}

// Validate checks every field and reports all failures at once.
func (d Draft) Validate() error {
	err := draftValidator.Struct(d)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := make(FieldErrors, len(verrs))
	for _, fe := range verrs {
		msg, ok := draftMessages[fe.Field()+"."+fe.Tag()]
		if !ok {
			msg = fe.Field() + " is invalid"
		}
		out[fe.Field()] = msg
	}
	return out
}
