// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package blog

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"inkpost/internal/apperr"
)

// Input limits enforced server-side.
const (
	maxTitleLen        = 300
	maxContentLen      = 100_000
	minCategoryNameLen = 2
	maxCategoryNameLen = 50
	maxUsernameLen     = 30
	minPasswordLen     = 6
)

// validate is shared by all services; validator instances cache struct
// metadata and are safe for concurrent use.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their JSON names so messages and the "field" key
	// match what clients send.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// messages overrides the generic message for specific field/tag pairs.
var messages = map[string]string{
	"username.required": "Username is required",
	"email.required":    "Valid email is required",
	"email.email":       "Valid email is required",
	"password.required": "Password is required",
	"password.min":      "Password must be at least 6 characters",
	"name.required":     "Category name is required",
	"name.min":          "Category name must be at least 2 characters",
	"name.max":          "Category name cannot exceed 50 characters",
	"categoryId.uuid":   "Invalid category ID",
}

// labels are the human-readable names used in generic messages.
var labels = map[string]string{
	"title":      "Title",
	"content":    "Content",
	"categoryId": "Category",
	"username":   "Username",
}

// checkStruct validates s and converts the first failure into an
// apperr validation error. It returns nil when s is valid.
func checkStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperr.Internal("validate input", err)
	}
	fe := verrs[0]
	return apperr.Validation(fe.Field(), fieldMessage(fe))
}

func fieldMessage(fe validator.FieldError) string {
	if msg, ok := messages[fe.Field()+"."+fe.Tag()]; ok {
		return msg
	}
	label := labels[fe.Field()]
	if label == "" {
		label = fe.Field()
	}
	switch fe.Tag() {
	case "required":
		return label + " is required"
	case "max":
		return fmt.Sprintf("%s is too long (max %s characters)", label, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", label, fe.Param())
	case "uuid":
		return "Invalid " + strings.ToLower(label) + " ID"
	default:
		return label + " is invalid"
	}
}
