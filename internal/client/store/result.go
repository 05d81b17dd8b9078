// Package store holds the client-side session and bug stores. Stores are
// explicit values: build one per view (or per test) with its constructor and
// observe it through State and Subscribe.
package store

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/bugtracker/tracker-system/internal/client/apiclient"
)

// Result is the outcome of every store operation. Operations never return an
// error or panic past the store; failures land in Error, and validation
// failures also fill FieldErrors keyed by the JSON field name.
type Result[T any] struct {
	Success     bool
	Error       string
	Data        T
	FieldErrors map[string]string
}

func succeed[T any](data T) Result[T] {
	return Result[T]{Success: true, Data: data}
}

func failWith[T any](msg string) Result[T] {
	return Result[T]{Error: msg}
}

func invalid[T any](fields map[string]string) Result[T] {
	return Result[T]{Error: firstMessage(fields), FieldErrors: fields}
}

// Listener receives a snapshot after every state change.
type Listener[S any] func(S)

type subscribers[S any] struct {
	next int
	fns  map[int]Listener[S]
}

func (s *subscribers[S]) add(fn Listener[S]) int {
	if s.fns == nil {
		s.fns = make(map[int]Listener[S])
	}
	s.next++
	s.fns[s.next] = fn
	return s.next
}

func (s *subscribers[S]) snapshot() []Listener[S] {
	out := make([]Listener[S], 0, len(s.fns))
	for _, fn := range s.fns {
		out = append(out, fn)
	}
	return out
}

// errorMessage converts an API client error to the text shown to the user.
func errorMessage(err error, fallback string) string {
	return apiclient.Message(err, fallback)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// check validates v and returns the failures keyed by field, or nil.
func check(v any) map[string]string {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"_": err.Error()}
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fieldMessage(fe)
	}
	return fields
}

func fieldMessage(fe validator.FieldError) string {
	label := strings.ReplaceAll(fe.Field(), "_", " ")
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", capitalize(label))
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", capitalize(label), fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", capitalize(label), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", capitalize(label), fe.Param())
	case "email":
		return "Invalid email address"
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", capitalize(label), strings.ReplaceAll(fe.Param(), " ", ", "))
	}
	return fmt.Sprintf("%s is invalid", capitalize(label))
}

// firstMessage picks a stable message for Result.Error.
func firstMessage(fields map[string]string) string {
	best := ""
	for field := range fields {
		if best == "" || field < best {
			best = field
		}
	}
	return fields[best]
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
