// Package validate checks decoded JSON request bodies against an ordered
// list of field rules and reports every failing field at once.
package validate

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/ErlanBelekov/locations-api/internal/domain"
	"github.com/go-playground/validator/v10"
)

// Input is a decoded JSON object.
type Input map[string]any

// String returns the field as a string and whether it was present as one.
func (in Input) String(field string) (string, bool) {
	s, ok := in[field].(string)
	return s, ok
}

// StringPtr returns nil when the field is absent.
func (in Input) StringPtr(field string) *string {
	s, ok := in.String(field)
	if !ok {
		return nil
	}
	return &s
}

// TrimStrings returns a copy of in with surrounding whitespace removed from
// every string value, except the fields named in keep.
func (in Input) TrimStrings(keep ...string) Input {
	out := make(Input, len(in))
	for k, v := range in {
		if s, ok := v.(string); ok && !slices.Contains(keep, k) {
			v = strings.TrimSpace(s)
		}
		out[k] = v
	}
	return out
}

// Predicate reports whether value satisfies a rule. An error aborts the
// whole validation (e.g. the uniqueness lookup could not reach the store).
type Predicate func(ctx context.Context, value any) (bool, error)

// Check is one (predicate, message) pair. Message is a format string that
// receives the field name.
type Check struct {
	Test    Predicate
	Message string
}

// Field lists the checks for one input field. A field that is not
// Sometimes is required. A Sometimes field is only checked when present.
type Field struct {
	Name      string
	Sometimes bool
	Checks    []Check
}

// Schema is an ordered set of field rules.
type Schema []Field

const requiredMsg = "The %s field is required."

// Validate runs the schema against in. It returns a *domain.ValidationError
// when any field fails, or the first predicate error.
//
// Checks for a single field stop at its first failure; all fields are checked.
func (s Schema) Validate(ctx context.Context, in Input) error {
	verr := domain.NewValidationError()

	for _, f := range s {
		v, present := in[f.Name]
		if !present && f.Sometimes {
			continue
		}
		if isEmpty(v) {
			verr.Add(f.Name, fmt.Sprintf(requiredMsg, f.Name))
			continue
		}
		for _, c := range f.Checks {
			ok, err := c.Test(ctx, v)
			if err != nil {
				return fmt.Errorf("validate %s: %w", f.Name, err)
			}
			if !ok {
				verr.Add(f.Name, fmt.Sprintf(c.Message, f.Name))
				break
			}
		}
	}

	if verr.Empty() {
		return nil
	}
	return verr
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case []any:
		return len(t) == 0
	}
	return false
}

func String() Check {
	return Check{
		Test: func(_ context.Context, v any) (bool, error) {
			_, ok := v.(string)
			return ok, nil
		},
		Message: "The %s field must be a string.",
	}
}

// Max bounds a string's length in characters.
func Max(n int) Check {
	return Check{
		Test: func(_ context.Context, v any) (bool, error) {
			s, _ := v.(string)
			return utf8.RuneCountInString(s) <= n, nil
		},
		Message: "The %s field must not be greater than " + fmt.Sprint(n) + " characters.",
	}
}

func Min(n int) Check {
	return Check{
		Test: func(_ context.Context, v any) (bool, error) {
			s, _ := v.(string)
			return utf8.RuneCountInString(s) >= n, nil
		},
		Message: "The %s field must be at least " + fmt.Sprint(n) + " characters.",
	}
}

var formats = validator.New()

func Email() Check {
	return Check{
		Test: func(_ context.Context, v any) (bool, error) {
			s, _ := v.(string)
			return formats.Var(s, "email") == nil, nil
		},
		Message: "The %s field must be a valid email address.",
	}
}

// Unique fails when taken reports the value as already used. Callers
// exclude the record being updated inside taken.
func Unique(taken func(ctx context.Context, value string) (bool, error)) Check {
	return Check{
		Test: func(ctx context.Context, v any) (bool, error) {
			s, _ := v.(string)
			used, err := taken(ctx, s)
			if err != nil {
				return false, err
			}
			return !used, nil
		},
		Message: "The %s has already been taken.",
	}
}
