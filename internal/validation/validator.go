// Package validation gates local items before any remote mutation.
//
// Validation is pure: it never consults the store or the vault, and it
// reports every violation instead of stopping at the first one.
package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/systmms/appcfg/internal/item"
	"github.com/systmms/appcfg/internal/label"
)

var (
	groupingPattern   = regexp.MustCompile(`^[A-Za-z0-9_-]*$`)
	secretNamePattern = regexp.MustCompile(`^[A-Za-z0-9-]+$`)
)

// FieldError is one rule violation. Index is the item position in a
// document, or -1 when a single item was validated.
type FieldError struct {
	Index   int
	Key     string
	Field   string
	Message string
}

func (e FieldError) Error() string {
	var b strings.Builder
	if e.Index >= 0 {
		fmt.Fprintf(&b, "item[%d] ", e.Index)
	}
	if e.Key != "" {
		fmt.Fprintf(&b, "(Key '%s') ", e.Key)
	}
	fmt.Fprintf(&b, "%s: %s", e.Field, e.Message)
	return b.String()
}

// Result is the verdict for one item or a whole document.
type Result struct {
	Valid  bool
	Errors []FieldError
}

func (r *Result) add(e FieldError) {
	r.Valid = false
	r.Errors = append(r.Errors, e)
}

// Validate checks a single item.
func Validate(c item.ConfigItem) Result {
	r := Result{Valid: true}
	fail := func(field, format string, args ...interface{}) {
		r.add(FieldError{Index: -1, Key: c.Key, Field: field, Message: fmt.Sprintf(format, args...)})
	}

	switch {
	case c.Key == "":
		fail("Key", "must not be empty")
	case c.Key == "." || c.Key == "..":
		fail("Key", "'%s' is not a valid key", c.Key)
	case strings.Contains(c.Key, "%"):
		fail("Key", "must not contain '%%'")
	}

	if c.IsSecretRef {
		switch {
		case c.Value == "":
			fail("Value", "Key Vault reference requires a secret name")
		case !secretNamePattern.MatchString(c.Value):
			fail("Value", "Key Vault reference '%s' is not in the correct format: only letters, digits and '-' are allowed", c.Value)
		}
	}

	if c.Label != "" && c.HasGrouping() {
		fail("Label", "must be empty when Environment or Application is set")
	}
	if !groupingPattern.MatchString(c.Environment) {
		fail("Environment", "'%s' may only contain letters, digits, '-' and '_'", c.Environment)
	}
	if !groupingPattern.MatchString(c.Application) {
		fail("Application", "'%s' may only contain letters, digits, '-' and '_'", c.Application)
	}

	return r
}

// ValidateAll checks every item independently and then rejects items that
// resolve to the same remote identity (Key plus encoded label) as an
// earlier non-purge item.
func ValidateAll(items []item.ConfigItem) Result {
	r := Result{Valid: true}

	for i, c := range items {
		for _, e := range Validate(c).Errors {
			e.Index = i
			r.add(e)
		}
	}

	type identity struct{ key, label string }
	seen := make(map[identity]int)
	for i, c := range items {
		if c.Purge || c.Key == "" {
			continue
		}
		id := identity{key: c.Key, label: label.Encode(c)}
		if first, dup := seen[id]; dup {
			r.add(FieldError{
				Index:   i,
				Key:     c.Key,
				Field:   "Key",
				Message: fmt.Sprintf("duplicates item[%d]: same key and label '%s'", first, id.label),
			})
			continue
		}
		seen[id] = i
	}

	return r
}
