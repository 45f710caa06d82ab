package entity

import (
	"errors"
	"fmt"
)

// Sentinel errors for construction-time validation. Callers branch with
// errors.Is; the HTTP layer maps all of them to 400 responses.
var (
	// ErrInvalidKnowledge indicates a Knowledge item with neither a URL nor
	// non-blank content.
	ErrInvalidKnowledge = errors.New("knowledge must have either a url or non-blank content")

	// ErrMissingImageURL indicates an Image without an image URL.
	ErrMissingImageURL = errors.New("image url is required")

	// ErrInvalidCategory is matched by InvalidCategoryError via errors.Is.
	ErrInvalidCategory = errors.New("invalid category")
)

// InvalidCategoryError reports a category value outside the fixed
// enumeration. It unwraps to ErrInvalidCategory.
type InvalidCategoryError struct {
	Value string
}

func (e *InvalidCategoryError) Error() string {
	return fmt.Sprintf("invalid category %q, must be one of: social, trivia, science, code, trenches, general", e.Value)
}

func (e *InvalidCategoryError) Unwrap() error { return ErrInvalidCategory }
