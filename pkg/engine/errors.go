package engine

import (
	"errors"
	"fmt"
)

const (
	CategoryUnknownEffect   = "unknown_effect"
	CategoryDownloadFailed  = "download_failed"
	CategoryTranscodeFailed = "transcode_failed"
	CategoryInternal        = "internal"
)

// Error is a stable, categorized transcode pipeline failure.
type Error struct {
	Category string
	Detail   string
	cause    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Category, e.Detail, e.cause)
	}
	if e.Detail == "" {
		return e.Category
	}

	return fmt.Sprintf("%s: %s", e.Category, e.Detail)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// NewError creates a categorized engine error wrapping an optional cause.
func NewError(category string, detail string, cause error) error {
	return &Error{Category: category, Detail: detail, cause: cause}
}

// CategoryFromError returns the stable category for an error when available.
func CategoryFromError(err error) string {
	if err == nil {
		return ""
	}

	var categorized *Error
	if errors.As(err, &categorized) {
		return categorized.Category
	}

	return CategoryInternal
}
