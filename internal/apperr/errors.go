// Package apperr holds the sentinel errors callers branch on.
package apperr

import "errors"

var (
	ErrNotFound  = errors.New("not found")
	ErrDuplicate = errors.New("duplicate")
	ErrDegraded  = errors.New("collaboration degraded")
)
