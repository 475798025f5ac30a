// Package apperr defines the error taxonomy shared by stores, scanners,
// and the HTTP layer.
package apperr

import "errors"

var (
	// ErrNotFound covers missing ids, paths, and skill names. Security
	// rejections (path traversal, protected resources) are reported as
	// ErrNotFound so existence is never leaked.
	ErrNotFound = errors.New("not found")

	// ErrInvalid marks malformed or missing input; never retried.
	ErrInvalid = errors.New("invalid input")

	// ErrCorrupt marks a backing file that exists but cannot be parsed,
	// distinguishing it from "no data yet".
	ErrCorrupt = errors.New("corrupt backing file")

	// ErrUnwritable marks a write that failed on every candidate target.
	ErrUnwritable = errors.New("unwritable")
)
