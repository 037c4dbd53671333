package edge

import "errors"

// Sentinel errors for edge table operations.
var (
	// ErrEmptyLabel indicates an empty endpoint label was supplied.
	ErrEmptyLabel = errors.New("edge: label is empty")

	// ErrSelfLoop indicates a == b was supplied where self-loops are rejected.
	ErrSelfLoop = errors.New("edge: self-loop not allowed")
)
