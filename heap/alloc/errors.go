package alloc

import "errors"

var (
	// ErrBadImage indicates the heap image header failed validation.
	ErrBadImage = errors.New("alloc: invalid heap image")

	// ErrCorruptList indicates the block list failed a structural invariant
	// (bounds, contiguity, link order, or tail placement).
	ErrCorruptList = errors.New("alloc: corrupt block list")
)
