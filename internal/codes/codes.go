// Package codes holds the error classes shared by the gif, jpeg and png decoders.
//
// Every decoder reports failures as its own negative integer code type. Each code
// belongs to exactly one class below, so callers can test for a class with errors.Is
// without knowing which format produced the error.
package codes

import "errors"

// Error classes.
var (
	ErrMalformed   = errors.New("malformed data")
	ErrIntegrity   = errors.New("integrity check failed")
	ErrUnsupported = errors.New("unsupported feature")
	ErrOrder       = errors.New("structural or ordering violation")
	ErrExhausted   = errors.New("code table exhausted")
	ErrTruncated   = errors.New("truncated data")
)
