// Package errors holds the sentinel errors shared across the console packages.
package errors

import "errors"

var (
	// Storage errors
	ErrNotFound = errors.New("not found")

	// Session errors
	ErrSessionClosed = errors.New("session closed")
)
