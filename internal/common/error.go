// Package common defines shared constants and sentinel errors used across
// the message store layers. Callers should use errors.Is to match these
// values and errors.As to inspect StorageError and DecodeError details.
package common

import "errors"

var (
	// Filesystem-level errors (folder creation, read/write, copy/rename).
	ErrStorage = errors.New("storage error")

	// Document-level errors (the file is not a JSON object at all).
	ErrDecode = errors.New("decode error")

	// State machine errors.
	ErrRoleMismatch   = errors.New("acting party is neither sender nor recipient")
	ErrGuardViolation = errors.New("transition not allowed in current state")

	// Lookup / lifecycle errors.
	ErrNotFound = errors.New("not found")
	ErrClosed   = errors.New("store closed")
)
