// Package apperr holds the sentinel errors shared across layers.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	// Validation failures. Import validation distinguishes the overall
	// shape of a bundle from a bad prompt entry and a bad folder entry.
	ErrValidation    = errors.New("validation failed")
	ErrMalformed     = errors.New("invalid import file: not valid JSON")
	ErrInvalidShape  = errors.New("invalid import file: expected an object with prompts and folders arrays")
	ErrInvalidPrompt = errors.New("invalid import file: prompt entry needs string id and text")
	ErrInvalidFolder = errors.New("invalid import file: folder entry needs string id and name")

	ErrQuotaExceeded = errors.New("storage quota exceeded")
	ErrCorrupt       = errors.New("stored data is corrupt")
	ErrFolderInUse   = errors.New("folder still contains prompts")
)
