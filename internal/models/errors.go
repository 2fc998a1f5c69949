package models

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is the base error all validation failures wrap.
// Callers match it with errors.Is to map to a 400-equivalent response.
var ErrInvalidInput = errors.New("invalid input")

// Validation sentinels.
var (
	ErrMissingWorkbookID    = fmt.Errorf("%w: workbook id is required", ErrInvalidInput)
	ErrNoChanges            = fmt.Errorf("%w: at least one change is required", ErrInvalidInput)
	ErrMissingMetadata      = fmt.Errorf("%w: metadata is required", ErrInvalidInput)
	ErrMissingCellReference = fmt.Errorf("%w: cell reference is required", ErrInvalidInput)
	ErrInvalidChangeType    = fmt.Errorf("%w: unknown change type", ErrInvalidInput)
	ErrMissingVersionID     = fmt.Errorf("%w: version id is required", ErrInvalidInput)
)

// ErrVersionNotFound indicates an unknown version id (maps to HTTP 404).
var ErrVersionNotFound = errors.New("version not found")

// ErrSequenceConflict indicates that sequence-number allocation kept
// racing with concurrent writers until the retry budget was exhausted
// (maps to HTTP 409; the whole operation is safe to retry).
var ErrSequenceConflict = errors.New("sequence number conflict")
