package reports

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrReportNotFound is returned for any operation on an unknown report id.
	ErrReportNotFound = errors.New("report not found")
)

// DuplicateReportError means an open report of the same type already exists
// within the duplicate radius.
type DuplicateReportError struct {
	ExistingID uuid.UUID
}

func (e *DuplicateReportError) Error() string {
	return fmt.Sprintf("duplicate of report %s", e.ExistingID)
}

// InvalidStateError is returned when the report's status forbids the operation.
type InvalidStateError struct {
	ID     uuid.UUID
	Status string
	Op     string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s report %s in status %s", e.Op, e.ID, e.Status)
}

// StorageError wraps an adapter failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// ValidationError rejects malformed input before any storage call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}
