package define

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when an operation names an identifier absent from the store.
type ErrNotFound struct {
	Entity EntityType
	ID     string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// ErrInvalidTransition is returned when an edit is structurally impossible,
// such as linking an external codelist or linking a codelist to itself.
var ErrInvalidTransition = errors.New("invalid transition")

// ImportErrorKind classifies reconciliation failures.
type ImportErrorKind string

// Import error kinds.
const (
	// InvalidReference reports a natural-key lookup that matched nothing.
	InvalidReference ImportErrorKind = "invalid_reference"
	// InvalidEnumValue reports a value outside an allowed set.
	InvalidEnumValue ImportErrorKind = "invalid_enum_value"
	// NonExtensibleViolation reports a coded value absent from a non-extensible standard codelist.
	NonExtensibleViolation ImportErrorKind = "non_extensible_violation"
	// InvalidRecord reports a record missing its natural key.
	InvalidRecord ImportErrorKind = "invalid_record"
)

// Sentinels matched by errors.Is against an *ImportError of the same kind.
var (
	ErrInvalidReference       = errors.New("invalid reference")
	ErrInvalidEnumValue       = errors.New("invalid enum value")
	ErrNonExtensibleViolation = errors.New("non-extensible codelist violation")
	ErrInvalidRecord          = errors.New("invalid import record")
)

// ImportError aborts a whole import batch.
type ImportError struct {
	Kind    ImportErrorKind
	Record  string
	Message string
}

func (e *ImportError) Error() string {
	return e.Message
}

// Is matches the sentinel of the error kind.
func (e *ImportError) Is(target error) bool {
	switch e.Kind {
	case InvalidReference:
		return target == ErrInvalidReference
	case InvalidEnumValue:
		return target == ErrInvalidEnumValue
	case NonExtensibleViolation:
		return target == ErrNonExtensibleViolation
	case InvalidRecord:
		return target == ErrInvalidRecord
	}
	return false
}

// NewImportError builds an ImportError with a formatted message.
func NewImportError(kind ImportErrorKind, record string, format string, args ...any) *ImportError {
	return &ImportError{Kind: kind, Record: record, Message: fmt.Sprintf(format, args...)}
}
