// Package errors defines the typed errors shared by the feed fetcher, the
// reconciler and the catalog stores. Each type matches one of the sentinel
// errors below with errors.Is, so callers can branch on the kind of failure
// without knowing which layer produced it.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// New is errors.New from the standard library.
var New = errors.New

var (
	ErrNotFound          = errors.New("not found")
	ErrAlreadyExists     = errors.New("already exists")
	ErrInvalidInput      = errors.New("invalid input")
	ErrSourceUnavailable = errors.New("source unavailable")
	ErrLocked            = errors.New("locked")
	ErrNeedsManualMerge  = errors.New("needs manual merge")
)

// IsNotFound reports whether err is a missing bill, session or politician.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsAlreadyExists reports whether err is a uniqueness violation.
func IsAlreadyExists(err error) bool { return errors.Is(err, ErrAlreadyExists) }

// IsValidationError reports whether err was caused by bad input, including
// unparseable feed data.
func IsValidationError(err error) bool { return errors.Is(err, ErrInvalidInput) }

// IsSourceUnavailable reports whether the feed answered with a server error.
func IsSourceUnavailable(err error) bool { return errors.Is(err, ErrSourceUnavailable) }

// IsLocked reports whether another importer holds the session lock.
func IsLocked(err error) bool { return errors.Is(err, ErrLocked) }

// Feed errors.

// APIError is a non-2xx answer from the feed. 404 matches ErrNotFound and
// 5xx matches ErrSourceUnavailable.
type APIError struct {
	Source     string
	StatusCode int
	Message    string
	Endpoint   string
	Err        error
}

func (e *APIError) Error() string {
	msg := e.Source
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" returned %d", e.StatusCode)
	}
	if e.Endpoint != "" {
		msg += " for " + e.Endpoint
	}
	return msg + ": " + e.Message
}

func (e *APIError) Unwrap() error { return e.Err }

func (e *APIError) Is(target error) bool {
	switch {
	case e.StatusCode == http.StatusNotFound:
		return target == ErrNotFound
	case e.StatusCode >= http.StatusInternalServerError:
		return target == ErrSourceUnavailable
	}
	return false
}

// NewAPIError creates an APIError.
func NewAPIError(source string, statusCode int, message string) *APIError {
	return &APIError{Source: source, StatusCode: statusCode, Message: message}
}

// WrapAPI wraps err as an APIError, keeping nil as nil.
func WrapAPI(source string, statusCode int, err error) error {
	if err == nil {
		return nil
	}
	return &APIError{Source: source, StatusCode: statusCode, Message: err.Error(), Err: err}
}

// ParseError is malformed input: a feed date, an XML page, a seed file.
// It matches ErrInvalidInput.
type ParseError struct {
	Format  string // "date", "xml", "yaml", "json"
	Input   string
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Input == "" {
		return fmt.Sprintf("parse %s: %s", e.Format, e.Message)
	}
	return fmt.Sprintf("parse %s %q: %s", e.Format, e.Input, e.Message)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrInvalidInput }

// NewParseError creates a ParseError.
func NewParseError(format, input, message string, err error) *ParseError {
	return &ParseError{Format: format, Input: input, Message: message, Err: err}
}

// WrapParse wraps err as a ParseError, keeping nil as nil.
func WrapParse(format, input string, err error) error {
	if err == nil {
		return nil
	}
	return NewParseError(format, input, err.Error(), err)
}

// Catalog errors.

// NotFoundError is a lookup that found nothing. The feed's single-bill
// endpoint reports every failure this way.
type NotFoundError struct {
	Resource string
	ID       string
	Err      error
}

func (e *NotFoundError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s not found: %v", e.Resource, e.ID, e.Err)
	}
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

func (e *NotFoundError) Unwrap() error { return e.Err }

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// NewNotFoundError creates a NotFoundError.
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ResourceError is a failed store operation on one catalog row.
type ResourceError struct {
	Operation string // "save", "find", "list", "link"
	Resource  string // "bill", "bill_in_session", "session", "politician"
	ID        string
	Err       error
}

func (e *ResourceError) Error() string {
	target := e.Resource
	if e.ID != "" {
		target += " " + e.ID
	}
	return fmt.Sprintf("%s %s: %v", e.Operation, target, e.Err)
}

func (e *ResourceError) Unwrap() error { return e.Err }

// NewResourceError creates a ResourceError.
func NewResourceError(operation, resource, id string, err error) *ResourceError {
	return &ResourceError{Operation: operation, Resource: resource, ID: id, Err: err}
}

// WrapResource wraps err as a ResourceError, keeping nil as nil.
func WrapResource(operation, resource, id string, err error) error {
	if err == nil {
		return nil
	}
	return NewResourceError(operation, resource, id, err)
}

// IOError is a failed filesystem operation on a database or seed file.
type IOError struct {
	Operation string
	Path      string
	Err       error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Operation, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// WrapIO wraps err as an IOError, keeping nil as nil.
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return &IOError{Operation: operation, Path: path, Err: err}
}

// Import errors.

// ImportError ties a reconciliation failure to the feed record that caused
// it. The whole batch rolls back when one is returned.
type ImportError struct {
	Session     string
	Number      string
	LegisinfoID int64
	Err         error
}

func (e *ImportError) Error() string {
	bill := fmt.Sprintf("legisinfo %d", e.LegisinfoID)
	if e.Number != "" {
		bill = fmt.Sprintf("bill %s (legisinfo %d)", e.Number, e.LegisinfoID)
	}
	return fmt.Sprintf("import %s in session %s: %v", bill, e.Session, e.Err)
}

func (e *ImportError) Unwrap() error { return e.Err }

// MergeError reports a bill whose re-introduction could not be merged
// because both rows are already saved. It is surfaced, never returned.
type MergeError struct {
	Number      string
	BillID      int64
	CandidateID int64
	Session     string
}

func (e *MergeError) Error() string {
	return fmt.Sprintf("bill %s may need to be merged (session %s): ids %d and %d",
		e.Number, e.Session, e.BillID, e.CandidateID)
}

func (e *MergeError) Is(target error) bool { return target == ErrNeedsManualMerge }

// NewMergeError creates a MergeError.
func NewMergeError(number, session string, billID, candidateID int64) *MergeError {
	return &MergeError{Number: number, Session: session, BillID: billID, CandidateID: candidateID}
}

// LockError is a failure to take a session's import lock. With a nil Err
// the lock is simply held elsewhere and the error matches ErrLocked.
type LockError struct {
	Key string
	Err error
}

func (e *LockError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("acquire lock %s: %v", e.Key, e.Err)
	}
	return fmt.Sprintf("lock %s is held by another importer", e.Key)
}

func (e *LockError) Unwrap() error { return e.Err }

func (e *LockError) Is(target error) bool { return e.Err == nil && target == ErrLocked }

// Input errors.

// ValidationError is a rejected option, flag or record field.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidInput }

// NewValidationError creates a ValidationError.
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// ConfigError is an unusable setting: an unknown driver, a bad DSN, an
// unreadable config file.
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

func (e *ConfigError) Error() string {
	msg := "config"
	if e.Component != "" {
		msg += " " + e.Component
	}
	msg += ": " + e.Message
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigError) Unwrap() error { return e.Err }

// NewConfigError creates a ConfigError.
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{Component: component, Message: message, Err: err}
}
