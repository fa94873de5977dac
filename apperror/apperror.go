// Package apperror defines the typed errors returned by the attendance and
// payroll services and maps them onto HTTP semantics.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Kind classifies an error so callers can branch on it deterministically.
type Kind string

const (
	KindInvalidCoordinate Kind = "invalid_coordinate"
	KindLocationNotFound  Kind = "location_not_found"
	KindUserNotFound      Kind = "user_not_found"
	KindShiftNotFound     Kind = "shift_not_found"
	KindValidation        Kind = "validation"
	KindPersistence       Kind = "persistence"
	KindAggregation       Kind = "aggregation"
	KindUnauthorized      Kind = "unauthorized"
	KindForbidden         Kind = "forbidden"
	KindInternal          Kind = "internal"
)

// Error carries a Kind, a caller-facing message and optionally the cause.
type Error struct {
	Kind    Kind
	Message string
	Details []map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether the caller may retry the same request unchanged.
func (e *Error) Retryable() bool { return e.Kind == KindPersistence }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(err error, kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Validation builds a KindValidation error from a validator error, keeping
// the per-field messages.
func Validation(err error, message string) *Error {
	return &Error{Kind: KindValidation, Message: message, Details: ValidationDetails(err), Err: err}
}

// KindOf returns the Kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus maps an error onto a response status.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation, KindInvalidCoordinate:
		return http.StatusBadRequest
	case KindLocationNotFound, KindUserNotFound, KindShiftNotFound:
		return http.StatusNotFound
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindPersistence:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the caller-facing message, hiding causes of unknown errors.
func Message(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "internal server error"
}

// DetailsOf returns field details attached to err, if any.
func DetailsOf(err error) []map[string]string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Details
	}
	return nil
}

var errRequired = errors.New("is required")

var customErrors = map[string]error{
	"required": errRequired,
}

// ValidationDetails converts validator errors into a list of field/message pairs.
func ValidationDetails(err error) []map[string]string {
	errList := make([]map[string]string, 0)

	var validationErr validator.ValidationErrors
	if errors.As(err, &validationErr) {
		for _, e := range validationErr {
			errMsg := fmt.Sprintf("%s is invalid", e.StructNamespace())
			if v, ok := customErrors[e.Tag()]; ok {
				errMsg = v.Error()
			}
			if e.Tag() == "oneof" {
				errMsg = "must be one of: " + strings.Join(strings.Fields(e.Param()), ", ")
			}
			errList = append(errList, map[string]string{e.Field(): errMsg})
		}
	}
	return errList
}
