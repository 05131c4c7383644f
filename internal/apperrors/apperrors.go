// Package apperrors defines the error taxonomy shared by the document
// space services. Handlers translate these into HTTP statuses exactly
// once, at the edge.
package apperrors

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

type Kind int

const (
	KindNotFound Kind = iota
	KindAlreadyExists
	KindInvalidName
	KindNotAuthorized
	KindStorage
)

type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NotFound(format string, args ...interface{}) error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

func AlreadyExists(format string, args ...interface{}) error {
	return &Error{Kind: KindAlreadyExists, Msg: fmt.Sprintf(format, args...)}
}

func InvalidName(format string, args ...interface{}) error {
	return &Error{Kind: KindInvalidName, Msg: fmt.Sprintf(format, args...)}
}

func NotAuthorized(format string, args ...interface{}) error {
	return &Error{Kind: KindNotAuthorized, Msg: fmt.Sprintf(format, args...)}
}

func Storage(msg string, err error) error {
	return &Error{Kind: KindStorage, Msg: msg, Err: err}
}

func isKind(err error, kind Kind) bool {
	var appErr *Error
	return errors.As(err, &appErr) && appErr.Kind == kind
}

func IsNotFound(err error) bool      { return isKind(err, KindNotFound) }
func IsAlreadyExists(err error) bool { return isKind(err, KindAlreadyExists) }
func IsInvalidName(err error) bool   { return isKind(err, KindInvalidName) }
func IsNotAuthorized(err error) bool { return isKind(err, KindNotAuthorized) }
func IsStorage(err error) bool       { return isKind(err, KindStorage) }

// StatusCode maps an error to the HTTP status a handler should return.
func StatusCode(err error) int {
	var appErr *Error
	if !errors.As(err, &appErr) {
		return fiber.StatusInternalServerError
	}
	switch appErr.Kind {
	case KindNotFound:
		return fiber.StatusNotFound
	case KindAlreadyExists:
		return fiber.StatusConflict
	case KindInvalidName:
		return fiber.StatusBadRequest
	case KindNotAuthorized:
		return fiber.StatusForbidden
	default:
		return fiber.StatusInternalServerError
	}
}
