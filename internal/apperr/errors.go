// Package apperr defines the error taxonomy shared by services, adapters and
// handlers. Every typed error matches its sentinel with errors.Is.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrPlatformAPI  = errors.New("platform api error")
	ErrAuth         = errors.New("authentication failed")
	ErrEncryption   = errors.New("encryption failure")
	ErrNotSupported = errors.New("operation not supported")
)

type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return e.Field + ": " + e.Msg
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func Validation(field, format string, args ...any) error {
	return &ValidationError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

type NotFoundError struct {
	Entity string
	ID     any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Entity, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

func NotFound(entity string, id any) error {
	return &NotFoundError{Entity: entity, ID: id}
}

// PlatformAPIError is a rejection by a third-party network. Detail carries the
// raw provider response so it can be surfaced to the user.
type PlatformAPIError struct {
	Platform   string
	StatusCode int
	Detail     string
}

func (e *PlatformAPIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s api error: %s", e.Platform, e.Detail)
	}
	return fmt.Sprintf("%s api error (status %d): %s", e.Platform, e.StatusCode, e.Detail)
}

func (e *PlatformAPIError) Is(target error) bool { return target == ErrPlatformAPI }

func PlatformAPI(platform string, statusCode int, detail string) error {
	return &PlatformAPIError{Platform: platform, StatusCode: statusCode, Detail: detail}
}

// AuthError marks a missing or rejected token. Callers may refresh once and retry.
type AuthError struct {
	Platform string
	Detail   string
}

func (e *AuthError) Error() string {
	if e.Platform == "" {
		return "auth error: " + e.Detail
	}
	return fmt.Sprintf("%s auth error: %s", e.Platform, e.Detail)
}

func (e *AuthError) Is(target error) bool { return target == ErrAuth }

func Auth(platform, detail string) error {
	return &AuthError{Platform: platform, Detail: detail}
}

type EncryptionError struct {
	Op  string
	Err error
}

func (e *EncryptionError) Error() string {
	if e.Err == nil {
		return "encryption error: " + e.Op
	}
	return fmt.Sprintf("encryption error: %s: %v", e.Op, e.Err)
}

func (e *EncryptionError) Unwrap() error { return e.Err }

func (e *EncryptionError) Is(target error) bool { return target == ErrEncryption }

func Encryption(op string, err error) error {
	return &EncryptionError{Op: op, Err: err}
}

type NotSupportedError struct {
	Platform  string
	Operation string
}

func (e *NotSupportedError) Error() string {
	return fmt.Sprintf("%s does not support %s", e.Platform, e.Operation)
}

func (e *NotSupportedError) Is(target error) bool { return target == ErrNotSupported }

func NotSupported(platform, operation string) error {
	return &NotSupportedError{Platform: platform, Operation: operation}
}
