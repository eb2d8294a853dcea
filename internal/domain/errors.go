package domain

import (
	"context"
	"errors"
	"fmt"
)

// ErrorClass buckets generation failures so clients can tell "fix your input"
// apart from "try again later".
type ErrorClass string

const (
	ErrClassValidation     ErrorClass = "validation"
	ErrClassContentPolicy  ErrorClass = "content_policy"
	ErrClassAuthentication ErrorClass = "authentication"
	ErrClassProvider       ErrorClass = "provider"
	ErrClassTimeout        ErrorClass = "timeout"
	ErrClassNetwork        ErrorClass = "network"
)

var (
	ErrJobNotFound     = errors.New("job not found")
	ErrMissingSource   = errors.New("source image is required")
	ErrMissingStyle    = errors.New("style description is required")
	ErrUnsupportedMime = errors.New("unsupported image type")
)

// GenerationError is the classed error surfaced for anything that goes wrong
// while handling a generation attempt.
type GenerationError struct {
	Class   ErrorClass
	Message string
	Err     error
}

func (e *GenerationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Class, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Class, e.Message)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// NewError builds a classed error without a wrapped cause.
func NewError(class ErrorClass, message string) *GenerationError {
	return &GenerationError{Class: class, Message: message}
}

// WrapError builds a classed error around an underlying cause.
func WrapError(class ErrorClass, message string, err error) *GenerationError {
	return &GenerationError{Class: class, Message: message, Err: err}
}

// ClassOf extracts the error class, defaulting to the generic provider class
// for unclassified failures.
func ClassOf(err error) ErrorClass {
	var genErr *GenerationError
	if errors.As(err, &genErr) {
		return genErr.Class
	}
	if errors.Is(err, ErrMissingSource) || errors.Is(err, ErrMissingStyle) || errors.Is(err, ErrUnsupportedMime) {
		return ErrClassValidation
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrClassTimeout
	}
	return ErrClassProvider
}

// UserFixable reports whether the failure requires the caller to change their
// input, as opposed to simply retrying later.
func (c ErrorClass) UserFixable() bool {
	switch c {
	case ErrClassValidation, ErrClassContentPolicy, ErrClassAuthentication:
		return true
	}
	return false
}

// UserMessage strips wrapped causes down to a string safe to show end users.
func UserMessage(err error) string {
	var genErr *GenerationError
	if errors.As(err, &genErr) {
		return genErr.Message
	}
	return err.Error()
}
