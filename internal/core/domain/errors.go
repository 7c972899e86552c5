package domain

import (
	"errors"
	"fmt"
)

// Sentinel categories. Typed errors below match them through errors.Is.
var (
	ErrPermissionDenied = errors.New("location permission denied")
	ErrNetwork          = errors.New("network failure")
	ErrNotFound         = errors.New("not found")
	ErrValidation       = errors.New("validation error")
	ErrAuthRequired     = errors.New("authentication required")
)

type NotFoundError struct {
	Resource string
	Err      error
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e NotFoundError) Unwrap() error { return e.Err }

func (e NotFoundError) Is(target error) bool { return target == ErrNotFound }

type ValidationError struct {
	Field string
	Msg   string
}

func (e ValidationError) Error() string {
	if e.Msg != "" && e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Msg)
	}
	if e.Msg != "" {
		return e.Msg
	}
	if e.Field != "" {
		return fmt.Sprintf("invalid %s", e.Field)
	}
	return "validation error"
}

func (e ValidationError) Is(target error) bool { return target == ErrValidation }

// NetworkError wraps a transport or backend failure of a collaborator call.
type NetworkError struct {
	Op  string
	Err error
}

func (e NetworkError) Error() string {
	if e.Err == nil {
		return e.Op + ": network failure"
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e NetworkError) Unwrap() error { return e.Err }

func (e NetworkError) Is(target error) bool { return target == ErrNetwork }

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

func IsNetwork(err error) bool {
	return errors.Is(err, ErrNetwork)
}

func IsAuthRequired(err error) bool {
	return errors.Is(err, ErrAuthRequired)
}
