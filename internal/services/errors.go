package services

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrIncidentNotFound = errors.New("incident not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrEmailTaken       = errors.New("email already registered to another user")
	ErrInvalidStatus    = errors.New("invalid status: must be pending, in_progress, resolved or rejected")
	ErrCreateFailed     = errors.New("failed to create incident")
)

// ValidationError lists the request fields that failed validation.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return "missing required fields: " + strings.Join(names, ", ")
}

func requireFields(fields map[string]string, messages map[string]string) error {
	failed := make(map[string]string)
	for name, value := range fields {
		if strings.TrimSpace(value) == "" {
			failed[name] = messages[name]
		}
	}
	if len(failed) > 0 {
		return &ValidationError{Fields: failed}
	}
	return nil
}
