package service

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ValidationError maps request fields to what is wrong with them.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, strings.Join(e.Fields[name], " ")))
	}
	return "invalid request: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field string, msg string) {
	if e.Fields == nil {
		e.Fields = map[string][]string{}
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

// orNil returns e only if it holds at least one field error.
func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

func fieldError(field string, msg string) error {
	e := &ValidationError{}
	e.add(field, msg)
	return e
}

// storeErr maps a store lookup failure to ErrNotFound or ErrInternal.
func storeErr(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	return fmt.Errorf("%w: %s: %v", ErrInternal, what, err)
}
