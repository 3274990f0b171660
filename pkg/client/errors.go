package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

var (
	ErrUnauthorized  = errors.New("unauthorized")
	ErrRefreshFailed = errors.New("token refresh failed")
	ErrInvalidBody   = errors.New("invalid request body")
)

// Error is returned for every failed dispatch: a transport failure (Status
// 0, Err set) or a non-2xx response (Status and Payload set). Request is
// the descriptor that was sent, suitable for replay.
type Error struct {
	Status  int
	Payload []byte
	Request *Request
	Err     error
}

func (e *Error) Error() string {
	target := ""
	if e.Request != nil {
		target = e.Request.Method + " " + e.Request.Path + ": "
	}
	if e.Status == 0 {
		return fmt.Sprintf("%stransport failure: %v", target, e.Err)
	}
	if detail := e.Detail(); detail != "" {
		return fmt.Sprintf("%s%d %s: %s", target, e.Status, http.StatusText(e.Status), detail)
	}
	return fmt.Sprintf("%s%d %s", target, e.Status, http.StatusText(e.Status))
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == http.StatusUnauthorized
}

// Transport reports whether no response was received at all.
func (e *Error) Transport() bool { return e.Status == 0 }

// Detail returns the "detail" (or "error") message of a JSON error payload.
func (e *Error) Detail() string {
	var body struct {
		Detail string `json:"detail"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal(e.Payload, &body); err != nil {
		return ""
	}
	if body.Detail != "" {
		return body.Detail
	}
	return body.Error
}

// Fields returns per-field validation messages from a payload shaped like
// {"email": ["already taken"], "password": "too short"}.
func (e *Error) Fields() map[string][]string {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(e.Payload, &raw); err != nil {
		return nil
	}

	fields := make(map[string][]string)
	for name, value := range raw {
		if name == "detail" {
			continue
		}
		var list []string
		if err := json.Unmarshal(value, &list); err == nil {
			fields[name] = list
			continue
		}
		var single string
		if err := json.Unmarshal(value, &single); err == nil {
			fields[name] = []string{single}
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}

// FieldSummary flattens Fields into "field: message" lines, sorted by field.
func (e *Error) FieldSummary() string {
	fields := e.Fields()
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	lines := make([]string, 0, len(names))
	for _, name := range names {
		lines = append(lines, name+": "+strings.Join(fields[name], " "))
	}
	return strings.Join(lines, "\n")
}

// RefreshError is delivered to the triggering call and to every queued call
// when the refresh exchange fails.
type RefreshError struct {
	Err error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("%v: %v", ErrRefreshFailed, e.Err)
}

func (e *RefreshError) Unwrap() error { return e.Err }

func (e *RefreshError) Is(target error) bool { return target == ErrRefreshFailed }

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}
