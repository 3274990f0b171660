package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// HTTPResult captures HTTP response details for test assertions
type HTTPResult struct {
	Code    int
	Error   error
	Headers http.Header
	Body    []byte
}

// Header represents an HTTP header key-value pair
type Header struct {
	Key   string
	Value string
}

// ContentTypeJSON returns a header for JSON content type
func ContentTypeJSON() Header {
	return Header{
		Key:   "Content-Type",
		Value: "application/json",
	}
}

// ExpectStatus validates the HTTP status code and fails the test if it doesn't match
func ExpectStatus(
	t *testing.T,
	expected int,
	result HTTPResult,
) {
	t.Helper()
	if result.Error != nil {
		t.Fatalf("request error: %v", result.Error)
	}
	if result.Code != expected {
		t.Fatalf("expected status %d, got %d. Body: %s", expected, result.Code, string(result.Body))
	}
}

// ExpectDetail validates a {"detail": ...} error body
func ExpectDetail(
	t *testing.T,
	expected string,
	result HTTPResult,
) {
	t.Helper()
	var body struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(result.Body, &body); err != nil {
		t.Fatalf("expected detail body, got %s", string(result.Body))
	}
	if body.Detail != expected {
		t.Fatalf("detail = %q, want %q", body.Detail, expected)
	}
}

// Do performs a request with an optional body and decodes a JSON response
func Do(
	router http.Handler,
	method string,
	url string,
	body io.Reader,
	response any,
	headers ...Header,
) HTTPResult {
	req := httptest.NewRequest(method, url, body)
	res := httptest.NewRecorder()
	for _, h := range headers {
		req.Header.Set(h.Key, h.Value)
	}
	router.ServeHTTP(res, req)

	if response != nil && res.Body.Len() > 0 {
		if err := json.Unmarshal(res.Body.Bytes(), response); err != nil {
			return HTTPResult{
				Code:    res.Code,
				Error:   fmt.Errorf("failed to decode JSON: %v\n%s", err, res.Body.String()),
				Headers: res.Header(),
				Body:    res.Body.Bytes(),
			}
		}
	}

	return HTTPResult{Code: res.Code, Headers: res.Header(), Body: res.Body.Bytes()}
}

// Get performs a GET request and optionally decodes JSON response
func Get(
	router http.Handler,
	url string,
	response any,
	headers ...Header,
) HTTPResult {
	return Do(router, http.MethodGet, url, nil, response, headers...)
}

// Delete performs a DELETE request
func Delete(
	router http.Handler,
	url string,
	headers ...Header,
) HTTPResult {
	return Do(router, http.MethodDelete, url, nil, nil, headers...)
}

// SendJSON performs a request with a JSON body and optionally decodes the JSON response
func SendJSON(
	router http.Handler,
	method string,
	url string,
	body string,
	response any,
	headers ...Header,
) HTTPResult {
	headers = append([]Header{ContentTypeJSON()}, headers...)
	return Do(router, method, url, strings.NewReader(body), response, headers...)
}

// PostJSON performs a POST with JSON body
func PostJSON(
	router http.Handler,
	urlPath string,
	body string,
	response any,
	headers ...Header,
) HTTPResult {
	return SendJSON(router, http.MethodPost, urlPath, body, response, headers...)
}

// PatchJSON performs a PATCH with JSON body
func PatchJSON(
	router http.Handler,
	urlPath string,
	body string,
	response any,
	headers ...Header,
) HTTPResult {
	return SendJSON(router, http.MethodPatch, urlPath, body, response, headers...)
}
