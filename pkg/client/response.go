package client

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Response is a successful (2xx) reply with its body fully read.
type Response struct {
	Status  int
	Header  http.Header
	Body    []byte
	Request *Request
}

// Decode unmarshals a JSON body into v. An empty body leaves v untouched.
func (r *Response) Decode(v any) error {
	if len(r.Body) == 0 || r.Status == http.StatusNoContent {
		return nil
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode %s %s response: %w", r.Request.Method, r.Request.Path, err)
	}
	return nil
}
