package client

import (
	"context"
	"net/http"
)

// Doer performs a single HTTP round trip. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Sender dispatches API calls. Consumers should depend on this interface
// rather than *Client to allow testing with fakes.
type Sender interface {
	Send(ctx context.Context, method string, path string, body any, opts ...RequestOption) (*Response, error)
}

var _ Doer = (*http.Client)(nil)
