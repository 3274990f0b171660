package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"git.sr.ht/~jakintosh/storefront/pkg/credentials"
)

// Client sends requests to the storefront API on behalf of one signed-in
// session. It is safe for concurrent use; all goroutines sharing a Client
// share its refresh coordination.
type Client struct {
	baseURL string
	store   credentials.Store
	http    Doer
	log     *slog.Logger

	metrics    *metrics
	registerer prometheus.Registerer

	signOut        SignOutFunc
	signInRoute    string
	requestTimeout time.Duration
	refreshTimeout time.Duration
	refreshPath    string
	userAgent      string

	refresh refreshState
}

var _ Sender = (*Client)(nil)

func New(
	baseURL string,
	store credentials.Store,
	opts ...Option,
) (
	*Client,
	error,
) {
	if store == nil {
		return nil, errors.New("client requires a credential store")
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		store:          store,
		http:           &http.Client{},
		log:            slog.Default(),
		metrics:        newMetrics(),
		signInRoute:    DefaultSignInRoute,
		requestTimeout: DefaultRequestTimeout,
		refreshTimeout: DefaultRefreshTimeout,
		refreshPath:    DefaultRefreshPath,
		userAgent:      DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.registerer != nil {
		if err := c.metrics.register(c.registerer); err != nil {
			return nil, fmt.Errorf("register client metrics: %w", err)
		}
	}
	return c, nil
}

func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) Store() credentials.Store { return c.store }

func (c *Client) SignInRoute() string { return c.signInRoute }

// Send builds a request and dispatches it. See NewRequest for how body is
// encoded.
func (c *Client) Send(
	ctx context.Context,
	method string,
	path string,
	body any,
	opts ...RequestOption,
) (
	*Response,
	error,
) {
	req, err := NewRequest(method, path, body, opts...)
	if err != nil {
		return nil, err
	}
	return c.Do(ctx, req)
}

func (c *Client) Get(ctx context.Context, path string, opts ...RequestOption) (*Response, error) {
	return c.Send(ctx, http.MethodGet, path, nil, opts...)
}

func (c *Client) Post(ctx context.Context, path string, body any, opts ...RequestOption) (*Response, error) {
	return c.Send(ctx, http.MethodPost, path, body, opts...)
}

func (c *Client) Put(ctx context.Context, path string, body any, opts ...RequestOption) (*Response, error) {
	return c.Send(ctx, http.MethodPut, path, body, opts...)
}

func (c *Client) Patch(ctx context.Context, path string, body any, opts ...RequestOption) (*Response, error) {
	return c.Send(ctx, http.MethodPatch, path, body, opts...)
}

func (c *Client) Delete(ctx context.Context, path string, opts ...RequestOption) (*Response, error) {
	return c.Send(ctx, http.MethodDelete, path, nil, opts...)
}

// Do dispatches req with the stored access credential. A request that did
// not come from NewRequest has its Body encoded on first use. An unauthorized
// response hands the request to the refresh coordinator, unless it has
// already been retried once.
func (c *Client) Do(
	ctx context.Context,
	req *Request,
) (
	*Response,
	error,
) {
	if req.Header == nil {
		req.Header = http.Header{}
	}
	// a descriptor built by hand has not been encoded yet
	if req.Body != nil && !req.hasBody {
		if err := req.encode(); err != nil {
			return nil, err
		}
	}
	if req.Header.Get(HeaderRequestID) == "" {
		req.Header.Set(HeaderRequestID, newRequestID())
	}

	access, err := c.currentAccess(ctx)
	if err != nil {
		return nil, err
	}

	res, err := c.attempt(ctx, req, access)
	if err == nil {
		return res, nil
	}
	if req.Retried || !errors.Is(err, ErrUnauthorized) {
		return nil, err
	}
	return c.recoverUnauthorized(ctx, req, access, err)
}

func (c *Client) currentAccess(ctx context.Context) (string, error) {
	access, _, err := c.store.Get(ctx, credentials.KeyAccess)
	if err != nil {
		return "", fmt.Errorf("read access credential: %w", err)
	}
	return access, nil
}

// attempt performs one round trip. Non-2xx responses and transport failures
// come back as *Error.
func (c *Client) attempt(
	ctx context.Context,
	req *Request,
	access string,
) (
	*Response,
	error,
) {
	ctx, cancel := c.withRequestTimeout(ctx)
	defer cancel()

	httpReq, err := req.build(c.baseURL, access)
	if err != nil {
		return nil, &Error{Request: req, Err: err}
	}
	httpReq = httpReq.WithContext(ctx)
	if c.userAgent != "" && httpReq.Header.Get("User-Agent") == "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}

	res, err := c.http.Do(httpReq)
	if err != nil {
		c.log.Debug("request transport failure",
			"method", req.Method, "path", req.Path,
			"request_id", req.Header.Get(HeaderRequestID), "err", err)
		return nil, &Error{Request: req, Err: err}
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, &Error{Request: req, Err: fmt.Errorf("read response body: %w", err)}
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		c.log.Debug("request failed",
			"method", req.Method, "path", req.Path, "status", res.StatusCode,
			"request_id", req.Header.Get(HeaderRequestID), "retried", req.Retried)
		return nil, &Error{Status: res.StatusCode, Payload: body, Request: req}
	}

	return &Response{
		Status:  res.StatusCode,
		Header:  res.Header,
		Body:    body,
		Request: req,
	}, nil
}

func (c *Client) withRequestTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.requestTimeout)
}

func newRequestID() string {
	return uuid.NewString()
}
