package client

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	DefaultBaseURL        = "http://127.0.0.1:8000/api"
	DefaultRefreshPath    = "/token/refresh/"
	DefaultSignInRoute    = "/login"
	DefaultRequestTimeout = 30 * time.Second
	DefaultRefreshTimeout = 10 * time.Second
	DefaultUserAgent      = "storefront-client/1"
)

// SignOutFunc is invoked after a forced sign-out: the session has been
// purged and the caller should navigate to route. cause is the refresh
// failure, or the unauthorized error when no refresh credential existed.
type SignOutFunc func(ctx context.Context, route string, cause error)

type Option func(*Client)

// WithHTTPClient replaces the transport used for every request, including
// the refresh exchange.
func WithHTTPClient(doer Doer) Option {
	return func(c *Client) {
		if doer != nil {
			c.http = doer
		}
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// WithMetrics registers the coordinator's collectors with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(c *Client) {
		c.registerer = reg
	}
}

func WithSignOut(fn SignOutFunc) Option {
	return func(c *Client) {
		c.signOut = fn
	}
}

func WithSignInRoute(route string) Option {
	return func(c *Client) {
		if route != "" {
			c.signInRoute = route
		}
	}
}

// WithRequestTimeout bounds each attempt whose context carries no deadline.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.requestTimeout = d
		}
	}
}

// WithRefreshTimeout bounds the refresh exchange.
func WithRefreshTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.refreshTimeout = d
		}
	}
}

func WithRefreshPath(path string) Option {
	return func(c *Client) {
		if path != "" {
			c.refreshPath = path
		}
	}
}

func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}
