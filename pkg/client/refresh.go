package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"git.sr.ht/~jakintosh/storefront/pkg/credentials"
)

// refreshState is idle while refreshing is false. While a refresh exchange
// is in flight, every other unauthorized call waits in pending, in arrival
// order, and receives exactly one outcome when the exchange settles.
type refreshState struct {
	mu         sync.Mutex
	refreshing bool
	pending    []*pendingCall
}

type pendingCall struct {
	req  *Request
	done chan outcome
}

type outcome struct {
	access string
	err    error
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type refreshResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

// recoverUnauthorized handles a 401 for a request that has not been retried.
// sentWith is the access credential the failed attempt carried.
func (c *Client) recoverUnauthorized(
	ctx context.Context,
	req *Request,
	sentWith string,
	cause error,
) (
	*Response,
	error,
) {
	req.Retried = true
	state := &c.refresh

	state.mu.Lock()
	if state.refreshing {
		call := &pendingCall{req: req, done: make(chan outcome, 1)}
		state.pending = append(state.pending, call)
		queued := len(state.pending)
		state.mu.Unlock()

		c.metrics.queued.Inc()
		c.log.Debug("pending_call_queued",
			"method", req.Method, "path", req.Path,
			"request_id", req.Header.Get(HeaderRequestID), "position", queued)
		return c.await(ctx, call)
	}

	// a refresh finished after this request was sent
	current, _, err := c.store.Get(ctx, credentials.KeyAccess)
	if err != nil {
		state.mu.Unlock()
		return nil, fmt.Errorf("read access credential: %w", err)
	}
	if current != "" && current != sentWith {
		state.mu.Unlock()
		return c.replay(ctx, req, current)
	}

	refresh, ok, err := c.store.Get(ctx, credentials.KeyRefresh)
	if err != nil {
		state.mu.Unlock()
		return nil, fmt.Errorf("read refresh credential: %w", err)
	}
	if !ok || refresh == "" {
		state.mu.Unlock()
		c.purge(ctx)
		c.signalSignOut(ctx, reasonNoRefresh, cause)
		return nil, cause
	}

	state.refreshing = true
	state.mu.Unlock()

	access, err := c.exchange(ctx, refresh)
	if err != nil {
		refreshErr := &RefreshError{Err: err}
		c.purge(ctx)
		c.settle(outcome{err: refreshErr})
		c.signalSignOut(ctx, reasonRefreshFailed, refreshErr)
		return nil, refreshErr
	}

	c.settle(outcome{access: access})
	return c.replay(ctx, req, access)
}

// exchange trades the refresh credential for a new access credential and
// stores it. It runs detached from the caller's cancellation, since every
// queued call depends on its result.
func (c *Client) exchange(
	ctx context.Context,
	refresh string,
) (
	string,
	error,
) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.refreshTimeout)
	defer cancel()

	c.log.Info("refresh_started", "path", c.refreshPath)

	access, err := c.doExchange(ctx, refresh)
	if err != nil {
		c.metrics.refreshes.WithLabelValues(resultFailure).Inc()
		c.log.Warn("refresh_failed", "status", StatusOf(err), "err", err)
		return "", err
	}

	c.metrics.refreshes.WithLabelValues(resultSuccess).Inc()
	c.log.Info("refresh_succeeded")
	return access, nil
}

func (c *Client) doExchange(
	ctx context.Context,
	refresh string,
) (
	string,
	error,
) {
	req, err := NewRequest(http.MethodPost, c.refreshPath, refreshRequest{Refresh: refresh})
	if err != nil {
		return "", err
	}
	req.Header.Set(HeaderRequestID, newRequestID())

	res, err := c.attempt(ctx, req, "")
	if err != nil {
		return "", err
	}

	var body refreshResponse
	if err := res.Decode(&body); err != nil {
		return "", err
	}
	if body.Access == "" {
		return "", errors.New("refresh response carried no access credential")
	}

	// the new credential is stored before any waiting call is released
	if err := c.store.Set(ctx, credentials.KeyAccess, body.Access); err != nil {
		return "", fmt.Errorf("store access credential: %w", err)
	}
	if body.Refresh != "" {
		if err := c.store.Set(ctx, credentials.KeyRefresh, body.Refresh); err != nil {
			return "", fmt.Errorf("store refresh credential: %w", err)
		}
	}
	return body.Access, nil
}

// settle returns the coordinator to idle and drains the queue in arrival
// order. Each outcome channel is buffered, so delivery never blocks.
func (c *Client) settle(out outcome) {
	state := &c.refresh

	state.mu.Lock()
	pending := state.pending
	state.pending = nil
	state.refreshing = false

	for i, call := range pending {
		call.done <- out
		c.log.Debug("pending_call_released",
			"method", call.req.Method, "path", call.req.Path,
			"request_id", call.req.Header.Get(HeaderRequestID),
			"order", i+1, "rejected", out.err != nil)
	}
	state.mu.Unlock()
}

// await blocks a queued call until the exchange settles or ctx ends. A
// caller that gives up is removed from the queue.
func (c *Client) await(
	ctx context.Context,
	call *pendingCall,
) (
	*Response,
	error,
) {
	select {
	case out := <-call.done:
		if out.err != nil {
			return nil, out.err
		}
		return c.replay(ctx, call.req, out.access)

	case <-ctx.Done():
		state := &c.refresh
		state.mu.Lock()
		for i, p := range state.pending {
			if p == call {
				state.pending = append(state.pending[:i], state.pending[i+1:]...)
				break
			}
		}
		state.mu.Unlock()
		return nil, ctx.Err()
	}
}

// replay resends the original descriptor verbatim with a new credential.
// The request is already marked retried, so another 401 is returned as is.
func (c *Client) replay(
	ctx context.Context,
	req *Request,
	access string,
) (
	*Response,
	error,
) {
	c.metrics.replays.Inc()
	return c.attempt(ctx, req, access)
}

// purge clears refresh, access and identity, in that order.
func (c *Client) purge(ctx context.Context) {
	if err := credentials.Purge(context.WithoutCancel(ctx), c.store); err != nil {
		c.log.Error("credential purge failed", "err", err)
	}
}

func (c *Client) signalSignOut(
	ctx context.Context,
	reason string,
	cause error,
) {
	c.metrics.signOuts.WithLabelValues(reason).Inc()
	c.log.Warn("sign_out", "reason", reason, "route", c.signInRoute, "err", cause)
	if c.signOut != nil {
		c.signOut(context.WithoutCancel(ctx), c.signInRoute, cause)
	}
}
