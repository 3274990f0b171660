// Package client is the authenticated HTTP client for the storefront API.
//
// Every request carries the access credential held in a credentials.Store.
// When the API answers 401, the client performs a single refresh exchange
// against the token endpoint, no matter how many requests fail at once, and
// replays each failed request with the new credential.
//
// # Quick Start
//
//	store, _ := credentials.NewFileStore(path)
//	c, err := client.New("https://shop.example.com/api", store,
//	    client.WithSignOut(func(ctx context.Context, route string, cause error) {
//	        log.Printf("signed out (%v), continue at %s", cause, route)
//	    }),
//	)
//
//	res, err := c.Get(ctx, "/cart/")
//	var items []CartItem
//	err = res.Decode(&items)
//
// # Refresh Coordination
//
// The first request to fail with 401 starts the refresh exchange. Requests
// that fail while it is in flight wait in a queue and are released in
// arrival order once it settles:
//
//   - On success the new access credential (and a rotated refresh
//     credential, if the API returned one) is stored before any waiting
//     request is released. Each request is then replayed verbatim, with the
//     same body and X-Request-Id, only the Authorization header changing.
//   - On failure the refresh credential, access credential and identity are
//     purged in that order, every waiting request fails with a
//     *RefreshError, and the SignOutFunc is called with the sign-in route.
//
// A request is replayed at most once. A replayed request that fails with 401
// again is returned to its caller unchanged. With no refresh credential in
// the store, a 401 signs the session out without contacting the token
// endpoint.
//
// # Timeouts
//
// Requests whose context has no deadline are bounded by the request timeout
// (30s by default). The refresh exchange is detached from the caller that
// triggered it and bounded by its own timeout (10s by default). A queued
// caller whose context ends stops waiting and leaves the queue.
//
// # Errors
//
// Failed calls return *Error, carrying the HTTP status (0 for transport
// failures), the raw payload and the request descriptor. Use
// errors.Is(err, ErrUnauthorized) and errors.Is(err, ErrRefreshFailed) to
// classify them.
package client
