package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"git.sr.ht/~jakintosh/storefront/pkg/credentials"
)

const waitFor = 5 * time.Second
const tick = 5 * time.Millisecond

// Concurrent 401s share one refresh exchange and all succeed.
func TestRefresh_SingleFlight(t *testing.T) {
	t.Parallel()
	s := setup(t)
	s.signIn(t, "access-expired", "refresh-1")
	release := s.api.gateRefresh()

	ctx := context.Background()
	calls := []<-chan result{
		s.sendAsync(ctx, "/products/"),
		s.sendAsync(ctx, "/cart/"),
		s.sendAsync(ctx, "/wishlist/"),
	}

	// one caller owns the exchange, the other two wait for it
	require.Eventually(t, func() bool { return s.pendingLen() == 2 }, waitFor, tick)
	release()

	for _, ch := range calls {
		r := waitResult(t, ch)
		require.NoError(t, r.err)
		require.Equal(t, http.StatusOK, r.res.Status)
	}

	require.EqualValues(t, 1, s.api.refreshCalls.Load())
	access, _ := s.stored(t, credentials.KeyAccess)
	require.Equal(t, "access-2", access)

	require.EqualValues(t, 1, testutil.ToFloat64(s.client.metrics.refreshes.WithLabelValues(resultSuccess)))
	require.EqualValues(t, 2, testutil.ToFloat64(s.client.metrics.queued))
	require.Zero(t, s.pendingLen())
	require.False(t, s.refreshing())
}

func TestRefresh_SingleFlightMany(t *testing.T) {
	t.Parallel()
	s := setup(t)
	s.signIn(t, "access-expired", "refresh-1")
	release := s.api.gateRefresh()

	const n = 25
	ctx := context.Background()
	calls := make([]<-chan result, n)
	for i := range calls {
		calls[i] = s.sendAsync(ctx, "/products/")
	}

	require.Eventually(t, func() bool { return s.pendingLen() == n-1 }, waitFor, tick)
	release()

	for _, ch := range calls {
		require.NoError(t, waitResult(t, ch).err)
	}
	require.EqualValues(t, 1, s.api.refreshCalls.Load())
}

func TestRefresh_ReleasesInArrivalOrder(t *testing.T) {
	t.Parallel()
	s := setup(t)
	s.signIn(t, "access-expired", "refresh-1")
	release := s.api.gateRefresh()
	ctx := context.Background()

	// setup: enqueue one call at a time so arrival order is known
	trigger := s.sendAsync(ctx, "/orders/")
	require.Eventually(t, func() bool { return s.api.refreshCalls.Load() == 1 }, waitFor, tick)

	paths := []string{"/first/", "/second/", "/third/"}
	queued := make([]<-chan result, 0, len(paths))
	for i, p := range paths {
		queued = append(queued, s.sendAsync(ctx, p))
		require.Eventually(t, func() bool { return s.pendingLen() == i+1 }, waitFor, tick)
	}

	release()
	require.NoError(t, waitResult(t, trigger).err)
	for _, ch := range queued {
		require.NoError(t, waitResult(t, ch).err)
	}

	require.Equal(t, paths, s.logs.attrs("pending_call_released", "path"))
	require.Equal(t, []string{"1", "2", "3"}, s.logs.attrs("pending_call_released", "order"))
}

// The refresh credential is rejected too.
func TestRefresh_FailurePurgesAndSignsOut(t *testing.T) {
	t.Parallel()
	s := setup(t)
	s.signIn(t, "access-expired", "refresh-expired")

	_, err := s.client.Get(context.Background(), "/products/")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrRefreshFailed)

	var refreshErr *RefreshError
	require.True(t, errors.As(err, &refreshErr))
	require.Equal(t, http.StatusUnauthorized, StatusOf(refreshErr.Err))

	require.EqualValues(t, 1, s.api.refreshCalls.Load())
	require.Zero(t, s.store.Len())

	require.Equal(t, 1, s.signOuts.count())
	require.Equal(t, "/login", s.signOuts.routes[0])
	require.ErrorIs(t, s.signOuts.causes[0], ErrRefreshFailed)
	require.EqualValues(t, 1, testutil.ToFloat64(s.client.metrics.signOuts.WithLabelValues(reasonRefreshFailed)))
	require.Equal(t, 1, s.logs.count("refresh_failed"))
}

func TestRefresh_FailureRejectsEveryQueuedCall(t *testing.T) {
	t.Parallel()
	s := setup(t)
	s.signIn(t, "access-expired", "refresh-1")
	s.api.refreshFails = true
	release := s.api.gateRefresh()

	ctx := context.Background()
	calls := []<-chan result{
		s.sendAsync(ctx, "/products/"),
		s.sendAsync(ctx, "/cart/"),
		s.sendAsync(ctx, "/orders/"),
	}
	require.Eventually(t, func() bool { return s.pendingLen() == 2 }, waitFor, tick)
	release()

	var errs []error
	for _, ch := range calls {
		r := waitResult(t, ch)
		require.ErrorIs(t, r.err, ErrRefreshFailed)
		errs = append(errs, r.err)
	}

	// every caller sees the same failure
	for _, err := range errs[1:] {
		require.Same(t, errs[0].(*RefreshError), err.(*RefreshError))
	}

	require.EqualValues(t, 1, s.api.refreshCalls.Load())
	require.Zero(t, s.store.Len())
	require.Equal(t, 1, s.signOuts.count())
	require.Zero(t, s.pendingLen())
	require.False(t, s.refreshing())
}

// Nothing stored, so there is nothing to refresh.
func TestRefresh_NoRefreshCredential(t *testing.T) {
	t.Parallel()
	s := setup(t)

	_, err := s.client.Get(context.Background(), "/orders/")
	require.ErrorIs(t, err, ErrUnauthorized)
	require.NotErrorIs(t, err, ErrRefreshFailed)

	require.Zero(t, s.api.refreshCalls.Load())
	require.Equal(t, 1, s.signOuts.count())
	require.Equal(t, "/login", s.signOuts.routes[0])
	require.EqualValues(t, 1, testutil.ToFloat64(s.client.metrics.signOuts.WithLabelValues(reasonNoRefresh)))
}

func TestRefresh_AccessWithoutRefreshIsPurged(t *testing.T) {
	t.Parallel()
	s := setup(t, WithSignInRoute("/account/sign-in"))
	ctx := context.Background()
	require.NoError(t, s.store.Set(ctx, credentials.KeyAccess, "access-expired"))
	require.NoError(t, credentials.SaveIdentity(ctx, s.store, &credentials.Identity{ID: 9}))

	_, err := s.client.Get(ctx, "/cart/")
	require.ErrorIs(t, err, ErrUnauthorized)

	require.Zero(t, s.api.refreshCalls.Load())
	require.Zero(t, s.store.Len())
	require.Equal(t, "/account/sign-in", s.signOuts.routes[0])
}

// A request already replayed once is not replayed again.
func TestRefresh_RetriedRequestSurfaces(t *testing.T) {
	t.Parallel()
	s := setup(t)
	s.signIn(t, "access-expired", "refresh-1")

	req, err := NewRequest(http.MethodGet, "/products/", nil)
	require.NoError(t, err)
	req.Retried = true

	_, err = s.client.Do(context.Background(), req)
	require.ErrorIs(t, err, ErrUnauthorized)
	require.Zero(t, s.api.refreshCalls.Load())
	require.Zero(t, s.signOuts.count())

	// the session is left alone
	refresh, ok := s.stored(t, credentials.KeyRefresh)
	require.True(t, ok)
	require.Equal(t, "refresh-1", refresh)
}

func TestRefresh_NoInfiniteRetry(t *testing.T) {
	t.Parallel()
	s := setup(t)
	s.signIn(t, "access-expired", "refresh-1")

	_, err := s.client.Get(context.Background(), "/forbidden/")
	require.ErrorIs(t, err, ErrUnauthorized)

	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	require.True(t, apiErr.Request.Retried)

	require.EqualValues(t, 1, s.api.refreshCalls.Load())
	require.Len(t, s.api.requests(), 2)
	require.Zero(t, s.signOuts.count())

	// the refreshed session survives
	access, _ := s.stored(t, credentials.KeyAccess)
	require.Equal(t, "access-2", access)
}

func TestRefresh_ReplayIsVerbatim(t *testing.T) {
	t.Parallel()
	s := setup(t)
	s.signIn(t, "access-expired", "refresh-1")

	_, err := s.client.Patch(context.Background(), "/orders/7/", map[string]string{"status": "Cancelled"},
		WithHeader("X-Client", "storefront-tests"))
	require.NoError(t, err)

	seen := s.api.requests()
	require.Len(t, seen, 2)
	first, replay := seen[0], seen[1]

	require.Equal(t, "Bearer access-expired", first.Authorization)
	require.Equal(t, "Bearer access-2", replay.Authorization)
	require.Equal(t, first.Method, replay.Method)
	require.Equal(t, first.Path, replay.Path)
	require.Equal(t, first.Body, replay.Body)
	require.Equal(t, first.ContentType, replay.ContentType)
	require.NotEmpty(t, first.RequestID)
	require.Equal(t, first.RequestID, replay.RequestID)
}

func TestRefresh_StoresRotatedRefreshCredential(t *testing.T) {
	t.Parallel()
	s := setup(t)
	s.signIn(t, "access-expired", "refresh-1")
	s.api.rotated = "refresh-2"

	_, err := s.client.Get(context.Background(), "/products/")
	require.NoError(t, err)

	refresh, _ := s.stored(t, credentials.KeyRefresh)
	require.Equal(t, "refresh-2", refresh)
}

func TestRefresh_KeepsRefreshCredentialWithoutRotation(t *testing.T) {
	t.Parallel()
	s := setup(t)
	s.signIn(t, "access-expired", "refresh-1")

	_, err := s.client.Get(context.Background(), "/products/")
	require.NoError(t, err)

	refresh, _ := s.stored(t, credentials.KeyRefresh)
	require.Equal(t, "refresh-1", refresh)
	identity, err := credentials.LoadIdentity(context.Background(), s.store)
	require.NoError(t, err)
	require.Equal(t, "alice", identity.Username)
}

func TestRefresh_ReEntrant(t *testing.T) {
	t.Parallel()
	s := setup(t)
	s.signIn(t, "access-expired", "refresh-1")
	ctx := context.Background()

	_, err := s.client.Get(ctx, "/products/")
	require.NoError(t, err)

	// the server expires the new credential too
	s.api.mu.Lock()
	s.api.validAccess = "access-other"
	s.api.nextAccess = "access-3"
	s.api.mu.Unlock()

	_, err = s.client.Get(ctx, "/products/")
	require.NoError(t, err)

	require.EqualValues(t, 2, s.api.refreshCalls.Load())
	access, _ := s.stored(t, credentials.KeyAccess)
	require.Equal(t, "access-3", access)
}

func TestRefresh_LateUnauthorizedUsesNewerCredential(t *testing.T) {
	t.Parallel()
	s := setup(t)
	s.signIn(t, "access-old", "refresh-1")

	// another caller finishes a refresh while this request is on the wire
	var once sync.Once
	s.api.mu.Lock()
	s.api.validAccess = "access-new"
	s.api.onRequest = func(r *http.Request) {
		once.Do(func() {
			_ = s.store.Set(context.Background(), credentials.KeyAccess, "access-new")
		})
	}
	s.api.mu.Unlock()

	_, err := s.client.Get(context.Background(), "/products/")
	require.NoError(t, err)

	require.Zero(t, s.api.refreshCalls.Load())
	seen := s.api.requests()
	require.Len(t, seen, 2)
	require.Equal(t, "Bearer access-new", seen[1].Authorization)
}

func TestRefresh_ExchangeCarriesNoBearer(t *testing.T) {
	t.Parallel()

	auth := make(chan string, 1)
	mux := http.NewServeMux()
	mux.HandleFunc("/token/refresh/", func(w http.ResponseWriter, r *http.Request) {
		auth <- r.Header.Get(HeaderAuthorization)
		writeJSON(w, http.StatusOK, map[string]string{"access": "fresh"})
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(HeaderAuthorization) != "Bearer fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	server := newServer(t, mux)

	store := credentials.NewMemoryStore()
	require.NoError(t, credentials.SavePair(context.Background(), store, "stale", "refresh-1"))
	c, err := New(server, store)
	require.NoError(t, err)

	_, err = c.Get(context.Background(), "/me/")
	require.NoError(t, err)
	require.Len(t, auth, 1)
	require.Empty(t, <-auth)
}

func TestRefresh_EmptyAccessInResponseFails(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/token/refresh/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{})
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	server := newServer(t, mux)

	store := credentials.NewMemoryStore()
	require.NoError(t, credentials.SavePair(context.Background(), store, "stale", "refresh-1"))
	c, err := New(server, store)
	require.NoError(t, err)

	_, err = c.Get(context.Background(), "/me/")
	require.ErrorIs(t, err, ErrRefreshFailed)
	require.Zero(t, store.Len())
}

func TestRefresh_ExchangeTimeout(t *testing.T) {
	t.Parallel()
	s := setup(t, WithRefreshTimeout(50*time.Millisecond))
	s.signIn(t, "access-expired", "refresh-1")
	s.api.gateRefresh()

	_, err := s.client.Get(context.Background(), "/products/")
	require.ErrorIs(t, err, ErrRefreshFailed)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Zero(t, s.store.Len())
}

func TestRefresh_QueuedCallerCanGiveUp(t *testing.T) {
	t.Parallel()
	s := setup(t)
	s.signIn(t, "access-expired", "refresh-1")
	release := s.api.gateRefresh()

	trigger := s.sendAsync(context.Background(), "/products/")
	require.Eventually(t, func() bool { return s.api.refreshCalls.Load() == 1 }, waitFor, tick)

	ctx, cancel := context.WithCancel(context.Background())
	impatient := s.sendAsync(ctx, "/cart/")
	require.Eventually(t, func() bool { return s.pendingLen() == 1 }, waitFor, tick)

	cancel()
	r := waitResult(t, impatient)
	require.ErrorIs(t, r.err, context.Canceled)
	require.Zero(t, s.pendingLen())

	release()
	require.NoError(t, waitResult(t, trigger).err)
	require.Zero(t, s.logs.count("pending_call_released"))
}

func TestRefresh_ExchangeOutlivesTriggeringCaller(t *testing.T) {
	t.Parallel()
	s := setup(t)
	s.signIn(t, "access-expired", "refresh-1")
	release := s.api.gateRefresh()

	ctx, cancel := context.WithCancel(context.Background())
	trigger := s.sendAsync(ctx, "/products/")
	require.Eventually(t, func() bool { return s.api.refreshCalls.Load() == 1 }, waitFor, tick)

	waiting := s.sendAsync(context.Background(), "/cart/")
	require.Eventually(t, func() bool { return s.pendingLen() == 1 }, waitFor, tick)

	// the caller that started the exchange leaves; the exchange continues
	cancel()
	release()

	require.ErrorIs(t, waitResult(t, trigger).err, context.Canceled)
	r := waitResult(t, waiting)
	require.NoError(t, r.err)
	require.Equal(t, http.StatusOK, r.res.Status)

	access, _ := s.stored(t, credentials.KeyAccess)
	require.Equal(t, "access-2", access)
}

func TestMetrics_SharedRegistry(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	store := credentials.NewMemoryStore()

	first, err := New("http://example.com", store, WithMetrics(reg))
	require.NoError(t, err)
	second, err := New("http://example.com", store, WithMetrics(reg))
	require.NoError(t, err)

	// both clients report through the same collectors
	first.metrics.queued.Inc()
	second.metrics.queued.Inc()
	require.EqualValues(t, 2, testutil.ToFloat64(first.metrics.queued))

	count, err := testutil.GatherAndCount(reg, "storefront_client_pending_calls_total")
	require.NoError(t, err)
	require.Equal(t, 1, count)
}

func newServer(t *testing.T, h http.Handler) string {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)
	return server.URL
}
