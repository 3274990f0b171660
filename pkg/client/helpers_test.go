package client

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.sr.ht/~jakintosh/storefront/pkg/credentials"
)

// seenRequest is what the fake API recorded for one protected call.
type seenRequest struct {
	Method        string
	Path          string
	Authorization string
	RequestID     string
	ContentType   string
	Body          []byte
}

// fakeAPI accepts one access credential at a time and exchanges a single
// refresh credential for a new one.
type fakeAPI struct {
	t      *testing.T
	server *httptest.Server

	mu           sync.Mutex
	validAccess  string
	validRefresh string
	nextAccess   string
	rotated      string
	refreshFails bool
	seen         []seenRequest
	onRequest    func(r *http.Request)

	refreshGate  chan struct{}
	refreshCalls atomic.Int32
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()

	api := &fakeAPI{
		t:            t,
		validAccess:  "access-1",
		validRefresh: "refresh-1",
		nextAccess:   "access-2",
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/token/refresh/", api.handleRefresh)
	mux.HandleFunc("/api/", api.handleResource)
	api.server = httptest.NewServer(mux)
	t.Cleanup(api.server.Close)
	return api
}

func (f *fakeAPI) baseURL() string { return f.server.URL + "/api" }

// gateRefresh makes the refresh endpoint block until the returned func runs.
func (f *fakeAPI) gateRefresh() (release func()) {
	gate := make(chan struct{})
	f.mu.Lock()
	f.refreshGate = gate
	f.mu.Unlock()

	var once sync.Once
	release = func() { once.Do(func() { close(gate) }) }
	f.t.Cleanup(release)
	return release
}

func (f *fakeAPI) requests() []seenRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]seenRequest(nil), f.seen...)
}

func (f *fakeAPI) handleRefresh(w http.ResponseWriter, r *http.Request) {
	f.refreshCalls.Add(1)

	f.mu.Lock()
	gate := f.refreshGate
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-time.After(5 * time.Second):
		}
	}

	var body struct {
		Refresh string `json:"refresh"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "malformed"})
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.refreshFails || body.Refresh != f.validRefresh {
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"detail": "Token is invalid or expired",
			"code":   "token_not_valid",
		})
		return
	}

	f.validAccess = f.nextAccess
	res := map[string]string{"access": f.nextAccess}
	if f.rotated != "" {
		res["refresh"] = f.rotated
		f.validRefresh = f.rotated
	}
	writeJSON(w, http.StatusOK, res)
}

func (f *fakeAPI) handleResource(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.seen = append(f.seen, seenRequest{
		Method:        r.Method,
		Path:          r.URL.Path,
		Authorization: r.Header.Get(HeaderAuthorization),
		RequestID:     r.Header.Get(HeaderRequestID),
		ContentType:   r.Header.Get(HeaderContentType),
		Body:          body,
	})
	valid := "Bearer " + f.validAccess
	hook := f.onRequest
	f.mu.Unlock()

	if hook != nil {
		hook(r)
	}

	switch r.URL.Path {
	case "/api/forbidden/":
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "not allowed"})
		return
	case "/api/missing/":
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	case "/api/invalid/":
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"email":    []string{"user with this email already exists."},
			"password": "This password is too short.",
		})
		return
	case "/api/slow/":
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		return
	}

	if r.Header.Get(HeaderAuthorization) != valid {
		writeJSON(w, http.StatusUnauthorized, map[string]string{
			"detail": "Given token not valid for any token type",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"path": r.URL.Path})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// capHandler captures log records in emission order.
type capHandler struct {
	mu      sync.Mutex
	records []slog.Record
}

func (h *capHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *capHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	h.records = append(h.records, r.Clone())
	h.mu.Unlock()
	return nil
}

func (h *capHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *capHandler) WithGroup(string) slog.Handler      { return h }

// attrs returns the value of key for every record with message msg.
func (h *capHandler) attrs(msg, key string) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	var out []string
	for _, r := range h.records {
		if r.Message != msg {
			continue
		}
		r.Attrs(func(a slog.Attr) bool {
			if a.Key == key {
				out = append(out, a.Value.String())
				return false
			}
			return true
		})
	}
	return out
}

func (h *capHandler) count(msg string) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := 0
	for _, r := range h.records {
		if r.Message == msg {
			n++
		}
	}
	return n
}

// signOuts records every forced sign-out.
type signOuts struct {
	mu     sync.Mutex
	routes []string
	causes []error
}

func (s *signOuts) record(_ context.Context, route string, cause error) {
	s.mu.Lock()
	s.routes = append(s.routes, route)
	s.causes = append(s.causes, cause)
	s.mu.Unlock()
}

func (s *signOuts) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.routes)
}

type testSetup struct {
	api      *fakeAPI
	store    *credentials.MemoryStore
	client   *Client
	logs     *capHandler
	signOuts *signOuts
}

func setup(t *testing.T, opts ...Option) *testSetup {
	t.Helper()

	api := newFakeAPI(t)
	store := credentials.NewMemoryStore()
	logs := &capHandler{}
	outs := &signOuts{}

	base := []Option{
		WithLogger(slog.New(logs)),
		WithSignOut(outs.record),
	}
	c, err := New(api.baseURL(), store, append(base, opts...)...)
	require.NoError(t, err)

	return &testSetup{
		api:      api,
		store:    store,
		client:   c,
		logs:     logs,
		signOuts: outs,
	}
}

// signIn stores a credential pair and identity, as a login would.
func (s *testSetup) signIn(t *testing.T, access, refresh string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, credentials.SavePair(ctx, s.store, access, refresh))
	require.NoError(t, credentials.SaveIdentity(ctx, s.store, &credentials.Identity{
		ID:       1,
		Username: "alice",
		Email:    "alice@example.com",
		Role:     credentials.RoleUser,
	}))
}

func (s *testSetup) pendingLen() int {
	s.client.refresh.mu.Lock()
	defer s.client.refresh.mu.Unlock()
	return len(s.client.refresh.pending)
}

func (s *testSetup) refreshing() bool {
	s.client.refresh.mu.Lock()
	defer s.client.refresh.mu.Unlock()
	return s.client.refresh.refreshing
}

func (s *testSetup) stored(t *testing.T, key string) (string, bool) {
	t.Helper()
	v, ok, err := s.store.Get(context.Background(), key)
	require.NoError(t, err)
	return v, ok
}

type result struct {
	res *Response
	err error
}

// sendAsync dispatches a GET in the background.
func (s *testSetup) sendAsync(ctx context.Context, path string) <-chan result {
	out := make(chan result, 1)
	go func() {
		res, err := s.client.Get(ctx, path)
		out <- result{res: res, err: err}
	}()
	return out
}

func waitResult(t *testing.T, ch <-chan result) result {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for call to finish")
		return result{}
	}
}
