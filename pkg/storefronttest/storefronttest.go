// Package storefronttest runs a complete storefront API in process for
// tests: SQLite in memory, real token handling, real routing.
package storefronttest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"git.sr.ht/~jakintosh/storefront/internal/api"
	"git.sr.ht/~jakintosh/storefront/internal/database"
	"git.sr.ht/~jakintosh/storefront/internal/service"
	"git.sr.ht/~jakintosh/storefront/internal/tokens"
	apitypes "git.sr.ht/~jakintosh/storefront/pkg/api"
	"git.sr.ht/~jakintosh/storefront/pkg/credentials"
)

const (
	Password     = "password123"
	IssuerDomain = "storefronttest.local"
)

// Catalog is the product list a server is seeded with by default.
var Catalog = []apitypes.Product{
	{Name: "Desk Lamp", Brand: "Lumen", Gender: "unisex", Category: "lighting", Price: 1999, Description: "Adjustable arm."},
	{Name: "Floor Lamp", Brand: "Lumen", Gender: "unisex", Category: "lighting", Price: 8900, Description: "Tall and warm."},
	{Name: "Trail Runner", Brand: "Stride", Gender: "women", Category: "shoes", Price: 12050, Description: "Grippy sole."},
}

type config struct {
	accessTTL  time.Duration
	refreshTTL time.Duration
	rotate     bool
	resetTTL   time.Duration
	catalog    []apitypes.Product
}

type Option func(*config)

func WithAccessTTL(d time.Duration) Option  { return func(c *config) { c.accessTTL = d } }
func WithRefreshTTL(d time.Duration) Option { return func(c *config) { c.refreshTTL = d } }

// WithRotation makes every refresh hand out a new refresh token and retire
// the old one.
func WithRotation() Option { return func(c *config) { c.rotate = true } }

// WithResetCodeTTL sets how long password reset codes stay usable.
func WithResetCodeTTL(d time.Duration) Option { return func(c *config) { c.resetTTL = d } }

// WithCatalog replaces the default catalog; nil seeds nothing.
func WithCatalog(products []apitypes.Product) Option {
	return func(c *config) { c.catalog = products }
}

// Session is a token pair minted directly, without a login round trip.
type Session struct {
	User             *apitypes.User
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// Server is a running fake storefront API.
type Server struct {
	*httptest.Server

	Service  *service.Service
	Products []apitypes.Product

	db           *database.SQLiteStore
	issuer       tokens.Issuer
	refreshTTL   time.Duration
	refreshCalls atomic.Int32
	outbox       *outbox
}

// outbox keeps the last reset code mailed to each address.
type outbox struct {
	mu    sync.Mutex
	codes map[string]string
}

func (o *outbox) SendResetCode(email string, code string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.codes[email] = code
	return nil
}

func (o *outbox) code(email string) (string, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	code, ok := o.codes[email]
	return code, ok
}

// New starts a server and stops it when the test ends.
func New(t testing.TB, opts ...Option) *Server {
	t.Helper()

	cfg := config{
		accessTTL:  service.DefaultAccessTTL,
		refreshTTL: service.DefaultRefreshTTL,
		catalog:    Catalog,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	db, err := database.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("storefronttest: open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	issuer, validator := tokens.InitServer([]byte("storefronttest-signing-key"), IssuerDomain)
	mail := &outbox{codes: map[string]string{}}
	svc := service.New(
		db.Stores(),
		issuer,
		validator,
		service.Config{
			AccessTTL:     cfg.accessTTL,
			RefreshTTL:    cfg.refreshTTL,
			RotateRefresh: cfg.rotate,
			ResetCodeTTL:  cfg.resetTTL,
			Mailer:        mail,
			PasswordMode:  service.PasswordModeTesting,
		},
	)

	if len(cfg.catalog) > 0 {
		seed := append([]apitypes.Product(nil), cfg.catalog...)
		if err := svc.SeedProducts(seed); err != nil {
			t.Fatalf("storefronttest: seed catalog: %v", err)
		}
	}
	products, err := svc.ListProducts("")
	if err != nil {
		t.Fatalf("storefronttest: list catalog: %v", err)
	}

	s := &Server{
		Service:    svc,
		Products:   products,
		db:         db,
		issuer:     issuer,
		refreshTTL: cfg.refreshTTL,
		outbox:     mail,
	}
	router := api.New(svc, apitypes.DefaultPrefix).Router()
	s.Server = httptest.NewServer(s.countRefreshes(router))
	t.Cleanup(s.Close)
	return s
}

func (s *Server) countRefreshes(next http.Handler) http.Handler {
	refreshPath := apitypes.DefaultPrefix + apitypes.RouteRefresh
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && strings.TrimSuffix(r.URL.Path, "/") == strings.TrimSuffix(refreshPath, "/") {
			s.refreshCalls.Add(1)
		}
		next.ServeHTTP(w, r)
	})
}

// BaseURL is the API root a client should be pointed at.
func (s *Server) BaseURL() string { return s.URL + apitypes.DefaultPrefix }

// RefreshCalls counts token refresh requests received so far.
func (s *Server) RefreshCalls() int { return int(s.refreshCalls.Load()) }

// CreateUser registers username with Password and an @example.com email.
func (s *Server) CreateUser(t testing.TB, username string) *apitypes.User {
	t.Helper()
	res, err := s.Service.Register(username, username+"@example.com", Password)
	if err != nil {
		t.Fatalf("storefronttest: register %s: %v", username, err)
	}
	return &res.User
}

func (s *Server) CreateAdmin(t testing.TB, username string) *apitypes.User {
	t.Helper()
	user, err := s.Service.CreateAdmin(username, username+"@example.com", Password)
	if err != nil {
		t.Fatalf("storefronttest: create admin %s: %v", username, err)
	}
	return user
}

// SetBlocked flips a user's blocked flag directly in the database.
func (s *Server) SetBlocked(t testing.TB, userID int64, blocked bool) {
	t.Helper()
	_, err := s.db.UpdateUser(userID, service.UserUpdate{Blocked: &blocked})
	if err != nil {
		t.Fatalf("storefronttest: block user %d: %v", userID, err)
	}
}

// ResetCode returns the last password reset code sent to email.
func (s *Server) ResetCode(t testing.TB, email string) string {
	t.Helper()
	code, ok := s.outbox.code(email)
	if !ok {
		t.Fatalf("storefronttest: no reset code sent to %s", email)
	}
	return code
}

// NewSession mints a token pair for user. A negative accessLifetime gives an
// access token that is already expired, so the first call has to refresh.
func (s *Server) NewSession(t testing.TB, user *apitypes.User, accessLifetime time.Duration) *Session {
	t.Helper()

	access, err := s.issuer.IssueAccessToken(user.ID, accessLifetime)
	if err != nil {
		t.Fatalf("storefronttest: issue access token: %v", err)
	}
	refresh, err := s.issuer.IssueRefreshToken(user.ID, s.refreshTTL)
	if err != nil {
		t.Fatalf("storefronttest: issue refresh token: %v", err)
	}
	if err := s.db.InsertRefreshToken(refresh); err != nil {
		t.Fatalf("storefronttest: store refresh token: %v", err)
	}

	return &Session{
		User:             user,
		AccessToken:      access.Encoded(),
		RefreshToken:     refresh.Encoded(),
		AccessExpiresAt:  access.Expiration(),
		RefreshExpiresAt: refresh.Expiration(),
	}
}

// SignIn mints a session for user and writes it to store the way a login
// would.
func (s *Server) SignIn(
	t testing.TB,
	store credentials.Store,
	user *apitypes.User,
	accessLifetime time.Duration,
) *Session {
	t.Helper()

	session := s.NewSession(t, user, accessLifetime)
	ctx := context.Background()
	if err := credentials.SavePair(ctx, store, session.AccessToken, session.RefreshToken); err != nil {
		t.Fatalf("storefronttest: save credentials: %v", err)
	}
	err := credentials.SaveIdentity(ctx, store, &credentials.Identity{
		ID:       user.ID,
		Username: user.Username,
		Email:    user.Email,
		Role:     credentials.Role(user.Role),
		Status:   user.Status,
		Blocked:  user.Blocked,
	})
	if err != nil {
		t.Fatalf("storefronttest: save identity: %v", err)
	}
	return session
}
