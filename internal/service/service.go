// Package service implements the business logic of the fake storefront API:
// accounts, token exchange, password resets, the catalog, carts, wishlists,
// orders, contact messages and shop analytics.
package service

import (
	"errors"
	"log"
	"os"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"git.sr.ht/~jakintosh/storefront/internal/tokens"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountNotFound    = errors.New("account not found")
	ErrTokenInvalid       = errors.New("token invalid")
	ErrTokenNotFound      = errors.New("token not found")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not found")
	ErrCartEmpty          = errors.New("cart is empty")
	ErrResetCodeInvalid   = errors.New("reset code invalid")
	ErrInternal           = errors.New("internal error")
)

// PasswordMode controls bcrypt cost for password hashing.
// Use PasswordModeProduction for real deployments and PasswordModeTesting only in tests.
type PasswordMode int

const (
	// PasswordModeProduction uses bcrypt.DefaultCost (10) for secure password hashing.
	PasswordModeProduction PasswordMode = iota
	// PasswordModeTesting uses bcrypt.MinCost (4) for fast test execution.
	// WARNING: This mode will panic if used outside of go test.
	PasswordModeTesting
)

// Cost returns the bcrypt cost for this mode.
// Panics if PasswordModeTesting is used outside of a test environment.
func (m PasswordMode) Cost() int {
	switch m {
	case PasswordModeTesting:
		if !underTest() {
			panic("service: PasswordModeTesting used outside of test environment")
		}
		return bcrypt.MinCost
	default:
		return bcrypt.DefaultCost
	}
}

// underTest reports whether the binary was started by go test, which always
// passes -test.* flags.
func underTest() bool {
	for _, arg := range os.Args {
		if strings.HasPrefix(arg, "-test.") {
			log.Println("WARNING: Using insecure password hashing (testing mode)")
			return true
		}
	}
	return false
}

const (
	DefaultAccessTTL  = 5 * time.Minute
	DefaultRefreshTTL = 24 * time.Hour
	DefaultResetTTL   = 10 * time.Minute
)

// Config tunes token lifetimes and refresh behavior.
type Config struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	// RotateRefresh makes every refresh exchange return a new refresh
	// token and revoke the one it was given.
	RotateRefresh bool

	// ResetCodeTTL bounds how long a password reset code stays usable.
	ResetCodeTTL time.Duration

	// Mailer delivers password reset codes. Codes are logged when unset.
	Mailer Mailer

	PasswordMode PasswordMode
}

// Stores groups the persistence the service depends on.
type Stores struct {
	Users     UserStore
	Refresh   RefreshStore
	Products  ProductStore
	Cart      CartStore
	Wishlist  WishlistStore
	Orders    OrderStore
	Contact   ContactStore
	Resets    ResetStore
	Analytics AnalyticsStore
}

// Service coordinates authentication, account management and shop
// operations. It delegates persistence to its Stores.
type Service struct {
	users     UserStore
	refresh   RefreshStore
	products  ProductStore
	cart      CartStore
	wishlist  WishlistStore
	orders    OrderStore
	contact   ContactStore
	resets    ResetStore
	analytics AnalyticsStore

	tokenIssuer    tokens.Issuer
	tokenValidator tokens.Validator
	config         Config
}

func New(
	stores Stores,
	issuer tokens.Issuer,
	validator tokens.Validator,
	config Config,
) *Service {
	if config.AccessTTL <= 0 {
		config.AccessTTL = DefaultAccessTTL
	}
	if config.RefreshTTL <= 0 {
		config.RefreshTTL = DefaultRefreshTTL
	}
	if config.ResetCodeTTL <= 0 {
		config.ResetCodeTTL = DefaultResetTTL
	}
	if config.Mailer == nil {
		config.Mailer = LogMailer{}
	}
	return &Service{
		users:          stores.Users,
		refresh:        stores.Refresh,
		products:       stores.Products,
		cart:           stores.Cart,
		wishlist:       stores.Wishlist,
		orders:         stores.Orders,
		contact:        stores.Contact,
		resets:         stores.Resets,
		analytics:      stores.Analytics,
		tokenIssuer:    issuer,
		tokenValidator: validator,
		config:         config,
	}
}

func (s *Service) Config() Config {
	return s.config
}
