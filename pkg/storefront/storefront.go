package storefront

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"git.sr.ht/~jakintosh/storefront/pkg/api"
	"git.sr.ht/~jakintosh/storefront/pkg/client"
	"git.sr.ht/~jakintosh/storefront/pkg/credentials"
)

var (
	ErrNotSignedIn         = errors.New("not signed in")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrAccountBlocked      = errors.New("account is blocked")
	ErrEmailTaken          = errors.New("email already exists")
	ErrUsernameTaken       = errors.New("username already exists")
	ErrInvalidRegistration = errors.New("invalid registration")
	ErrAlreadyInWishlist   = errors.New("product already in wishlist")
	ErrOrderNotOwned       = errors.New("access denied")
	ErrResetCodeInvalid    = errors.New("reset code invalid or expired")
	ErrResetRefused        = errors.New("password reset refused")
)

// Shop groups the typed API surfaces over one client.
type Shop struct {
	client *client.Client

	Auth     *Auth
	Products *Products
	Cart     *Cart
	Wishlist *Wishlist
	Orders   *Orders
	Users    *Users

	Contact   *Contact
	Messages  *Messages
	Analytics *Analytics
}

func New(c *client.Client) *Shop {
	s := &Shop{client: c}
	s.Auth = &Auth{shop: s}
	s.Products = &Products{shop: s}
	s.Cart = &Cart{shop: s}
	s.Wishlist = &Wishlist{shop: s}
	s.Orders = &Orders{shop: s}
	s.Users = &Users{shop: s}
	s.Contact = &Contact{shop: s}
	s.Messages = &Messages{shop: s}
	s.Analytics = &Analytics{shop: s}
	return s
}

func (s *Shop) Client() *client.Client { return s.client }

func (s *Shop) store() credentials.Store { return s.client.Store() }

// identity returns the signed-in account, or ErrNotSignedIn.
func (s *Shop) identity(ctx context.Context) (*credentials.Identity, error) {
	identity, err := credentials.LoadIdentity(ctx, s.store())
	if errors.Is(err, credentials.ErrIdentityAbsent) {
		return nil, ErrNotSignedIn
	}
	return identity, err
}

// call sends a request and decodes a JSON reply into out, if out is not nil.
func (s *Shop) call(
	ctx context.Context,
	method string,
	path string,
	body any,
	out any,
	opts ...client.RequestOption,
) error {
	res, err := s.client.Send(ctx, method, path, body, opts...)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return res.Decode(out)
}

func (s *Shop) get(ctx context.Context, path string, out any, opts ...client.RequestOption) error {
	return s.call(ctx, http.MethodGet, path, nil, out, opts...)
}

func identityOf(u *api.User) *credentials.Identity {
	return &credentials.Identity{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Role:     credentials.Role(u.Role),
		Status:   u.Status,
		Blocked:  u.Blocked,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// fieldMessages returns the messages the API gave for field, if err is a
// validation failure.
func fieldMessages(err error, field string) []string {
	var apiErr *client.Error
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadRequest {
		return nil
	}
	return apiErr.Fields()[field]
}
