package service

import (
	"time"

	"git.sr.ht/~jakintosh/storefront/internal/tokens"
	"git.sr.ht/~jakintosh/storefront/pkg/api"
)

// Lookups that find nothing return an error wrapping sql.ErrNoRows.

// UserStore handles persistence of accounts
type UserStore interface {
	InsertUser(username string, email string, secret []byte, role api.Role) (*api.User, error)
	GetUser(id int64) (*api.User, error)
	GetUserByEmail(email string) (*api.User, []byte, error)
	UsernameExists(username string) (bool, error)
	EmailExists(email string) (bool, error)
	ListUsers() ([]api.User, error)
	UpdateUser(id int64, update UserUpdate) (*api.User, error)
	DeleteUser(id int64) (deleted bool, err error)
}

// UserUpdate carries the account fields to change; nil fields are kept.
type UserUpdate struct {
	Blocked *bool
	Role    *api.Role
	Status  *string
	Secret  []byte
}

// RefreshStore handles persistence of issued refresh tokens
type RefreshStore interface {
	InsertRefreshToken(token *tokens.Token) error
	RefreshTokenExists(id string) (bool, error)
	DeleteRefreshToken(id string) (deleted bool, err error)
	DeleteUserRefreshTokens(userID int64) error
}

// ProductStore handles the catalog and uploaded product images
type ProductStore interface {
	ListProducts(category string) ([]api.Product, error)
	GetProduct(id int64) (*api.Product, error)
	InsertProduct(p *api.Product) (*api.Product, error)
	UpdateProduct(p *api.Product) error
	DeleteProduct(id int64) (deleted bool, err error)
	InsertImage(name string, contentType string, data []byte) error
	GetImage(name string) (contentType string, data []byte, err error)
}

// CartStore handles each user's cart lines
type CartStore interface {
	ListCart(userID int64) ([]api.CartItem, error)
	GetCartItem(userID int64, itemID int64) (*api.CartItem, error)
	FindCartItem(userID int64, productID int64) (*api.CartItem, error)
	InsertCartItem(userID int64, productID int64, quantity int) (int64, error)
	UpdateCartQuantity(userID int64, itemID int64, quantity int) (updated bool, err error)
	DeleteCartItem(userID int64, itemID int64) (deleted bool, err error)
}

// WishlistStore handles each user's saved products
type WishlistStore interface {
	ListWishlist(userID int64) ([]api.WishlistItem, error)
	WishlistContains(userID int64, productID int64) (bool, error)
	InsertWishlistItem(userID int64, productID int64) (int64, error)
	DeleteWishlistItem(userID int64, itemID int64) (deleted bool, err error)
}

// OrderStore handles orders and their line items
type OrderStore interface {
	CreateOrderFromCart(userID int64, address string) (*api.Order, error)
	CreateOrder(userID int64, address string, lines []api.OrderLine) (*api.Order, error)
	ListOrders(userID int64) ([]api.Order, error)
	ListAllOrders() ([]api.Order, error)
	GetOrder(id int64) (*api.Order, error)
	UpdateOrderStatus(id int64, status string) (updated bool, err error)
}

// ContactStore handles messages sent through the contact form
type ContactStore interface {
	InsertMessage(name string, email string, message string) (*api.ContactMessage, error)
	ListMessages() ([]api.ContactMessage, error)
	UpdateMessage(id int64, patch api.ContactMessagePatch) (*api.ContactMessage, error)
	DeleteMessage(id int64) (deleted bool, err error)
}

// ResetStore handles pending password reset codes, one per email
type ResetStore interface {
	PutResetCode(email string, code []byte, expiration time.Time) error
	GetResetCode(email string) (*ResetCode, error)
	CountResetAttempt(email string) error
	DeleteResetCode(email string) error
}

// ResetCode is a stored reset code. Only its bcrypt hash is kept.
type ResetCode struct {
	Hash       []byte
	Expiration time.Time
	Attempts   int
}

// AnalyticsStore reads shop-wide figures
type AnalyticsStore interface {
	Analytics(topProducts int) (*api.Analytics, error)
	TopSelling(limit int) ([]api.Product, error)
}
