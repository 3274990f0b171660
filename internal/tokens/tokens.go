// Package tokens issues and validates the HS256 JWTs handed out by the fake
// storefront API. Access and refresh tokens differ only by their token_type
// claim and lifetime.
package tokens

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrTokenMalformed = errors.New("token malformed")
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenInvalid   = errors.New("token invalid")
	ErrTokenWrongType = errors.New("wrong token type")
)

type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
)

// Issuer mints signed tokens for a user.
type Issuer interface {
	IssueAccessToken(userID int64, lifetime time.Duration) (*Token, error)
	IssueRefreshToken(userID int64, lifetime time.Duration) (*Token, error)
}

// Validator checks a signed token and that it is of the expected kind.
type Validator interface {
	Validate(kind Kind, encoded string) (*Token, error)
}

type claims struct {
	TokenType Kind  `json:"token_type"`
	UserID    int64 `json:"user_id"`
	jwt.RegisteredClaims
}

type Token struct {
	kind       Kind
	id         string
	userID     int64
	issuer     string
	issuedAt   time.Time
	expiration time.Time
	encoded    string
}

func (t *Token) Kind() Kind            { return t.kind }
func (t *Token) ID() string            { return t.id }
func (t *Token) UserID() int64         { return t.userID }
func (t *Token) Issuer() string        { return t.issuer }
func (t *Token) IssuedAt() time.Time   { return t.issuedAt }
func (t *Token) Expiration() time.Time { return t.expiration }
func (t *Token) Encoded() string       { return t.encoded }

// Server signs and validates tokens with one shared secret.
type Server struct {
	key          []byte
	issuerDomain string
	now          func() time.Time
}

var _ Issuer = (*Server)(nil)
var _ Validator = (*Server)(nil)

func InitServer(
	key []byte,
	issuerDomain string,
) (
	Issuer,
	Validator,
) {
	s := NewServer(key, issuerDomain)
	return s, s
}

func NewServer(
	key []byte,
	issuerDomain string,
) *Server {
	return &Server{
		key:          key,
		issuerDomain: issuerDomain,
		now:          time.Now,
	}
}

func (s *Server) IssueAccessToken(
	userID int64,
	lifetime time.Duration,
) (
	*Token,
	error,
) {
	return s.issue(KindAccess, userID, lifetime)
}

func (s *Server) IssueRefreshToken(
	userID int64,
	lifetime time.Duration,
) (
	*Token,
	error,
) {
	return s.issue(KindRefresh, userID, lifetime)
}

func (s *Server) issue(
	kind Kind,
	userID int64,
	lifetime time.Duration,
) (
	*Token,
	error,
) {
	now := s.now()
	token := &Token{
		kind:       kind,
		id:         uuid.NewString(),
		userID:     userID,
		issuer:     s.issuerDomain,
		issuedAt:   now,
		expiration: now.Add(lifetime),
	}

	c := claims{
		TokenType: kind,
		UserID:    userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        token.id,
			Issuer:    token.issuer,
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(token.issuedAt),
			ExpiresAt: jwt.NewNumericDate(token.expiration),
		},
	}

	encoded, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign %s token: %v", kind, err)
	}
	token.encoded = encoded
	return token, nil
}

func (s *Server) Validate(
	kind Kind,
	encoded string,
) (
	*Token,
	error,
) {
	c := &claims{}
	_, err := jwt.ParseWithClaims(encoded, c,
		func(*jwt.Token) (any, error) { return s.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuerDomain),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenMalformed):
		return nil, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrTokenExpired
	default:
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	if c.TokenType != kind {
		return nil, fmt.Errorf("%w: want %s, got %q", ErrTokenWrongType, kind, c.TokenType)
	}

	token := &Token{
		kind:    c.TokenType,
		id:      c.ID,
		userID:  c.UserID,
		issuer:  c.Issuer,
		encoded: encoded,
	}
	if c.IssuedAt != nil {
		token.issuedAt = c.IssuedAt.Time
	}
	if c.ExpiresAt != nil {
		token.expiration = c.ExpiresAt.Time
	}
	return token, nil
}
