package api

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"

	StatusActive = "active"
)

type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
	Status   string `json:"status"`
	Blocked  bool   `json:"blocked"`
}

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
	User    User   `json:"user"`
}

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterResponse struct {
	User    User   `json:"user"`
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type RefreshRequest struct {
	Refresh string `json:"refresh"`
}

// RefreshResponse carries a new refresh credential only when the server
// rotates them.
type RefreshResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh,omitempty"`
}

// UserPatch updates a user. Nil fields are left unchanged.
type UserPatch struct {
	Blocked  *bool   `json:"blocked,omitempty"`
	Role     *Role   `json:"role,omitempty"`
	Status   *string `json:"status,omitempty"`
	Password *string `json:"password,omitempty"`
}

// ErrorResponse is the body of 401, 403 and 404 replies. Validation
// failures are instead a map of field name to messages.
type ErrorResponse struct {
	Detail string `json:"detail"`
	Code   string `json:"code,omitempty"`
}

const (
	CodeTokenNotValid = "token_not_valid"

	DetailNotAuthenticated = "Authentication credentials were not provided."
	DetailTokenNotValid    = "Given token not valid for any token type"
	DetailRefreshNotValid  = "Token is invalid or expired"
	DetailNoAccount        = "No active account found with the given credentials"
	DetailForbidden        = "You do not have permission to perform this action."
	DetailNotFound         = "Not found."
	DetailCartEmpty        = "Cart is empty."
)
