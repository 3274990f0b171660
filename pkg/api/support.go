package api

import "time"

type ContactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// MessageResponse is the acknowledgement body of contact and password
// reset calls.
type MessageResponse struct {
	Message string `json:"message"`
}

type ContactMessage struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"is_read"`
	Replied   bool      `json:"replied"`
	CreatedAt time.Time `json:"created_at"`
}

// ContactMessagePatch changes a message's flags; nil fields are kept.
type ContactMessagePatch struct {
	IsRead  *bool `json:"is_read,omitempty"`
	Replied *bool `json:"replied,omitempty"`
}

type Analytics struct {
	Totals       AnalyticsTotals `json:"totals"`
	MonthlySales []MonthlySales  `json:"monthly_sales"`
	StatusCounts map[string]int  `json:"status_counts"`
	TopProducts  []TopProduct    `json:"top_products"`
}

// AnalyticsTotals counts the whole shop. Sales leave out cancelled orders.
type AnalyticsTotals struct {
	TotalSales    Price `json:"total_sales"`
	TotalOrders   int   `json:"total_orders"`
	TotalUsers    int   `json:"total_users"`
	TotalProducts int   `json:"total_products"`
	TotalAdmins   int   `json:"total_admins"`
}

// MonthlySales is one calendar month, "2006-01", of non-cancelled orders.
type MonthlySales struct {
	Month  string `json:"month"`
	Sales  Price  `json:"sales"`
	Orders int    `json:"orders"`
}

type TopProduct struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Sold int    `json:"sold"`
}

type ResetRequest struct {
	Email string `json:"email"`
}

type ResetVerifyRequest struct {
	Email       string `json:"email"`
	OTP         string `json:"otp"`
	NewPassword string `json:"new_password"`
}

// ResetError is the failure body of password reset calls.
type ResetError struct {
	Error string `json:"error"`
}

const (
	MessageContactReceived = "Thank you for contacting us! We'll get back to you soon."
	MessageResetSent       = "If an account exists for that email, an OTP has been sent."
	MessageResetDone       = "Password has been reset successfully."

	ErrorResetCodeInvalid = "Invalid or expired OTP."
)
