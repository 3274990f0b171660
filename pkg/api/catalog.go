package api

import "time"

type Product struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Brand       string `json:"brand"`
	Gender      string `json:"gender"`
	Category    string `json:"category"`
	Price       Price  `json:"price"`
	Image       string `json:"image,omitempty"`
	Description string `json:"description"`
}

// ProductSummary is the product view embedded in wishlist entries.
type ProductSummary struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Price    Price  `json:"price"`
	Category string `json:"category"`
}

type CartItem struct {
	ID       int64   `json:"id"`
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

type CartItemRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type QuantityRequest struct {
	Quantity int `json:"quantity"`
}

type WishlistItem struct {
	ID             int64          `json:"id"`
	ProductDetails ProductSummary `json:"product_details"`
}

type WishlistRequest struct {
	Product int64 `json:"product"`
}

const (
	OrderPending   = "Pending"
	OrderShipped   = "Shipped"
	OrderDelivered = "Delivered"
	OrderCancelled = "Cancelled"
)

type Order struct {
	ID      int64       `json:"id"`
	User    int64       `json:"user"`
	Total   Price       `json:"total"`
	Address string      `json:"address"`
	Status  string      `json:"status"`
	Date    time.Time   `json:"date"`
	Items   []OrderItem `json:"items"`
}

type OrderItem struct {
	ID       int64   `json:"id"`
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// OrderRequest places an order. Without items it checks out everything in
// the caller's cart; with items it orders exactly those and leaves the cart
// alone.
type OrderRequest struct {
	Address string      `json:"address"`
	Items   []OrderLine `json:"items,omitempty"`
}

type OrderLine struct {
	Product  int64 `json:"product"`
	Quantity int   `json:"quantity"`
}

type StatusRequest struct {
	Status string `json:"status"`
}
