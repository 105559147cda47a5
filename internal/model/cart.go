package model

import "time"

// CartLine is one product in a user's cart.
type CartLine struct {
	ID           int64     `json:"id" db:"id"`
	ProductID    string    `json:"productId" db:"product_id"`
	ProductName  string    `json:"productName" db:"product_name"`
	ProductPrice string    `json:"productPrice" db:"product_price"`
	PriceValue   float64   `json:"priceValue" db:"price_value"`
	Quantity     int       `json:"quantity" db:"quantity"`
	Category     string    `json:"category" db:"category"`
	Description  string    `json:"description" db:"description"`
	Manufacturer string    `json:"manufacturer" db:"manufacturer"`
	Username     string    `json:"username" db:"username"`
	AddedAt      time.Time `json:"addedAt" db:"added_at"`
}

// AddCartItemRequest is the payload for adding a product to a cart.
// PriceValue is derived from ProductPrice when omitted.
type AddCartItemRequest struct {
	ProductID    string   `json:"productId" validate:"required,max=50"`
	ProductName  string   `json:"productName" validate:"required,max=255"`
	ProductPrice string   `json:"productPrice" validate:"max=50"`
	PriceValue   *float64 `json:"priceValue,omitempty" validate:"omitempty,gte=0"`
	Quantity     int      `json:"quantity" validate:"gte=0"`
	Category     string   `json:"category" validate:"max=100"`
	Description  string   `json:"description"`
	Manufacturer string   `json:"manufacturer" validate:"max=255"`
}

// UpdateQuantityRequest sets a line quantity; zero or less removes the line.
type UpdateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

// CartSummary is the cart with its derived totals.
type CartSummary struct {
	Username        string     `json:"username"`
	Lines           []CartLine `json:"lines"`
	TotalItems      int        `json:"totalItems"`
	Subtotal        float64    `json:"subtotal"`
	IsMember        bool       `json:"isMember"`
	DiscountPercent int        `json:"discountPercent"`
	DiscountAmount  float64    `json:"discountAmount"`
	Total           float64    `json:"total"`
}

// Empty reports whether the cart has no lines.
func (c *CartSummary) Empty() bool {
	return c == nil || len(c.Lines) == 0
}
