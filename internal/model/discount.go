package model

import "time"

// DiscountGrant is a percentage-off offer redeemed from a scanned code.
type DiscountGrant struct {
	ID          int64      `json:"id" db:"id"`
	Code        string     `json:"code" db:"code"`
	Description string     `json:"description" db:"description"`
	Percentage  int        `json:"percentage" db:"percentage"`
	Username    string     `json:"username" db:"username"`
	IsUsed      bool       `json:"isUsed" db:"is_used"`
	ScannedAt   time.Time  `json:"scannedAt" db:"scanned_at"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty" db:"expires_at"`
}

// Expired reports whether the grant has an expiry before now.
func (d DiscountGrant) Expired(now time.Time) bool {
	return d.ExpiresAt != nil && d.ExpiresAt.Before(now)
}

// ScanRequest carries the raw text read from a QR code.
type ScanRequest struct {
	Content string `json:"content" validate:"required,max=2048"`
}

// DiscountList is a user's discounts plus the count of usable ones.
type DiscountList struct {
	Discounts   []DiscountGrant `json:"discounts"`
	ActiveCount int             `json:"activeCount"`
}
