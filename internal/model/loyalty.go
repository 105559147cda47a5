package model

import (
	"time"

	"levelup-loyalty/internal/levelup"
)

// UserPoints is a user's loyalty ledger row.
type UserPoints struct {
	ID               int64     `json:"id" db:"id"`
	Username         string    `json:"username" db:"username"`
	Points           int       `json:"points" db:"points"`
	Level            int       `json:"level" db:"level"`
	ReferralCode     string    `json:"referralCode" db:"referral_code"`
	ReferredBy       *string   `json:"referredBy,omitempty" db:"referred_by"`
	TotalPurchases   int       `json:"totalPurchases" db:"total_purchases"`
	LastPurchaseDate string    `json:"lastPurchaseDate" db:"last_purchase_date"`
	CreatedAt        time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt        time.Time `json:"updatedAt" db:"updated_at"`
}

// PointsChange describes the effect of a points mutation.
type PointsChange struct {
	Username  string `json:"username"`
	Delta     int    `json:"delta"`
	OldPoints int    `json:"oldPoints"`
	NewPoints int    `json:"newPoints"`
	OldLevel  int    `json:"oldLevel"`
	NewLevel  int    `json:"newLevel"`
}

// LeveledUp reports whether the mutation crossed a level threshold.
func (c PointsChange) LeveledUp() bool {
	return c.NewLevel > c.OldLevel
}

// UserStatus is the loyalty view published to clients.
type UserStatus struct {
	Username string `json:"username"`
	levelup.Status
	Rank             int     `json:"rank"`
	ReferralCode     string  `json:"referralCode"`
	ReferredBy       *string `json:"referredBy,omitempty"`
	TotalPurchases   int     `json:"totalPurchases"`
	LastPurchaseDate string  `json:"lastPurchaseDate,omitempty"`
}

// NewUserStatus combines a ledger row with its computed level view.
func NewUserStatus(u *UserPoints, rank int) UserStatus {
	return UserStatus{
		Username:         u.Username,
		Status:           levelup.StatusFor(u.Points),
		Rank:             rank,
		ReferralCode:     u.ReferralCode,
		ReferredBy:       u.ReferredBy,
		TotalPurchases:   u.TotalPurchases,
		LastPurchaseDate: u.LastPurchaseDate,
	}
}

// LeaderboardEntry is one row of the points ranking.
type LeaderboardEntry struct {
	Rank     int    `json:"rank"`
	Username string `json:"username"`
	Points   int    `json:"points"`
	Level    int    `json:"level"`
	Title    string `json:"title"`
}

// Purchase is an immutable record of a completed checkout.
type Purchase struct {
	ID           int64     `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	TotalAmount  float64   `json:"totalAmount" db:"total_amount"`
	ItemsCount   int       `json:"itemsCount" db:"items_count"`
	PointsEarned int       `json:"pointsEarned" db:"points_earned"`
	BonusPoints  int       `json:"bonusPoints" db:"bonus_points"`
	PurchaseDate time.Time `json:"purchaseDate" db:"purchase_date"`
	OrderNumber  string    `json:"orderNumber" db:"order_number"`
	ItemsSummary string    `json:"itemsSummary" db:"items_summary"`
}

// TotalPoints is the sum of base and bonus points awarded.
func (p Purchase) TotalPoints() int {
	return p.PointsEarned + p.BonusPoints
}

// PurchaseHistory is a user's purchases plus aggregates.
type PurchaseHistory struct {
	Purchases     []Purchase `json:"purchases"`
	TotalSpent    float64    `json:"totalSpent"`
	PurchaseCount int        `json:"purchaseCount"`
}

// Referral records that one user brought another into the program.
type Referral struct {
	ID               int64  `json:"id" db:"id"`
	ReferrerUsername string `json:"referrerUsername" db:"referrer_username"`
	ReferredUsername string `json:"referredUsername" db:"referred_username"`
	ReferralCode     string `json:"referralCode" db:"referral_code"`
	PointsEarned     int    `json:"pointsEarned" db:"points_earned"`
	DateCreated      string `json:"dateCreated" db:"date_created"`
}

// ReferralSummary lists the referrals a user made and who referred them.
type ReferralSummary struct {
	Referrals  []Referral `json:"referrals"`
	Count      int        `json:"count"`
	ReferredBy *Referral  `json:"referredBy,omitempty"`
}

// AddPointsRequest is the payload for manual point grants.
type AddPointsRequest struct {
	Points int `json:"points" validate:"gte=0,lte=1000000"`
}

// ReferralRequest registers a referral either by referrer username or by referral code.
type ReferralRequest struct {
	ReferrerUsername string `json:"referrer" validate:"required_without=ReferralCode,max=100"`
	ReferralCode     string `json:"referralCode" validate:"required_without=ReferrerUsername,max=32"`
	ReferredUsername string `json:"referred" validate:"required,max=100"`
}

// ReferralResponse reports whether the referral was registered.
type ReferralResponse struct {
	Registered bool `json:"registered"`
}
