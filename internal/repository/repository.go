package repository

import (
	"context"
	"time"

	"levelup-loyalty/internal/model"

	"github.com/jackc/pgx/v5"
)

// PointsRepository defines data access for the loyalty ledger.
type PointsRepository interface {
	// WithTx returns a repository bound to tx.
	WithTx(tx pgx.Tx) PointsRepository

	// Ensure inserts the user when absent. It reports whether a row was created.
	Ensure(ctx context.Context, user *model.UserPoints) (bool, error)

	// GetByUsername returns ErrNotFound when the user has no ledger row.
	GetByUsername(ctx context.Context, username string) (*model.UserPoints, error)

	// GetForUpdate reads the row and locks it until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, username string) (*model.UserPoints, error)

	GetByReferralCode(ctx context.Context, code string) (*model.UserPoints, error)

	// AddPoints increments points and returns the new balance.
	AddPoints(ctx context.Context, username string, delta int) (int, error)

	SetLevel(ctx context.Context, username string, level int) error

	// RecordPurchase bumps the purchase counter and stamps the last purchase date.
	RecordPurchase(ctx context.Context, username string, date string) error

	SetReferredBy(ctx context.Context, username, referralCode string) error

	// TopUsers returns users ordered by points, highest first.
	TopUsers(ctx context.Context, limit int) ([]model.UserPoints, error)

	// Rank is one plus the number of users with strictly more points.
	Rank(ctx context.Context, username string) (int, error)
}

// PurchaseRepository defines data access for purchase history.
type PurchaseRepository interface {
	WithTx(tx pgx.Tx) PurchaseRepository

	// Create inserts the purchase and fills in its ID and date.
	Create(ctx context.Context, purchase *model.Purchase) error

	// ListByUser returns the newest purchases first; limit <= 0 returns all.
	ListByUser(ctx context.Context, username string, limit int) ([]model.Purchase, error)

	TotalSpent(ctx context.Context, username string) (float64, error)

	Count(ctx context.Context, username string) (int, error)
}

// ReferralRepository defines data access for referrals.
type ReferralRepository interface {
	WithTx(tx pgx.Tx) ReferralRepository

	Create(ctx context.Context, referral *model.Referral) error

	ListByReferrer(ctx context.Context, username string) ([]model.Referral, error)

	CountByReferrer(ctx context.Context, username string) (int, error)

	// GetByReferred returns the referral that brought username in, or ErrNotFound.
	GetByReferred(ctx context.Context, username string) (*model.Referral, error)
}

// CartRepository defines data access for cart lines.
type CartRepository interface {
	WithTx(tx pgx.Tx) CartRepository

	// Upsert inserts the line or, when the product is already in the
	// user's cart, adds line.Quantity to the existing quantity.
	Upsert(ctx context.Context, line *model.CartLine) (*model.CartLine, error)

	// ListByUser returns lines most recently added first.
	ListByUser(ctx context.Context, username string) ([]model.CartLine, error)

	// LockByUser is ListByUser with the rows locked until the transaction ends.
	LockByUser(ctx context.Context, username string) ([]model.CartLine, error)

	UpdateQuantity(ctx context.Context, username string, id int64, quantity int) error

	Delete(ctx context.Context, username string, id int64) error

	// Clear removes every line for username and returns how many were removed.
	Clear(ctx context.Context, username string) (int64, error)

	// DeleteLines removes the given lines when their id and quantity still
	// match and returns how many were removed.
	DeleteLines(ctx context.Context, username string, lines []model.CartLine) (int64, error)
}

// DiscountRepository defines data access for discount grants.
type DiscountRepository interface {
	WithTx(tx pgx.Tx) DiscountRepository

	// Create returns ErrDuplicateKey when the code was already granted to the user.
	Create(ctx context.Context, grant *model.DiscountGrant) error

	Exists(ctx context.Context, username, code string) (bool, error)

	// ListByUser returns grants newest first; activeOnly filters used and expired ones.
	ListByUser(ctx context.Context, username string, activeOnly bool, now time.Time) ([]model.DiscountGrant, error)

	CountActive(ctx context.Context, username string, now time.Time) (int, error)

	MarkUsed(ctx context.Context, username string, id int64) error

	Delete(ctx context.Context, username string, id int64) error

	// DeleteExpired removes grants whose expiry is before now and returns
	// the owner of each removed grant.
	DeleteExpired(ctx context.Context, now time.Time) ([]string, error)
}

// MemberRepository defines data access for membership records.
type MemberRepository interface {
	Upsert(ctx context.Context, member *model.Member) error

	GetByUsername(ctx context.Context, username string) (*model.Member, error)
}
