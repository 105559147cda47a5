package service

import (
	"context"
	"time"

	"levelup-loyalty/internal/model"
	"levelup-loyalty/internal/repository"
	"levelup-loyalty/internal/watch"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// LedgerService manages loyalty points and levels.
type LedgerService interface {
	// EnsureUser enrolls username with the welcome bonus when absent.
	EnsureUser(ctx context.Context, username string) (*model.UserPoints, error)

	// AddPoints credits delta points and recomputes the level in one transaction.
	AddPoints(ctx context.Context, username string, delta int) (*model.PointsChange, error)

	Status(ctx context.Context, username string) (*model.UserStatus, error)

	// TopUsers returns the leaderboard; limit <= 0 uses the configured size.
	TopUsers(ctx context.Context, limit int) ([]model.LeaderboardEntry, error)

	Rank(ctx context.Context, username string) (int, error)

	WatchStatus(ctx context.Context, username string) (*watch.Subscription[model.UserStatus], error)

	WatchLeaderboard(ctx context.Context) (*watch.Subscription[[]model.LeaderboardEntry], error)
}

// CartService manages shopping carts.
type CartService interface {
	AddItem(ctx context.Context, username string, req *model.AddCartItemRequest) (*model.CartLine, error)

	// SetQuantity updates a line; a quantity of zero or less removes it.
	SetQuantity(ctx context.Context, username string, lineID int64, quantity int) error

	RemoveItem(ctx context.Context, username string, lineID int64) error

	Clear(ctx context.Context, username string) error

	Summary(ctx context.Context, username string) (*model.CartSummary, error)

	WatchCart(ctx context.Context, username string) (*watch.Subscription[model.CartSummary], error)
}

// CheckoutService turns a cart into a purchase.
type CheckoutService interface {
	Checkout(ctx context.Context, username string) (*model.Purchase, error)

	// History returns the newest purchases first; limit <= 0 returns all.
	History(ctx context.Context, username string, limit int) (*model.PurchaseHistory, error)

	WatchPurchases(ctx context.Context, username string) (*watch.Subscription[model.PurchaseHistory], error)
}

// ReferralService records who brought whom into the program.
type ReferralService interface {
	// RegisterReferral reports whether the referral was recorded. Failures
	// are logged, never returned.
	RegisterReferral(ctx context.Context, referrer, referred string) bool

	// RegisterByCode registers a referral identified by the referrer's code.
	RegisterByCode(ctx context.Context, code, referred string) (bool, error)

	Summary(ctx context.Context, username string) (*model.ReferralSummary, error)

	Count(ctx context.Context, username string) (int, error)

	WatchReferrals(ctx context.Context, username string) (*watch.Subscription[model.ReferralSummary], error)
}

// DiscountService manages discounts redeemed from scanned codes.
type DiscountService interface {
	AddFromScan(ctx context.Context, username, content string) (*model.DiscountGrant, error)

	// MarkUsed flips a grant to used. It is idempotent.
	MarkUsed(ctx context.Context, username string, id int64) error

	Delete(ctx context.Context, username string, id int64) error

	List(ctx context.Context, username string, activeOnly bool) (*model.DiscountList, error)

	ActiveCount(ctx context.Context, username string) (int, error)

	// PurgeExpired removes grants that expired before now.
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)

	WatchDiscounts(ctx context.Context, username string) (*watch.Subscription[model.DiscountList], error)
}

// MemberService tracks institutional membership.
type MemberService interface {
	Register(ctx context.Context, username, email string) (*model.Member, error)

	IsMember(ctx context.Context, username string) (bool, error)
}

// Repositories bundles the stores the services run on.
type Repositories struct {
	Tx        repository.TxManager
	Points    repository.PointsRepository
	Purchases repository.PurchaseRepository
	Referrals repository.ReferralRepository
	Carts     repository.CartRepository
	Discounts repository.DiscountRepository
	Members   repository.MemberRepository
}

// NewRepositories builds the PostgreSQL repositories on pool.
func NewRepositories(pool *pgxpool.Pool, logger zerolog.Logger) Repositories {
	return Repositories{
		Tx:        repository.NewTxManager(pool, logger),
		Points:    repository.NewPointsRepository(pool, logger),
		Purchases: repository.NewPurchaseRepository(pool, logger),
		Referrals: repository.NewReferralRepository(pool, logger),
		Carts:     repository.NewCartRepository(pool, logger),
		Discounts: repository.NewDiscountRepository(pool, logger),
		Members:   repository.NewMemberRepository(pool, logger),
	}
}
