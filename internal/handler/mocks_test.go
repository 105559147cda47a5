package handler

import (
	"context"
	"net/http"
	"time"

	"levelup-loyalty/internal/model"
	"levelup-loyalty/internal/watch"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"
)

// MockLedgerService is a mock implementation of LedgerService.
type MockLedgerService struct {
	mock.Mock
}

func (m *MockLedgerService) EnsureUser(ctx context.Context, username string) (*model.UserPoints, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UserPoints), args.Error(1)
}

func (m *MockLedgerService) AddPoints(ctx context.Context, username string, delta int) (*model.PointsChange, error) {
	args := m.Called(ctx, username, delta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PointsChange), args.Error(1)
}

func (m *MockLedgerService) Status(ctx context.Context, username string) (*model.UserStatus, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UserStatus), args.Error(1)
}

func (m *MockLedgerService) TopUsers(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.LeaderboardEntry), args.Error(1)
}

func (m *MockLedgerService) Rank(ctx context.Context, username string) (int, error) {
	args := m.Called(ctx, username)
	return args.Int(0), args.Error(1)
}

func (m *MockLedgerService) WatchStatus(ctx context.Context, username string) (*watch.Subscription[model.UserStatus], error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*watch.Subscription[model.UserStatus]), args.Error(1)
}

func (m *MockLedgerService) WatchLeaderboard(ctx context.Context) (*watch.Subscription[[]model.LeaderboardEntry], error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*watch.Subscription[[]model.LeaderboardEntry]), args.Error(1)
}

// MockCartService is a mock implementation of CartService.
type MockCartService struct {
	mock.Mock
}

func (m *MockCartService) AddItem(ctx context.Context, username string, req *model.AddCartItemRequest) (*model.CartLine, error) {
	args := m.Called(ctx, username, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CartLine), args.Error(1)
}

func (m *MockCartService) SetQuantity(ctx context.Context, username string, lineID int64, quantity int) error {
	return m.Called(ctx, username, lineID, quantity).Error(0)
}

func (m *MockCartService) RemoveItem(ctx context.Context, username string, lineID int64) error {
	return m.Called(ctx, username, lineID).Error(0)
}

func (m *MockCartService) Clear(ctx context.Context, username string) error {
	return m.Called(ctx, username).Error(0)
}

func (m *MockCartService) Summary(ctx context.Context, username string) (*model.CartSummary, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CartSummary), args.Error(1)
}

func (m *MockCartService) WatchCart(ctx context.Context, username string) (*watch.Subscription[model.CartSummary], error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*watch.Subscription[model.CartSummary]), args.Error(1)
}

// MockCheckoutService is a mock implementation of CheckoutService.
type MockCheckoutService struct {
	mock.Mock
}

func (m *MockCheckoutService) Checkout(ctx context.Context, username string) (*model.Purchase, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Purchase), args.Error(1)
}

func (m *MockCheckoutService) History(ctx context.Context, username string, limit int) (*model.PurchaseHistory, error) {
	args := m.Called(ctx, username, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PurchaseHistory), args.Error(1)
}

func (m *MockCheckoutService) WatchPurchases(ctx context.Context, username string) (*watch.Subscription[model.PurchaseHistory], error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*watch.Subscription[model.PurchaseHistory]), args.Error(1)
}

// MockReferralService is a mock implementation of ReferralService.
type MockReferralService struct {
	mock.Mock
}

func (m *MockReferralService) RegisterReferral(ctx context.Context, referrer, referred string) bool {
	return m.Called(ctx, referrer, referred).Bool(0)
}

func (m *MockReferralService) RegisterByCode(ctx context.Context, code, referred string) (bool, error) {
	args := m.Called(ctx, code, referred)
	return args.Bool(0), args.Error(1)
}

func (m *MockReferralService) Summary(ctx context.Context, username string) (*model.ReferralSummary, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.ReferralSummary), args.Error(1)
}

func (m *MockReferralService) Count(ctx context.Context, username string) (int, error) {
	args := m.Called(ctx, username)
	return args.Int(0), args.Error(1)
}

func (m *MockReferralService) WatchReferrals(ctx context.Context, username string) (*watch.Subscription[model.ReferralSummary], error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*watch.Subscription[model.ReferralSummary]), args.Error(1)
}

// MockDiscountService is a mock implementation of DiscountService.
type MockDiscountService struct {
	mock.Mock
}

func (m *MockDiscountService) AddFromScan(ctx context.Context, username, content string) (*model.DiscountGrant, error) {
	args := m.Called(ctx, username, content)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DiscountGrant), args.Error(1)
}

func (m *MockDiscountService) MarkUsed(ctx context.Context, username string, id int64) error {
	return m.Called(ctx, username, id).Error(0)
}

func (m *MockDiscountService) Delete(ctx context.Context, username string, id int64) error {
	return m.Called(ctx, username, id).Error(0)
}

func (m *MockDiscountService) List(ctx context.Context, username string, activeOnly bool) (*model.DiscountList, error) {
	args := m.Called(ctx, username, activeOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DiscountList), args.Error(1)
}

func (m *MockDiscountService) ActiveCount(ctx context.Context, username string) (int, error) {
	args := m.Called(ctx, username)
	return args.Int(0), args.Error(1)
}

func (m *MockDiscountService) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDiscountService) WatchDiscounts(ctx context.Context, username string) (*watch.Subscription[model.DiscountList], error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*watch.Subscription[model.DiscountList]), args.Error(1)
}

// MockMemberService is a mock implementation of MemberService.
type MockMemberService struct {
	mock.Mock
}

func (m *MockMemberService) Register(ctx context.Context, username, email string) (*model.Member, error) {
	args := m.Called(ctx, username, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Member), args.Error(1)
}

func (m *MockMemberService) IsMember(ctx context.Context, username string) (bool, error) {
	args := m.Called(ctx, username)
	return args.Bool(0), args.Error(1)
}

// withParams attaches chi URL parameters given as key, value pairs.
func withParams(r *http.Request, kv ...string) *http.Request {
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(kv); i += 2 {
		rctx.URLParams.Add(kv[i], kv[i+1])
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}
