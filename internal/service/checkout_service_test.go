package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"levelup-loyalty/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func cartLines() []model.CartLine {
	return []model.CartLine{
		{ID: 1, ProductID: "PS5", ProductName: "PlayStation 5", PriceValue: 29990, Quantity: 1, Username: "alice"},
		{ID: 2, ProductID: "MOUSE", ProductName: "Mouse Gamer", PriceValue: 5000, Quantity: 2, Username: "alice"},
	}
}

func TestCheckoutService_Checkout_Success(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		member      *model.Member
		level       int
		total       float64
		base, bonus int
	}{
		{
			name:  "Regular customer on level 2",
			level: 2,
			total: 39990,
			base:  39,
			bonus: 3,
		},
		{
			name:   "Member discount applies before points",
			member: &model.Member{Username: "alice", IsMember: true},
			level:  1,
			total:  31992,
			base:   31,
			bonus:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newMocks()
			mockTx := new(MockTx)
			svc := NewCheckoutService(testDeps(m))

			m.carts.On("ListByUser", anyCtx, "alice").Return(cartLines(), nil)
			if tt.member != nil {
				m.members.On("GetByUsername", anyCtx, "alice").Return(tt.member, nil)
			} else {
				m.members.On("GetByUsername", anyCtx, "alice").Return(nil, errNotFound)
			}
			m.points.On("Ensure", anyCtx, mock.Anything).Return(false, nil)
			m.tx.On("BeginTx", anyCtx).Return(mockTx, nil)
			m.points.On("GetForUpdate", anyCtx, "alice").
				Return(&model.UserPoints{Username: "alice", Points: 600, Level: tt.level}, nil)
			m.carts.On("LockByUser", anyCtx, "alice").Return(cartLines(), nil)
			m.purchases.On("Create", anyCtx, mock.MatchedBy(func(p *model.Purchase) bool {
				return p.OrderNumber == "ORD-TEST-1" &&
					p.Username == "alice" &&
					p.TotalAmount == tt.total &&
					p.ItemsCount == 3 &&
					p.PointsEarned == tt.base &&
					p.BonusPoints == tt.bonus &&
					p.ItemsSummary == "PlayStation 5, Mouse Gamer" &&
					p.PurchaseDate.Equal(fixedNow)
			})).Return(nil)
			m.points.On("AddPoints", anyCtx, "alice", tt.base+tt.bonus).Return(600+tt.base+tt.bonus, nil)
			if newLevel := 2; newLevel != tt.level {
				m.points.On("SetLevel", anyCtx, "alice", newLevel).Return(nil)
			}
			m.points.On("RecordPurchase", anyCtx, "alice", "2026-10-16 15:04:05").Return(nil)
			m.carts.On("DeleteLines", anyCtx, "alice", cartLines()).Return(int64(2), nil)
			mockTx.On("Commit", anyCtx).Return(nil)

			purchase, err := svc.Checkout(ctx, "alice")

			require.NoError(t, err)
			assert.Equal(t, "ORD-TEST-1", purchase.OrderNumber)
			assert.Equal(t, tt.base, purchase.PointsEarned)
			assert.Equal(t, tt.bonus, purchase.BonusPoints)
			assert.Equal(t, tt.base+tt.bonus, purchase.TotalPoints())
			assert.True(t, mockTx.committed)
			assert.False(t, mockTx.rolledBack)
			m.assert(t)
		})
	}
}

func TestCheckoutService_Checkout_EmptyCart(t *testing.T) {
	m := newMocks()
	svc := NewCheckoutService(testDeps(m))

	m.carts.On("ListByUser", anyCtx, "alice").Return([]model.CartLine{}, nil)
	m.members.On("GetByUsername", anyCtx, "alice").Return(nil, errNotFound)

	purchase, err := svc.Checkout(context.Background(), "alice")

	assert.ErrorIs(t, err, model.ErrEmptyCart)
	assert.Nil(t, purchase)
	m.tx.AssertNotCalled(t, "BeginTx", mock.Anything)
	m.points.AssertNotCalled(t, "Ensure", mock.Anything, mock.Anything)
}

func TestCheckoutService_Checkout_FailureKeepsCart(t *testing.T) {
	failures := []struct {
		name  string
		setup func(m *mocks)
	}{
		{
			name: "Purchase insert fails",
			setup: func(m *mocks) {
				m.purchases.On("Create", anyCtx, mock.Anything).Return(errDuplicate)
			},
		},
		{
			name: "Crediting points fails",
			setup: func(m *mocks) {
				m.purchases.On("Create", anyCtx, mock.Anything).Return(nil)
				m.points.On("AddPoints", anyCtx, "alice", mock.Anything).Return(0, errUnavailable)
			},
		},
		{
			name: "Clearing cart fails",
			setup: func(m *mocks) {
				m.purchases.On("Create", anyCtx, mock.Anything).Return(nil)
				m.points.On("AddPoints", anyCtx, "alice", mock.Anything).Return(642, nil)
				m.points.On("RecordPurchase", anyCtx, "alice", mock.Anything).Return(nil)
				m.carts.On("DeleteLines", anyCtx, "alice", mock.Anything).Return(int64(0), errors.New("database error"))
			},
		},
	}

	for _, tt := range failures {
		t.Run(tt.name, func(t *testing.T) {
			m := newMocks()
			mockTx := new(MockTx)
			svc := NewCheckoutService(testDeps(m))

			m.carts.On("ListByUser", anyCtx, "alice").Return(cartLines(), nil)
			m.members.On("GetByUsername", anyCtx, "alice").Return(nil, errNotFound)
			m.points.On("Ensure", anyCtx, mock.Anything).Return(false, nil)
			m.tx.On("BeginTx", anyCtx).Return(mockTx, nil)
			m.points.On("GetForUpdate", anyCtx, "alice").Return(&model.UserPoints{Username: "alice", Points: 600, Level: 2}, nil)
			m.carts.On("LockByUser", anyCtx, "alice").Return(cartLines(), nil)
			mockTx.On("Rollback", anyCtx).Return(nil)
			tt.setup(m)

			purchase, err := svc.Checkout(context.Background(), "alice")

			require.Error(t, err)
			assert.ErrorIs(t, err, model.ErrCheckoutFailed)
			assert.Nil(t, purchase)
			assert.True(t, mockTx.rolledBack)
			assert.False(t, mockTx.committed)
			mockTx.AssertNotCalled(t, "Commit", mock.Anything)
		})
	}
}

func TestCheckoutService_Checkout_CartConsumedConcurrently(t *testing.T) {
	m := newMocks()
	mockTx := new(MockTx)
	svc := NewCheckoutService(testDeps(m))

	m.carts.On("ListByUser", anyCtx, "alice").Return(cartLines(), nil)
	m.members.On("GetByUsername", anyCtx, "alice").Return(nil, errNotFound)
	m.points.On("Ensure", anyCtx, mock.Anything).Return(false, nil)
	m.tx.On("BeginTx", anyCtx).Return(mockTx, nil)
	m.points.On("GetForUpdate", anyCtx, "alice").Return(&model.UserPoints{Username: "alice", Points: 600, Level: 2}, nil)
	m.carts.On("LockByUser", anyCtx, "alice").Return([]model.CartLine{}, nil)
	mockTx.On("Rollback", anyCtx).Return(nil)

	purchase, err := svc.Checkout(context.Background(), "alice")

	assert.ErrorIs(t, err, model.ErrEmptyCart)
	assert.Nil(t, purchase)
	assert.True(t, mockTx.rolledBack)
	assert.False(t, mockTx.committed)
	m.purchases.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCheckoutService_Checkout_PricesLockedLines(t *testing.T) {
	m := newMocks()
	mockTx := new(MockTx)
	svc := NewCheckoutService(testDeps(m))

	// the mouse line was removed between the first read and the lock
	locked := cartLines()[:1]

	m.carts.On("ListByUser", anyCtx, "alice").Return(cartLines(), nil)
	m.members.On("GetByUsername", anyCtx, "alice").Return(nil, errNotFound)
	m.points.On("Ensure", anyCtx, mock.Anything).Return(false, nil)
	m.tx.On("BeginTx", anyCtx).Return(mockTx, nil)
	m.points.On("GetForUpdate", anyCtx, "alice").Return(&model.UserPoints{Username: "alice", Points: 600, Level: 2}, nil)
	m.carts.On("LockByUser", anyCtx, "alice").Return(locked, nil)
	m.purchases.On("Create", anyCtx, mock.MatchedBy(func(p *model.Purchase) bool {
		return p.TotalAmount == 29990 &&
			p.ItemsCount == 1 &&
			p.PointsEarned == 29 &&
			p.BonusPoints == 2 &&
			p.ItemsSummary == "PlayStation 5"
	})).Return(nil)
	m.points.On("AddPoints", anyCtx, "alice", 31).Return(631, nil)
	m.points.On("RecordPurchase", anyCtx, "alice", mock.Anything).Return(nil)
	m.carts.On("DeleteLines", anyCtx, "alice", locked).Return(int64(1), nil)
	mockTx.On("Commit", anyCtx).Return(nil)

	purchase, err := svc.Checkout(context.Background(), "alice")

	require.NoError(t, err)
	assert.Equal(t, 29990.0, purchase.TotalAmount)
	assert.True(t, mockTx.committed)
	m.assert(t)
}

func TestCheckoutService_Checkout_CartChangedDuringCheckout(t *testing.T) {
	m := newMocks()
	mockTx := new(MockTx)
	svc := NewCheckoutService(testDeps(m))

	m.carts.On("ListByUser", anyCtx, "alice").Return(cartLines(), nil)
	m.members.On("GetByUsername", anyCtx, "alice").Return(nil, errNotFound)
	m.points.On("Ensure", anyCtx, mock.Anything).Return(false, nil)
	m.tx.On("BeginTx", anyCtx).Return(mockTx, nil)
	m.points.On("GetForUpdate", anyCtx, "alice").Return(&model.UserPoints{Username: "alice", Points: 600, Level: 2}, nil)
	m.carts.On("LockByUser", anyCtx, "alice").Return(cartLines(), nil)
	m.purchases.On("Create", anyCtx, mock.Anything).Return(nil)
	m.points.On("AddPoints", anyCtx, "alice", mock.Anything).Return(642, nil)
	m.points.On("RecordPurchase", anyCtx, "alice", mock.Anything).Return(nil)
	// one priced line no longer matches its quantity
	m.carts.On("DeleteLines", anyCtx, "alice", cartLines()).Return(int64(1), nil)
	mockTx.On("Rollback", anyCtx).Return(nil)

	purchase, err := svc.Checkout(context.Background(), "alice")

	assert.ErrorIs(t, err, model.ErrCheckoutFailed)
	assert.Contains(t, err.Error(), "removed 1 of 2 lines")
	assert.Nil(t, purchase)
	assert.True(t, mockTx.rolledBack)
	assert.False(t, mockTx.committed)
	mockTx.AssertNotCalled(t, "Commit", mock.Anything)
}

func TestCheckoutService_Checkout_UnavailableStoreIsReported(t *testing.T) {
	m := newMocks()
	svc := NewCheckoutService(testDeps(m))

	m.carts.On("ListByUser", anyCtx, "alice").Return(nil, errUnavailable)

	_, err := svc.Checkout(context.Background(), "alice")

	assert.ErrorIs(t, err, model.ErrCheckoutFailed)
	assert.ErrorIs(t, err, model.ErrStoreUnavailable)
}

func TestCheckoutService_Checkout_CancelledDuringPayment(t *testing.T) {
	m := newMocks()
	deps := testDeps(m)
	deps.Loyalty.PaymentDelay = time.Hour
	svc := NewCheckoutService(deps)

	m.carts.On("ListByUser", anyCtx, "alice").Return(cartLines(), nil)
	m.members.On("GetByUsername", anyCtx, "alice").Return(nil, errNotFound)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	_, err := svc.Checkout(ctx, "alice")

	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, model.ErrCheckoutFailed)
	m.tx.AssertNotCalled(t, "BeginTx", mock.Anything)
	m.points.AssertNotCalled(t, "Ensure", mock.Anything, mock.Anything)
}

func TestCheckoutService_Checkout_InvalidUsername(t *testing.T) {
	m := newMocks()
	svc := NewCheckoutService(testDeps(m))

	_, err := svc.Checkout(context.Background(), " ")
	assert.ErrorIs(t, err, model.ErrInvalidUsername)
}

func TestItemsSummary(t *testing.T) {
	line := func(name string) model.CartLine { return model.CartLine{ProductName: name} }

	tests := []struct {
		name     string
		lines    []model.CartLine
		expected string
	}{
		{name: "Empty", lines: nil, expected: ""},
		{name: "One", lines: []model.CartLine{line("PS5")}, expected: "PS5"},
		{name: "Three", lines: []model.CartLine{line("A"), line("B"), line("C")}, expected: "A, B, C"},
		{name: "Five", lines: []model.CartLine{line("A"), line("B"), line("C"), line("D"), line("E")}, expected: "A, B, C y 2 más"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, itemsSummary(tt.lines))
		})
	}
}

func TestCheckoutService_History(t *testing.T) {
	m := newMocks()
	svc := NewCheckoutService(testDeps(m))

	m.purchases.On("ListByUser", anyCtx, "alice", 5).Return([]model.Purchase{{OrderNumber: "ORD-1"}}, nil)
	m.purchases.On("TotalSpent", anyCtx, "alice").Return(39990.0, nil)
	m.purchases.On("Count", anyCtx, "alice").Return(7, nil)

	history, err := svc.History(context.Background(), "alice", 5)
	require.NoError(t, err)
	assert.Len(t, history.Purchases, 1)
	assert.Equal(t, 39990.0, history.TotalSpent)
	assert.Equal(t, 7, history.PurchaseCount)
	m.assert(t)
}
