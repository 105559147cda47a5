package service

import (
	"context"
	"time"

	"levelup-loyalty/internal/model"
	"levelup-loyalty/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/mock"
)

// MockTx is a minimal mock implementation of pgx.Tx for testing.
type MockTx struct {
	mock.Mock
	committed  bool
	rolledBack bool
}

func (m *MockTx) Commit(ctx context.Context) error {
	args := m.Called(ctx)
	m.committed = true
	return args.Error(0)
}

func (m *MockTx) Rollback(ctx context.Context) error {
	args := m.Called(ctx)
	m.rolledBack = true
	return args.Error(0)
}

// Stub methods to satisfy pgx.Tx; repositories are mocked so these are never reached.
func (m *MockTx) Begin(ctx context.Context) (pgx.Tx, error) { return nil, nil }
func (m *MockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (m *MockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (m *MockTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (m *MockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (m *MockTx) Exec(ctx context.Context, sql string, arguments ...any) (commandTag pgconn.CommandTag, err error) {
	return
}
func (m *MockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (m *MockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row { return nil }
func (m *MockTx) Conn() *pgx.Conn                                               { return nil }

// MockTxManager is a mock implementation of TxManager.
type MockTxManager struct {
	mock.Mock
}

func (m *MockTxManager) BeginTx(ctx context.Context) (pgx.Tx, error) {
	args := m.Called(ctx)
	if tx, ok := args.Get(0).(pgx.Tx); ok {
		return tx, args.Error(1)
	}
	return nil, args.Error(1)
}

// MockPointsRepository is a mock implementation of PointsRepository.
// WithTx returns the same mock so expectations cover both modes.
type MockPointsRepository struct {
	mock.Mock
}

func (m *MockPointsRepository) WithTx(pgx.Tx) repository.PointsRepository { return m }

func (m *MockPointsRepository) Ensure(ctx context.Context, user *model.UserPoints) (bool, error) {
	args := m.Called(ctx, user)
	return args.Bool(0), args.Error(1)
}

func (m *MockPointsRepository) GetByUsername(ctx context.Context, username string) (*model.UserPoints, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UserPoints), args.Error(1)
}

func (m *MockPointsRepository) GetForUpdate(ctx context.Context, username string) (*model.UserPoints, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UserPoints), args.Error(1)
}

func (m *MockPointsRepository) GetByReferralCode(ctx context.Context, code string) (*model.UserPoints, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UserPoints), args.Error(1)
}

func (m *MockPointsRepository) AddPoints(ctx context.Context, username string, delta int) (int, error) {
	args := m.Called(ctx, username, delta)
	return args.Int(0), args.Error(1)
}

func (m *MockPointsRepository) SetLevel(ctx context.Context, username string, level int) error {
	return m.Called(ctx, username, level).Error(0)
}

func (m *MockPointsRepository) RecordPurchase(ctx context.Context, username string, date string) error {
	return m.Called(ctx, username, date).Error(0)
}

func (m *MockPointsRepository) SetReferredBy(ctx context.Context, username, referralCode string) error {
	return m.Called(ctx, username, referralCode).Error(0)
}

func (m *MockPointsRepository) TopUsers(ctx context.Context, limit int) ([]model.UserPoints, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.UserPoints), args.Error(1)
}

func (m *MockPointsRepository) Rank(ctx context.Context, username string) (int, error) {
	args := m.Called(ctx, username)
	return args.Int(0), args.Error(1)
}

// MockPurchaseRepository is a mock implementation of PurchaseRepository.
type MockPurchaseRepository struct {
	mock.Mock
}

func (m *MockPurchaseRepository) WithTx(pgx.Tx) repository.PurchaseRepository { return m }

func (m *MockPurchaseRepository) Create(ctx context.Context, purchase *model.Purchase) error {
	return m.Called(ctx, purchase).Error(0)
}

func (m *MockPurchaseRepository) ListByUser(ctx context.Context, username string, limit int) ([]model.Purchase, error) {
	args := m.Called(ctx, username, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Purchase), args.Error(1)
}

func (m *MockPurchaseRepository) TotalSpent(ctx context.Context, username string) (float64, error) {
	args := m.Called(ctx, username)
	return args.Get(0).(float64), args.Error(1)
}

func (m *MockPurchaseRepository) Count(ctx context.Context, username string) (int, error) {
	args := m.Called(ctx, username)
	return args.Int(0), args.Error(1)
}

// MockReferralRepository is a mock implementation of ReferralRepository.
type MockReferralRepository struct {
	mock.Mock
}

func (m *MockReferralRepository) WithTx(pgx.Tx) repository.ReferralRepository { return m }

func (m *MockReferralRepository) Create(ctx context.Context, referral *model.Referral) error {
	return m.Called(ctx, referral).Error(0)
}

func (m *MockReferralRepository) ListByReferrer(ctx context.Context, username string) ([]model.Referral, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Referral), args.Error(1)
}

func (m *MockReferralRepository) CountByReferrer(ctx context.Context, username string) (int, error) {
	args := m.Called(ctx, username)
	return args.Int(0), args.Error(1)
}

func (m *MockReferralRepository) GetByReferred(ctx context.Context, username string) (*model.Referral, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Referral), args.Error(1)
}

// MockCartRepository is a mock implementation of CartRepository.
type MockCartRepository struct {
	mock.Mock
}

func (m *MockCartRepository) WithTx(pgx.Tx) repository.CartRepository { return m }

func (m *MockCartRepository) Upsert(ctx context.Context, line *model.CartLine) (*model.CartLine, error) {
	args := m.Called(ctx, line)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CartLine), args.Error(1)
}

func (m *MockCartRepository) ListByUser(ctx context.Context, username string) ([]model.CartLine, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.CartLine), args.Error(1)
}

func (m *MockCartRepository) LockByUser(ctx context.Context, username string) ([]model.CartLine, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.CartLine), args.Error(1)
}

func (m *MockCartRepository) UpdateQuantity(ctx context.Context, username string, id int64, quantity int) error {
	return m.Called(ctx, username, id, quantity).Error(0)
}

func (m *MockCartRepository) Delete(ctx context.Context, username string, id int64) error {
	return m.Called(ctx, username, id).Error(0)
}

func (m *MockCartRepository) Clear(ctx context.Context, username string) (int64, error) {
	args := m.Called(ctx, username)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCartRepository) DeleteLines(ctx context.Context, username string, lines []model.CartLine) (int64, error) {
	args := m.Called(ctx, username, lines)
	return args.Get(0).(int64), args.Error(1)
}

// MockDiscountRepository is a mock implementation of DiscountRepository.
type MockDiscountRepository struct {
	mock.Mock
}

func (m *MockDiscountRepository) WithTx(pgx.Tx) repository.DiscountRepository { return m }

func (m *MockDiscountRepository) Create(ctx context.Context, grant *model.DiscountGrant) error {
	return m.Called(ctx, grant).Error(0)
}

func (m *MockDiscountRepository) Exists(ctx context.Context, username, code string) (bool, error) {
	args := m.Called(ctx, username, code)
	return args.Bool(0), args.Error(1)
}

func (m *MockDiscountRepository) ListByUser(ctx context.Context, username string, activeOnly bool, now time.Time) ([]model.DiscountGrant, error) {
	args := m.Called(ctx, username, activeOnly, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.DiscountGrant), args.Error(1)
}

func (m *MockDiscountRepository) CountActive(ctx context.Context, username string, now time.Time) (int, error) {
	args := m.Called(ctx, username, now)
	return args.Int(0), args.Error(1)
}

func (m *MockDiscountRepository) MarkUsed(ctx context.Context, username string, id int64) error {
	return m.Called(ctx, username, id).Error(0)
}

func (m *MockDiscountRepository) Delete(ctx context.Context, username string, id int64) error {
	return m.Called(ctx, username, id).Error(0)
}

func (m *MockDiscountRepository) DeleteExpired(ctx context.Context, now time.Time) ([]string, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockMemberRepository is a mock implementation of MemberRepository.
type MockMemberRepository struct {
	mock.Mock
}

func (m *MockMemberRepository) Upsert(ctx context.Context, member *model.Member) error {
	return m.Called(ctx, member).Error(0)
}

func (m *MockMemberRepository) GetByUsername(ctx context.Context, username string) (*model.Member, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Member), args.Error(1)
}

// mocks groups one of each repository mock.
type mocks struct {
	tx        *MockTxManager
	points    *MockPointsRepository
	purchases *MockPurchaseRepository
	referrals *MockReferralRepository
	carts     *MockCartRepository
	discounts *MockDiscountRepository
	members   *MockMemberRepository
}

func newMocks() *mocks {
	return &mocks{
		tx:        new(MockTxManager),
		points:    new(MockPointsRepository),
		purchases: new(MockPurchaseRepository),
		referrals: new(MockReferralRepository),
		carts:     new(MockCartRepository),
		discounts: new(MockDiscountRepository),
		members:   new(MockMemberRepository),
	}
}

func (m *mocks) repos() Repositories {
	return Repositories{
		Tx:        m.tx,
		Points:    m.points,
		Purchases: m.purchases,
		Referrals: m.referrals,
		Carts:     m.carts,
		Discounts: m.discounts,
		Members:   m.members,
	}
}

func (m *mocks) assert(t mock.TestingT) {
	m.tx.AssertExpectations(t)
	m.points.AssertExpectations(t)
	m.purchases.AssertExpectations(t)
	m.referrals.AssertExpectations(t)
	m.carts.AssertExpectations(t)
	m.discounts.AssertExpectations(t)
	m.members.AssertExpectations(t)
}
