package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"levelup-loyalty/internal/levelup"
	"levelup-loyalty/internal/model"
	"levelup-loyalty/internal/watch"
)

const (
	lastPurchaseLayout = "2006-01-02 15:04:05"
	summaryItems       = 3
)

// checkoutState is a step of the checkout state machine:
// idle -> computing -> committing -> done, with failed reachable from any step.
type checkoutState string

const (
	stateIdle       checkoutState = "idle"
	stateComputing  checkoutState = "computing"
	stateCommitting checkoutState = "committing"
	stateDone       checkoutState = "done"
	stateFailed     checkoutState = "failed"
)

type checkoutService struct {
	*views
	paymentDelay time.Duration
}

// NewCheckoutService creates the checkout service.
func NewCheckoutService(d Deps) CheckoutService {
	return &checkoutService{
		views:        newViews(d, "checkout"),
		paymentDelay: d.Loyalty.PaymentDelay,
	}
}

// checkoutRun tracks one checkout through its states.
type checkoutRun struct {
	s        *checkoutService
	username string
	state    checkoutState
	start    time.Time
}

func (r *checkoutRun) enter(state checkoutState) {
	r.s.logger.Debug().
		Str("username", r.username).
		Str("from", string(r.state)).
		Str("to", string(state)).
		Msg("checkout transition")
	r.state = state
	r.s.metrics.CheckoutState(string(state))
}

func (r *checkoutRun) finish(outcome string) {
	r.s.metrics.CheckoutFinished(outcome, time.Since(r.start))
}

func (s *checkoutService) Checkout(ctx context.Context, username string) (purchase *model.Purchase, err error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, model.ErrInvalidUsername
	}

	run := &checkoutRun{s: s, username: username, state: stateIdle, start: time.Now()}
	run.enter(stateComputing)

	defer func() {
		if err != nil {
			run.enter(stateFailed)
			outcome := "failed"
			if errors.Is(err, model.ErrEmptyCart) {
				outcome = "empty_cart"
			}
			run.finish(outcome)
		}
	}()

	cart, err := s.cart(ctx, username)
	if err != nil {
		s.logger.Error().Err(err).Str("username", username).Msg("failed to read cart")
		return nil, checkoutFailed(err)
	}
	if cart.Empty() {
		s.logger.Debug().Str("username", username).Msg("checkout with empty cart rejected")
		return nil, model.ErrEmptyCart
	}

	if err = s.awaitPayment(ctx); err != nil {
		s.logger.Warn().Err(err).Str("username", username).Msg("checkout cancelled during payment")
		return nil, checkoutFailed(err)
	}

	if _, err = s.ensureUser(ctx, username); err != nil {
		s.logger.Error().Err(err).Str("username", username).Msg("failed to ensure user")
		return nil, checkoutFailed(err)
	}

	orderNumber := s.ids.OrderNumber()
	now := s.now()

	run.enter(stateCommitting)

	tx, err := s.repos.Tx.BeginTx(ctx)
	if err != nil {
		s.logger.Error().Err(err).Str("order_number", orderNumber).Msg("failed to begin transaction")
		return nil, checkoutFailed(err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Str("order_number", orderNumber).Msg("failed to rollback transaction")
			}
		}
	}()

	points := s.repos.Points.WithTx(tx)

	locked, err := points.GetForUpdate(ctx, username)
	if err != nil {
		s.logger.Error().Err(err).Str("username", username).Msg("failed to lock user")
		return nil, checkoutFailed(err)
	}

	// the user lock serialises checkouts; the cart rows are locked so the
	// purchase is priced from exactly the lines it removes
	lines, err := s.repos.Carts.WithTx(tx).LockByUser(ctx, username)
	if err != nil {
		s.logger.Error().Err(err).Str("username", username).Msg("failed to lock cart")
		return nil, checkoutFailed(err)
	}
	if len(lines) == 0 {
		s.logger.Warn().Str("username", username).Str("order_number", orderNumber).Msg("cart emptied by a concurrent checkout")
		err = model.ErrEmptyCart
		return nil, err
	}
	cart = s.priceCart(username, lines, cart.IsMember)

	base, bonus := levelup.PurchasePoints(cart.Total, locked.Level)

	purchase = &model.Purchase{
		Username:     username,
		TotalAmount:  cart.Total,
		ItemsCount:   cart.TotalItems,
		PointsEarned: base,
		BonusPoints:  bonus,
		PurchaseDate: now,
		OrderNumber:  orderNumber,
		ItemsSummary: itemsSummary(cart.Lines),
	}

	if err = s.repos.Purchases.WithTx(tx).Create(ctx, purchase); err != nil {
		s.logger.Error().Err(err).Str("order_number", orderNumber).Msg("failed to record purchase")
		return nil, checkoutFailed(err)
	}

	change, err := s.credit(ctx, points, locked, purchase.TotalPoints())
	if err != nil {
		s.logger.Error().Err(err).Str("order_number", orderNumber).Msg("failed to credit purchase points")
		return nil, checkoutFailed(err)
	}

	if err = points.RecordPurchase(ctx, username, now.Format(lastPurchaseLayout)); err != nil {
		s.logger.Error().Err(err).Str("order_number", orderNumber).Msg("failed to record purchase stats")
		return nil, checkoutFailed(err)
	}

	removed, err := s.repos.Carts.WithTx(tx).DeleteLines(ctx, username, cart.Lines)
	if err != nil {
		s.logger.Error().Err(err).Str("order_number", orderNumber).Msg("failed to clear cart")
		return nil, checkoutFailed(err)
	}
	if removed != int64(len(cart.Lines)) {
		s.logger.Error().
			Str("order_number", orderNumber).
			Int64("removed", removed).
			Int("priced", len(cart.Lines)).
			Msg("cart changed during checkout")
		err = fmt.Errorf("%w: cart changed during checkout: removed %d of %d lines",
			model.ErrCheckoutFailed, removed, len(cart.Lines))
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		s.logger.Error().Err(err).Str("order_number", orderNumber).Msg("failed to commit transaction")
		return nil, checkoutFailed(err)
	}

	run.enter(stateDone)
	run.finish("completed")
	s.metrics.PointsAwarded("purchase", base)
	s.metrics.PointsAwarded("bonus", bonus)
	s.noteLevelUp(change)

	s.logger.Info().
		Str("username", username).
		Str("order_number", orderNumber).
		Float64("total", purchase.TotalAmount).
		Int("points", base).
		Int("bonus", bonus).
		Msg("checkout completed")

	s.publishCart(ctx, username)
	s.publishPurchases(ctx, username)
	s.publishStatus(ctx, username)

	return purchase, nil
}

func (s *checkoutService) History(ctx context.Context, username string, limit int) (*model.PurchaseHistory, error) {
	history, err := s.purchases(ctx, username, limit)
	if err != nil {
		s.logger.Error().Err(err).Str("username", username).Msg("failed to read purchase history")
		return nil, err
	}
	return &history, nil
}

func (s *checkoutService) WatchPurchases(ctx context.Context, username string) (*watch.Subscription[model.PurchaseHistory], error) {
	return subscribe(ctx, s.hub.purchases, username, func(ctx context.Context) (model.PurchaseHistory, error) {
		return s.purchases(ctx, username, 0)
	})
}

// awaitPayment simulates the payment gateway round trip.
func (s *checkoutService) awaitPayment(ctx context.Context) error {
	if s.paymentDelay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(s.paymentDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// itemsSummary lists the first three product names and how many more follow.
func itemsSummary(lines []model.CartLine) string {
	names := make([]string, 0, summaryItems)
	for i, l := range lines {
		if i == summaryItems {
			break
		}
		names = append(names, l.ProductName)
	}

	summary := strings.Join(names, ", ")
	if extra := len(lines) - summaryItems; extra > 0 {
		summary += fmt.Sprintf(" y %d más", extra)
	}
	return summary
}

func checkoutFailed(err error) error {
	return fmt.Errorf("%w: %w", model.ErrCheckoutFailed, mapStoreError(err, nil))
}
