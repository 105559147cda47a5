package service

import (
	"context"
	"errors"
	"time"

	"levelup-loyalty/internal/config"
	"levelup-loyalty/internal/idgen"
	"levelup-loyalty/internal/levelup"
	"levelup-loyalty/internal/metrics"
	"levelup-loyalty/internal/model"
	"levelup-loyalty/internal/repository"
	"levelup-loyalty/internal/watch"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// leaderboardKey is the single topic of the leaderboard registry.
const leaderboardKey = "top"

// Hub holds the subjects that stream state changes to subscribers.
// Values are published after the change has committed.
type Hub struct {
	status      *watch.Registry[model.UserStatus]
	leaderboard *watch.Registry[[]model.LeaderboardEntry]
	carts       *watch.Registry[model.CartSummary]
	purchases   *watch.Registry[model.PurchaseHistory]
	referrals   *watch.Registry[model.ReferralSummary]
	discounts   *watch.Registry[model.DiscountList]
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		status:      watch.NewRegistry[model.UserStatus](),
		leaderboard: watch.NewRegistry[[]model.LeaderboardEntry](),
		carts:       watch.NewRegistry[model.CartSummary](),
		purchases:   watch.NewRegistry[model.PurchaseHistory](),
		referrals:   watch.NewRegistry[model.ReferralSummary](),
		discounts:   watch.NewRegistry[model.DiscountList](),
	}
}

// Close ends every open subscription.
func (h *Hub) Close() {
	h.status.Close()
	h.leaderboard.Close()
	h.carts.Close()
	h.purchases.Close()
	h.referrals.Close()
	h.discounts.Close()
}

// Deps are the collaborators shared by every service.
type Deps struct {
	Repos   Repositories
	Hub     *Hub
	IDs     idgen.Generator
	Loyalty config.LoyaltyConfig
	Metrics *metrics.Loyalty
	Clock   func() time.Time
	Logger  zerolog.Logger
}

// views builds the read models and publishes them to the hub.
type views struct {
	repos   Repositories
	hub     *Hub
	ids     idgen.Generator
	loyalty config.LoyaltyConfig
	metrics *metrics.Loyalty
	now     func() time.Time
	logger  zerolog.Logger
}

func newViews(d Deps, component string) *views {
	if d.Hub == nil {
		d.Hub = NewHub()
	}
	if d.IDs == nil {
		d.IDs = idgen.New()
	}
	if d.Clock == nil {
		d.Clock = time.Now
	}
	if d.Loyalty.LeaderboardSize <= 0 {
		d.Loyalty.LeaderboardSize = 10
	}
	return &views{
		repos:   d.Repos,
		hub:     d.Hub,
		ids:     d.IDs,
		loyalty: d.Loyalty,
		metrics: d.Metrics,
		now:     d.Clock,
		logger:  d.Logger.With().Str("service", component).Logger(),
	}
}

// ensureUser enrolls username outside any transaction. A generated referral
// code that collides with an existing one is regenerated.
func (v *views) ensureUser(ctx context.Context, username string) (bool, error) {
	const attempts = 3

	var err error
	for range attempts {
		var created bool
		created, err = v.repos.Points.Ensure(ctx, &model.UserPoints{
			Username:     username,
			Points:       levelup.WelcomeBonus,
			Level:        levelup.LevelFor(levelup.WelcomeBonus),
			ReferralCode: v.ids.ReferralCode(username),
		})
		if err == nil {
			if created {
				v.logger.Info().Str("username", username).Msg("user enrolled in loyalty program")
				v.metrics.PointsAwarded("welcome", levelup.WelcomeBonus)
			}
			return created, nil
		}
		if !errors.Is(err, repository.ErrDuplicateKey) {
			break
		}
		v.logger.Warn().Str("username", username).Msg("referral code collision, regenerating")
	}

	return false, err
}

// credit adds delta to a row already locked by the caller's transaction and
// persists the level when it changes.
func (v *views) credit(ctx context.Context, points repository.PointsRepository, locked *model.UserPoints, delta int) (*model.PointsChange, error) {
	newPoints, err := points.AddPoints(ctx, locked.Username, delta)
	if err != nil {
		return nil, err
	}

	change := &model.PointsChange{
		Username:  locked.Username,
		Delta:     delta,
		OldPoints: locked.Points,
		NewPoints: newPoints,
		OldLevel:  locked.Level,
		NewLevel:  levelup.LevelFor(newPoints),
	}

	if change.NewLevel != locked.Level {
		if err := points.SetLevel(ctx, locked.Username, change.NewLevel); err != nil {
			return nil, err
		}
	}

	return change, nil
}

// recordChange logs and counts a committed points change.
func (v *views) recordChange(change *model.PointsChange, source string) {
	v.metrics.PointsAwarded(source, change.Delta)
	v.noteLevelUp(change)
}

func (v *views) noteLevelUp(change *model.PointsChange) {
	if change.LeveledUp() {
		v.metrics.LevelUp()
		v.logger.Info().
			Str("username", change.Username).
			Int("old_level", change.OldLevel).
			Int("new_level", change.NewLevel).
			Msg("user leveled up")
	}
}

func (v *views) status(ctx context.Context, username string) (model.UserStatus, error) {
	user, err := v.repos.Points.GetByUsername(ctx, username)
	if err != nil {
		return model.UserStatus{}, mapStoreError(err, model.ErrUserNotFound)
	}
	rank, err := v.repos.Points.Rank(ctx, username)
	if err != nil {
		return model.UserStatus{}, mapStoreError(err, model.ErrUserNotFound)
	}
	return model.NewUserStatus(user, rank), nil
}

func (v *views) leaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = v.loyalty.LeaderboardSize
	}

	users, err := v.repos.Points.TopUsers(ctx, limit)
	if err != nil {
		return nil, mapStoreError(err, nil)
	}

	entries := make([]model.LeaderboardEntry, len(users))
	for i, u := range users {
		rank := i + 1
		// ties share the rank of the first user with the same points
		if i > 0 && u.Points == users[i-1].Points {
			rank = entries[i-1].Rank
		}
		entries[i] = model.LeaderboardEntry{
			Rank:     rank,
			Username: u.Username,
			Points:   u.Points,
			Level:    levelup.LevelFor(u.Points),
			Title:    levelup.TitleFor(levelup.LevelFor(u.Points)),
		}
	}
	return entries, nil
}

func (v *views) isMember(ctx context.Context, username string) (bool, error) {
	member, err := v.repos.Members.GetByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, mapStoreError(err, nil)
	}
	return member.IsMember, nil
}

func (v *views) cart(ctx context.Context, username string) (model.CartSummary, error) {
	lines, err := v.repos.Carts.ListByUser(ctx, username)
	if err != nil {
		return model.CartSummary{}, mapStoreError(err, nil)
	}

	member, err := v.isMember(ctx, username)
	if err != nil {
		return model.CartSummary{}, err
	}

	return v.priceCart(username, lines, member), nil
}

// priceCart totals lines and applies the member discount.
func (v *views) priceCart(username string, lines []model.CartLine, member bool) model.CartSummary {
	summary := model.CartSummary{Username: username, Lines: lines, IsMember: member}

	subtotal := decimal.Zero
	for _, l := range lines {
		summary.TotalItems += l.Quantity
		subtotal = subtotal.Add(decimal.NewFromFloat(l.PriceValue).Mul(decimal.NewFromInt(int64(l.Quantity))))
	}

	if member {
		summary.DiscountPercent = v.loyalty.MemberDiscountPercent
	}
	discount := subtotal.Mul(decimal.NewFromInt(int64(summary.DiscountPercent))).Div(decimal.NewFromInt(100)).Round(2)
	total := decimal.Max(subtotal.Sub(discount), decimal.Zero)

	summary.Subtotal = subtotal.InexactFloat64()
	summary.DiscountAmount = discount.InexactFloat64()
	summary.Total = total.InexactFloat64()

	return summary
}

func (v *views) purchases(ctx context.Context, username string, limit int) (model.PurchaseHistory, error) {
	list, err := v.repos.Purchases.ListByUser(ctx, username, limit)
	if err != nil {
		return model.PurchaseHistory{}, mapStoreError(err, nil)
	}
	spent, err := v.repos.Purchases.TotalSpent(ctx, username)
	if err != nil {
		return model.PurchaseHistory{}, mapStoreError(err, nil)
	}
	count, err := v.repos.Purchases.Count(ctx, username)
	if err != nil {
		return model.PurchaseHistory{}, mapStoreError(err, nil)
	}
	return model.PurchaseHistory{Purchases: list, TotalSpent: spent, PurchaseCount: count}, nil
}

func (v *views) referrals(ctx context.Context, username string) (model.ReferralSummary, error) {
	list, err := v.repos.Referrals.ListByReferrer(ctx, username)
	if err != nil {
		return model.ReferralSummary{}, mapStoreError(err, nil)
	}

	summary := model.ReferralSummary{Referrals: list, Count: len(list)}

	by, err := v.repos.Referrals.GetByReferred(ctx, username)
	switch {
	case err == nil:
		summary.ReferredBy = by
	case !errors.Is(err, repository.ErrNotFound):
		return model.ReferralSummary{}, mapStoreError(err, nil)
	}

	return summary, nil
}

func (v *views) discounts(ctx context.Context, username string, activeOnly bool) (model.DiscountList, error) {
	now := v.now()
	list, err := v.repos.Discounts.ListByUser(ctx, username, activeOnly, now)
	if err != nil {
		return model.DiscountList{}, mapStoreError(err, nil)
	}
	active, err := v.repos.Discounts.CountActive(ctx, username, now)
	if err != nil {
		return model.DiscountList{}, mapStoreError(err, nil)
	}
	return model.DiscountList{Discounts: list, ActiveCount: active}, nil
}

// publishStatus refreshes the status stream of each user and the leaderboard.
func (v *views) publishStatus(ctx context.Context, usernames ...string) {
	for _, username := range usernames {
		refresh(ctx, v, v.hub.status, username, func(ctx context.Context) (model.UserStatus, error) {
			return v.status(ctx, username)
		})
	}
	refresh(ctx, v, v.hub.leaderboard, leaderboardKey, func(ctx context.Context) ([]model.LeaderboardEntry, error) {
		return v.leaderboard(ctx, 0)
	})
}

func (v *views) publishCart(ctx context.Context, username string) {
	refresh(ctx, v, v.hub.carts, username, func(ctx context.Context) (model.CartSummary, error) {
		return v.cart(ctx, username)
	})
}

func (v *views) publishPurchases(ctx context.Context, username string) {
	refresh(ctx, v, v.hub.purchases, username, func(ctx context.Context) (model.PurchaseHistory, error) {
		return v.purchases(ctx, username, 0)
	})
}

func (v *views) publishReferrals(ctx context.Context, usernames ...string) {
	for _, username := range usernames {
		refresh(ctx, v, v.hub.referrals, username, func(ctx context.Context) (model.ReferralSummary, error) {
			return v.referrals(ctx, username)
		})
	}
}

func (v *views) publishDiscounts(ctx context.Context, username string) {
	refresh(ctx, v, v.hub.discounts, username, func(ctx context.Context) (model.DiscountList, error) {
		return v.discounts(ctx, username, false)
	})
}

// refresh reloads and publishes a value when someone is listening. It runs
// after commit, so a cancelled request context must not skip it.
func refresh[T any](ctx context.Context, v *views, topics *watch.Registry[T], key string, load func(context.Context) (T, error)) {
	if topics.Subscribers(key) == 0 {
		return
	}
	val, err := load(context.WithoutCancel(ctx))
	if err != nil {
		v.logger.Warn().Err(err).Str("topic", key).Msg("failed to refresh stream")
		return
	}
	topics.Publish(key, val)
}

// subscribe subscribes to key, then loads and publishes the current value so
// the subscriber starts from fresh state. The subscription ends with ctx.
func subscribe[T any](ctx context.Context, topics *watch.Registry[T], key string, load func(context.Context) (T, error)) (*watch.Subscription[T], error) {
	sub := topics.Subscribe(key)

	val, err := load(ctx)
	if err != nil {
		sub.Cancel()
		return nil, err
	}
	topics.Publish(key, val)

	context.AfterFunc(ctx, sub.Cancel)
	return sub, nil
}

// mapStoreError turns a NotFound into notFound when given and an
// unavailable store into ErrStoreUnavailable. Other errors pass through.
func mapStoreError(err error, notFound error) error {
	switch {
	case err == nil:
		return nil
	case notFound != nil && errors.Is(err, repository.ErrNotFound):
		return notFound
	case errors.Is(err, repository.ErrUnavailable):
		return errors.Join(model.ErrStoreUnavailable, err)
	default:
		return err
	}
}
