package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"levelup-loyalty/internal/model"
	"levelup-loyalty/internal/repository"
	"levelup-loyalty/internal/scan"
	"levelup-loyalty/internal/watch"
)

type discountService struct {
	*views
	rng scan.Rand
}

// NewDiscountService creates the discount redemption service. A nil rng
// uses the global random source for generic offers.
func NewDiscountService(d Deps, rng scan.Rand) DiscountService {
	return &discountService{views: newViews(d, "discount"), rng: rng}
}

func (s *discountService) AddFromScan(ctx context.Context, username, content string) (*model.DiscountGrant, error) {
	username = strings.TrimSpace(username)
	content = strings.TrimSpace(content)
	if username == "" {
		return nil, model.ErrInvalidUsername
	}
	if content == "" {
		return nil, model.ErrEmptyScan
	}

	exists, err := s.repos.Discounts.Exists(ctx, username, content)
	if err != nil {
		return nil, mapStoreError(err, nil)
	}
	if exists {
		s.metrics.Discount("duplicate", 1)
		s.logger.Debug().Str("username", username).Msg("discount code already scanned")
		return nil, model.ErrDuplicateDiscount
	}

	now := s.now()
	offer := scan.Parse(content, now, s.rng)
	expires := offer.ExpiresAt

	grant := &model.DiscountGrant{
		Code:        offer.Code,
		Description: offer.Description,
		Percentage:  offer.Percentage,
		Username:    username,
		ScannedAt:   now,
		ExpiresAt:   &expires,
	}

	if err := s.repos.Discounts.Create(ctx, grant); err != nil {
		// a concurrent scan of the same code won the insert
		if errors.Is(err, repository.ErrDuplicateKey) {
			s.metrics.Discount("duplicate", 1)
			return nil, model.ErrDuplicateDiscount
		}
		s.logger.Error().Err(err).Str("username", username).Msg("failed to store discount")
		return nil, mapStoreError(err, nil)
	}

	s.metrics.Discount("redeemed", 1)
	s.logger.Info().
		Str("username", username).
		Int64("discount_id", grant.ID).
		Int("percentage", grant.Percentage).
		Msg("discount redeemed")

	s.publishDiscounts(ctx, username)

	return grant, nil
}

func (s *discountService) MarkUsed(ctx context.Context, username string, id int64) error {
	if err := s.repos.Discounts.MarkUsed(ctx, username, id); err != nil {
		return mapStoreError(err, model.ErrDiscountNotFound)
	}

	s.metrics.Discount("used", 1)
	s.publishDiscounts(ctx, username)
	return nil
}

func (s *discountService) Delete(ctx context.Context, username string, id int64) error {
	if err := s.repos.Discounts.Delete(ctx, username, id); err != nil {
		return mapStoreError(err, model.ErrDiscountNotFound)
	}

	s.publishDiscounts(ctx, username)
	return nil
}

func (s *discountService) List(ctx context.Context, username string, activeOnly bool) (*model.DiscountList, error) {
	list, err := s.discounts(ctx, username, activeOnly)
	if err != nil {
		s.logger.Error().Err(err).Str("username", username).Msg("failed to list discounts")
		return nil, err
	}
	return &list, nil
}

func (s *discountService) ActiveCount(ctx context.Context, username string) (int, error) {
	count, err := s.repos.Discounts.CountActive(ctx, username, s.now())
	if err != nil {
		return 0, mapStoreError(err, nil)
	}
	return count, nil
}

func (s *discountService) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	owners, err := s.repos.Discounts.DeleteExpired(ctx, now)
	if err != nil {
		return 0, mapStoreError(err, nil)
	}

	s.metrics.Discount("purged", len(owners))

	seen := make(map[string]struct{}, len(owners))
	for _, username := range owners {
		if _, ok := seen[username]; ok {
			continue
		}
		seen[username] = struct{}{}
		s.publishDiscounts(ctx, username)
	}

	return int64(len(owners)), nil
}

func (s *discountService) WatchDiscounts(ctx context.Context, username string) (*watch.Subscription[model.DiscountList], error) {
	return subscribe(ctx, s.hub.discounts, username, func(ctx context.Context) (model.DiscountList, error) {
		return s.discounts(ctx, username, false)
	})
}
