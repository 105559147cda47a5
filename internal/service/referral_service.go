package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"levelup-loyalty/internal/model"
	"levelup-loyalty/internal/repository"
	"levelup-loyalty/internal/watch"
)

const (
	// ReferrerReward is credited to the user who made the referral.
	ReferrerReward = 100
	// ReferredReward is credited to the user who joined through it.
	ReferredReward = 50

	referralDateLayout = "2006-01-02"
)

type referralService struct {
	*views
}

// NewReferralService creates the referral tracker.
func NewReferralService(d Deps) ReferralService {
	return &referralService{views: newViews(d, "referral")}
}

func (s *referralService) RegisterReferral(ctx context.Context, referrer, referred string) bool {
	referrer = strings.TrimSpace(referrer)
	referred = strings.TrimSpace(referred)

	if err := s.register(ctx, referrer, referred); err != nil {
		s.metrics.Referral("rejected")
		s.logAt(err).
			Err(err).
			Str("referrer", referrer).
			Str("referred", referred).
			Msg("referral not registered")
		return false
	}

	s.metrics.Referral("registered")
	return true
}

func (s *referralService) RegisterByCode(ctx context.Context, code, referred string) (bool, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return false, model.ErrReferralCodeUnknown
	}

	owner, err := s.repos.Points.GetByReferralCode(ctx, code)
	if err != nil {
		return false, mapStoreError(err, model.ErrReferralCodeUnknown)
	}

	return s.RegisterReferral(ctx, owner.Username, referred), nil
}

func (s *referralService) register(ctx context.Context, referrer, referred string) (err error) {
	if referrer == "" || referred == "" {
		return model.ErrInvalidUsername
	}
	if referrer == referred {
		return model.ErrSelfReferral
	}

	for _, username := range []string{referrer, referred} {
		if _, err := s.ensureUser(ctx, username); err != nil {
			return fmt.Errorf("failed to ensure %s: %w", username, err)
		}
	}

	tx, err := s.repos.Tx.BeginTx(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	points := s.repos.Points.WithTx(tx)

	// lock in a stable order so concurrent referrals between the same pair cannot deadlock
	first, second := referrer, referred
	if second < first {
		first, second = second, first
	}
	locked := make(map[string]*model.UserPoints, 2)
	for _, username := range []string{first, second} {
		row, err := points.GetForUpdate(ctx, username)
		if err != nil {
			return err
		}
		locked[username] = row
	}

	referral := &model.Referral{
		ReferrerUsername: referrer,
		ReferredUsername: referred,
		ReferralCode:     locked[referrer].ReferralCode,
		PointsEarned:     ReferrerReward,
		DateCreated:      s.now().Format(referralDateLayout),
	}

	if err = s.repos.Referrals.WithTx(tx).Create(ctx, referral); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) || errors.Is(err, repository.ErrConstraint) {
			return fmt.Errorf("%w: %w", model.ErrReferralRejected, err)
		}
		return err
	}

	referrerChange, err := s.credit(ctx, points, locked[referrer], ReferrerReward)
	if err != nil {
		return err
	}
	referredChange, err := s.credit(ctx, points, locked[referred], ReferredReward)
	if err != nil {
		return err
	}

	if err = points.SetReferredBy(ctx, referred, locked[referrer].ReferralCode); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return err
	}

	s.recordChange(referrerChange, "referral")
	s.recordChange(referredChange, "referral")

	s.logger.Info().
		Str("referrer", referrer).
		Str("referred", referred).
		Str("referral_code", referral.ReferralCode).
		Msg("referral registered")

	s.publishStatus(ctx, referrer, referred)
	s.publishReferrals(ctx, referrer, referred)

	return nil
}

func (s *referralService) Summary(ctx context.Context, username string) (*model.ReferralSummary, error) {
	summary, err := s.referrals(ctx, username)
	if err != nil {
		s.logger.Error().Err(err).Str("username", username).Msg("failed to read referrals")
		return nil, err
	}
	return &summary, nil
}

func (s *referralService) Count(ctx context.Context, username string) (int, error) {
	count, err := s.repos.Referrals.CountByReferrer(ctx, username)
	if err != nil {
		return 0, mapStoreError(err, nil)
	}
	return count, nil
}

func (s *referralService) WatchReferrals(ctx context.Context, username string) (*watch.Subscription[model.ReferralSummary], error) {
	return subscribe(ctx, s.hub.referrals, username, func(ctx context.Context) (model.ReferralSummary, error) {
		return s.referrals(ctx, username)
	})
}
