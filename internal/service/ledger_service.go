package service

import (
	"context"
	"fmt"
	"strings"

	"levelup-loyalty/internal/model"
	"levelup-loyalty/internal/watch"

	"github.com/rs/zerolog"
)

type ledgerService struct {
	*views
}

// NewLedgerService creates the points ledger.
func NewLedgerService(d Deps) LedgerService {
	return &ledgerService{views: newViews(d, "ledger")}
}

func (s *ledgerService) EnsureUser(ctx context.Context, username string) (*model.UserPoints, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, model.ErrInvalidUsername
	}

	created, err := s.ensureUser(ctx, username)
	if err != nil {
		s.logger.Error().Err(err).Str("username", username).Msg("failed to ensure user")
		return nil, mapStoreError(err, nil)
	}

	user, err := s.repos.Points.GetByUsername(ctx, username)
	if err != nil {
		return nil, mapStoreError(err, model.ErrUserNotFound)
	}

	if created {
		s.publishStatus(ctx, username)
	}

	return user, nil
}

func (s *ledgerService) AddPoints(ctx context.Context, username string, delta int) (change *model.PointsChange, err error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, model.ErrInvalidUsername
	}
	if delta < 0 {
		s.logger.Warn().Str("username", username).Int("delta", delta).Msg("negative points rejected")
		return nil, model.ErrInvalidPoints
	}

	if _, err := s.ensureUser(ctx, username); err != nil {
		s.logger.Error().Err(err).Str("username", username).Msg("failed to ensure user")
		return nil, mapStoreError(err, nil)
	}

	tx, err := s.repos.Tx.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to add points: %w", mapStoreError(err, nil))
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				s.logger.Error().Err(rbErr).Msg("failed to rollback transaction")
			}
		}
	}()

	points := s.repos.Points.WithTx(tx)

	locked, err := points.GetForUpdate(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to add points: %w", mapStoreError(err, model.ErrUserNotFound))
	}

	change, err = s.credit(ctx, points, locked, delta)
	if err != nil {
		s.logger.Error().Err(err).Str("username", username).Int("delta", delta).Msg("failed to credit points")
		return nil, fmt.Errorf("failed to add points: %w", mapStoreError(err, nil))
	}

	if err = tx.Commit(ctx); err != nil {
		s.logger.Error().Err(err).Str("username", username).Msg("failed to commit transaction")
		return nil, fmt.Errorf("failed to add points: %w", mapStoreError(err, nil))
	}

	s.recordChange(change, "manual")
	s.logger.Info().
		Str("username", username).
		Int("delta", delta).
		Int("points", change.NewPoints).
		Int("level", change.NewLevel).
		Msg("points added")

	s.publishStatus(ctx, username)

	return change, nil
}

func (s *ledgerService) Status(ctx context.Context, username string) (*model.UserStatus, error) {
	status, err := s.status(ctx, username)
	if err != nil {
		s.logAt(err).Err(err).Str("username", username).Msg("failed to get status")
		return nil, err
	}
	return &status, nil
}

func (s *ledgerService) TopUsers(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	return s.leaderboard(ctx, limit)
}

func (s *ledgerService) Rank(ctx context.Context, username string) (int, error) {
	rank, err := s.repos.Points.Rank(ctx, username)
	if err != nil {
		return 0, mapStoreError(err, model.ErrUserNotFound)
	}
	return rank, nil
}

func (s *ledgerService) WatchStatus(ctx context.Context, username string) (*watch.Subscription[model.UserStatus], error) {
	return subscribe(ctx, s.hub.status, username, func(ctx context.Context) (model.UserStatus, error) {
		return s.status(ctx, username)
	})
}

func (s *ledgerService) WatchLeaderboard(ctx context.Context) (*watch.Subscription[[]model.LeaderboardEntry], error) {
	return subscribe(ctx, s.hub.leaderboard, leaderboardKey, func(ctx context.Context) ([]model.LeaderboardEntry, error) {
		return s.leaderboard(ctx, 0)
	})
}

// logAt logs expected domain failures at debug and everything else at error.
func (v *views) logAt(err error) *zerolog.Event {
	if _, ok := model.AsDomainError(err); ok {
		return v.logger.Debug()
	}
	return v.logger.Error()
}
