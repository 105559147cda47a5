package repository

import (
	"context"
	"fmt"

	"levelup-loyalty/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

const userPointsColumns = `id, username, points, level, referral_code, referred_by,
	total_purchases, last_purchase_date, created_at, updated_at`

// pointsRepository implements PointsRepository using PostgreSQL.
type pointsRepository struct {
	db     DBTX
	logger zerolog.Logger
}

// NewPointsRepository creates a new PostgreSQL-backed loyalty ledger repository.
func NewPointsRepository(db DBTX, logger zerolog.Logger) PointsRepository {
	return &pointsRepository{
		db:     db,
		logger: logger.With().Str("repository", "points").Logger(),
	}
}

func (r *pointsRepository) WithTx(tx pgx.Tx) PointsRepository {
	return &pointsRepository{db: tx, logger: r.logger}
}

// Ensure inserts the user when absent.
func (r *pointsRepository) Ensure(ctx context.Context, user *model.UserPoints) (bool, error) {
	query := `
		INSERT INTO levelup_points (username, points, level, referral_code)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (username) DO NOTHING
	`

	tag, err := r.db.Exec(ctx, query, user.Username, user.Points, user.Level, user.ReferralCode)
	if err != nil {
		r.logger.Error().Err(err).Str("username", user.Username).Msg("failed to ensure user")
		return false, translate("ensure user", err)
	}

	created := tag.RowsAffected() == 1
	if created {
		r.logger.Debug().
			Str("username", user.Username).
			Str("referral_code", user.ReferralCode).
			Msg("user enrolled")
	}

	return created, nil
}

// GetByUsername retrieves a user's ledger row.
func (r *pointsRepository) GetByUsername(ctx context.Context, username string) (*model.UserPoints, error) {
	query := `SELECT ` + userPointsColumns + ` FROM levelup_points WHERE username = $1`
	return r.getOne(ctx, "get user", query, username)
}

// GetForUpdate retrieves and row-locks a user's ledger row.
func (r *pointsRepository) GetForUpdate(ctx context.Context, username string) (*model.UserPoints, error) {
	query := `SELECT ` + userPointsColumns + ` FROM levelup_points WHERE username = $1 FOR UPDATE`
	return r.getOne(ctx, "lock user", query, username)
}

// GetByReferralCode finds the owner of a referral code.
func (r *pointsRepository) GetByReferralCode(ctx context.Context, code string) (*model.UserPoints, error) {
	query := `SELECT ` + userPointsColumns + ` FROM levelup_points WHERE referral_code = $1`
	return r.getOne(ctx, "get user by referral code", query, code)
}

func (r *pointsRepository) getOne(ctx context.Context, op, query string, arg string) (*model.UserPoints, error) {
	user, err := scanUserPoints(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		if err == pgx.ErrNoRows {
			r.logger.Debug().Str("key", arg).Str("op", op).Msg("user not found")
			return nil, notFound(op)
		}
		r.logger.Error().Err(err).Str("key", arg).Str("op", op).Msg("failed to query user")
		return nil, translate(op, err)
	}
	return user, nil
}

// AddPoints increments a user's points.
func (r *pointsRepository) AddPoints(ctx context.Context, username string, delta int) (int, error) {
	query := `
		UPDATE levelup_points
		SET points = points + $2, updated_at = NOW()
		WHERE username = $1
		RETURNING points
	`

	var points int
	if err := r.db.QueryRow(ctx, query, username, delta).Scan(&points); err != nil {
		if err == pgx.ErrNoRows {
			return 0, notFound("add points")
		}
		r.logger.Error().
			Err(err).
			Str("username", username).
			Int("delta", delta).
			Msg("failed to add points")
		return 0, translate("add points", err)
	}

	return points, nil
}

// SetLevel persists a recomputed level.
func (r *pointsRepository) SetLevel(ctx context.Context, username string, level int) error {
	query := `UPDATE levelup_points SET level = $2, updated_at = NOW() WHERE username = $1`
	return r.execOne(ctx, "set level", query, username, level)
}

// RecordPurchase bumps the purchase counter.
func (r *pointsRepository) RecordPurchase(ctx context.Context, username string, date string) error {
	query := `
		UPDATE levelup_points
		SET total_purchases = total_purchases + 1, last_purchase_date = $2, updated_at = NOW()
		WHERE username = $1
	`
	return r.execOne(ctx, "record purchase", query, username, date)
}

// SetReferredBy stores the referral code that brought the user in.
func (r *pointsRepository) SetReferredBy(ctx context.Context, username, referralCode string) error {
	query := `UPDATE levelup_points SET referred_by = $2, updated_at = NOW() WHERE username = $1`
	return r.execOne(ctx, "set referred by", query, username, referralCode)
}

func (r *pointsRepository) execOne(ctx context.Context, op, query string, args ...any) error {
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		r.logger.Error().Err(err).Str("op", op).Msg("failed to update user")
		return translate(op, err)
	}
	if tag.RowsAffected() == 0 {
		return notFound(op)
	}
	return nil
}

// TopUsers returns the leaderboard.
func (r *pointsRepository) TopUsers(ctx context.Context, limit int) ([]model.UserPoints, error) {
	query := `SELECT ` + userPointsColumns + `
		FROM levelup_points
		ORDER BY points DESC, username
		LIMIT $1`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		r.logger.Error().Err(err).Int("limit", limit).Msg("failed to query top users")
		return nil, translate("top users", err)
	}
	defer rows.Close()

	users := make([]model.UserPoints, 0)
	for rows.Next() {
		user, err := scanUserPoints(rows)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan user row")
			return nil, fmt.Errorf("failed to scan user: %w", translate("top users", err))
		}
		users = append(users, *user)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating user rows")
		return nil, translate("top users", err)
	}

	return users, nil
}

// Rank computes a user's position in the leaderboard.
func (r *pointsRepository) Rank(ctx context.Context, username string) (int, error) {
	query := `
		SELECT (SELECT COUNT(*) FROM levelup_points other WHERE other.points > u.points) + 1
		FROM levelup_points u
		WHERE u.username = $1
	`

	var rank int
	if err := r.db.QueryRow(ctx, query, username).Scan(&rank); err != nil {
		if err == pgx.ErrNoRows {
			return 0, notFound("rank")
		}
		r.logger.Error().Err(err).Str("username", username).Msg("failed to compute rank")
		return 0, translate("rank", err)
	}

	return rank, nil
}

func scanUserPoints(row pgx.Row) (*model.UserPoints, error) {
	var u model.UserPoints
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Points,
		&u.Level,
		&u.ReferralCode,
		&u.ReferredBy,
		&u.TotalPurchases,
		&u.LastPurchaseDate,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}
