package repository

import (
	"context"

	"levelup-loyalty/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

const referralColumns = `id, referrer_username, referred_username, referral_code, points_earned, date_created`

// referralRepository implements ReferralRepository using PostgreSQL.
type referralRepository struct {
	db     DBTX
	logger zerolog.Logger
}

// NewReferralRepository creates a new PostgreSQL-backed referral repository.
func NewReferralRepository(db DBTX, logger zerolog.Logger) ReferralRepository {
	return &referralRepository{
		db:     db,
		logger: logger.With().Str("repository", "referral").Logger(),
	}
}

func (r *referralRepository) WithTx(tx pgx.Tx) ReferralRepository {
	return &referralRepository{db: tx, logger: r.logger}
}

// Create inserts a referral.
func (r *referralRepository) Create(ctx context.Context, ref *model.Referral) error {
	query := `
		INSERT INTO referrals (referrer_username, referred_username, referral_code, points_earned, date_created)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	err := r.db.QueryRow(ctx, query,
		ref.ReferrerUsername,
		ref.ReferredUsername,
		ref.ReferralCode,
		ref.PointsEarned,
		ref.DateCreated,
	).Scan(&ref.ID)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("referrer", ref.ReferrerUsername).
			Str("referred", ref.ReferredUsername).
			Msg("failed to create referral")
		return translate("create referral", err)
	}

	return nil
}

// ListByReferrer returns the referrals a user made, newest first.
func (r *referralRepository) ListByReferrer(ctx context.Context, username string) ([]model.Referral, error) {
	query := `SELECT ` + referralColumns + ` FROM referrals WHERE referrer_username = $1 ORDER BY id DESC`

	rows, err := r.db.Query(ctx, query, username)
	if err != nil {
		r.logger.Error().Err(err).Str("username", username).Msg("failed to query referrals")
		return nil, translate("list referrals", err)
	}
	defer rows.Close()

	referrals := make([]model.Referral, 0)
	for rows.Next() {
		ref, err := scanReferral(rows)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan referral row")
			return nil, translate("list referrals", err)
		}
		referrals = append(referrals, *ref)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating referral rows")
		return nil, translate("list referrals", err)
	}

	return referrals, nil
}

// CountByReferrer counts the referrals a user made.
func (r *referralRepository) CountByReferrer(ctx context.Context, username string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM referrals WHERE referrer_username = $1`, username).Scan(&count)
	if err != nil {
		r.logger.Error().Err(err).Str("username", username).Msg("failed to count referrals")
		return 0, translate("count referrals", err)
	}
	return count, nil
}

// GetByReferred returns who referred username.
func (r *referralRepository) GetByReferred(ctx context.Context, username string) (*model.Referral, error) {
	query := `SELECT ` + referralColumns + ` FROM referrals WHERE referred_username = $1`

	ref, err := scanReferral(r.db.QueryRow(ctx, query, username))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, notFound("get referral")
		}
		r.logger.Error().Err(err).Str("username", username).Msg("failed to query referral")
		return nil, translate("get referral", err)
	}
	return ref, nil
}

func scanReferral(row pgx.Row) (*model.Referral, error) {
	var ref model.Referral
	err := row.Scan(
		&ref.ID,
		&ref.ReferrerUsername,
		&ref.ReferredUsername,
		&ref.ReferralCode,
		&ref.PointsEarned,
		&ref.DateCreated,
	)
	if err != nil {
		return nil, err
	}
	return &ref, nil
}
