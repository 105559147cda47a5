package repository

import (
	"context"
	"time"

	"levelup-loyalty/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

const discountColumns = `id, code, description, percentage, username, is_used, scanned_at, expires_at`

// discountRepository implements DiscountRepository using PostgreSQL.
type discountRepository struct {
	db     DBTX
	logger zerolog.Logger
}

// NewDiscountRepository creates a new PostgreSQL-backed discount repository.
func NewDiscountRepository(db DBTX, logger zerolog.Logger) DiscountRepository {
	return &discountRepository{
		db:     db,
		logger: logger.With().Str("repository", "discount").Logger(),
	}
}

func (r *discountRepository) WithTx(tx pgx.Tx) DiscountRepository {
	return &discountRepository{db: tx, logger: r.logger}
}

// Create inserts a discount grant.
func (r *discountRepository) Create(ctx context.Context, d *model.DiscountGrant) error {
	query := `
		INSERT INTO discounts (code, description, percentage, username, is_used, scanned_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	err := r.db.QueryRow(ctx, query,
		d.Code,
		d.Description,
		d.Percentage,
		d.Username,
		d.IsUsed,
		d.ScannedAt,
		d.ExpiresAt,
	).Scan(&d.ID)
	if err != nil {
		err = translate("create discount", err)
		if KindOf(err) == KindDuplicateKey {
			r.logger.Debug().Str("username", d.Username).Msg("discount code already granted")
			return err
		}
		r.logger.Error().Err(err).Str("username", d.Username).Msg("failed to create discount")
		return err
	}

	return nil
}

// Exists reports whether the code was already granted to the user.
func (r *discountRepository) Exists(ctx context.Context, username, code string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM discounts WHERE code = $1 AND username = $2)`,
		code, username,
	).Scan(&exists)
	if err != nil {
		r.logger.Error().Err(err).Str("username", username).Msg("failed to check discount code")
		return false, translate("check discount", err)
	}
	return exists, nil
}

// ListByUser returns a user's grants newest first.
func (r *discountRepository) ListByUser(ctx context.Context, username string, activeOnly bool, now time.Time) ([]model.DiscountGrant, error) {
	query := `SELECT ` + discountColumns + ` FROM discounts WHERE username = $1`
	args := []any{username}
	if activeOnly {
		query += ` AND is_used = FALSE AND (expires_at IS NULL OR expires_at >= $2)`
		args = append(args, now)
	}
	query += ` ORDER BY scanned_at DESC, id DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error().Err(err).Str("username", username).Msg("failed to query discounts")
		return nil, translate("list discounts", err)
	}
	defer rows.Close()

	discounts := make([]model.DiscountGrant, 0)
	for rows.Next() {
		d, err := scanDiscount(rows)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan discount row")
			return nil, translate("list discounts", err)
		}
		discounts = append(discounts, *d)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating discount rows")
		return nil, translate("list discounts", err)
	}

	return discounts, nil
}

// CountActive counts unused, unexpired grants.
func (r *discountRepository) CountActive(ctx context.Context, username string, now time.Time) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM discounts
		WHERE username = $1 AND is_used = FALSE AND (expires_at IS NULL OR expires_at >= $2)
	`, username, now).Scan(&count)
	if err != nil {
		r.logger.Error().Err(err).Str("username", username).Msg("failed to count discounts")
		return 0, translate("count discounts", err)
	}
	return count, nil
}

// MarkUsed flips the grant to used. Marking an already used grant is a no-op.
func (r *discountRepository) MarkUsed(ctx context.Context, username string, id int64) error {
	tag, err := r.db.Exec(ctx, `UPDATE discounts SET is_used = TRUE WHERE id = $1 AND username = $2`, id, username)
	if err != nil {
		r.logger.Error().Err(err).Int64("discount_id", id).Msg("failed to mark discount used")
		return translate("mark discount used", err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("mark discount used")
	}
	return nil
}

// Delete removes one of the user's grants.
func (r *discountRepository) Delete(ctx context.Context, username string, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM discounts WHERE id = $1 AND username = $2`, id, username)
	if err != nil {
		r.logger.Error().Err(err).Int64("discount_id", id).Msg("failed to delete discount")
		return translate("delete discount", err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("delete discount")
	}
	return nil
}

// DeleteExpired purges grants that expired before now and returns the
// owner of each removed grant.
func (r *discountRepository) DeleteExpired(ctx context.Context, now time.Time) ([]string, error) {
	rows, err := r.db.Query(ctx, `DELETE FROM discounts WHERE expires_at IS NOT NULL AND expires_at < $1 RETURNING username`, now)
	if err != nil {
		r.logger.Error().Err(err).Time("now", now).Msg("failed to purge expired discounts")
		return nil, translate("purge discounts", err)
	}

	owners, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		r.logger.Error().Err(err).Time("now", now).Msg("failed to purge expired discounts")
		return nil, translate("purge discounts", err)
	}

	if len(owners) > 0 {
		r.logger.Info().Int("deleted", len(owners)).Msg("expired discounts purged")
	}

	return owners, nil
}

func scanDiscount(row pgx.Row) (*model.DiscountGrant, error) {
	var d model.DiscountGrant
	err := row.Scan(
		&d.ID,
		&d.Code,
		&d.Description,
		&d.Percentage,
		&d.Username,
		&d.IsUsed,
		&d.ScannedAt,
		&d.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
