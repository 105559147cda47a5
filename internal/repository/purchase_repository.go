package repository

import (
	"context"

	"levelup-loyalty/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// purchaseRepository implements PurchaseRepository using PostgreSQL.
type purchaseRepository struct {
	db     DBTX
	logger zerolog.Logger
}

// NewPurchaseRepository creates a new PostgreSQL-backed purchase history repository.
func NewPurchaseRepository(db DBTX, logger zerolog.Logger) PurchaseRepository {
	return &purchaseRepository{
		db:     db,
		logger: logger.With().Str("repository", "purchase").Logger(),
	}
}

func (r *purchaseRepository) WithTx(tx pgx.Tx) PurchaseRepository {
	return &purchaseRepository{db: tx, logger: r.logger}
}

// Create inserts a purchase record.
func (r *purchaseRepository) Create(ctx context.Context, p *model.Purchase) error {
	query := `
		INSERT INTO purchase_history
			(username, total_amount, items_count, points_earned, bonus_points, purchase_date, order_number, items_summary)
		VALUES ($1, $2, $3, $4, $5, COALESCE($6, NOW()), $7, $8)
		RETURNING id, purchase_date
	`

	var date any
	if !p.PurchaseDate.IsZero() {
		date = p.PurchaseDate
	}

	err := r.db.QueryRow(ctx, query,
		p.Username,
		p.TotalAmount,
		p.ItemsCount,
		p.PointsEarned,
		p.BonusPoints,
		date,
		p.OrderNumber,
		p.ItemsSummary,
	).Scan(&p.ID, &p.PurchaseDate)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("username", p.Username).
			Str("order_number", p.OrderNumber).
			Msg("failed to create purchase")
		return translate("create purchase", err)
	}

	r.logger.Debug().
		Int64("purchase_id", p.ID).
		Str("order_number", p.OrderNumber).
		Msg("purchase created successfully")

	return nil
}

// ListByUser returns purchases newest first.
func (r *purchaseRepository) ListByUser(ctx context.Context, username string, limit int) ([]model.Purchase, error) {
	query := `
		SELECT id, username, total_amount, items_count, points_earned, bonus_points,
		       purchase_date, order_number, items_summary
		FROM purchase_history
		WHERE username = $1
		ORDER BY purchase_date DESC, id DESC
	`
	args := []any{username}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error().Err(err).Str("username", username).Msg("failed to query purchases")
		return nil, translate("list purchases", err)
	}
	defer rows.Close()

	purchases := make([]model.Purchase, 0)
	for rows.Next() {
		var p model.Purchase
		err := rows.Scan(
			&p.ID,
			&p.Username,
			&p.TotalAmount,
			&p.ItemsCount,
			&p.PointsEarned,
			&p.BonusPoints,
			&p.PurchaseDate,
			&p.OrderNumber,
			&p.ItemsSummary,
		)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan purchase row")
			return nil, translate("list purchases", err)
		}
		purchases = append(purchases, p)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating purchase rows")
		return nil, translate("list purchases", err)
	}

	return purchases, nil
}

// TotalSpent sums the amounts of a user's purchases.
func (r *purchaseRepository) TotalSpent(ctx context.Context, username string) (float64, error) {
	var total float64
	err := r.db.QueryRow(ctx,
		`SELECT COALESCE(SUM(total_amount), 0)::float8 FROM purchase_history WHERE username = $1`,
		username,
	).Scan(&total)
	if err != nil {
		r.logger.Error().Err(err).Str("username", username).Msg("failed to sum purchases")
		return 0, translate("total spent", err)
	}
	return total, nil
}

// Count returns the number of purchases a user made.
func (r *purchaseRepository) Count(ctx context.Context, username string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM purchase_history WHERE username = $1`, username).Scan(&count)
	if err != nil {
		r.logger.Error().Err(err).Str("username", username).Msg("failed to count purchases")
		return 0, translate("count purchases", err)
	}
	return count, nil
}
