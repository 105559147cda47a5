package repository

import (
	"context"

	"levelup-loyalty/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

const cartColumns = `id, product_id, product_name, product_price, price_value, quantity,
	category, description, manufacturer, username, added_at`

// cartRepository implements CartRepository using PostgreSQL.
type cartRepository struct {
	db     DBTX
	logger zerolog.Logger
}

// NewCartRepository creates a new PostgreSQL-backed cart repository.
func NewCartRepository(db DBTX, logger zerolog.Logger) CartRepository {
	return &cartRepository{
		db:     db,
		logger: logger.With().Str("repository", "cart").Logger(),
	}
}

func (r *cartRepository) WithTx(tx pgx.Tx) CartRepository {
	return &cartRepository{db: tx, logger: r.logger}
}

// Upsert adds a product to the cart, merging with an existing line for the same product.
func (r *cartRepository) Upsert(ctx context.Context, line *model.CartLine) (*model.CartLine, error) {
	query := `
		INSERT INTO cart_items
			(product_id, product_name, product_price, price_value, quantity, category, description, manufacturer, username)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (product_id, username)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
		RETURNING ` + cartColumns

	saved, err := scanCartLine(r.db.QueryRow(ctx, query,
		line.ProductID,
		line.ProductName,
		line.ProductPrice,
		line.PriceValue,
		line.Quantity,
		line.Category,
		line.Description,
		line.Manufacturer,
		line.Username,
	))
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("username", line.Username).
			Str("product_id", line.ProductID).
			Msg("failed to upsert cart line")
		return nil, translate("upsert cart line", err)
	}

	r.logger.Debug().
		Int64("line_id", saved.ID).
		Str("product_id", saved.ProductID).
		Int("quantity", saved.Quantity).
		Msg("cart line saved")

	return saved, nil
}

// ListByUser returns a user's cart lines, most recently added first.
func (r *cartRepository) ListByUser(ctx context.Context, username string) ([]model.CartLine, error) {
	query := `SELECT ` + cartColumns + ` FROM cart_items WHERE username = $1 ORDER BY added_at DESC, id DESC`
	return r.list(ctx, "list cart", query, username)
}

// LockByUser returns a user's cart lines and row-locks them until the
// surrounding transaction ends.
func (r *cartRepository) LockByUser(ctx context.Context, username string) ([]model.CartLine, error) {
	query := `SELECT ` + cartColumns + ` FROM cart_items WHERE username = $1 ORDER BY added_at DESC, id DESC FOR UPDATE`
	return r.list(ctx, "lock cart", query, username)
}

func (r *cartRepository) list(ctx context.Context, op, query, username string) ([]model.CartLine, error) {
	rows, err := r.db.Query(ctx, query, username)
	if err != nil {
		r.logger.Error().Err(err).Str("username", username).Str("op", op).Msg("failed to query cart")
		return nil, translate(op, err)
	}
	defer rows.Close()

	lines := make([]model.CartLine, 0)
	for rows.Next() {
		line, err := scanCartLine(rows)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan cart row")
			return nil, translate(op, err)
		}
		lines = append(lines, *line)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating cart rows")
		return nil, translate(op, err)
	}

	return lines, nil
}

// UpdateQuantity sets the quantity of one line.
func (r *cartRepository) UpdateQuantity(ctx context.Context, username string, id int64, quantity int) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE cart_items SET quantity = $3 WHERE id = $1 AND username = $2`,
		id, username, quantity,
	)
	if err != nil {
		r.logger.Error().Err(err).Int64("line_id", id).Int("quantity", quantity).Msg("failed to update cart line")
		return translate("update cart line", err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("update cart line")
	}
	return nil
}

// Delete removes one line.
func (r *cartRepository) Delete(ctx context.Context, username string, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM cart_items WHERE id = $1 AND username = $2`, id, username)
	if err != nil {
		r.logger.Error().Err(err).Int64("line_id", id).Msg("failed to delete cart line")
		return translate("delete cart line", err)
	}
	if tag.RowsAffected() == 0 {
		return notFound("delete cart line")
	}
	return nil
}

// Clear empties a user's cart.
func (r *cartRepository) Clear(ctx context.Context, username string) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM cart_items WHERE username = $1`, username)
	if err != nil {
		r.logger.Error().Err(err).Str("username", username).Msg("failed to clear cart")
		return 0, translate("clear cart", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteLines removes exactly the given lines, each only while it still
// holds the listed quantity, and returns how many were removed.
func (r *cartRepository) DeleteLines(ctx context.Context, username string, lines []model.CartLine) (int64, error) {
	ids := make([]int64, len(lines))
	quantities := make([]int32, len(lines))
	for i, l := range lines {
		ids[i] = l.ID
		quantities[i] = int32(l.Quantity)
	}

	query := `
		DELETE FROM cart_items c
		USING unnest($2::bigint[], $3::integer[]) AS paid(id, quantity)
		WHERE c.username = $1 AND c.id = paid.id AND c.quantity = paid.quantity
	`

	tag, err := r.db.Exec(ctx, query, username, ids, quantities)
	if err != nil {
		r.logger.Error().Err(err).Str("username", username).Int("lines", len(lines)).Msg("failed to delete cart lines")
		return 0, translate("delete cart lines", err)
	}
	return tag.RowsAffected(), nil
}

func scanCartLine(row pgx.Row) (*model.CartLine, error) {
	var l model.CartLine
	err := row.Scan(
		&l.ID,
		&l.ProductID,
		&l.ProductName,
		&l.ProductPrice,
		&l.PriceValue,
		&l.Quantity,
		&l.Category,
		&l.Description,
		&l.Manufacturer,
		&l.Username,
		&l.AddedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}
