package repository

import (
	"context"

	"levelup-loyalty/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

// memberRepository implements MemberRepository using PostgreSQL.
type memberRepository struct {
	db     DBTX
	logger zerolog.Logger
}

// NewMemberRepository creates a new PostgreSQL-backed membership repository.
func NewMemberRepository(db DBTX, logger zerolog.Logger) MemberRepository {
	return &memberRepository{
		db:     db,
		logger: logger.With().Str("repository", "member").Logger(),
	}
}

// Upsert stores the member's email and flag.
func (r *memberRepository) Upsert(ctx context.Context, m *model.Member) error {
	query := `
		INSERT INTO members (username, email, is_member)
		VALUES ($1, $2, $3)
		ON CONFLICT (username)
		DO UPDATE SET email = EXCLUDED.email, is_member = EXCLUDED.is_member, updated_at = NOW()
		RETURNING created_at, updated_at
	`

	if err := r.db.QueryRow(ctx, query, m.Username, m.Email, m.IsMember).Scan(&m.CreatedAt, &m.UpdatedAt); err != nil {
		r.logger.Error().Err(err).Str("username", m.Username).Msg("failed to upsert member")
		return translate("upsert member", err)
	}

	return nil
}

// GetByUsername returns ErrNotFound for users who never registered an email.
func (r *memberRepository) GetByUsername(ctx context.Context, username string) (*model.Member, error) {
	query := `SELECT username, email, is_member, created_at, updated_at FROM members WHERE username = $1`

	var m model.Member
	err := r.db.QueryRow(ctx, query, username).Scan(&m.Username, &m.Email, &m.IsMember, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, notFound("get member")
		}
		r.logger.Error().Err(err).Str("username", username).Msg("failed to query member")
		return nil, translate("get member", err)
	}

	return &m, nil
}
