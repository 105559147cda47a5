package janitor

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Purger deletes discount grants that expired before now.
type Purger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// DiscountPurge removes expired discount grants.
type DiscountPurge struct {
	purger Purger
	clock  func() time.Time
	logger zerolog.Logger
}

// NewDiscountPurge creates the purge job. A nil clock uses time.Now.
func NewDiscountPurge(purger Purger, clock func() time.Time, logger zerolog.Logger) *DiscountPurge {
	if clock == nil {
		clock = time.Now
	}
	return &DiscountPurge{purger: purger, clock: clock, logger: logger}
}

func (p *DiscountPurge) Name() string { return "discount_purge" }

func (p *DiscountPurge) Run(ctx context.Context) error {
	deleted, err := p.purger.PurgeExpired(ctx, p.clock())
	if err != nil {
		return err
	}
	if deleted > 0 {
		p.logger.Info().Int64("deleted", deleted).Msg("expired discounts purged")
	}
	return nil
}
