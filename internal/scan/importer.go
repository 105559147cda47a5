package scan

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"levelup-loyalty/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// Redeemer grants the discount encoded in a scan to a user.
type Redeemer interface {
	AddFromScan(ctx context.Context, username, content string) (*model.DiscountGrant, error)
}

// Result summarises one batch import.
type Result struct {
	BatchID    string        `json:"batchId"`
	Total      int           `json:"total"`
	Redeemed   int           `json:"redeemed"`
	Duplicates int           `json:"duplicates"`
	Failed     int           `json:"failed"`
	Duration   time.Duration `json:"duration"`
}

// Importer redeems every entry of a batch with bounded concurrency.
type Importer struct {
	loader      Loader
	redeemer    Redeemer
	concurrency int
	logger      zerolog.Logger
}

// NewImporter creates an importer. Concurrency below 1 is treated as 1.
func NewImporter(loader Loader, redeemer Redeemer, concurrency int, logger zerolog.Logger) *Importer {
	return &Importer{
		loader:      loader,
		redeemer:    redeemer,
		concurrency: max(concurrency, 1),
		logger:      logger.With().Str("component", "scan-importer").Logger(),
	}
}

// Import loads path and redeems its entries. Duplicate scans are counted,
// not treated as failures. Per-entry failures are combined into the returned
// error; the Result is always populated once the batch was loaded.
func (im *Importer) Import(ctx context.Context, path string) (*Result, error) {
	start := time.Now()

	entries, err := im.loader.Load(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to load scan batch: %w", err)
	}

	res := &Result{BatchID: uuid.NewString(), Total: len(entries)}
	logger := im.logger.With().Str("batch_id", res.BatchID).Str("path", path).Logger()
	logger.Info().Int("entries", len(entries)).Int("concurrency", im.concurrency).Msg("importing scan batch")

	var (
		mu       sync.Mutex
		failures error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(im.concurrency)

	for _, entry := range entries {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			_, err := im.redeemer.AddFromScan(gctx, entry.Username, entry.Content)

			mu.Lock()
			defer mu.Unlock()

			switch {
			case err == nil:
				res.Redeemed++
			case errors.Is(err, model.ErrDuplicateDiscount):
				res.Duplicates++
			case gctx.Err() != nil:
				return gctx.Err()
			default:
				res.Failed++
				failures = multierr.Append(failures, fmt.Errorf("line %d (%s): %w", entry.Line, entry.Username, err))
			}
			return nil
		})
	}

	waitErr := g.Wait()
	res.Duration = time.Since(start)

	logger.Info().
		Int("redeemed", res.Redeemed).
		Int("duplicates", res.Duplicates).
		Int("failed", res.Failed).
		Dur("duration", res.Duration).
		Msg("scan batch imported")

	return res, multierr.Combine(waitErr, failures)
}
