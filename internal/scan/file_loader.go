package scan

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
)

type fileLoader struct {
	logger zerolog.Logger
}

// NewFileLoader creates a loader for batch files on the local file system.
func NewFileLoader(logger zerolog.Logger) Loader {
	return &fileLoader{
		logger: logger.With().Str("component", "scan-file-loader").Logger(),
	}
}

func (l *fileLoader) Load(ctx context.Context, path string) ([]Entry, error) {
	file, err := os.Open(path)
	if err != nil {
		l.logger.Error().Err(err).Str("file", path).Msg("failed to open scan batch")
		return nil, fmt.Errorf("failed to open scan batch %s: %w", path, err)
	}
	defer file.Close()

	entries, err := readBatch(ctx, file)
	if err != nil {
		l.logger.Error().Err(err).Str("file", path).Msg("failed to read scan batch")
		return nil, fmt.Errorf("scan batch %s: %w", path, err)
	}

	l.logger.Info().Str("file", path).Int("entries", len(entries)).Msg("scan batch loaded")

	return entries, nil
}
