package scan

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// ObjectGetter is the part of the S3 client the loader uses.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type s3Loader struct {
	client ObjectGetter
	bucket string
	logger zerolog.Logger
}

// NewS3Loader creates a loader reading batch objects from bucket using the
// default AWS credential chain.
func NewS3Loader(ctx context.Context, bucket, region string, logger zerolog.Logger) (Loader, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		logger.Error().Err(err).Msg("failed to load AWS configuration")
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	return NewS3LoaderWithClient(s3.NewFromConfig(cfg), bucket, logger), nil
}

// NewS3LoaderWithClient creates a loader over an existing client.
func NewS3LoaderWithClient(client ObjectGetter, bucket string, logger zerolog.Logger) Loader {
	return &s3Loader{
		client: client,
		bucket: bucket,
		logger: logger.With().Str("component", "scan-s3-loader").Str("bucket", bucket).Logger(),
	}
}

func (l *s3Loader) Load(ctx context.Context, key string) ([]Entry, error) {
	out, err := l.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(l.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		l.logger.Error().Err(err).Str("key", key).Msg("failed to get scan batch object")
		return nil, fmt.Errorf("failed to get object from S3 (bucket=%s, key=%s): %w", l.bucket, key, err)
	}
	defer out.Body.Close()

	entries, err := readBatch(ctx, out.Body)
	if err != nil {
		l.logger.Error().Err(err).Str("key", key).Msg("failed to read scan batch object")
		return nil, fmt.Errorf("S3 scan batch %s: %w", key, err)
	}

	l.logger.Info().Str("key", key).Int("entries", len(entries)).Msg("scan batch loaded from S3")

	return entries, nil
}

type fallbackLoader struct {
	primary  Loader
	fallback Loader
	prefix   string
	logger   zerolog.Logger
}

// NewFallbackLoader tries primary with prefix+path and falls back to
// fallback with the bare path. A nil primary goes straight to fallback.
func NewFallbackLoader(primary, fallback Loader, prefix string, logger zerolog.Logger) Loader {
	return &fallbackLoader{
		primary:  primary,
		fallback: fallback,
		prefix:   prefix,
		logger:   logger.With().Str("component", "scan-fallback-loader").Logger(),
	}
}

func (l *fallbackLoader) Load(ctx context.Context, path string) ([]Entry, error) {
	if l.primary != nil {
		key := l.prefix + path
		entries, err := l.primary.Load(ctx, key)
		if err == nil {
			return entries, nil
		}
		l.logger.Warn().Err(err).Str("key", key).Msg("primary load failed, falling back")
	}

	return l.fallback.Load(ctx, path)
}
