package storage

import (
	"context"
	"os"

	"clipper/internal/config"
	"clipper/internal/services"
)

// NewFromConfig builds the backend selected by cfg.Storage.Backend.
func NewFromConfig(ctx context.Context, cfg *config.Config) (Backend, error) {
	switch cfg.Storage.Backend {
	case config.StorageLocal:
		return NewLocal(cfg.Paths.UploadDir, cfg.Server.BaseURL)
	case config.StorageS3:
		return NewS3(ctx, S3Options{
			Bucket:          cfg.Storage.S3Bucket,
			Region:          cfg.Storage.S3Region,
			Prefix:          cfg.Storage.S3Prefix,
			Endpoint:        cfg.Storage.S3Endpoint,
			AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
			SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
		})
	default:
		return nil, services.Wrap(services.ErrConfiguration, "storage", "setup", "unknown backend "+cfg.Storage.Backend, nil)
	}
}
