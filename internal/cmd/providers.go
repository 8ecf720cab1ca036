package cmd

import (
	"context"

	"github.com/lakeshift/relay/internal/config"
	"github.com/lakeshift/relay/pkg/provider"
	"github.com/lakeshift/relay/pkg/provider/s3"
)

// newStoreProvider builds an S3-compatible provider from store settings.
//
// Both AWS S3 and other S3-compatible stores (set endpoint and usually
// force_path_style) are reached through the same provider.
func newStoreProvider(ctx context.Context, cfg config.StoreConfig) (provider.Provider, error) {
	return s3.New(ctx, s3.Config{
		Region:          cfg.Region,
		Endpoint:        cfg.Endpoint,
		Profile:         cfg.Profile,
		AccessKeyID:     cfg.AccessKeyID,
		SecretAccessKey: cfg.SecretAccessKey,
		ForcePathStyle:  cfg.ForcePathStyle,
	})
}
