package sourcestore

import (
	"context"
	"fmt"

	"github.com/itsmechinmoy/dartotsu-updater/internal/config"
)

// New creates the backend selected by cfg.Source.Type.
func New(ctx context.Context, cfg *config.GlobalConfig) (Source, error) {
	src := cfg.Source

	switch Type(src.Type) {
	case TypeDrive:
		creds, err := cfg.ServiceAccount()
		if err != nil {
			return nil, err
		}
		if len(creds) == 0 {
			return nil, fmt.Errorf("drive source requires service account credentials")
		}
		return NewDriveSource(ctx, creds)
	case TypeGCS:
		creds, err := cfg.ServiceAccount()
		if err != nil {
			return nil, err
		}
		return NewGCSSource(ctx, src.Bucket, creds)
	case TypeS3:
		return NewS3Source(ctx, S3Config{
			Bucket:       src.Bucket,
			Region:       src.Region,
			Endpoint:     src.Endpoint,
			UsePathStyle: src.UsePathStyle,
		})
	case TypeFS:
		return NewFileSource(src.Root)
	default:
		return nil, fmt.Errorf("unsupported source type: %s", src.Type)
	}
}
