package remote

import (
	"context"
	"fmt"

	"github.com/spf13/afero"

	"github.com/chmdznr/csync/internal/config"
)

// New builds the backend selected by cfg.
func New(ctx context.Context, cfg config.RemoteConfig) (Store, error) {
	switch cfg.Backend {
	case config.BackendDrive:
		return NewDrive(ctx, cfg.CredentialsFile)
	case config.BackendMinio:
		return NewMinio(MinioOptions{
			Endpoint:  cfg.Minio.Endpoint,
			Bucket:    cfg.Minio.Bucket,
			AccessKey: cfg.Minio.AccessKey,
			SecretKey: cfg.Minio.SecretKey,
			Secure:    cfg.Minio.UseTLS(),
		})
	case config.BackendFS:
		return NewFSStore(afero.NewOsFs(), ""), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}
