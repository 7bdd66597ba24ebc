// Package remote provides the cloud storage backends files are synced to.
package remote

import (
	"context"
	"errors"
	"io"

	"github.com/chmdznr/csync/pkg/models"
)

var (
	ErrUnknownBackend = errors.New("unknown remote backend")
	ErrNotFound       = errors.New("remote file not found")
)

// Store is the set of remote operations the sync engine and the backup
// scheduler consume. One instance is shared by every component and used
// serially.
type Store interface {
	// List returns every entry directly under folderID.
	List(ctx context.Context, folderID string) ([]models.RemoteFile, error)
	// Create uploads a new file named name under folderID.
	Create(ctx context.Context, folderID, name string, r io.Reader, info models.UploadInfo) (models.RemoteFile, error)
	// Update replaces the content of fileID, keeping its identifier.
	Update(ctx context.Context, fileID string, r io.Reader, info models.UploadInfo) (models.RemoteFile, error)
	// Download writes the content of fileID to w.
	Download(ctx context.Context, fileID string, w io.Writer) (int64, error)
}
