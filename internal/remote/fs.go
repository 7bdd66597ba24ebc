package remote

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/chmdznr/csync/pkg/models"
)

// FSStore keeps remote folders as directories on a filesystem. Folder
// identifiers are directory paths and file identifiers are file paths.
type FSStore struct {
	fs afero.Fs
}

// NewFSStore returns a store rooted at root. An empty root uses fs as is.
func NewFSStore(fs afero.Fs, root string) *FSStore {
	if root != "" {
		fs = afero.NewBasePathFs(fs, root)
	}
	return &FSStore{fs: fs}
}

func (s *FSStore) List(ctx context.Context, folderID string) ([]models.RemoteFile, error) {
	entries, err := afero.ReadDir(s.fs, folderID)
	if err != nil {
		return nil, fmt.Errorf("read folder %s: %w", folderID, err)
	}

	files := make([]models.RemoteFile, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		files = append(files, models.RemoteFile{
			ID:           filepath.Join(folderID, e.Name()),
			Name:         e.Name(),
			ModifiedTime: models.NormalizeTime(e.ModTime()),
			Size:         e.Size(),
		})
	}
	return files, nil
}

func (s *FSStore) Create(ctx context.Context, folderID, name string, r io.Reader, info models.UploadInfo) (models.RemoteFile, error) {
	if err := s.fs.MkdirAll(folderID, 0o755); err != nil {
		return models.RemoteFile{}, fmt.Errorf("create folder %s: %w", folderID, err)
	}
	return s.write(filepath.Join(folderID, name), r, info)
}

func (s *FSStore) Update(ctx context.Context, fileID string, r io.Reader, info models.UploadInfo) (models.RemoteFile, error) {
	if _, err := s.fs.Stat(fileID); err != nil {
		if os.IsNotExist(err) {
			return models.RemoteFile{}, fmt.Errorf("%s: %w", fileID, ErrNotFound)
		}
		return models.RemoteFile{}, err
	}
	return s.write(fileID, r, info)
}

func (s *FSStore) Download(ctx context.Context, fileID string, w io.Writer) (int64, error) {
	f, err := s.fs.Open(fileID)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, fmt.Errorf("%s: %w", fileID, ErrNotFound)
		}
		return 0, err
	}
	defer f.Close()
	return io.Copy(w, f)
}

func (s *FSStore) write(path string, r io.Reader, info models.UploadInfo) (models.RemoteFile, error) {
	f, err := s.fs.Create(path)
	if err != nil {
		return models.RemoteFile{}, fmt.Errorf("create %s: %w", path, err)
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return models.RemoteFile{}, fmt.Errorf("write %s: %w", path, err)
	}

	mtime := models.NormalizeTime(info.ModTime)
	if !info.ModTime.IsZero() {
		if err := s.fs.Chtimes(path, mtime, mtime); err != nil {
			return models.RemoteFile{}, fmt.Errorf("set mtime on %s: %w", path, err)
		}
	} else {
		st, err := s.fs.Stat(path)
		if err != nil {
			return models.RemoteFile{}, err
		}
		mtime = models.NormalizeTime(st.ModTime())
	}

	return models.RemoteFile{
		ID:           path,
		Name:         filepath.Base(path),
		ModifiedTime: mtime,
		Size:         n,
	}, nil
}
