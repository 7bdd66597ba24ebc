package remote

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/chmdznr/csync/pkg/models"
)

const mtimeMetaKey = "Mtime"

// MinioStore keeps remote folders as key prefixes in one bucket of an
// S3-compatible store. File identifiers are object keys.
type MinioStore struct {
	client *minio.Client
	bucket string
}

// MinioOptions configures NewMinio.
type MinioOptions struct {
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	Secure    bool
}

// NewMinio creates a MinIO client with a tuned transport.
func NewMinio(opts MinioOptions) (*MinioStore, error) {
	tr := &http.Transport{
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure:       opts.Secure,
		Transport:    tr,
		BucketLookup: minio.BucketLookupAuto,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize MinIO client: %w", err)
	}
	return &MinioStore{client: client, bucket: opts.Bucket}, nil
}

func folderPrefix(folderID string) string {
	folder := strings.Trim(folderID, "/")
	if folder == "" {
		return ""
	}
	return folder + "/"
}

func (s *MinioStore) List(ctx context.Context, folderID string) ([]models.RemoteFile, error) {
	prefix := folderPrefix(folderID)

	var files []models.RemoteFile
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:       prefix,
		Recursive:    false,
		WithMetadata: true,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list objects under %s/%s: %w", s.bucket, prefix, obj.Err)
		}
		if strings.HasSuffix(obj.Key, "/") {
			continue
		}
		files = append(files, models.RemoteFile{
			ID:           obj.Key,
			Name:         path.Base(obj.Key),
			ModifiedTime: objectModTime(obj),
			Size:         obj.Size,
		})
	}
	return files, nil
}

// objectModTime prefers the mtime recorded at upload over LastModified.
func objectModTime(obj minio.ObjectInfo) time.Time {
	for k, v := range obj.UserMetadata {
		if strings.EqualFold(k, mtimeMetaKey) || strings.EqualFold(k, "X-Amz-Meta-"+mtimeMetaKey) {
			if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
				return models.NormalizeTime(t)
			}
		}
	}
	return models.NormalizeTime(obj.LastModified)
}

func (s *MinioStore) Create(ctx context.Context, folderID, name string, r io.Reader, info models.UploadInfo) (models.RemoteFile, error) {
	return s.put(ctx, folderPrefix(folderID)+name, r, info)
}

func (s *MinioStore) Update(ctx context.Context, fileID string, r io.Reader, info models.UploadInfo) (models.RemoteFile, error) {
	return s.put(ctx, fileID, r, info)
}

func (s *MinioStore) put(ctx context.Context, key string, r io.Reader, info models.UploadInfo) (models.RemoteFile, error) {
	opts := minio.PutObjectOptions{}
	if !info.ModTime.IsZero() {
		opts.UserMetadata = map[string]string{
			mtimeMetaKey: models.NormalizeTime(info.ModTime).Format(time.RFC3339Nano),
		}
	}
	if strings.HasSuffix(strings.ToLower(key), ".zip") {
		opts.ContentType = "application/zip"
	}

	uploaded, err := s.client.PutObject(ctx, s.bucket, key, r, info.Size, opts)
	if err != nil {
		return models.RemoteFile{}, fmt.Errorf("failed to upload %s/%s: %w", s.bucket, key, err)
	}

	mtime := info.ModTime
	if mtime.IsZero() {
		mtime = uploaded.LastModified
	}
	return models.RemoteFile{
		ID:           uploaded.Key,
		Name:         path.Base(key),
		ModifiedTime: models.NormalizeTime(mtime),
		Size:         uploaded.Size,
	}, nil
}

func (s *MinioStore) Download(ctx context.Context, fileID string, w io.Writer) (int64, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, fileID, minio.GetObjectOptions{})
	if err != nil {
		return 0, fmt.Errorf("get object %s/%s: %w", s.bucket, fileID, wrapMinioError(err))
	}
	defer obj.Close()

	n, err := io.Copy(w, obj)
	if err != nil {
		return n, fmt.Errorf("read object %s/%s: %w", s.bucket, fileID, wrapMinioError(err))
	}
	return n, nil
}

func wrapMinioError(err error) error {
	if minio.ToErrorResponse(err).Code == "NoSuchKey" {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return err
}
