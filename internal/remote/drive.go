package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/chmdznr/csync/pkg/models"
)

const (
	driveFolderMime = "application/vnd.google-apps.folder"
	driveFileFields = "id,name,modifiedTime,size"
	driveTimeLayout = "2006-01-02T15:04:05.000Z"
)

// DriveStore talks to Google Drive v3.
type DriveStore struct {
	service *drive.Service
}

// NewDrive loads a service-account key file and builds a Drive client
// with full drive scope.
func NewDrive(ctx context.Context, credentialsFile string) (*DriveStore, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	creds, err := google.CredentialsFromJSON(ctx, data, drive.DriveScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	svc, err := drive.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}
	return NewDriveWithService(svc), nil
}

// NewDriveWithService wraps an existing Drive service.
func NewDriveWithService(svc *drive.Service) *DriveStore {
	return &DriveStore{service: svc}
}

func (s *DriveStore) List(ctx context.Context, folderID string) ([]models.RemoteFile, error) {
	query := fmt.Sprintf("'%s' in parents and mimeType != '%s' and trashed = false",
		escapeDriveQuery(folderID), driveFolderMime)

	var files []models.RemoteFile
	pageToken := ""
	for {
		call := s.service.Files.List().
			Context(ctx).
			Q(query).
			Fields(googleapi.Field("nextPageToken,files(" + driveFileFields + ")")).
			PageSize(1000)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		result, err := call.Do()
		if err != nil {
			return nil, fmt.Errorf("list files in %s: %w", folderID, wrapDriveError(err))
		}

		for _, f := range result.Files {
			rf, err := toRemoteFile(f)
			if err != nil {
				return nil, err
			}
			files = append(files, rf)
		}

		if result.NextPageToken == "" {
			return files, nil
		}
		pageToken = result.NextPageToken
	}
}

func (s *DriveStore) Create(ctx context.Context, folderID, name string, r io.Reader, info models.UploadInfo) (models.RemoteFile, error) {
	file := &drive.File{
		Name:    name,
		Parents: []string{folderID},
	}
	if !info.ModTime.IsZero() {
		file.ModifiedTime = info.ModTime.UTC().Format(driveTimeLayout)
	}

	result, err := s.service.Files.Create(file).
		Context(ctx).
		Media(r).
		Fields(driveFileFields).
		Do()
	if err != nil {
		return models.RemoteFile{}, fmt.Errorf("create file in Drive: %w", wrapDriveError(err))
	}
	return toRemoteFile(result)
}

func (s *DriveStore) Update(ctx context.Context, fileID string, r io.Reader, info models.UploadInfo) (models.RemoteFile, error) {
	file := &drive.File{}
	if !info.ModTime.IsZero() {
		file.ModifiedTime = info.ModTime.UTC().Format(driveTimeLayout)
	}

	result, err := s.service.Files.Update(fileID, file).
		Context(ctx).
		Media(r).
		Fields(driveFileFields).
		Do()
	if err != nil {
		return models.RemoteFile{}, fmt.Errorf("update file in Drive: %w", wrapDriveError(err))
	}
	return toRemoteFile(result)
}

func (s *DriveStore) Download(ctx context.Context, fileID string, w io.Writer) (int64, error) {
	resp, err := s.service.Files.Get(fileID).
		Context(ctx).
		Download()
	if err != nil {
		return 0, fmt.Errorf("download file: %w", wrapDriveError(err))
	}
	defer resp.Body.Close()

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("write file content: %w", err)
	}
	return n, nil
}

func toRemoteFile(f *drive.File) (models.RemoteFile, error) {
	mtime, err := time.Parse(time.RFC3339Nano, f.ModifiedTime)
	if err != nil {
		return models.RemoteFile{}, fmt.Errorf("parse modifiedTime of %s: %w", f.Name, err)
	}
	return models.RemoteFile{
		ID:           f.Id,
		Name:         f.Name,
		ModifiedTime: models.NormalizeTime(mtime),
		Size:         f.Size,
	}, nil
}

func wrapDriveError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return err
}

// escapeDriveQuery escapes a string for use in Drive API queries.
func escapeDriveQuery(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "'", "\\'")

	return s
}
