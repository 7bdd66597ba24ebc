// Package backup uploads a zip of all mapped files whenever the newest
// archive in the backup folder is older than the configured interval.
package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/chmdznr/csync/internal/remote"
	"github.com/chmdznr/csync/pkg/models"
	"github.com/chmdznr/csync/pkg/utils"
)

const nameLayout = "backup_20060102_150405"

// Recorder receives one entry per uploaded archive.
type Recorder interface {
	RecordTransfer(t models.Transfer) error
}

// Scheduler creates and uploads backup archives.
type Scheduler struct {
	store   remote.Store
	fs      afero.Fs
	log     log.FieldLogger
	clock   clockwork.Clock
	journal Recorder
	tempDir string
}

// Config holds optional scheduler settings.
type Config struct {
	Fs      afero.Fs
	Clock   clockwork.Clock
	Journal Recorder
	// TempDir is where the archive is built before upload.
	TempDir string
}

// Result describes one Run.
type Result struct {
	Skipped  bool
	Latest   *models.RemoteFile
	Name     string
	RemoteID string
	Files    int
	Size     int64
}

func NewScheduler(store remote.Store, logger log.FieldLogger, cfg *Config) *Scheduler {
	if cfg == nil {
		cfg = &Config{}
	}
	s := &Scheduler{
		store:   store,
		fs:      cfg.Fs,
		log:     logger,
		clock:   cfg.Clock,
		journal: cfg.Journal,
		tempDir: cfg.TempDir,
	}
	if s.fs == nil {
		s.fs = afero.NewOsFs()
	}
	if s.clock == nil {
		s.clock = clockwork.NewRealClock()
	}
	if s.tempDir == "" {
		s.tempDir = os.TempDir()
	}
	return s
}

// Due reports whether a new backup is needed: there is no backup yet, or
// the newest one is at least interval old. The newest backup is returned
// when there is one.
func Due(backups []models.RemoteFile, now time.Time, interval time.Duration) (bool, *models.RemoteFile) {
	newest, ok := models.Newest(backups)
	if !ok {
		return true, nil
	}
	return now.Sub(newest.ModifiedTime) >= interval, &newest
}

// Run checks the backup folder and, when a backup is due or force is set,
// zips the mapped files and uploads the archive. The local archive is
// removed after a successful upload only.
func (s *Scheduler) Run(ctx context.Context, folderID string, interval time.Duration, mapping models.FileMapping, force bool) (*Result, error) {
	logger := s.log.WithField("folder", folderID)
	now := s.clock.Now()

	backups, err := s.store.List(ctx, folderID)
	if err != nil {
		logger.WithError(err).Error("Failed to list backups")
		return nil, fmt.Errorf("list backup folder %s: %w", folderID, err)
	}

	due, latest := Due(backups, now, interval)
	result := &Result{Latest: latest}
	if !due && !force {
		logger.WithField("last_backup", latest.ModifiedTime).Info("Skipping backup: last backup is within the interval")
		result.Skipped = true
		return result, nil
	}

	result.Name = now.Format(nameLayout) + ".zip"
	localPath := filepath.Join(s.tempDir, result.Name)
	logger = logger.WithField("archive", localPath)

	if err := s.create(localPath, mapping, result); err != nil {
		logger.WithError(err).Error("Failed to create backup")
		return result, err
	}
	logger.WithFields(log.Fields{
		"files": result.Files,
		"size":  utils.FormatSize(result.Size),
	}).Info("Backup created locally")

	uploaded, err := s.upload(ctx, folderID, localPath, result)
	if err != nil {
		logger.WithError(err).Error("Failed to upload backup")
		s.record(models.Transfer{
			Direction: models.DirectionBackup,
			Name:      result.Name,
			Size:      result.Size,
			Status:    "failed",
			Error:     err.Error(),
		})
		return result, fmt.Errorf("upload backup %s: %w", result.Name, err)
	}
	result.RemoteID = uploaded.ID
	s.record(models.Transfer{
		Direction: models.DirectionBackup,
		Name:      result.Name,
		RemoteID:  uploaded.ID,
		Size:      result.Size,
		Status:    "completed",
	})
	logger.WithField("remote_id", uploaded.ID).Info("Uploaded backup")

	if err := s.fs.Remove(localPath); err != nil {
		logger.WithError(err).Error("Failed to delete local backup file")
		return result, fmt.Errorf("remove local backup: %w", err)
	}
	logger.Info("Local backup file deleted after upload")
	return result, nil
}

func (s *Scheduler) create(localPath string, mapping models.FileMapping, result *Result) error {
	if err := s.fs.MkdirAll(s.tempDir, 0o755); err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}
	f, err := s.fs.Create(localPath)
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}

	result.Files, err = writeArchive(s.fs, f, mapping)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}

	info, err := s.fs.Stat(localPath)
	if err != nil {
		return err
	}
	result.Size = info.Size()
	return nil
}

func (s *Scheduler) upload(ctx context.Context, folderID, localPath string, result *Result) (models.RemoteFile, error) {
	f, err := s.fs.Open(localPath)
	if err != nil {
		return models.RemoteFile{}, err
	}
	defer f.Close()

	return s.store.Create(ctx, folderID, result.Name, f, models.UploadInfo{
		Size:    result.Size,
		ModTime: s.clock.Now(),
	})
}

func (s *Scheduler) record(t models.Transfer) {
	if s.journal == nil {
		return
	}
	t.Time = s.clock.Now().UTC()
	if err := s.journal.RecordTransfer(t); err != nil {
		s.log.WithError(err).Warn("Failed to record backup in journal")
	}
}
