package sync

import (
	"context"
	"fmt"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"github.com/chmdznr/csync/pkg/models"
)

const partialSuffix = ".csync-part"

func (s *Syncer) upload(ctx context.Context, folderID string, lf localFile, existing *models.RemoteFile, action Action) (int64, error) {
	logger := s.log.WithFields(log.Fields{"file": lf.name, "path": lf.path})
	if existing != nil {
		logger = logger.WithField("remote_id", existing.ID)
	}

	if s.dryRun {
		logger.WithField("action", action).Info("Dry run, skipping upload")
		return 0, nil
	}

	transfer := models.Transfer{Name: lf.name, Size: lf.size}
	fail := func(err error) (int64, error) {
		logger.WithError(err).Error("Failed to upload file")
		transfer.Status = "failed"
		transfer.Error = err.Error()
		s.record(transfer)
		return 0, fmt.Errorf("upload %s: %w", lf.name, err)
	}

	f, err := s.fs.Open(lf.path)
	if err != nil {
		return fail(err)
	}
	defer f.Close()

	bar := newTransferBar(s.progress, lf.name, lf.size)
	defer bar.finish()

	info := models.UploadInfo{Size: lf.size, ModTime: lf.modTime}
	var result models.RemoteFile
	if action == ActionCreate {
		transfer.Direction = models.DirectionCreate
		result, err = s.store.Create(ctx, folderID, lf.name, bar.reader(f), info)
	} else {
		transfer.Direction = models.DirectionUpdate
		transfer.RemoteID = existing.ID
		result, err = s.store.Update(ctx, existing.ID, bar.reader(f), info)
	}
	if err != nil {
		return fail(err)
	}

	transfer.RemoteID = result.ID
	transfer.Status = "completed"
	s.record(transfer)

	if action == ActionCreate {
		logger.WithField("remote_id", result.ID).Info("Uploaded new file")
	} else {
		logger.Info("Updated file")
	}
	return lf.size, nil
}

// download writes the remote content next to the local path, renames it
// into place and stamps it with the remote modification time.
func (s *Syncer) download(ctx context.Context, rf models.RemoteFile, lf localFile) (int64, error) {
	logger := s.log.WithFields(log.Fields{"file": rf.Name, "path": lf.path, "remote_id": rf.ID})

	if s.dryRun {
		logger.WithField("action", ActionDownload).Info("Dry run, skipping download")
		return 0, nil
	}

	transfer := models.Transfer{
		Direction: models.DirectionDownload,
		Name:      rf.Name,
		RemoteID:  rf.ID,
	}
	tmp := lf.path + partialSuffix
	fail := func(err error) (int64, error) {
		logger.WithError(err).Error("Failed to download file")
		s.fs.Remove(tmp)
		transfer.Status = "failed"
		transfer.Error = err.Error()
		s.record(transfer)
		return 0, fmt.Errorf("download %s: %w", rf.Name, err)
	}

	if err := s.fs.MkdirAll(filepath.Dir(lf.path), 0o755); err != nil {
		return fail(err)
	}
	f, err := s.fs.Create(tmp)
	if err != nil {
		return fail(err)
	}

	bar := newTransferBar(s.progress, rf.Name, rf.Size)
	n, err := s.store.Download(ctx, rf.ID, bar.writer(f))
	bar.finish()
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fail(err)
	}

	if err := s.fs.Rename(tmp, lf.path); err != nil {
		return fail(err)
	}
	if err := s.fs.Chtimes(lf.path, rf.ModifiedTime, rf.ModifiedTime); err != nil {
		return fail(err)
	}

	transfer.Size = n
	transfer.Status = "completed"
	s.record(transfer)
	logger.Info("Downloaded file")
	return n, nil
}
