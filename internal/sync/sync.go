// Package sync decides, by modification time alone, whether each mapped
// file is uploaded, updated, downloaded or left alone, and performs the
// transfer.
package sync

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/chmdznr/csync/internal/remote"
	"github.com/chmdznr/csync/pkg/models"
	"github.com/chmdznr/csync/pkg/utils"
)

// Recorder receives one entry per attempted transfer.
type Recorder interface {
	RecordTransfer(t models.Transfer) error
}

// Syncer handles file synchronization operations
type Syncer struct {
	store    remote.Store
	fs       afero.Fs
	log      log.FieldLogger
	journal  Recorder
	clock    clockwork.Clock
	dryRun   bool
	progress bool
}

// SyncerConfig holds optional settings for the syncer
type SyncerConfig struct {
	// Fs is the local filesystem, the OS filesystem when nil.
	Fs      afero.Fs
	Journal Recorder
	Clock   clockwork.Clock
	// DryRun logs decisions without transferring anything.
	DryRun bool
	// ShowProgress draws a progress bar per transfer.
	ShowProgress bool
}

// Report counts what one sync pass did.
type Report struct {
	Created    int
	Updated    int
	Downloaded int
	Skipped    int
	Unmapped   int
	BytesUp    int64
	BytesDown  int64
	Duration   time.Duration
}

// Transfers is the number of files moved in either direction.
func (r *Report) Transfers() int {
	return r.Created + r.Updated + r.Downloaded
}

// NewSyncer creates a new syncer instance
func NewSyncer(store remote.Store, logger log.FieldLogger, config *SyncerConfig) *Syncer {
	if config == nil {
		config = &SyncerConfig{}
	}
	s := &Syncer{
		store:    store,
		fs:       config.Fs,
		log:      logger,
		journal:  config.Journal,
		clock:    config.Clock,
		dryRun:   config.DryRun,
		progress: config.ShowProgress,
	}
	if s.fs == nil {
		s.fs = afero.NewOsFs()
	}
	if s.clock == nil {
		s.clock = clockwork.NewRealClock()
	}
	return s
}

// localFile is the state of a mapped path on disk.
type localFile struct {
	name    string
	path    string
	exists  bool
	size    int64
	modTime time.Time
}

func (s *Syncer) statLocal(name, path string) (localFile, error) {
	lf := localFile{name: name, path: path}
	info, err := s.fs.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return lf, nil
		}
		return lf, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return lf, nil
	}
	lf.exists = true
	lf.size = info.Size()
	lf.modTime = info.ModTime()
	return lf, nil
}

// Sync runs one pass over folderID: local files newer than (or missing
// from) the remote folder are uploaded, then remote files newer than (or
// missing from) their mapped local path are downloaded. Names are matched
// against the mapping's logical names. The first failed transfer aborts
// the pass.
func (s *Syncer) Sync(ctx context.Context, folderID string, mapping models.FileMapping) (*Report, error) {
	start := s.clock.Now()
	report := &Report{}
	logger := s.log.WithField("folder", folderID)

	remoteFiles, err := s.store.List(ctx, folderID)
	if err != nil {
		logger.WithError(err).Error("Failed to list files in remote folder")
		return report, fmt.Errorf("list remote folder %s: %w", folderID, err)
	}
	logger.WithField("count", len(remoteFiles)).Info("Listed files in remote folder")

	byName := make(map[string]models.RemoteFile, len(remoteFiles))
	for _, rf := range remoteFiles {
		byName[rf.Name] = rf
	}

	names := make([]string, 0, len(mapping))
	for name := range mapping {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		lf, err := s.statLocal(name, mapping[name])
		if err != nil {
			logger.WithError(err).WithField("file", name).Error("Failed to read local file")
			return report, err
		}
		if !lf.exists {
			continue
		}

		var existing *models.RemoteFile
		if rf, ok := byName[name]; ok {
			existing = &rf
		}

		switch action := DecideUpload(lf.modTime, existing); action {
		case ActionCreate, ActionUpdate:
			n, err := s.upload(ctx, folderID, lf, existing, action)
			if err != nil {
				return report, err
			}
			report.BytesUp += n
			if action == ActionCreate {
				report.Created++
			} else {
				report.Updated++
			}
		default:
			report.Skipped++
			logger.WithField("file", name).Info("No upload needed, remote version is up-to-date")
		}
	}

	// Decisions use the listing taken before the uploads above.
	for _, rf := range remoteFiles {
		path, ok := mapping[rf.Name]
		if !ok {
			report.Unmapped++
			logger.WithField("file", rf.Name).Warn("File is not mapped for local sync")
			continue
		}

		lf, err := s.statLocal(rf.Name, path)
		if err != nil {
			logger.WithError(err).WithField("file", rf.Name).Error("Failed to read local file")
			return report, err
		}

		if DecideDownload(rf, lf.exists, lf.modTime) != ActionDownload {
			report.Skipped++
			logger.WithField("file", rf.Name).Info("No download needed, local version is up-to-date")
			continue
		}

		n, err := s.download(ctx, rf, lf)
		if err != nil {
			return report, err
		}
		report.BytesDown += n
		report.Downloaded++
	}

	report.Duration = s.clock.Since(start)
	logger.WithFields(log.Fields{
		"created":    report.Created,
		"updated":    report.Updated,
		"downloaded": report.Downloaded,
		"skipped":    report.Skipped,
		"unmapped":   report.Unmapped,
		"uploaded":   utils.FormatSize(report.BytesUp),
		"fetched":    utils.FormatSize(report.BytesDown),
	}).Info("Sync operation completed")
	return report, nil
}

func (s *Syncer) record(t models.Transfer) {
	if s.journal == nil || s.dryRun {
		return
	}
	t.Time = s.clock.Now().UTC()
	if err := s.journal.RecordTransfer(t); err != nil {
		s.log.WithError(err).WithField("file", t.Name).Warn("Failed to record transfer in journal")
	}
}
