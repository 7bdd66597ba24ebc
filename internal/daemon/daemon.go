// Package daemon runs the sync loop: one sync pass, an interval-gated
// backup check, then idle until the next scheduled tick.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"github.com/chmdznr/csync/internal/backup"
	"github.com/chmdznr/csync/internal/config"
	"github.com/chmdznr/csync/internal/sync"
	"github.com/chmdznr/csync/pkg/models"
)

// Syncer runs one sync pass.
type Syncer interface {
	Sync(ctx context.Context, folderID string, mapping models.FileMapping) (*sync.Report, error)
}

// Backuper runs one backup check.
type Backuper interface {
	Run(ctx context.Context, folderID string, interval time.Duration, mapping models.FileMapping, force bool) (*backup.Result, error)
}

// Loader returns the configuration for one cycle.
type Loader func() (*config.Config, error)

// Runner is the long-lived loop.
type Runner struct {
	load     Loader
	syncer   Syncer
	backups  Backuper
	log      log.FieldLogger
	clock    clockwork.Clock
	schedule cron.Schedule
	onError  string
	wake     <-chan struct{}

	lastBackupCheck time.Time
	gateOpen        bool
}

// Options configures a Runner.
type Options struct {
	// Schedule is a cron spec for sync passes, e.g. "@every 5m".
	Schedule string
	// OnError is config.OnErrorExit or config.OnErrorContinue.
	OnError string
	Clock   clockwork.Clock
	// Wake, when set, starts the next pass early.
	Wake <-chan struct{}
}

func New(load Loader, syncer Syncer, backups Backuper, logger log.FieldLogger, opts Options) (*Runner, error) {
	if opts.Schedule == "" {
		opts.Schedule = config.DefaultSchedule
	}
	schedule, err := cron.ParseStandard(opts.Schedule)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", opts.Schedule, err)
	}
	if opts.OnError == "" {
		opts.OnError = config.OnErrorExit
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}

	return &Runner{
		load:     load,
		syncer:   syncer,
		backups:  backups,
		log:      logger,
		clock:    opts.Clock,
		schedule: schedule,
		onError:  opts.OnError,
		wake:     opts.Wake,
		gateOpen: true,
	}, nil
}

// Run loops until ctx is cancelled. With the exit policy the first failed
// cycle ends Run with that error; with the continue policy it is logged
// and the loop waits for the next tick.
func (r *Runner) Run(ctx context.Context) error {
	for {
		if err := r.Cycle(ctx); err != nil {
			if errors.Is(err, context.Canceled) && ctx.Err() != nil {
				return nil
			}
			if r.onError == config.OnErrorExit {
				return err
			}
			r.log.WithError(err).Error("Sync cycle failed, waiting for next run")
		}

		now := r.clock.Now()
		next := r.schedule.Next(now)
		r.log.WithField("next", next.Format(time.RFC3339)).Info("Sync complete. Waiting before next sync")

		timer := r.clock.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			r.log.Info("Stopping sync loop")
			return nil
		case <-timer.Chan():
		case <-r.wake:
			timer.Stop()
			r.log.Info("Local change detected, starting sync early")
		}
	}
}

// Cycle runs one sync pass and, when the backup gate is open, one backup
// check.
func (r *Runner) Cycle(ctx context.Context) error {
	r.log.Info("Starting sync operation...")

	cfg, err := r.load()
	if err != nil {
		r.log.WithError(err).Error("Failed to load configuration file")
		return fmt.Errorf("load config: %w", err)
	}

	if _, err := r.syncer.Sync(ctx, cfg.FolderID, cfg.FileMappings); err != nil {
		r.log.WithError(err).Error("Failed during sync operation")
		return err
	}

	if !cfg.Backup.Enabled() {
		return nil
	}

	interval := cfg.Backup.Interval()
	now := r.clock.Now()
	if !r.gateOpen && now.Sub(r.lastBackupCheck) < interval {
		return nil
	}

	r.log.Info("Creating backup...")
	if _, err := r.backups.Run(ctx, cfg.Backup.FolderID, interval, cfg.FileMappings, false); err != nil {
		return fmt.Errorf("backup: %w", err)
	}
	r.lastBackupCheck = r.clock.Now()
	r.gateOpen = false
	return nil
}
