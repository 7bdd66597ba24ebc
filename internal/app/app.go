// Package app wires configuration, the remote store and the sync
// components together for the command-line entry points.
package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/chmdznr/csync/internal/backup"
	"github.com/chmdznr/csync/internal/config"
	"github.com/chmdznr/csync/internal/daemon"
	"github.com/chmdznr/csync/internal/db"
	"github.com/chmdznr/csync/internal/logging"
	"github.com/chmdznr/csync/internal/remote"
	"github.com/chmdznr/csync/internal/sync"
)

// Options selects the config file and interactive behaviour.
type Options struct {
	ConfigPath   string
	DryRun       bool
	ShowProgress bool
}

// App owns the process-wide remote session and journal.
type App struct {
	ConfigPath string
	Config     *config.Config
	Log        *log.Logger
	Store      remote.Store
	Journal    *db.DB
	Syncer     *sync.Syncer
	Backups    *backup.Scheduler
}

// New loads the config once, builds the logger, opens the remote store
// with its credentials and the journal.
func New(ctx context.Context, opts Options) (*App, error) {
	if opts.ConfigPath == "" {
		opts.ConfigPath = config.DefaultPath
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, err
	}
	logger.WithField("path", opts.ConfigPath).Info("Configuration file loaded successfully")

	store, err := remote.New(ctx, cfg.Remote)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize remote store")
		return nil, err
	}

	a := &App{
		ConfigPath: opts.ConfigPath,
		Config:     cfg,
		Log:        logger,
		Store:      store,
	}

	syncCfg := &sync.SyncerConfig{DryRun: opts.DryRun, ShowProgress: opts.ShowProgress}
	backupCfg := &backup.Config{TempDir: cfg.Backup.TempDir}
	if !cfg.Journal.Disabled {
		journal, err := db.New(cfg.Journal.Path)
		if err != nil {
			return nil, fmt.Errorf("open journal: %w", err)
		}
		a.Journal = journal
		syncCfg.Journal = journal
		backupCfg.Journal = journal
	}

	a.Syncer = sync.NewSyncer(store, logger, syncCfg)
	a.Backups = backup.NewScheduler(store, logger, backupCfg)
	return a, nil
}

// LoadConfig re-reads the config file; the loop calls it every cycle.
func (a *App) LoadConfig() (*config.Config, error) {
	cfg, err := config.Load(a.ConfigPath)
	if err != nil {
		return nil, err
	}
	a.Log.Debug("Configuration file loaded successfully")
	return cfg, nil
}

// Runner builds the sync loop. Watching starts when sync.watch is set and
// stops with ctx.
func (a *App) Runner(ctx context.Context) (*daemon.Runner, error) {
	opts := daemon.Options{
		Schedule: a.Config.Sync.Schedule,
		OnError:  a.Config.Sync.OnError,
	}

	if a.Config.Sync.Watch {
		paths := make([]string, 0, len(a.Config.FileMappings))
		for _, p := range a.Config.FileMappings {
			paths = append(paths, p)
		}
		wake, err := daemon.Watch(ctx, paths, a.Log)
		if err != nil {
			return nil, fmt.Errorf("watch local files: %w", err)
		}
		opts.Wake = wake
	}

	return daemon.New(a.LoadConfig, a.Syncer, a.Backups, a.Log, opts)
}

// Close releases the journal.
func (a *App) Close() error {
	if a.Journal != nil {
		return a.Journal.Close()
	}
	return nil
}
