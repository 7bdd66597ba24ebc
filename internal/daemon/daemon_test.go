package daemon

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chmdznr/csync/internal/backup"
	"github.com/chmdznr/csync/internal/config"
	"github.com/chmdznr/csync/internal/sync"
	"github.com/chmdznr/csync/pkg/models"
)

type fakeSyncer struct {
	calls chan string
	errs  []error
}

func (s *fakeSyncer) Sync(ctx context.Context, folderID string, mapping models.FileMapping) (*sync.Report, error) {
	var err error
	if len(s.errs) > 0 {
		err, s.errs = s.errs[0], s.errs[1:]
	}
	if s.calls != nil {
		s.calls <- folderID
	}
	return &sync.Report{}, err
}

type fakeBackuper struct {
	runs      int
	intervals []time.Duration
	err       error
}

func (b *fakeBackuper) Run(ctx context.Context, folderID string, interval time.Duration, mapping models.FileMapping, force bool) (*backup.Result, error) {
	b.runs++
	b.intervals = append(b.intervals, interval)
	return &backup.Result{}, b.err
}

func staticConfig(backupFolder string) Loader {
	return func() (*config.Config, error) {
		return &config.Config{
			FolderID:     "sync-folder",
			FileMappings: map[string]string{"a.txt": "/home/a.txt"},
			Backup:       config.BackupConfig{FolderID: backupFolder, IntervalDays: 10},
		}, nil
	}
}

func newTestRunner(t *testing.T, load Loader, s Syncer, b Backuper, opts Options) (*Runner, clockwork.FakeClock) {
	t.Helper()
	fc := clockwork.NewFakeClockAt(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	opts.Clock = fc
	logger, _ := test.NewNullLogger()
	r, err := New(load, s, b, logger, opts)
	require.NoError(t, err)
	return r, fc
}

func TestCycleBackupGate(t *testing.T) {
	backups := &fakeBackuper{}
	r, fc := newTestRunner(t, staticConfig("backup-folder"), &fakeSyncer{}, backups, Options{})
	ctx := context.Background()

	require.NoError(t, r.Cycle(ctx))
	assert.Equal(t, 1, backups.runs, "first cycle checks backups")
	assert.Equal(t, []time.Duration{10 * 24 * time.Hour}, backups.intervals)

	fc.Advance(5 * time.Minute)
	require.NoError(t, r.Cycle(ctx))
	assert.Equal(t, 1, backups.runs)

	fc.Advance(10 * 24 * time.Hour)
	require.NoError(t, r.Cycle(ctx))
	assert.Equal(t, 2, backups.runs)
}

func TestCycleBackupFailureKeepsGateOpen(t *testing.T) {
	backups := &fakeBackuper{err: errors.New("quota exceeded")}
	r, fc := newTestRunner(t, staticConfig("backup-folder"), &fakeSyncer{}, backups, Options{})
	ctx := context.Background()

	assert.Error(t, r.Cycle(ctx))
	fc.Advance(5 * time.Minute)
	backups.err = nil
	require.NoError(t, r.Cycle(ctx))
	assert.Equal(t, 2, backups.runs)
}

func TestCycleBackupDisabled(t *testing.T) {
	backups := &fakeBackuper{}
	r, _ := newTestRunner(t, staticConfig(""), &fakeSyncer{}, backups, Options{})

	require.NoError(t, r.Cycle(context.Background()))
	assert.Equal(t, 0, backups.runs)
}

func TestCycleSyncFailureSkipsBackup(t *testing.T) {
	backups := &fakeBackuper{}
	syncer := &fakeSyncer{errs: []error{errors.New("network down")}}
	r, _ := newTestRunner(t, staticConfig("backup-folder"), syncer, backups, Options{})

	assert.Error(t, r.Cycle(context.Background()))
	assert.Equal(t, 0, backups.runs)
}

func TestRunExitPolicyReturnsError(t *testing.T) {
	syncer := &fakeSyncer{errs: []error{errors.New("permission denied")}}
	r, _ := newTestRunner(t, staticConfig(""), syncer, &fakeBackuper{}, Options{OnError: config.OnErrorExit})

	err := r.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
}

func TestRunExitPolicyOnLoadError(t *testing.T) {
	load := func() (*config.Config, error) { return nil, config.ErrNoFolder }
	r, _ := newTestRunner(t, load, &fakeSyncer{}, &fakeBackuper{}, Options{})

	err := r.Run(context.Background())
	assert.ErrorIs(t, err, config.ErrNoFolder)
}

func TestRunContinuePolicyWaitsForNextTick(t *testing.T) {
	syncer := &fakeSyncer{
		calls: make(chan string, 4),
		errs:  []error{errors.New("timeout")},
	}
	r, fc := newTestRunner(t, staticConfig(""), syncer, &fakeBackuper{}, Options{OnError: config.OnErrorContinue})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	<-syncer.calls
	fc.BlockUntil(1)
	select {
	case <-syncer.calls:
		t.Fatal("second pass ran before the schedule fired")
	default:
	}

	fc.Advance(5 * time.Minute)
	<-syncer.calls

	fc.BlockUntil(1)
	cancel()
	assert.NoError(t, <-done)
}

func TestRunWakeStartsPassEarly(t *testing.T) {
	wake := make(chan struct{}, 1)
	syncer := &fakeSyncer{calls: make(chan string, 4)}
	r, fc := newTestRunner(t, staticConfig(""), syncer, &fakeBackuper{}, Options{Wake: wake})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	<-syncer.calls
	fc.BlockUntil(1)
	wake <- struct{}{}
	<-syncer.calls

	fc.BlockUntil(1)
	cancel()
	assert.NoError(t, <-done)
}

func TestNewRejectsBadSchedule(t *testing.T) {
	logger, _ := test.NewNullLogger()
	_, err := New(staticConfig(""), &fakeSyncer{}, &fakeBackuper{}, logger, Options{Schedule: "every so often"})
	assert.Error(t, err)
}
