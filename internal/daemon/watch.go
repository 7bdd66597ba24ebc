package daemon

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

// Watch reports writes to any of paths on the returned channel. Events
// are coalesced: the channel holds at most one pending wake-up. Parent
// directories are watched so that files replaced by rename are still seen.
func Watch(ctx context.Context, paths []string, logger log.FieldLogger) (<-chan struct{}, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	watched := make(map[string]bool, len(paths))
	dirs := map[string]bool{}
	for _, p := range paths {
		clean := filepath.Clean(p)
		watched[clean] = true
		dir := filepath.Dir(clean)
		if dirs[dir] {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			logger.WithError(err).WithField("dir", dir).Warn("Cannot watch directory")
			continue
		}
		dirs[dir] = true
	}

	wake := make(chan struct{}, 1)
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return

			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !watched[filepath.Clean(ev.Name)] {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
					continue
				}
				logger.WithFields(log.Fields{"path": ev.Name, "op": ev.Op.String()}).Debug("Local change detected")

				select {
				case wake <- struct{}{}:
				default:
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.WithError(err).Error("fsnotify error")
			}
		}
	}()
	return wake, nil
}
