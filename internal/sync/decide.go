package sync

import (
	"time"

	"github.com/chmdznr/csync/pkg/models"
)

// Action is what the engine does with one file.
type Action int

const (
	ActionNone Action = iota
	ActionCreate
	ActionUpdate
	ActionDownload
)

func (a Action) String() string {
	switch a {
	case ActionCreate:
		return "create"
	case ActionUpdate:
		return "update"
	case ActionDownload:
		return "download"
	default:
		return "none"
	}
}

// DecideUpload compares an existing local file against its remote
// counterpart, nil when the remote folder has no entry of that name.
// Equal timestamps mean no action.
func DecideUpload(localModTime time.Time, remote *models.RemoteFile) Action {
	if remote == nil {
		return ActionCreate
	}
	if models.NormalizeTime(localModTime).After(models.NormalizeTime(remote.ModifiedTime)) {
		return ActionUpdate
	}
	return ActionNone
}

// DecideDownload compares a remote entry against the mapped local file.
// Equal timestamps mean no action.
func DecideDownload(remote models.RemoteFile, localExists bool, localModTime time.Time) Action {
	if !localExists {
		return ActionDownload
	}
	if models.NormalizeTime(remote.ModifiedTime).After(models.NormalizeTime(localModTime)) {
		return ActionDownload
	}
	return ActionNone
}
