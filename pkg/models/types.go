package models

import "time"

// RemoteFile is an entry listed from a remote folder.
type RemoteFile struct {
	ID           string
	Name         string
	ModifiedTime time.Time
	Size         int64
}

// UploadInfo describes local content handed to a remote store.
type UploadInfo struct {
	Size    int64
	ModTime time.Time
}

// FileMapping maps logical names to local paths.
type FileMapping map[string]string

// Direction of a transfer.
type Direction string

const (
	DirectionCreate   Direction = "create"
	DirectionUpdate   Direction = "update"
	DirectionDownload Direction = "download"
	DirectionBackup   Direction = "backup"
)

// Transfer is a journal entry for a single file movement.
type Transfer struct {
	Time      time.Time
	Direction Direction
	Name      string
	RemoteID  string
	Size      int64
	Status    string
	Error     string
}

// NormalizeTime returns t in UTC truncated to millisecond precision, the
// resolution remote stores report modification times in.
func NormalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

// Newest returns the entry with the greatest modification time.
func Newest(files []RemoteFile) (RemoteFile, bool) {
	var newest RemoteFile
	found := false
	for _, f := range files {
		if !found || f.ModifiedTime.After(newest.ModifiedTime) {
			newest = f
			found = true
		}
	}
	return newest, found
}
