package models

import "time"

// Stats summarizes the transfer journal
type Stats struct {
	TotalTransfers int64
	TotalSize      int64
	Created        int64
	Updated        int64
	Downloaded     int64
	Failed         int64
	Backups        int64
	LastBackup     time.Time
	LastTransfer   time.Time
	DownloadedSize int64
	UploadedSize   int64
}
