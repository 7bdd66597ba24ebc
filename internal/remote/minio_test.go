package remote

import (
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
)

func TestFolderPrefix(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{in: "", expected: ""},
		{in: "/", expected: ""},
		{in: "docs", expected: "docs/"},
		{in: "/docs/backups/", expected: "docs/backups/"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, folderPrefix(tt.in), tt.in)
	}
}

func TestObjectModTime(t *testing.T) {
	lastModified := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	recorded := time.Date(2024, 1, 15, 8, 0, 0, 250000000, time.UTC)

	tests := []struct {
		name     string
		meta     map[string]string
		expected time.Time
	}{
		{
			name:     "no metadata",
			expected: lastModified,
		},
		{
			name:     "listing metadata key",
			meta:     map[string]string{"X-Amz-Meta-Mtime": recorded.Format(time.RFC3339Nano)},
			expected: recorded,
		},
		{
			name:     "short key",
			meta:     map[string]string{"mtime": recorded.Format(time.RFC3339Nano)},
			expected: recorded,
		},
		{
			name:     "unparseable",
			meta:     map[string]string{"X-Amz-Meta-Mtime": "yesterday"},
			expected: lastModified,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj := minio.ObjectInfo{LastModified: lastModified, UserMetadata: tt.meta}
			assert.Equal(t, tt.expected, objectModTime(obj))
		})
	}
}

func TestNewMinio(t *testing.T) {
	store, err := NewMinio(MinioOptions{
		Endpoint:  "play.min.io",
		Bucket:    "files",
		AccessKey: "key",
		SecretKey: "secret",
		Secure:    true,
	})
	assert.NoError(t, err)
	assert.Equal(t, "files", store.bucket)
}
