package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeTime(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	in := time.Date(2024, 3, 5, 14, 0, 0, 123456789, loc)

	got := NormalizeTime(in)
	assert.Equal(t, time.UTC, got.Location())
	assert.Equal(t, time.Date(2024, 3, 5, 12, 0, 0, 123000000, time.UTC), got)
}

func TestNewest(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }

	_, ok := Newest(nil)
	assert.False(t, ok)

	got, ok := Newest([]RemoteFile{
		{ID: "1", ModifiedTime: day(3)},
		{ID: "2", ModifiedTime: day(9)},
		{ID: "3", ModifiedTime: day(5)},
	})
	assert.True(t, ok)
	assert.Equal(t, "2", got.ID)
}
