package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithOutputText(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithOutput(&buf, "", "")
	require.NoError(t, err)

	logger.WithField("file", "a.txt").Info("Sync operation completed")
	logger.Debug("hidden")

	out := buf.String()
	assert.Contains(t, out, "level=info")
	assert.Contains(t, out, "file=a.txt")
	assert.Contains(t, out, "time=")
	assert.NotContains(t, out, "hidden")
}

func TestNewWithOutputJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewWithOutput(&buf, "debug", "json")
	require.NoError(t, err)

	logger.Debug("listing")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, "listing", entry["msg"])
}

func TestNewWithOutputErrors(t *testing.T) {
	_, err := NewWithOutput(&bytes.Buffer{}, "loud", "text")
	assert.Error(t, err)

	_, err = NewWithOutput(&bytes.Buffer{}, "info", "xml")
	assert.Error(t, err)
}
