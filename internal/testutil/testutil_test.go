package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteStatements(t *testing.T) {
	root := WriteStatements(t, map[string]string{
		"a/b.sql": "SELECT 1",
		"c.sql":   "SELECT 2",
	})

	data, err := os.ReadFile(filepath.Join(root, "a", "b.sql"))
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", string(data))
	assert.FileExists(t, filepath.Join(root, "c.sql"))
}

func TestNewCaptureLogger(t *testing.T) {
	logger, buf := NewCaptureLogger()
	logger.Debug("hello", "key", "value")

	assert.Contains(t, buf.String(), "msg=hello")
	assert.Contains(t, buf.String(), "key=value")
}
