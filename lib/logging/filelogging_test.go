package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerAppendsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "billinghub.log")

	Logger(path).Infof("first run")
	Logger(path).Infof("second run")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "first run")
	assert.Contains(t, string(data), "second run")
}

func TestLoggerWithoutFile(t *testing.T) {
	logger := Logger("")
	require.NotNil(t, logger)
	logger.Infof("stdout only")
}
