package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_WritesJSONToPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")

	logger, err := New(Options{OutputPaths: []string{path}})
	require.NoError(t, err)
	logger.Info("stub loaded", zap.String("stub", "tracking-widget"))
	logger.Debug("hidden at info level")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"stub":"tracking-widget"`)
	assert.NotContains(t, string(data), "hidden at info level")
}

func TestNew_VerboseEnablesDebug(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")

	logger, err := New(Options{Verbose: true, Format: "console", OutputPaths: []string{path}})
	require.NoError(t, err)
	logger.Debug("debug line")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "debug line")
}

func TestNew_UnknownFormat(t *testing.T) {
	_, err := New(Options{Format: "xml"})
	assert.Error(t, err)
}
