package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileOnlyLoggerWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "inspector.log")
	off := false
	l := New(Options{Console: &off, Files: []string{path, path, ""}})
	l.Info("sweep finished")
	_ = l.Sync()

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.NotZero(t, info.Size())
}

func TestDisabledLoggerIsNop(t *testing.T) {
	l := New(Options{Disable: true})
	assert.False(t, l.Core().Enabled(0))
}

func TestLevelApplied(t *testing.T) {
	path := filepath.Join(t.TempDir(), "warn.log")
	off := false
	l := New(Options{Console: &off, Files: []string{path}, Level: "warn"})
	l.Info("hidden")
	_ = l.Sync()

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, b)
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))
}
