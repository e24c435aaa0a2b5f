package staging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageWritesUniqueFiles(t *testing.T) {
	stager, err := New(t.TempDir(), nil)
	require.NoError(t, err)

	first, err := stager.Stage([]byte("payload one"), ".png")
	require.NoError(t, err)
	second, err := stager.Stage([]byte("payload one"), ".png")
	require.NoError(t, err)

	assert.NotEqual(t, first, second, "concurrent invocations must never share a staging path")
	assert.True(t, strings.HasSuffix(first, ".png"))

	data, err := os.ReadFile(first)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload one"), data)
}

func TestStageSanitizesExtensionHint(t *testing.T) {
	stager, err := New(t.TempDir(), nil)
	require.NoError(t, err)

	path, err := stager.Stage([]byte("x"), "../../etc/passwd")
	require.NoError(t, err)
	assert.Equal(t, stager.Dir(), filepath.Dir(path))
	assert.False(t, strings.Contains(filepath.Base(path), "/"))

	noDot, err := stager.Stage([]byte("x"), "wav")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(noDot, ".wav"))
}

func TestReleaseIsIdempotent(t *testing.T) {
	stager, err := New(t.TempDir(), nil)
	require.NoError(t, err)

	path, err := stager.Stage([]byte("bye"), "")
	require.NoError(t, err)

	require.NoError(t, stager.Release(path))
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))

	assert.NoError(t, stager.Release(path), "releasing twice must not fail")
}

func TestReleaseRefusesForeignPaths(t *testing.T) {
	stager, err := New(t.TempDir(), nil)
	require.NoError(t, err)

	outside := filepath.Join(t.TempDir(), "other.bin")
	require.NoError(t, os.WriteFile(outside, []byte("keep"), 0o644))

	assert.Error(t, stager.Release(outside))
	_, statErr := os.Stat(outside)
	assert.NoError(t, statErr)
}
