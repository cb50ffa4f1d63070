package batch

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileState_RoundTrip(t *testing.T) {
	dir, err := ioutil.TempDir("", "state-test-")
	require.NoError(t, err)
	defer func() {
		_ = os.RemoveAll(dir)
	}()

	archive := filepath.Join(dir, "a.egp")
	require.NoError(t, ioutil.WriteFile(archive, []byte("payload"), 0644))
	info, err := os.Stat(archive)
	require.NoError(t, err)

	path := filepath.Join(dir, "state", "state.info")
	state, err := newFileState(path)
	require.NoError(t, err)

	assert.False(t, state.seen("a.egp", info))
	state.remember("a.egp", info)
	assert.True(t, state.seen("a.egp", info))

	require.NoError(t, state.save())

	reloaded, err := newFileState(path)
	require.NoError(t, err)
	require.NoError(t, reloaded.load())
	assert.True(t, reloaded.seen("a.egp", info))
}

func TestFileState_LoadMissingFile(t *testing.T) {
	dir, err := ioutil.TempDir("", "state-test-")
	require.NoError(t, err)
	defer func() {
		_ = os.RemoveAll(dir)
	}()

	state, err := newFileState(filepath.Join(dir, "state.info"))
	require.NoError(t, err)
	assert.NoError(t, state.load())
}

func TestFileState_ChangedFingerprint(t *testing.T) {
	dir, err := ioutil.TempDir("", "state-test-")
	require.NoError(t, err)
	defer func() {
		_ = os.RemoveAll(dir)
	}()

	archive := filepath.Join(dir, "a.egp")
	require.NoError(t, ioutil.WriteFile(archive, []byte("payload"), 0644))
	info, err := os.Stat(archive)
	require.NoError(t, err)

	state, err := newFileState(filepath.Join(dir, "state.info"))
	require.NoError(t, err)
	state.remember("a.egp", info)

	// A grown file no longer counts as seen.
	require.NoError(t, ioutil.WriteFile(archive, []byte("payload grew"), 0644))
	grown, err := os.Stat(archive)
	require.NoError(t, err)
	assert.False(t, state.seen("a.egp", grown))
}
