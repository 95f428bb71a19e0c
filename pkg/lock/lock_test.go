package lock

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	nwperr "github.com/nwpdev/nwp/pkg/errors"
)

func TestSecondAcquireFails(t *testing.T) {
	dir := t.TempDir()
	l, err := Acquire(dir, "nwp4")
	require.NoError(t, err)

	_, err = Acquire(dir, "nwp4")
	assert.True(t, nwperr.Is(err, nwperr.Locked), "%v", err)

	other, err := Acquire(dir, "nwp5")
	require.NoError(t, err)
	require.NoError(t, other.Release())

	require.NoError(t, l.Release())
	again, err := Acquire(dir, "nwp4")
	require.NoError(t, err)
	require.NoError(t, again.Release())
}

func TestLockFileHoldsPid(t *testing.T) {
	dir := t.TempDir()
	l, err := Acquire(dir, "nwp4")
	require.NoError(t, err)
	defer l.Release()

	b, err := ioutil.ReadFile(filepath.Join(dir, "nwp4.lock"))
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(os.Getpid())+"\n", string(b))
}

func TestReleaseTwice(t *testing.T) {
	l, err := Acquire(t.TempDir(), "nwp4")
	require.NoError(t, err)
	require.NoError(t, l.Release())
	assert.NoError(t, l.Release())
}

func TestAcquireAllReleasesOnFailure(t *testing.T) {
	dir := t.TempDir()
	held, err := Acquire(dir, "b")
	require.NoError(t, err)

	_, err = AcquireAll(dir, "c", "b", "a")
	assert.True(t, nwperr.Is(err, nwperr.Locked))

	// "a" was taken before "b" failed, and must have been let go.
	a, err := Acquire(dir, "a")
	require.NoError(t, err)
	a.Release()
	held.Release()

	set, err := AcquireAll(dir, "a", "a", "b")
	require.NoError(t, err)
	assert.Len(t, set, 2)
	assert.NoError(t, set.Release())
}
