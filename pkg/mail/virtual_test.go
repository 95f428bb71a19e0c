package mail

import (
	"context"
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nwpdev/nwp/pkg/command/commandtest"
)

const existing = `# Managed in part by nwp
postmaster@example.org root
`

func setup(t *testing.T) (*Virtual, *commandtest.Runner, string) {
	path := filepath.Join(t.TempDir(), "virtual")
	require.NoError(t, ioutil.WriteFile(path, []byte(existing), 0644))
	r := commandtest.NewRunner()
	return NewVirtual(r, "", path), r, path
}

func TestSetAddsAndReplaces(t *testing.T) {
	v, r, path := setup(t)
	ctx := context.Background()

	require.NoError(t, v.Set(ctx, "nwp4@example.org", "ops@example.org"))
	require.NoError(t, v.Set(ctx, "nwp4@example.org", "dev@example.org"))

	bs, err := ioutil.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, existing+"nwp4@example.org dev@example.org\n", string(bs))

	dest, ok, err := v.Lookup("nwp4@example.org")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "dev@example.org", dest)

	assert.Equal(t, []string{"postmap " + path, "postmap " + path}, r.Lines())
}

func TestRemove(t *testing.T) {
	v, r, path := setup(t)
	ctx := context.Background()
	require.NoError(t, v.Set(ctx, "nwp4@example.org", "ops@example.org"))
	r.Reset()

	require.NoError(t, v.Remove(ctx, "nwp4@example.org"))
	bs, err := ioutil.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, existing, string(bs))
	assert.Len(t, r.Cmds, 1)

	// Nothing to remove, nothing to rebuild.
	require.NoError(t, v.Remove(ctx, "nwp4@example.org"))
	assert.Len(t, r.Cmds, 1)
}

func TestMissingFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "virtual")
	v := NewVirtual(commandtest.NewRunner(), "", path)
	_, ok, err := v.Lookup("x@example.org")
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, v.Set(context.Background(), SiteAddress("nwp4", "example.org"), "ops@example.org"))
	bs, err := ioutil.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "nwp4@example.org ops@example.org\n", string(bs))
}
