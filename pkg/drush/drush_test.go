package drush

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type shell struct {
	calls []string
	out   string
	err   error
}

func (s *shell) Exec(ctx context.Context, name string, args ...string) ([]byte, error) {
	s.calls = append(s.calls, strings.Join(append([]string{name}, args...), " "))
	return []byte(s.out), s.err
}

func TestCommands(t *testing.T) {
	sh := &shell{}
	d := New(sh)
	ctx := context.Background()

	require.NoError(t, d.CacheRebuild(ctx))
	require.NoError(t, d.ConfigExport(ctx))
	require.NoError(t, d.ConfigImport(ctx))
	require.NoError(t, d.UpdateDB(ctx))
	require.NoError(t, d.Enable(ctx, "admin_toolbar", "pathauto"))
	require.NoError(t, d.Enable(ctx))
	require.NoError(t, d.Uninstall(ctx, "devel"))
	require.NoError(t, d.SiteInstall(ctx, InstallOptions{Profile: "standard", SiteName: "nwp4", AdminUser: "admin"}))

	assert.Equal(t, []string{
		"drush cache:rebuild",
		"drush config:export -y",
		"drush config:import -y",
		"drush updatedb -y",
		"drush pm:enable -y admin_toolbar pathauto",
		"drush pm:uninstall -y devel",
		"drush site:install -y standard --site-name=nwp4 --account-name=admin",
	}, sh.calls)
}

func TestLoginLink(t *testing.T) {
	sh := &shell{out: "[notice] Something\nhttps://nwp4.ddev.site/user/reset/1/abc/def/login\n"}
	link, err := New(sh).LoginLink(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://nwp4.ddev.site/user/reset/1/abc/def/login", link)
}

func TestErrorsNameTheCommand(t *testing.T) {
	sh := &shell{err: errors.New("exit status 1")}
	err := New(sh).CacheRebuild(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "drush cache:rebuild")
}
