package ddev

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nwpdev/nwp/pkg/command/commandtest"
)

func TestCommandLines(t *testing.T) {
	r := commandtest.NewRunner()
	p := NewProject(r, "", "/sites/nwp4")
	ctx := context.Background()

	require.NoError(t, p.Configure(ctx, Config{Name: "nwp4", Type: "drupal10", Docroot: "web"}))
	require.NoError(t, p.Start(ctx))
	require.NoError(t, p.ImportDB(ctx, "/backups/nwp4/x.sql.gz"))
	require.NoError(t, p.ExportDB(ctx, "/tmp/out.sql.gz"))
	require.NoError(t, p.Delete(ctx))

	assert.Equal(t, []string{
		"ddev config --project-name=nwp4 --project-type=drupal10 --docroot=web",
		"ddev start",
		"ddev import-db --file=/backups/nwp4/x.sql.gz",
		"ddev export-db --file=/tmp/out.sql.gz",
		"ddev delete -Oy",
	}, r.Lines())
	for _, c := range r.Cmds {
		assert.Equal(t, "/sites/nwp4", c.Dir)
	}
}

func TestExecRouting(t *testing.T) {
	r := commandtest.NewRunner()
	p := NewProject(r, "/opt/ddev", "/sites/nwp4")
	ctx := context.Background()

	_, err := p.Exec(ctx, "drush", "cr")
	require.NoError(t, err)
	_, err = p.Exec(ctx, "composer", "install")
	require.NoError(t, err)
	_, err = p.Exec(ctx, "chmod", "-R", "g+w", "web/sites/default/files")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"/opt/ddev drush cr",
		"/opt/ddev composer install",
		"/opt/ddev exec chmod -R g+w web/sites/default/files",
	}, r.Lines())
}

func TestDescribe(t *testing.T) {
	r := commandtest.NewRunner().On("ddev describe", commandtest.Response{
		Output: `{"level":"info","msg":"","raw":{"name":"nwp4","status":"running","approot":"/sites/nwp4","primary_url":"https://nwp4.ddev.site"},"time":"2024-01-01T00:00:00Z"}`,
	})
	d, err := NewProject(r, "", "/sites/nwp4").Describe(context.Background())
	require.NoError(t, err)
	assert.True(t, d.Running())
	assert.Equal(t, "https://nwp4.ddev.site", d.PrimaryURL)
}

func TestErrorsWrapped(t *testing.T) {
	r := commandtest.NewRunner().On("ddev import-db", commandtest.Response{Err: errors.New("no such file")})
	err := NewProject(r, "", "/sites/nwp4").ImportDB(context.Background(), "/x.sql.gz")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "importing database")
	assert.Contains(t, err.Error(), "no such file")
}
