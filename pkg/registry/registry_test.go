package registry

import (
	"io/ioutil"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	nwperr "github.com/nwpdev/nwp/pkg/errors"
)

const example = `schemaVersion: 1.0.0
recipes:
  d:
    source: composer
    project: drupal/recommended-project:^10
    profile: standard
    php: "8.3"
    modules: [admin_toolbar, pathauto]
    reinstallModules: [nwp_core]
  os:
    source: git
    git: git@github.com:nwpdev/opensocial.git
    branch: main
    docroot: html
sites:
  nwp4:
    recipe: d
    php: "8.2"
  nwp4_stg:
    recipe: d
    production:
      address: 203.0.113.7
      user: deploy
      path: /var/www/nwp4
`

func TestParse(t *testing.T) {
	r, err := Parse([]byte(example))
	require.NoError(t, err)
	assert.Equal(t, []string{"nwp4", "nwp4_stg"}, r.SiteNames())
	assert.Equal(t, []string{"d", "os"}, r.RecipeNames())

	rec, err := r.Recipe("os")
	require.NoError(t, err)
	assert.Equal(t, "html", rec.Docroot)

	site, err := r.Site("nwp4_stg")
	require.NoError(t, err)
	require.NotNil(t, site.Production)
	assert.Equal(t, "203.0.113.7", site.Production.Address)
}

func TestEffectiveOptions(t *testing.T) {
	r, err := Parse([]byte(example))
	require.NoError(t, err)

	opts, err := r.Effective("nwp4")
	require.NoError(t, err)
	assert.Equal(t, "8.2", opts.PHP, "site overrides recipe")
	assert.Equal(t, "standard", opts.Profile)
	assert.Equal(t, []string{"admin_toolbar", "pathauto"}, opts.Modules)
	assert.Equal(t, []string{"nwp_core"}, opts.ReinstallModules)
	assert.Equal(t, DefaultDocroot, opts.Docroot)

	_, err = r.Effective("nosuch")
	assert.True(t, nwperr.Is(err, nwperr.NotRegistered))
}

func TestParseRejects(t *testing.T) {
	for name, doc := range map[string]string{
		"no version":       "sites: {}\n",
		"unknown key":      "schemaVersion: 1.0.0\nflavour: mint\n",
		"bad source":       "schemaVersion: 1.0.0\nrecipes:\n  x:\n    source: svn\n",
		"future version":   "schemaVersion: 2.0.0\n",
		"bad git url":      "schemaVersion: 1.0.0\nrecipes:\n  x:\n    source: git\n    git: ''\n",
		"composer project": "schemaVersion: 1.0.0\nrecipes:\n  x:\n    source: composer\n",
		"unknown recipe":   "schemaVersion: 1.0.0\nsites:\n  s:\n    recipe: nope\n",
		"bad port":         "schemaVersion: 1.0.0\nsites:\n  s:\n    production:\n      port: 70000\n",
	} {
		_, err := Parse([]byte(doc))
		assert.Error(t, err, name)
	}
}

func TestLoadMissingIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sites.yml")
	r, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, r.SiteNames())
	assert.Equal(t, path, r.Path())
}

func TestLoadInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sites.yml")
	require.NoError(t, ioutil.WriteFile(path, []byte("schemaVersion: 1.0.0\nbogus: true\n"), 0644))
	_, err := Load(path)
	assert.True(t, nwperr.Is(err, nwperr.InvalidConfig))
	assert.Contains(t, nwperr.HelpOf(err), path)
}

func TestRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sites.yml")
	require.NoError(t, ioutil.WriteFile(filepath.Join(filepath.Dir(filepath.Dir(path)), "seed.yml"), []byte(example), 0644))
	seed, err := Load(filepath.Join(filepath.Dir(filepath.Dir(path)), "seed.yml"))
	require.NoError(t, err)
	seed.path = path

	require.NoError(t, seed.Register("nwp4_copy", Site{Recipe: "d"}))
	require.NoError(t, seed.SetProduction("nwp4", &Production{Instance: "i-0123", Address: "198.51.100.1"}))
	require.NoError(t, seed.Save())

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, seed.Sites, loaded.Sites)
	assert.Equal(t, seed.Recipes, loaded.Recipes)

	loaded.Unregister("nwp4_copy")
	require.NoError(t, loaded.SetProduction("nwp4", nil))
	require.NoError(t, loaded.Save())
	again, err := Load(path)
	require.NoError(t, err)
	assert.False(t, again.Has("nwp4_copy"))
	site, _ := again.Site("nwp4")
	assert.Nil(t, site.Production)
}

func TestRegister(t *testing.T) {
	r := New("")
	assert.True(t, nwperr.Is(r.Register("x", Site{Recipe: "nope"}), nwperr.NotRegistered))
	require.NoError(t, r.Register("x", Site{}))
	assert.True(t, nwperr.Is(r.Register("x", Site{}), nwperr.InvalidName))
	assert.True(t, nwperr.Is(r.SetProduction("y", nil), nwperr.NotRegistered))
}
