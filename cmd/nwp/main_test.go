// Shared main test code
package main

import (
	"bytes"
	"context"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nwpdev/nwp/pkg/command"
	"github.com/nwpdev/nwp/pkg/command/commandtest"
)

const testRegistry = `schemaVersion: 1.0.0
recipes:
  d:
    source: composer
    project: drupal/recommended-project:^10
    modules: [admin_toolbar]
  os:
    source: git
    git: https://github.com/nwpdev/opensocial.git
    branch: main
sites:
  nwp4:
    recipe: d
`

// env is a control host in a temporary directory, with a fake runner
// standing in for ddev and friends.
type env struct {
	t      *testing.T
	dir    string
	config string
	runner *commandtest.Runner
}

func newEnv(t *testing.T) *env {
	dir := t.TempDir()
	e := &env{
		t:      t,
		dir:    dir,
		config: filepath.Join(dir, "config.yml"),
		runner: commandtest.NewRunner(),
	}
	e.write("sites.yml", testRegistry)
	e.write("config.yml", fmt.Sprintf(`sitesRoot: %[1]s/sites
backupRoot: %[1]s/backups
registryPath: %[1]s/sites.yml
lockDir: %[1]s/locks
metricsTextfile: %[1]s/nwp.prom
`, dir))
	// ddev export-db leaves a dump where it was told to
	e.runner.Hook = func(c command.Cmd) *commandtest.Response {
		if c.Name == "ddev" && len(c.Args) == 2 && c.Args[0] == "export-db" {
			file := strings.TrimPrefix(c.Args[1], "--file=")
			require.NoError(t, ioutil.WriteFile(file, []byte("dump of "+filepath.Base(c.Dir)), 0644))
		}
		return nil
	}
	return e
}

func (e *env) path(name string) string {
	return filepath.Join(e.dir, filepath.FromSlash(name))
}

func (e *env) write(name, content string) {
	p := e.path(name)
	require.NoError(e.t, os.MkdirAll(filepath.Dir(p), 0755))
	require.NoError(e.t, ioutil.WriteFile(p, []byte(content), 0644))
}

func (e *env) read(name string) string {
	bs, err := ioutil.ReadFile(e.path(name))
	require.NoError(e.t, err)
	return string(bs)
}

func (e *env) site(name string) {
	e.write("sites/"+name+"/.ddev/config.yaml", "name: "+name+"\ntype: drupal\ndocroot: web\n")
	e.write("sites/"+name+"/composer.json", `{"name": "nwp/`+name+`"}`)
	e.write("sites/"+name+"/web/index.php", "<?php")
	e.write("sites/"+name+"/web/sites/default/settings.php", "<?php $settings = [];")
}

type result struct {
	code int
	out  string
	err  string
}

// nwp runs the command line given, answering any questions from stdin.
func (e *env) nwp(stdin string, args ...string) result {
	var out, errOut bytes.Buffer
	root := newRoot(context.Background(), newConsole(strings.NewReader(stdin), &out, &errOut))
	root.runner = e.runner
	cmd := root.Command()
	if len(args) > 0 && args[0] != "version" {
		args = append(args, "--config", e.config)
	}
	cmd.SetArgs(args)
	c, err := cmd.ExecuteC()
	return result{code: report(c, err), out: out.String(), err: errOut.String()}
}
