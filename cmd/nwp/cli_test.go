package main

import (
	"errors"
	"io/ioutil"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nwpdev/nwp/pkg/command"
	"github.com/nwpdev/nwp/pkg/command/commandtest"
	"github.com/nwpdev/nwp/pkg/lock"
)

func TestBackupThenArtifacts(t *testing.T) {
	e := newEnv(t)
	e.site("nwp4")

	res := e.nwp("", "backup", "-y", "nwp4", "before", "upgrade")
	require.Equal(t, 0, res.code, res.err)
	assert.Contains(t, res.out, "[1/5] validate site")
	assert.Contains(t, res.out, "backup succeeded")
	assert.True(t, e.runner.Ran("ddev export-db --file="))

	res = e.nwp("", "artifacts", "nwp4")
	require.Equal(t, 0, res.code, res.err)
	assert.Contains(t, res.out, "-full-before")

	res = e.nwp("", "artifacts", "-b", "nwp4")
	require.Equal(t, 0, res.code, res.err)
	assert.Contains(t, res.out, "No backups of nwp4")

	assert.Contains(t, e.read("nwp.prom"), "nwp_pipeline_run_duration_seconds")
}

func TestRestoreToNewSite(t *testing.T) {
	e := newEnv(t)
	e.site("nwp4")
	require.Equal(t, 0, e.nwp("", "backup", "-y", "nwp4").code)

	res := e.nwp("", "restore", "-fy", "nwp4", "nwp4_copy")
	require.Equal(t, 0, res.code, res.err)
	assert.Contains(t, res.out, "restore succeeded")
	assert.Equal(t, "<?php", e.read("sites/nwp4_copy/web/index.php"))
	assert.Contains(t, e.read("sites/nwp4_copy/.ddev/config.yaml"), "nwp4_copy")
	assert.Contains(t, e.read("sites.yml"), "nwp4_copy")
	assert.True(t, e.runner.Ran("ddev import-db"))
}

func TestRestoreDeclined(t *testing.T) {
	e := newEnv(t)
	e.site("nwp4")
	require.Equal(t, 0, e.nwp("", "backup", "-y", "nwp4").code)
	e.runner.Reset()

	res := e.nwp("n\n", "restore", "-f", "nwp4")
	assert.Equal(t, 2, res.code)
	assert.Contains(t, res.out, "Overwrite nwp4 with backup")
	assert.Contains(t, res.err, "Aborted")
	assert.False(t, e.runner.Ran("ddev import-db"))
}

func TestRestoreChoosesInteractively(t *testing.T) {
	e := newEnv(t)
	e.site("nwp4")
	require.Equal(t, 0, e.nwp("", "backup", "-y", "-b", "nwp4").code)

	// the choice and the confirmation come from the same input
	res := e.nwp("1\ny\n", "restore", "-b", "nwp4")
	require.Equal(t, 0, res.code, res.err)
	assert.Contains(t, res.out, "Choose a backup [1-1]")
	assert.True(t, e.runner.Ran("ddev import-db"))
}

func TestRestoreOptions(t *testing.T) {
	e := newEnv(t)
	e.site("nwp4")
	for name, args := range map[string][]string{
		"latest and select": {"restore", "-f", "-n", "1", "nwp4"},
		"select from zero":  {"restore", "-n", "0", "nwp4"},
		"no site":           {"restore", "-f"},
		"too many sites":    {"restore", "-f", "nwp4", "nwp5", "nwp6"},
		"unknown option":    {"restore", "-x", "nwp4"},
		"value in cluster":  {"restore", "-nf", "1", "nwp4"},
		"no backups":        {"restore", "-fy", "nwp4"},
	} {
		t.Run(name, func(t *testing.T) {
			res := e.nwp("", args...)
			assert.Equal(t, 1, res.code)
			assert.NotEmpty(t, res.err)
		})
	}
	assert.Empty(t, e.runner.Lines())
}

func TestUsageErrorsShowOptions(t *testing.T) {
	e := newEnv(t)
	res := e.nwp("", "copy", "-x", "nwp4", "nwp5")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.err, `unknown option "-x"`)
	assert.Contains(t, res.err, "--files-only")
}

func TestStepNeedsAValue(t *testing.T) {
	e := newEnv(t)
	e.site("nwp4")
	res := e.nwp("", "backup", "-s", "-y", "nwp4")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.err, "option -s (--step) needs a value")
	assert.Contains(t, res.err, "--step")
	assert.Empty(t, e.runner.Lines())
}

func TestHelp(t *testing.T) {
	e := newEnv(t)
	for verb, option := range map[string]string{
		"restore":     "--latest",
		"copy":        "--files-only",
		"delete":      "--no-backup",
		"backup":      "--db-only",
		"provision":   "--step",
		"artifacts":   "--db-only",
		"install":     "--open",
		"promote":     "--open",
		"deprovision": "--yes",
		"list":        "--config",
	} {
		t.Run(verb, func(t *testing.T) {
			res := e.nwp("", verb, "-h")
			assert.Equal(t, 0, res.code)
			assert.Contains(t, res.out, "Usage:")
			assert.Contains(t, res.out, option)
		})
	}
}

func TestSiteLocked(t *testing.T) {
	e := newEnv(t)
	e.site("nwp4")
	l, err := lock.Acquire(e.path("locks"), "nwp4")
	require.NoError(t, err)
	defer l.Release()

	// staging shares the lock of its site
	res := e.nwp("", "backup", "-y", "nwp4_stg")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.err, "Another nwp command is working on nwp4")
	assert.Empty(t, e.runner.Lines())
}

func TestResumeOutOfRange(t *testing.T) {
	e := newEnv(t)
	e.site("nwp4")
	res := e.nwp("", "backup", "-y", "-s", "9", "nwp4")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.err, "can't start from step 9")
}

func TestResumeBackupKeepsItsID(t *testing.T) {
	e := newEnv(t)
	e.site("nwp4")
	dump := e.runner.Hook
	e.runner.Hook = func(c command.Cmd) *commandtest.Response {
		if c.Name == "ddev" && len(c.Args) > 0 && c.Args[0] == "export-db" {
			return &commandtest.Response{Err: errors.New("database container is not running")}
		}
		return nil
	}
	res := e.nwp("", "backup", "-y", "nwp4")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.err, "-s 3")

	e.runner.Hook = dump
	res = e.nwp("", "backup", "-y", "-s", "3", "nwp4")
	require.Equal(t, 0, res.code, res.err)
	infos, err := ioutil.ReadDir(e.path("backups/nwp4"))
	require.NoError(t, err)
	var names []string
	for _, info := range infos {
		names = append(names, info.Name())
	}
	// one archive, one dump and the manifest, all of the same backup
	require.Len(t, names, 3, "%v", names)
	stem := strings.TrimSuffix(names[0], ".sql.gz")
	assert.Equal(t, []string{stem + ".sql.gz", stem + ".tar.gz", stem + ".yml"}, names)
}

func TestFailedStepSaysHowToResume(t *testing.T) {
	e := newEnv(t)
	res := e.nwp("", "backup", "-y", "nwp9")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.out, "backup failed")
	assert.Contains(t, res.err, "-s 1")
}

func TestInvalidSiteName(t *testing.T) {
	e := newEnv(t)
	res := e.nwp("", "backup", "-y", "nwp4_stg_stg")
	assert.Equal(t, 1, res.code)
	_, err := os.Stat(e.path("locks"))
	assert.True(t, os.IsNotExist(err))
}

func TestListAndRecipes(t *testing.T) {
	e := newEnv(t)

	res := e.nwp("", "list")
	require.Equal(t, 0, res.code, res.err)
	assert.Contains(t, res.out, "nwp4")
	assert.Contains(t, res.out, e.path("sites/nwp4"))

	res = e.nwp("", "recipes")
	require.Equal(t, 0, res.code, res.err)
	assert.Contains(t, res.out, "drupal/recommended-project:^10")
	assert.Contains(t, res.out, "https://github.com/nwpdev/opensocial.git#main")

	res = e.nwp("", "list", "extra")
	assert.Equal(t, 1, res.code)
}

func TestConfigMustExist(t *testing.T) {
	e := newEnv(t)
	e.config = e.path("missing.yml")
	res := e.nwp("", "list")
	assert.Equal(t, 1, res.code)
}

func TestProvisionNeedsACloud(t *testing.T) {
	e := newEnv(t)
	res := e.nwp("", "provision", "-y", "nwp4")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.err, "awsRegion")
}
