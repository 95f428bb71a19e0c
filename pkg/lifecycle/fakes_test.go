package lifecycle

import (
	"context"
	"fmt"
	"io/ioutil"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/go-kit/kit/log"
	"github.com/stretchr/testify/require"

	"github.com/nwpdev/nwp/pkg/artifact"
	"github.com/nwpdev/nwp/pkg/command"
	"github.com/nwpdev/nwp/pkg/command/commandtest"
	"github.com/nwpdev/nwp/pkg/config"
	"github.com/nwpdev/nwp/pkg/pipeline"
	"github.com/nwpdev/nwp/pkg/provision"
	"github.com/nwpdev/nwp/pkg/registry"
)

const registryYAML = `schemaVersion: 1.0.0
recipes:
  d:
    source: composer
    project: drupal/recommended-project:^10
    php: "8.3"
    modules: [admin_toolbar]
  os:
    source: git
    git: https://github.com/nwpdev/opensocial.git
    branch: main
sites:
  nwp4:
    recipe: d
  nwp4_stg:
    recipe: d
`

type fixture struct {
	t      *testing.T
	host   *Host
	runner *commandtest.Runner
	sites  billy.Filesystem
	store  billy.Filesystem
	clock  time.Time
}

func newFixture(t *testing.T) *fixture {
	dir := t.TempDir()
	regPath := filepath.Join(dir, "sites.yml")
	require.NoError(t, ioutil.WriteFile(regPath, []byte(registryYAML), 0644))
	reg, err := registry.Load(regPath)
	require.NoError(t, err)

	f := &fixture{
		t:      t,
		runner: commandtest.NewRunner(),
		sites:  memfs.New(),
		store:  memfs.New(),
		clock:  time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC),
	}
	// ddev export-db leaves a dump where it was told to
	f.runner.Hook = func(c command.Cmd) *commandtest.Response {
		if c.Name == "ddev" && len(c.Args) == 2 && c.Args[0] == "export-db" {
			file := strings.TrimPrefix(c.Args[1], "--file=")
			require.NoError(t, util.WriteFile(f.store, file, []byte("dump of "+filepath.Base(c.Dir)), 0644))
		}
		return nil
	}
	f.host = &Host{
		Config: config.Config{
			SitesRoot:             "/sites",
			BackupRoot:            "/",
			DDEVBinary:            "ddev",
			GitBinary:             "git",
			SSHBinary:             "ssh",
			RsyncBinary:           "rsync",
			PostmapBinary:         "postmap",
			MailVirtualPath:       filepath.Join(dir, "virtual"),
			MailForward:           "root",
			ComposerPackage:       "drupal/recommended-project",
			PromoteExclude:        []string{".ddev", "web/sites/*/files", "web/sites/*/settings.local.php"},
			ProvisionTimeout:      time.Second,
			ProvisionPollInterval: 10 * time.Millisecond,
			InstanceImage:         "ami-0abc",
			InstanceType:          "t3.small",
		},
		Registry: reg,
		Store:    artifact.NewStore(f.store),
		Sites:    f.sites,
		Runner:   f.runner,
		now:      func() time.Time { return f.clock },
	}
	return f
}

const ddevYAML = "name: %s\ntype: drupal\ndocroot: web\n"

// site writes a small Drupal site into the sites filesystem.
func (f *fixture) site(name string) {
	for file, content := range map[string]string{
		".ddev/config.yaml":                        fmt.Sprintf(ddevYAML, name),
		"composer.json":                            `{"name": "nwp/` + name + `"}`,
		"web/index.php":                            "<?php",
		"web/sites/default/settings.php":           "<?php $settings = [];",
		"web/sites/default/files/logo.png":         "png of " + name,
		"web/sites/default/files/php/twig/abc.php": "<?php // compiled",
	} {
		f.write(name+"/"+file, content)
	}
}

func (f *fixture) write(name, content string) {
	require.NoError(f.t, util.WriteFile(f.sites, name, []byte(content), 0644))
}

func (f *fixture) read(name string) string {
	bs, err := util.ReadFile(f.sites, name)
	require.NoError(f.t, err)
	return string(bs)
}

func (f *fixture) exists(name string) bool {
	_, err := f.sites.Stat(name)
	return err == nil
}

func (f *fixture) run(p *pipeline.Pipeline, err error) (*pipeline.Run, error) {
	require.NoError(f.t, err)
	return pipeline.NewExecutor(log.NewNopLogger(), nil, nil).Run(context.Background(), p, pipeline.Options{AutoConfirm: true})
}

func (f *fixture) backup(site string, kind artifact.Kind) artifact.Artifact {
	p, err := f.host.Backup(context.Background(), BackupRequest{Site: site, DatabaseOnly: kind == artifact.DatabaseOnly})
	_, err = f.run(p, err)
	require.NoError(f.t, err)
	a, err := f.host.Store.SelectLatest(site, kind)
	require.NoError(f.t, err)
	f.clock = f.clock.Add(time.Minute)
	return a
}

func outcomes(run *pipeline.Run) map[string]pipeline.Outcome {
	res := map[string]pipeline.Outcome{}
	for _, s := range run.Steps {
		res[s.Name] = s.Outcome
	}
	return res
}

// fakeProvider is a cloud whose instances take a few polls to come up.
type fakeProvider struct {
	mu      sync.Mutex
	polls   int
	readyAt int // 0 means never
	created []provision.Spec
	deleted []string
}

func (p *fakeProvider) Create(ctx context.Context, spec provision.Spec) (provision.Instance, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.created = append(p.created, spec)
	return provision.Instance{ID: "i-0123456789", State: "pending"}, nil
}

func (p *fakeProvider) Get(ctx context.Context, id string) (provision.Instance, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.polls++
	if p.readyAt > 0 && p.polls >= p.readyAt {
		return provision.Instance{ID: id, State: "running", Address: "203.0.113.9"}, nil
	}
	return provision.Instance{ID: id, State: "pending"}, nil
}

func (p *fakeProvider) Delete(ctx context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deleted = append(p.deleted, id)
	return nil
}
