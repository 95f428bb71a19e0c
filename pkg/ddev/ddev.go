// Package ddev drives the DDEV container environment a dev or staging
// site runs in.
package ddev

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/pkg/errors"

	"github.com/nwpdev/nwp/pkg/command"
)

const DefaultBinary = "ddev"

// Config is what `ddev config` is told about a project.
type Config struct {
	Name       string
	Type       string // e.g., drupal10
	Docroot    string
	PHPVersion string
	Database   string // e.g., mariadb:10.11
}

// Description is the part of `ddev describe` we use.
type Description struct {
	Name       string `json:"name"`
	Status     string `json:"status"`
	AppRoot    string `json:"approot"`
	PrimaryURL string `json:"primary_url"`
	Type       string `json:"type"`
}

func (d Description) Running() bool {
	return d.Status == "running"
}

// Project is the DDEV project in one site directory.
type Project struct {
	runner command.Runner
	binary string
	dir    string
	// Where long-running output (start, import) is streamed; may be nil.
	Progress io.Writer
}

func NewProject(runner command.Runner, binary, dir string) *Project {
	if binary == "" {
		binary = DefaultBinary
	}
	return &Project{runner: runner, binary: binary, dir: dir}
}

func (p *Project) Dir() string {
	return p.dir
}

func (p *Project) run(ctx context.Context, stream bool, args ...string) ([]byte, error) {
	c := command.Cmd{Name: p.binary, Args: args, Dir: p.dir}
	if stream {
		c.Stream = p.Progress
	}
	return p.runner.Run(ctx, c)
}

func (p *Project) Configure(ctx context.Context, cfg Config) error {
	args := []string{"config", "--project-name=" + cfg.Name}
	if cfg.Type != "" {
		args = append(args, "--project-type="+cfg.Type)
	}
	if cfg.Docroot != "" {
		args = append(args, "--docroot="+cfg.Docroot)
	}
	if cfg.PHPVersion != "" {
		args = append(args, "--php-version="+cfg.PHPVersion)
	}
	if cfg.Database != "" {
		args = append(args, "--database="+cfg.Database)
	}
	_, err := p.run(ctx, false, args...)
	return errors.Wrap(err, "configuring ddev project")
}

func (p *Project) Start(ctx context.Context) error {
	_, err := p.run(ctx, true, "start")
	return errors.Wrap(err, "starting ddev project")
}

func (p *Project) Stop(ctx context.Context) error {
	_, err := p.run(ctx, false, "stop")
	return errors.Wrap(err, "stopping ddev project")
}

// Delete removes the project's containers and database, without taking
// a snapshot first.
func (p *Project) Delete(ctx context.Context) error {
	_, err := p.run(ctx, false, "delete", "-Oy")
	return errors.Wrap(err, "deleting ddev project")
}

// ImportDB replaces the project database with the dump at path, which
// may be gzipped.
func (p *Project) ImportDB(ctx context.Context, path string) error {
	_, err := p.run(ctx, true, "import-db", "--file="+path)
	return errors.Wrapf(err, "importing database from %s", path)
}

// ExportDB writes a gzipped dump of the project database to path.
func (p *Project) ExportDB(ctx context.Context, path string) error {
	_, err := p.run(ctx, false, "export-db", "--file="+path)
	return errors.Wrapf(err, "exporting database to %s", path)
}

// Exec runs a tool in the project's web container. Composer and drush
// have their own ddev subcommands, which are used for them.
func (p *Project) Exec(ctx context.Context, name string, args ...string) ([]byte, error) {
	switch name {
	case "composer", "drush":
		return p.run(ctx, false, append([]string{name}, args...)...)
	}
	return p.run(ctx, false, append([]string{"exec", name}, args...)...)
}

func (p *Project) Describe(ctx context.Context) (Description, error) {
	out, err := p.run(ctx, false, "describe", "-j")
	if err != nil {
		return Description{}, errors.Wrap(err, "describing ddev project")
	}
	var resp struct {
		Raw Description `json:"raw"`
	}
	if err := json.Unmarshal(out, &resp); err != nil {
		return Description{}, fmt.Errorf("unexpected output from ddev describe: %v", err)
	}
	return resp.Raw, nil
}
