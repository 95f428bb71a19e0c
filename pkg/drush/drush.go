// Package drush runs Drupal's command line tool in a site's
// environment.
package drush

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/nwpdev/nwp/pkg/command"
)

type Drush struct {
	shell command.Shell
}

func New(shell command.Shell) *Drush {
	return &Drush{shell: shell}
}

func (d *Drush) run(ctx context.Context, args ...string) (string, error) {
	out, err := d.shell.Exec(ctx, "drush", args...)
	if err != nil {
		return "", errors.Wrapf(err, "drush %s", args[0])
	}
	return strings.TrimSpace(string(out)), nil
}

func (d *Drush) CacheRebuild(ctx context.Context) error {
	_, err := d.run(ctx, "cache:rebuild")
	return err
}

func (d *Drush) ConfigExport(ctx context.Context) error {
	_, err := d.run(ctx, "config:export", "-y")
	return err
}

func (d *Drush) ConfigImport(ctx context.Context) error {
	_, err := d.run(ctx, "config:import", "-y")
	return err
}

// UpdateDB runs any outstanding database updates.
func (d *Drush) UpdateDB(ctx context.Context) error {
	_, err := d.run(ctx, "updatedb", "-y")
	return err
}

func (d *Drush) Enable(ctx context.Context, modules ...string) error {
	if len(modules) == 0 {
		return nil
	}
	_, err := d.run(ctx, append([]string{"pm:enable", "-y"}, modules...)...)
	return err
}

func (d *Drush) Uninstall(ctx context.Context, modules ...string) error {
	if len(modules) == 0 {
		return nil
	}
	_, err := d.run(ctx, append([]string{"pm:uninstall", "-y"}, modules...)...)
	return err
}

// LoginLink returns a one-time login URL for the administrator.
func (d *Drush) LoginLink(ctx context.Context) (string, error) {
	out, err := d.run(ctx, "user:login")
	if err != nil {
		return "", err
	}
	lines := strings.Split(out, "\n")
	return strings.TrimSpace(lines[len(lines)-1]), nil
}

type InstallOptions struct {
	Profile   string
	SiteName  string
	AdminUser string
	AdminPass string
	Email     string
}

func (d *Drush) SiteInstall(ctx context.Context, opts InstallOptions) error {
	args := []string{"site:install", "-y"}
	if opts.Profile != "" {
		args = append(args, opts.Profile)
	}
	if opts.SiteName != "" {
		args = append(args, "--site-name="+opts.SiteName)
	}
	if opts.AdminUser != "" {
		args = append(args, "--account-name="+opts.AdminUser)
	}
	if opts.AdminPass != "" {
		args = append(args, "--account-pass="+opts.AdminPass)
	}
	if opts.Email != "" {
		args = append(args, "--site-mail="+opts.Email)
	}
	_, err := d.run(ctx, args...)
	return err
}
