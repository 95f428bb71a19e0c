// Package composer fetches and installs a site's PHP dependencies.
package composer

import (
	"context"

	"github.com/pkg/errors"

	"github.com/nwpdev/nwp/pkg/command"
)

type Composer struct {
	shell command.Shell
}

func New(shell command.Shell) *Composer {
	return &Composer{shell: shell}
}

// Install installs the locked dependencies. In production mode the
// development dependencies are left out and the autoloader optimised.
func (c *Composer) Install(ctx context.Context, production bool) error {
	args := []string{"install", "--no-interaction"}
	if production {
		args = append(args, "--no-dev", "--optimize-autoloader")
	}
	_, err := c.shell.Exec(ctx, "composer", args...)
	return errors.Wrap(err, "composer install")
}

// Create starts a new codebase from a project package, e.g.,
// drupal/recommended-project, in the current directory.
func (c *Composer) Create(ctx context.Context, pkg string) error {
	_, err := c.shell.Exec(ctx, "composer", "create", pkg, "--no-interaction")
	return errors.Wrapf(err, "composer create %s", pkg)
}

// Require adds packages to the codebase.
func (c *Composer) Require(ctx context.Context, pkgs ...string) error {
	if len(pkgs) == 0 {
		return nil
	}
	_, err := c.shell.Exec(ctx, "composer", append([]string{"require", "--no-interaction"}, pkgs...)...)
	return errors.Wrap(err, "composer require")
}
