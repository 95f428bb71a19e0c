// Package git runs the few git operations site management needs:
// fetching a recipe's codebase, and naming the checkout a backup was
// taken from.
package git

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/nwpdev/nwp/pkg/command"
)

const DefaultBinary = "git"

type Git struct {
	runner command.Runner
	binary string
}

func New(runner command.Runner, binary string) *Git {
	if binary == "" {
		binary = DefaultBinary
	}
	return &Git{runner: runner, binary: binary}
}

func (g *Git) run(ctx context.Context, dir string, args ...string) (string, error) {
	out, err := g.runner.Run(ctx, command.Cmd{
		Name: g.binary,
		Args: args,
		Dir:  dir,
		Env:  []string{"GIT_TERMINAL_PROMPT=0"},
	})
	return strings.TrimSpace(string(out)), err
}

// Checkout fetches a branch of the remote into dir and checks it out.
// Unlike clone, it works in a directory that already has files in it
// (such as a DDEV configuration); files in the way are overwritten. An
// empty branch means the remote's HEAD.
func (g *Git) Checkout(ctx context.Context, remote Remote, branch, dir string) error {
	ref := branch
	if ref == "" {
		ref = "HEAD"
	}
	steps := [][]string{
		{"init", "--quiet"},
		{"remote", "add", "origin", remote.URL},
		{"fetch", "--depth", "1", "origin", ref},
	}
	if branch != "" {
		steps = append(steps, []string{"checkout", "--force", "-B", branch, "FETCH_HEAD"})
	} else {
		steps = append(steps, []string{"checkout", "--force", "FETCH_HEAD"})
	}
	for _, args := range steps {
		if _, err := g.run(ctx, dir, args...); err != nil {
			return errors.Wrapf(err, "checking out %s from %s", ref, remote.SafeURL())
		}
	}
	return nil
}

func (g *Git) CurrentBranch(ctx context.Context, dir string) (string, error) {
	branch, err := g.run(ctx, dir, "rev-parse", "--abbrev-ref", "HEAD")
	return branch, errors.Wrap(err, "finding current branch")
}

func (g *Git) ShortRevision(ctx context.Context, dir string) (string, error) {
	rev, err := g.run(ctx, dir, "rev-parse", "--short", "HEAD")
	return rev, errors.Wrap(err, "finding current revision")
}

// Describe names the checkout in dir as <branch>-<short revision>, or
// returns the empty string if git can't say.
func (g *Git) Describe(ctx context.Context, dir string) string {
	branch, err := g.CurrentBranch(ctx, dir)
	if err != nil || branch == "" {
		return ""
	}
	rev, err := g.ShortRevision(ctx, dir)
	if err != nil || rev == "" {
		return ""
	}
	return branch + "-" + rev
}
