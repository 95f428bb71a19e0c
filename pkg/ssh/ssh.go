// Package ssh reaches production hosts: commands over ssh, files over
// rsync.
package ssh

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/nwpdev/nwp/pkg/command"
)

const (
	DefaultSSHBinary   = "ssh"
	DefaultRsyncBinary = "rsync"
)

// Target is a directory on a remote host.
type Target struct {
	User     string
	Host     string
	Port     int
	Path     string
	Identity string // private key file; empty for the agent or default key
}

func (t Target) Address() string {
	if t.User == "" {
		return t.Host
	}
	return t.User + "@" + t.Host
}

func (t Target) String() string {
	return t.Address() + ":" + t.Path
}

func (t Target) sshOptions() []string {
	opts := []string{"-o", "BatchMode=yes"}
	if t.Port != 0 {
		opts = append(opts, "-p", strconv.Itoa(t.Port))
	}
	if t.Identity != "" {
		opts = append(opts, "-i", t.Identity)
	}
	return opts
}

// Remote runs tools in the site directory on a remote host.
type Remote struct {
	runner command.Runner
	binary string
	target Target
}

func NewRemote(runner command.Runner, binary string, target Target) *Remote {
	if binary == "" {
		binary = DefaultSSHBinary
	}
	return &Remote{runner: runner, binary: binary, target: target}
}

func (r *Remote) Target() Target {
	return r.target
}

// Exec runs the tool given in the site directory. Drush is run from the
// site's vendor directory, since a production host won't have it
// installed globally.
func (r *Remote) Exec(ctx context.Context, name string, args ...string) ([]byte, error) {
	if name == "drush" {
		name = "vendor/bin/drush"
	}
	script := "cd " + Quote(r.target.Path) + " && " + Quote(name)
	for _, a := range args {
		script += " " + Quote(a)
	}
	sshArgs := append(r.target.sshOptions(), r.target.Address(), script)
	out, err := r.runner.Run(ctx, command.Cmd{Name: r.binary, Args: sshArgs})
	return out, errors.Wrapf(err, "on %s", r.target.Host)
}

// Quote makes s safe to pass through a POSIX shell as one word.
func Quote(s string) string {
	if s != "" && strings.IndexFunc(s, unsafe) < 0 {
		return s
	}
	return "'" + strings.Replace(s, "'", `'\''`, -1) + "'"
}

func unsafe(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return false
	}
	return !strings.ContainsRune("-_./:=@%+,", r)
}

// Rsync copies directory trees to remote hosts.
type Rsync struct {
	runner    command.Runner
	binary    string
	sshBinary string
}

func NewRsync(runner command.Runner, binary, sshBinary string) *Rsync {
	if binary == "" {
		binary = DefaultRsyncBinary
	}
	if sshBinary == "" {
		sshBinary = DefaultSSHBinary
	}
	return &Rsync{runner: runner, binary: binary, sshBinary: sshBinary}
}

// Push makes the target's directory match the local one, except for
// paths matching the exclusions, which are neither copied nor deleted.
func (r *Rsync) Push(ctx context.Context, localDir string, target Target, exclude []string) error {
	args := []string{"-az", "--delete"}
	for _, pattern := range exclude {
		args = append(args, "--exclude="+pattern)
	}
	args = append(args,
		"-e", strings.Join(append([]string{r.sshBinary}, target.sshOptions()...), " "),
		strings.TrimSuffix(localDir, "/")+"/",
		fmt.Sprintf("%s:%s/", target.Address(), strings.TrimSuffix(target.Path, "/")),
	)
	_, err := r.runner.Run(ctx, command.Cmd{Name: r.binary, Args: args})
	return errors.Wrapf(err, "syncing files to %s", target)
}
