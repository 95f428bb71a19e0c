// Package command runs the external tools a site is managed with:
// ddev, composer, drush, git, ssh, rsync and friends.
package command

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/pkg/errors"

	nwperr "github.com/nwpdev/nwp/pkg/errors"
)

// Cmd is a command to run.
type Cmd struct {
	Name string
	Args []string
	// Working directory; empty means the current directory.
	Dir string
	// Extra environment entries, on top of the allowed variables from
	// this process's environment.
	Env   []string
	Stdin io.Reader
	// If not nil, stdout is copied here as it's produced, as well as
	// being captured.
	Stream io.Writer
}

func (c Cmd) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// Runner runs commands, returning their combined output.
type Runner interface {
	Run(ctx context.Context, c Cmd) ([]byte, error)
}

// RunnerFunc adapts a function to a Runner.
type RunnerFunc func(ctx context.Context, c Cmd) ([]byte, error)

func (f RunnerFunc) Run(ctx context.Context, c Cmd) ([]byte, error) {
	return f(ctx, c)
}

var execCommand = exec.CommandContext

// ExecRunner runs commands as child processes.
type ExecRunner struct {
	logger log.Logger
}

func NewExecRunner(logger log.Logger) *ExecRunner {
	return &ExecRunner{logger: logger}
}

func (r *ExecRunner) Run(ctx context.Context, c Cmd) ([]byte, error) {
	cmd := execCommand(ctx, c.Name, c.Args...)
	if c.Dir != "" {
		cmd.Dir = c.Dir
	}
	if cmd.Env == nil {
		cmd.Env = env()
	}
	cmd.Env = append(cmd.Env, c.Env...)
	cmd.Stdin = c.Stdin
	stdOutAndStdErr := &threadSafeBuffer{}
	cmd.Stdout = stdOutAndStdErr
	cmd.Stderr = stdOutAndStdErr
	if c.Stream != nil {
		cmd.Stdout = io.MultiWriter(cmd.Stdout, c.Stream)
	}

	level.Debug(r.logger).Log("exec", c.String(), "dir", c.Dir)
	err := cmd.Run()
	out := stdOutAndStdErr.Bytes()

	switch {
	case ctx.Err() == context.DeadlineExceeded:
		return out, errors.Wrapf(ctx.Err(), "running %s", c)
	case ctx.Err() == context.Canceled:
		return out, errors.Wrapf(ctx.Err(), "cancelled while running %s", c)
	case err == nil:
		return out, nil
	}

	var execErr *exec.Error
	if errors.As(err, &execErr) {
		return out, Unavailable(c.Name, execErr)
	}
	if msg := findErrorMessage(out); msg != "" {
		err = fmt.Errorf("%s: %s", c.Name, msg)
	} else if msg := lastLines(out, 5); msg != "" {
		err = fmt.Errorf("%s: %s", c.Name, msg)
	} else {
		err = errors.Wrapf(err, "running %s", c)
	}
	level.Debug(r.logger).Log("exec", c.String(), "err", err)
	return out, err
}

// Unavailable reports that a tool can't be run at all.
func Unavailable(name string, cause error) error {
	return &nwperr.Error{
		Kind: nwperr.ExternalToolUnavailable,
		Err:  cause,
		Help: fmt.Sprintf(`The command %q could not be run:

    %s

Check that it is installed and on your PATH, or set its location in
the nwp configuration file.
`, name, cause),
	}
}

// Environment variables passed through to tools.
var allowedEnvVars = []string{
	"PATH", "HOME", "USER", "LOGNAME", "SHELL", "LANG", "LC_ALL", "TERM", "TMPDIR",
	"SSH_AUTH_SOCK", "DOCKER_HOST", "DOCKER_CONTEXT", "XDG_CONFIG_HOME", "XDG_DATA_HOME",
	"COMPOSER_HOME", "GIT_SSH_COMMAND",
}

func env() []string {
	var env []string
	for _, k := range allowedEnvVars {
		if v, ok := os.LookupEnv(k); ok {
			env = append(env, k+"="+v)
		}
	}
	return env
}

func findErrorMessage(out []byte) string {
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch {
		case strings.HasPrefix(line, "fatal: "):
			return line
		case strings.HasPrefix(line, "Error: "):
			return strings.TrimPrefix(line, "Error: ")
		case strings.HasPrefix(line, "error: "):
			return strings.TrimPrefix(line, "error: ")
		}
	}
	return ""
}

func lastLines(out []byte, n int) string {
	var lines []string
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		if l := strings.TrimSpace(sc.Text()); l != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}

type threadSafeBuffer struct {
	buf bytes.Buffer
	mu  sync.Mutex
}

func (b *threadSafeBuffer) Write(p []byte) (n int, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *threadSafeBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Bytes()
}

// Shell runs tools inside a site's environment, wherever that is.
type Shell interface {
	Exec(ctx context.Context, name string, args ...string) ([]byte, error)
}
