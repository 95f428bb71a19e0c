// Package commandtest has a fake command runner, for testing code that
// drives external tools.
package commandtest

import (
	"context"
	"strings"
	"sync"

	"github.com/nwpdev/nwp/pkg/command"
)

// Response is what a faked command gives back.
type Response struct {
	Output string
	Err    error
}

// Runner records every command it is asked to run. A command gets the
// response registered for the longest prefix of its command line (see
// On), or empty output and no error.
type Runner struct {
	mu        sync.Mutex
	Cmds      []command.Cmd
	responses map[string]Response
	// Called, if set, for every command after it is recorded. A non-nil
	// response overrides the registered one.
	Hook func(c command.Cmd) *Response
}

func NewRunner() *Runner {
	return &Runner{responses: map[string]Response{}}
}

// On registers a response for commands whose command line starts with
// prefix, e.g., "ddev drush cr".
func (r *Runner) On(prefix string, resp Response) *Runner {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses[prefix] = resp
	return r
}

func (r *Runner) Run(ctx context.Context, c command.Cmd) ([]byte, error) {
	r.mu.Lock()
	r.Cmds = append(r.Cmds, c)
	hook := r.Hook
	line := c.String()
	var (
		best  string
		resp  Response
		found bool
	)
	for prefix, rsp := range r.responses {
		if strings.HasPrefix(line, prefix) && (!found || len(prefix) > len(best)) {
			best, resp, found = prefix, rsp, true
		}
	}
	r.mu.Unlock()

	if hook != nil {
		if override := hook(c); override != nil {
			resp = *override
		}
	}
	if c.Stream != nil && resp.Output != "" {
		c.Stream.Write([]byte(resp.Output))
	}
	return []byte(resp.Output), resp.Err
}

// Lines returns the command lines run so far, in order.
func (r *Runner) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var lines []string
	for _, c := range r.Cmds {
		lines = append(lines, c.String())
	}
	return lines
}

// Ran says whether any command line started with prefix.
func (r *Runner) Ran(prefix string) bool {
	for _, l := range r.Lines() {
		if strings.HasPrefix(l, prefix) {
			return true
		}
	}
	return false
}

// Reset forgets the commands run so far.
func (r *Runner) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Cmds = nil
}
