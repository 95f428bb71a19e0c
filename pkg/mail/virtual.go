// Package mail keeps each site's mail alias in the postfix virtual
// alias table.
package mail

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/nwpdev/nwp/pkg/command"
)

const DefaultPostmap = "postmap"

// Virtual is a postfix virtual alias file. Lines other than the entries
// we manage, including comments, are kept as they are.
type Virtual struct {
	path    string
	postmap string
	runner  command.Runner
}

func NewVirtual(runner command.Runner, postmap, path string) *Virtual {
	if postmap == "" {
		postmap = DefaultPostmap
	}
	return &Virtual{path: path, postmap: postmap, runner: runner}
}

type line struct {
	text        string
	address     string
	destination string
}

func (v *Virtual) read() ([]line, error) {
	bs, err := ioutil.ReadFile(v.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var lines []line
	sc := bufio.NewScanner(bytes.NewReader(bs))
	for sc.Scan() {
		l := line{text: sc.Text()}
		trimmed := strings.TrimSpace(l.text)
		if trimmed != "" && !strings.HasPrefix(trimmed, "#") {
			if fields := strings.Fields(trimmed); len(fields) >= 2 {
				l.address, l.destination = fields[0], strings.Join(fields[1:], " ")
			}
		}
		lines = append(lines, l)
	}
	return lines, sc.Err()
}

func (v *Virtual) write(ctx context.Context, lines []line) error {
	buf := &bytes.Buffer{}
	for _, l := range lines {
		fmt.Fprintln(buf, l.text)
	}
	tmp, err := ioutil.TempFile(filepath.Dir(v.path), ".virtual")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	tmp.Close()
	os.Chmod(tmp.Name(), 0644)
	if err := os.Rename(tmp.Name(), v.path); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	_, err = v.runner.Run(ctx, command.Cmd{Name: v.postmap, Args: []string{v.path}})
	return errors.Wrap(err, "rebuilding alias map")
}

// Lookup returns the destination for an address, if there is one.
func (v *Virtual) Lookup(address string) (string, bool, error) {
	lines, err := v.read()
	if err != nil {
		return "", false, err
	}
	for _, l := range lines {
		if l.address == address {
			return l.destination, true, nil
		}
	}
	return "", false, nil
}

// Set points the address at the destination, replacing any entry it
// already has, and rebuilds the map.
func (v *Virtual) Set(ctx context.Context, address, destination string) error {
	lines, err := v.read()
	if err != nil {
		return err
	}
	entry := line{text: address + " " + destination, address: address, destination: destination}
	replaced := false
	for i := range lines {
		if lines[i].address == address {
			lines[i] = entry
			replaced = true
		}
	}
	if !replaced {
		lines = append(lines, entry)
	}
	return v.write(ctx, lines)
}

// Remove takes out the address's entry, if it has one.
func (v *Virtual) Remove(ctx context.Context, address string) error {
	lines, err := v.read()
	if err != nil {
		return err
	}
	var kept []line
	for _, l := range lines {
		if l.address != address {
			kept = append(kept, l)
		}
	}
	if len(kept) == len(lines) {
		return nil
	}
	return v.write(ctx, kept)
}

// SiteAddress gives the alias address of a site.
func SiteAddress(site, domain string) string {
	return site + "@" + domain
}
