// Package lock keeps two runs from working on the same site at once.
//
// Locks are advisory flock(2) locks on one file per site. The kernel
// drops them when the process exits, so a crashed run never leaves a
// site locked.
package lock

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	nwperr "github.com/nwpdev/nwp/pkg/errors"
)

// Lock is a held lock on one site.
type Lock struct {
	site string
	f    *os.File
}

// Acquire takes the lock on the site given, without waiting.
func Acquire(dir, site string) (*Lock, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.Wrap(err, "creating lock directory")
	}
	path := filepath.Join(dir, site+".lock")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "opening lock file for %s", site)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if err == unix.EWOULDBLOCK {
			return nil, &nwperr.Error{
				Kind: nwperr.Locked,
				Err:  fmt.Errorf("%s is locked by another run", site),
				Help: fmt.Sprintf(`Another nwp command is working on %s. Wait for it to finish and
try again. The lock file is

    %s
`, site, path),
			}
		}
		return nil, errors.Wrapf(err, "locking %s", site)
	}
	err = f.Truncate(0)
	if err == nil {
		_, err = fmt.Fprintf(f, "%d\n", os.Getpid())
	}
	if err != nil {
		(&Lock{site: site, f: f}).Release()
		return nil, errors.Wrapf(err, "writing lock file for %s", site)
	}
	return &Lock{site: site, f: f}, nil
}

func (l *Lock) Site() string {
	return l.site
}

func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	err := unix.Flock(int(l.f.Fd()), unix.LOCK_UN)
	if cerr := l.f.Close(); err == nil {
		err = cerr
	}
	l.f = nil
	return err
}

// Set is the locks for all the sites of one run.
type Set []*Lock

// AcquireAll locks each of the sites, in name order so that two runs
// touching the same pair of sites can't each hold one. If any lock can't
// be had, those already taken are released.
func AcquireAll(dir string, sites ...string) (Set, error) {
	sorted := append([]string(nil), sites...)
	sort.Strings(sorted)
	var set Set
	seen := map[string]bool{}
	for _, site := range sorted {
		if seen[site] {
			continue
		}
		seen[site] = true
		l, err := Acquire(dir, site)
		if err != nil {
			set.Release()
			return nil, err
		}
		set = append(set, l)
	}
	return set, nil
}

func (s Set) Release() error {
	var first error
	for i := len(s) - 1; i >= 0; i-- {
		if err := s[i].Release(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
