package artifact

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	nwperr "github.com/nwpdev/nwp/pkg/errors"
)

func noArtifacts(site string, kind Kind) error {
	return &nwperr.Error{
		Kind: nwperr.NoArtifacts,
		Err:  fmt.Errorf("no %s backups of %s", kind, site),
		Help: fmt.Sprintf(`There are no %s backups of %s to choose from.

Use

    nwp artifacts %s

to see what backups exist, or make one with 'nwp backup %s'.
`, kind, site, site, site),
	}
}

// SelectLatest returns the newest artifact of the kind given.
func (s *Store) SelectLatest(site string, kind Kind) (Artifact, error) {
	return s.SelectIndex(site, kind, 1)
}

// SelectIndex returns the n-th newest artifact of the kind given,
// counting from 1.
func (s *Store) SelectIndex(site string, kind Kind, n int) (Artifact, error) {
	list, err := s.List(site, kind)
	if err != nil {
		return Artifact{}, err
	}
	return pick(site, kind, list, n)
}

func pick(site string, kind Kind, list []Artifact, n int) (Artifact, error) {
	if len(list) == 0 {
		return Artifact{}, noArtifacts(site, kind)
	}
	if n < 1 || n > len(list) {
		return Artifact{}, nwperr.Errorf(nwperr.InvalidSelection, "there are %d %s backups of %s; %d is not one of them", len(list), kind, site, n)
	}
	return list[n-1], nil
}

// SelectInteractive prints the artifacts of the kind given to out and
// reads the operator's choice, a number from the list, from in. Any
// answer that is not one of the numbers listed is an error; there is no
// default.
func (s *Store) SelectInteractive(site string, kind Kind, in io.Reader, out io.Writer) (Artifact, error) {
	list, err := s.List(site, kind)
	if err != nil {
		return Artifact{}, err
	}
	if len(list) == 0 {
		return Artifact{}, noArtifacts(site, kind)
	}

	fmt.Fprintf(out, "Backups (%s) of %s, newest first:\n\n", kind, site)
	PrintArtifacts(out, list, true)
	fmt.Fprintf(out, "\nChoose a backup [1-%d]: ", len(list))

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return Artifact{}, err
	}
	answer := strings.TrimSpace(line)
	if answer == "" {
		return Artifact{}, nwperr.New(nwperr.InvalidSelection, "no backup chosen")
	}
	n, err := strconv.Atoi(answer)
	if err != nil {
		return Artifact{}, nwperr.Errorf(nwperr.InvalidSelection, "%q is not a number from the list", answer)
	}
	return pick(site, kind, list, n)
}

// PrintArtifacts writes a table of artifacts. If numbered, each row
// starts with the number that selects it.
func PrintArtifacts(out io.Writer, list []Artifact, numbered bool) {
	w := tabwriter.NewWriter(out, 0, 2, 2, ' ', 0)
	if numbered {
		fmt.Fprint(w, "# \t")
	}
	fmt.Fprintln(w, "ID \tKIND \tCREATED \tSIZE \tLABEL")
	for i, a := range list {
		if numbered {
			fmt.Fprintf(w, "%d\t", i+1)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", a.ID, a.Kind, humanize.Time(a.CreatedAt), humanize.Bytes(uint64(a.SizeBytes)), a.Label)
	}
	w.Flush()
}
