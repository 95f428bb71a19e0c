package main

import (
	"github.com/spf13/cobra"

	nwperr "github.com/nwpdev/nwp/pkg/errors"
	"github.com/nwpdev/nwp/pkg/flags"
	"github.com/nwpdev/nwp/pkg/lifecycle"
	"github.com/nwpdev/nwp/pkg/pipeline"
)

type restoreOpts struct {
	*rootOpts
}

func newRestore(parent *rootOpts) *restoreOpts {
	return &restoreOpts{rootOpts: parent}
}

var restoreSchema = flags.MustSchema("restore", withRunOptions(
	dbOnlyOption,
	flags.Option{Name: "latest", Short: "f", Type: flags.Bool, Usage: "restore the latest backup without asking"},
	flags.Option{Name: "select", Short: "n", Type: flags.Int, Usage: "restore the `N`th newest backup"},
	flags.Open,
)...)

func (opts *restoreOpts) Command() *cobra.Command {
	return verb(&cobra.Command{
		Use:   "restore [options] <from> [to]",
		Short: "Restore a backup of one site, to itself or to another site.",
		Example: makeExample(
			"nwp restore nwp4                # choose from the backups of nwp4",
			"nwp restore -f nwp4 nwp4_copy   # latest backup of nwp4, into nwp4_copy",
			"nwp restore -b -n 2 nwp4        # the second newest database backup",
		),
		RunE: opts.RunE,
	}, restoreSchema)
}

func (opts *restoreOpts) RunE(cmd *cobra.Command, args []string) error {
	set, err := opts.parse(cmd, restoreSchema, args)
	if err != nil {
		return err
	}
	if err := checkArgs(set.Args, 1, 2, "a site to restore from, and optionally one to restore to"); err != nil {
		return err
	}
	if err := checkAtMostOne("--latest or --select", set.Bool("latest"), set.Changed("select")); err != nil {
		return err
	}
	if set.Changed("select") && set.Int("select") < 1 {
		return nwperr.Errorf(nwperr.InvalidSelection, "--select counts from 1, the newest backup; got %d", set.Int("select"))
	}

	req := lifecycle.RestoreRequest{
		From:         set.Args[0],
		To:           set.Args[0],
		DatabaseOnly: set.Bool("db-only"),
		Open:         set.Bool("open"),
		Select: lifecycle.Selection{
			Latest: set.Bool("latest"),
			Index:  set.Int("select"),
			In:     opts.console.in,
			Out:    opts.console.out,
		},
	}
	if len(set.Args) == 2 {
		req.To = set.Args[1]
	}
	return opts.execute(set, []string{req.From, req.To}, func(h *lifecycle.Host) (*pipeline.Pipeline, error) {
		return h.Restore(req)
	})
}
