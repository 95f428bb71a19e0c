package main

import (
	"github.com/spf13/cobra"

	"github.com/nwpdev/nwp/pkg/flags"
	"github.com/nwpdev/nwp/pkg/lifecycle"
	"github.com/nwpdev/nwp/pkg/pipeline"
)

type installOpts struct {
	*rootOpts
}

func newInstall(parent *rootOpts) *installOpts {
	return &installOpts{rootOpts: parent}
}

var installSchema = flags.MustSchema("install", withRunOptions(flags.Open)...)

func (opts *installOpts) Command() *cobra.Command {
	return verb(&cobra.Command{
		Use:   "install [options] <recipe> <site>",
		Short: "Create a new site from a recipe, and register it.",
		Example: makeExample(
			"nwp install d nwp4",
			"nwp install -o os social1",
		),
		RunE: opts.RunE,
	}, installSchema)
}

func (opts *installOpts) RunE(cmd *cobra.Command, args []string) error {
	set, err := opts.parse(cmd, installSchema, args)
	if err != nil {
		return err
	}
	if err := checkArgs(set.Args, 2, 2, "a recipe and the name of the new site"); err != nil {
		return err
	}
	req := lifecycle.InstallRequest{
		Recipe: set.Args[0],
		Site:   set.Args[1],
		Open:   set.Bool("open"),
	}
	return opts.execute(set, []string{req.Site}, func(h *lifecycle.Host) (*pipeline.Pipeline, error) {
		return h.Install(req)
	})
}
