package main

import (
	"github.com/spf13/cobra"

	"github.com/nwpdev/nwp/pkg/flags"
	"github.com/nwpdev/nwp/pkg/lifecycle"
	"github.com/nwpdev/nwp/pkg/pipeline"
)

type promoteOpts struct {
	*rootOpts
}

func newPromote(parent *rootOpts) *promoteOpts {
	return &promoteOpts{rootOpts: parent}
}

var promoteSchema = flags.MustSchema("promote", withRunOptions(flags.Open)...)

func (opts *promoteOpts) Command() *cobra.Command {
	return verb(&cobra.Command{
		Use:   "promote [options] <site>",
		Short: "Promote a site's code and configuration to the next environment: dev to staging, staging to production.",
		Example: makeExample(
			"nwp promote nwp4        # nwp4 to nwp4_stg",
			"nwp promote nwp4_stg    # nwp4_stg to the production server",
		),
		RunE: opts.RunE,
	}, promoteSchema)
}

func (opts *promoteOpts) RunE(cmd *cobra.Command, args []string) error {
	set, err := opts.parse(cmd, promoteSchema, args)
	if err != nil {
		return err
	}
	if err := checkArgs(set.Args, 1, 1, "the development or staging site to promote"); err != nil {
		return err
	}
	req := lifecycle.PromoteRequest{
		Site: set.Args[0],
		Open: set.Bool("open"),
	}
	return opts.execute(set, []string{req.Site}, func(h *lifecycle.Host) (*pipeline.Pipeline, error) {
		return h.Promote(req)
	})
}
