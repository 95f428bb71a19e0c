package main

import (
	"github.com/spf13/cobra"

	"github.com/nwpdev/nwp/pkg/flags"
	"github.com/nwpdev/nwp/pkg/lifecycle"
	"github.com/nwpdev/nwp/pkg/pipeline"
)

type provisionOpts struct {
	*rootOpts
}

func newProvision(parent *rootOpts) *provisionOpts {
	return &provisionOpts{rootOpts: parent}
}

var provisionSchema = flags.MustSchema("provision", runOptions...)

func (opts *provisionOpts) Command() *cobra.Command {
	return verb(&cobra.Command{
		Use:   "provision [options] <site>",
		Short: "Create a production server for a site, and record it in the registry.",
		Example: makeExample(
			"nwp provision nwp4",
		),
		RunE: opts.RunE,
	}, provisionSchema)
}

func (opts *provisionOpts) RunE(cmd *cobra.Command, args []string) error {
	set, err := opts.parse(cmd, provisionSchema, args)
	if err != nil {
		return err
	}
	if err := checkArgs(set.Args, 1, 1, "the site to provision a server for"); err != nil {
		return err
	}
	req := lifecycle.ProvisionRequest{Site: set.Args[0]}
	return opts.execute(set, []string{req.Site}, func(h *lifecycle.Host) (*pipeline.Pipeline, error) {
		return h.Provision(req)
	})
}

type deprovisionOpts struct {
	*rootOpts
}

func newDeprovision(parent *rootOpts) *deprovisionOpts {
	return &deprovisionOpts{rootOpts: parent}
}

var deprovisionSchema = flags.MustSchema("deprovision", runOptions...)

func (opts *deprovisionOpts) Command() *cobra.Command {
	return verb(&cobra.Command{
		Use:   "deprovision [options] <site>",
		Short: "Delete a site's production server.",
		Example: makeExample(
			"nwp deprovision nwp4",
		),
		RunE: opts.RunE,
	}, deprovisionSchema)
}

func (opts *deprovisionOpts) RunE(cmd *cobra.Command, args []string) error {
	set, err := opts.parse(cmd, deprovisionSchema, args)
	if err != nil {
		return err
	}
	if err := checkArgs(set.Args, 1, 1, "the site whose server to delete"); err != nil {
		return err
	}
	req := lifecycle.DeprovisionRequest{Site: set.Args[0]}
	return opts.execute(set, []string{req.Site}, func(h *lifecycle.Host) (*pipeline.Pipeline, error) {
		return h.Deprovision(req)
	})
}
