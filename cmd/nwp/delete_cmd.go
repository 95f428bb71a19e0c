package main

import (
	"github.com/spf13/cobra"

	"github.com/nwpdev/nwp/pkg/flags"
	"github.com/nwpdev/nwp/pkg/lifecycle"
	"github.com/nwpdev/nwp/pkg/pipeline"
)

type deleteOpts struct {
	*rootOpts
}

func newDelete(parent *rootOpts) *deleteOpts {
	return &deleteOpts{rootOpts: parent}
}

var deleteSchema = flags.MustSchema("delete", withRunOptions(
	flags.Option{Name: "no-backup", Short: "k", Type: flags.Bool, Usage: "don't take a backup first"},
)...)

func (opts *deleteOpts) Command() *cobra.Command {
	return verb(&cobra.Command{
		Use:   "delete [options] <site>",
		Short: "Delete a site: its environment, files, registry entry and mail alias. Backups are kept.",
		Example: makeExample(
			"nwp delete nwp4_copy",
			"nwp delete -yk nwp4_copy",
		),
		RunE: opts.RunE,
	}, deleteSchema)
}

func (opts *deleteOpts) RunE(cmd *cobra.Command, args []string) error {
	set, err := opts.parse(cmd, deleteSchema, args)
	if err != nil {
		return err
	}
	if err := checkArgs(set.Args, 1, 1, "the site to delete"); err != nil {
		return err
	}
	req := lifecycle.DeleteRequest{
		Site:     set.Args[0],
		NoBackup: set.Bool("no-backup"),
	}
	return opts.execute(set, []string{req.Site}, func(h *lifecycle.Host) (*pipeline.Pipeline, error) {
		return h.Delete(req)
	})
}
