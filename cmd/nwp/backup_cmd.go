package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/nwpdev/nwp/pkg/flags"
	"github.com/nwpdev/nwp/pkg/lifecycle"
	"github.com/nwpdev/nwp/pkg/pipeline"
)

type backupOpts struct {
	*rootOpts
}

func newBackup(parent *rootOpts) *backupOpts {
	return &backupOpts{rootOpts: parent}
}

var backupSchema = flags.MustSchema("backup", withRunOptions(dbOnlyOption)...)

func (opts *backupOpts) Command() *cobra.Command {
	return verb(&cobra.Command{
		Use:   "backup [options] <site> [message...]",
		Short: "Back up a site's files and database to the backup store.",
		Example: makeExample(
			"nwp backup nwp4",
			"nwp backup nwp4_stg before the module upgrade",
			"nwp backup -by nwp4",
		),
		RunE: opts.RunE,
	}, backupSchema)
}

func (opts *backupOpts) RunE(cmd *cobra.Command, args []string) error {
	set, err := opts.parse(cmd, backupSchema, args)
	if err != nil {
		return err
	}
	if err := checkArgs(set.Args, 1, -1, "a site name, optionally followed by a message"); err != nil {
		return err
	}
	req := lifecycle.BackupRequest{
		Site:         set.Args[0],
		DatabaseOnly: set.Bool("db-only"),
		Message:      strings.Join(set.Args[1:], " "),
		Resume:       set.Int("step") > 1,
	}
	return opts.execute(set, []string{req.Site}, func(h *lifecycle.Host) (*pipeline.Pipeline, error) {
		return h.Backup(opts.ctx, req)
	})
}
