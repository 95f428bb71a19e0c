package main

import (
	"github.com/spf13/cobra"

	"github.com/nwpdev/nwp/pkg/flags"
	"github.com/nwpdev/nwp/pkg/lifecycle"
	"github.com/nwpdev/nwp/pkg/pipeline"
)

type copyOpts struct {
	*rootOpts
}

func newCopy(parent *rootOpts) *copyOpts {
	return &copyOpts{rootOpts: parent}
}

var copySchema = flags.MustSchema("copy", withRunOptions(
	flags.Option{Name: "files-only", Short: "f", Type: flags.Bool, Usage: "copy the files but not the database"},
	flags.Open,
)...)

func (opts *copyOpts) Command() *cobra.Command {
	return verb(&cobra.Command{
		Use:   "copy [options] <from> <to>",
		Short: "Copy a site, files and database, into a new or existing site.",
		Example: makeExample(
			"nwp copy nwp4 nwp4_stg",
			"nwp copy -fy nwp4 nwp5",
		),
		RunE: opts.RunE,
	}, copySchema)
}

func (opts *copyOpts) RunE(cmd *cobra.Command, args []string) error {
	set, err := opts.parse(cmd, copySchema, args)
	if err != nil {
		return err
	}
	if err := checkArgs(set.Args, 2, 2, "the site to copy from and the site to copy to"); err != nil {
		return err
	}
	req := lifecycle.CopyRequest{
		From:      set.Args[0],
		To:        set.Args[1],
		FilesOnly: set.Bool("files-only"),
		Open:      set.Bool("open"),
	}
	return opts.execute(set, []string{req.From, req.To}, func(h *lifecycle.Host) (*pipeline.Pipeline, error) {
		return h.Copy(req)
	})
}
