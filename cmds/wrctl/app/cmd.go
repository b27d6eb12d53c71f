package app

import (
	"os"

	"github.com/mandelsoft/vfs/pkg/osfs"
	"github.com/mandelsoft/vfs/pkg/vfs"
	"github.com/spf13/cobra"

	"github.com/mandelsoft/webrequest/pkg/control"
	"github.com/mandelsoft/webrequest/pkg/utils"
)

type Options struct {
	address string
	fs      vfs.FileSystem
}

func (o *Options) Client() *control.Client {
	return control.NewClient(o.address)
}

func New(fss ...vfs.FileSystem) *cobra.Command {
	opts := &Options{
		fs: utils.OptionalDefaulted(vfs.FileSystem(osfs.OsFs), fss...),
	}
	opts.address = *GetConfig(opts.fs, os.Getenv).Server

	maincmd := &cobra.Command{
		Use:   "wrctl <options> <cmd> <args>",
		Short: "control a web request multiplexer",
		Long: `
This command can be used to inspect and manipulate the listeners
registered at a web request multiplexer.
`,
		SilenceUsage:     true,
		SilenceErrors:    true,
		TraverseChildren: true,
	}

	flags := maincmd.Flags()
	flags.StringVarP(&opts.address, "server", "s", opts.address, "multiplexer server")

	maincmd.AddCommand(NewGet(opts))
	maincmd.AddCommand(NewApply(opts))
	maincmd.AddCommand(NewDelete(opts))
	maincmd.AddCommand(NewResolver(opts))
	return maincmd
}
