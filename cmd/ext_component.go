package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Azure/hb-kit/pkg/extbuild"
)

func newExtComponentCmd(a *app) *cobra.Command {
	var opts extbuild.Options

	cmd := &cobra.Command{
		Use:    "ext-component",
		Short:  "Build a component with its own build commands",
		Long:   "Run by gn actions for components that are not built by gn itself. The combined output goes to --target_dir, or to --out_dir when a command fails.",
		Args:   cobra.NoArgs,
		Hidden: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return extbuild.Run(cmd.Context(), a.commands, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.Path, "path", "", "Build path.")
	flags.StringVar(&opts.Prebuilts, "prebuilts", "", "Build prebuilts.")
	flags.StringVar(&opts.Command, "command", "", "Build command.")
	flags.StringSliceVar(&opts.Enable, "enable", nil, "false disables the build")
	flags.StringVar(&opts.TargetFile, "target_dir", "", "file receiving the build output")
	flags.StringVar(&opts.ErrorFile, "out_dir", "", "file receiving the build output on failure")
	return cmd
}
