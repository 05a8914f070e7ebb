package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Azure/hb-kit/pkg/build"
	"github.com/Azure/hb-kit/pkg/logger"
)

func newCleanCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clean [out_path]",
		Short: "Clean output",
		Long:  "Remove the build output of the selected product, or of out_path, with gn clean.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := a.loadConfig()
			if err != nil {
				return err
			}
			var outPath string
			if len(args) > 0 {
				outPath = args[0]
			}
			if err := build.Clean(cmd.Context(), a.commands, cfg, outPath); err != nil {
				return err
			}
			logger.Info("clean done")
			return nil
		},
	}
}
