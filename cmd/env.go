package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"

	"github.com/Azure/hb-kit/pkg/config"
)

func newEnvCmd(a *app) *cobra.Command {
	var dump bool

	cmd := &cobra.Command{
		Use:   "env",
		Short: "Show OHOS build env",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := a.loadConfig()
			if err != nil {
				return err
			}
			if dump {
				cfg.LookPath = nil
				spew.Fdump(a.out, cfg)
				return nil
			}
			return printEnv(a, cfg)
		},
	}
	cmd.Flags().BoolVar(&dump, "dump", false, "dump the full configuration, including .env overrides")
	return cmd
}

func printEnv(a *app, cfg config.Config) error {
	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	rows := []struct{ name, value string }{
		{"root path", cfg.RootPath},
		{"board", cfg.Board},
		{"kernel", cfg.Kernel},
		{"product", cfg.Product},
		{"product path", cfg.ProductPath},
		{"device path", cfg.DevicePath},
	}
	for _, r := range rows {
		value := r.value
		if value == "" {
			value = "(unset)"
		}
		fmt.Fprintf(w, "[OHOS INFO] %s:\t%s\n", r.name, value)
	}
	return w.Flush()
}
