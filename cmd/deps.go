package cmd

import (
	"time"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	"github.com/Azure/hb-kit/pkg/build"
	"github.com/Azure/hb-kit/pkg/history"
	"github.com/Azure/hb-kit/pkg/logger"
	"github.com/Azure/hb-kit/pkg/metrics"
	"github.com/Azure/hb-kit/pkg/progress"
	"github.com/Azure/hb-kit/pkg/validate"
)

func newDepsCmd(a *app) *cobra.Command {
	var (
		req         validate.Request
		metricsFile string
	)

	cmd := &cobra.Command{
		Use:   "deps",
		Short: "Check that every component builds on its own",
		Long: heredoc.Doc(`
			Build every component declared by every product, one at a time, in a
			scratch source tree holding only the build system. Each component gets
			its own sources, its dependencies, the product and the board copied in;
			the copies are removed after the build.

			The results are written to component_build.json in the work path.
		`),
		Example: heredoc.Doc(`
			hb deps --work-path /tmp/ohos-scratch
			hb deps --work-path /tmp/ohos-scratch --products ipcamera_hi3516dv300 --subsystems kernel
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := a.loadConfig()
			if err != nil {
				return err
			}

			builder := &build.Builder{Commands: a.commands, Getwd: a.getwd}
			v := &validate.Validator{Builder: builder}
			if reporter := progress.NewCLIReporter(a.out); reporter.Interactive() {
				v.Progress = reporter
			}
			var collector *metrics.Collector
			if metricsFile != "" {
				collector = metrics.NewCollector(metrics.DefaultNamespace)
				builder.Observer = collector
				v.Observer = collector
			}

			started := time.Now()
			report, err := v.Validate(cmd.Context(), cfg, req)
			a.record(cfg.RootPath, history.FromValidation(started, report, err))
			if collector != nil {
				if werr := collector.WriteTextfile(metricsFile); werr != nil {
					logger.Warnf("%v", werr)
				}
			}
			if err != nil {
				return err
			}
			if failed := report.Failed(); len(failed) > 0 {
				for _, r := range failed {
					logger.Warnf("%s/%s failed on %s", r.Subsystem, r.Component, r.ProductID())
				}
			}
			logger.Infof("%d of %d component builds passed", len(report.Results)-len(report.Failed()), len(report.Results))
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringSliceVar(&req.Subsystems, "subsystems", nil, "only check these subsystems")
	flags.StringSliceVar(&req.Products, "products", nil, "only check these products (name or name@company)")
	flags.StringVar(&req.WorkPath, "work-path", "", "scratch source tree holding build/lite")
	flags.StringVar(&metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile")
	_ = cmd.MarkFlagRequired("work-path")
	return cmd
}
