package cmd

import (
	"time"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	"github.com/Azure/hb-kit/pkg/build"
	"github.com/Azure/hb-kit/pkg/history"
	"github.com/Azure/hb-kit/pkg/logger"
	"github.com/Azure/hb-kit/pkg/metrics"
)

func newBuildCmd(a *app) *cobra.Command {
	var (
		req         build.Request
		noLogFilter bool
		metricsFile string
	)

	cmd := &cobra.Command{
		Use:   "build [component]",
		Short: "Build source code",
		Long: heredoc.Doc(`
			Build the configured product, one of its components, or the board
			the current directory belongs to.

			The first build of an output directory generates the graph with gn and
			runs ninja; later builds only run ninja unless --full is given.
		`),
		Example: heredoc.Doc(`
			# build the product selected with "hb set"
			hb build

			# full rebuild of another product
			hb build -f -p ipcamera_hi3516dv300@hisilicon

			# build a single component
			hb build kernel_lite
		`),
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				req.Component = args[0]
			}
			req.LogFilter = !noLogFilter

			cfg, store, err := a.loadConfig()
			if err != nil {
				return err
			}

			builder := &build.Builder{Commands: a.commands, Store: store, Getwd: a.getwd}
			var collector *metrics.Collector
			if metricsFile != "" {
				collector = metrics.NewCollector(metrics.DefaultNamespace)
				builder.Observer = collector
			}

			started := time.Now()
			outcome, buildErr := builder.Build(cmd.Context(), cfg, req)
			a.record(cfg.RootPath, history.FromBuild(req.Component, started, outcome, buildErr))
			if collector != nil {
				if err := collector.WriteTextfile(metricsFile); err != nil {
					logger.Warnf("%v", err)
				}
			}
			return buildErr
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&req.BuildType, "build_type", "b", "debug", "release or debug version")
	flags.StringVarP(&req.Compiler, "compiler", "c", "", "specify compiler (defaults to the board toolchain)")
	flags.StringSliceVarP(&req.Test, "test", "t", nil, "compile test suit, eg: xts,<args>")
	flags.BoolVar(&req.Dmverity, "dmverity", false, "Enable dmverity")
	flags.BoolVar(&req.Tee, "tee", false, "Enable tee")
	flags.StringVarP(&req.Product, "product", "p", "", "build a specified product with {product_name}@{company}, eg: camera@huawei")
	flags.BoolVarP(&req.Full, "full", "f", false, "full code compilation")
	flags.BoolVarP(&req.Ndk, "ndk", "n", false, "compile ndk")
	flags.StringSliceVarP(&req.Targets, "target", "T", nil, "Compile single target")
	flags.BoolVarP(&req.Verbose, "verbose", "v", false, "show all command lines while building")
	flags.BoolVar(&req.SignHapsByServer, "sign_haps_by_server", false, "sign haps by server")
	flags.BoolVar(&req.GnOnly, "gn-only", false, "generate the build graph without running ninja")
	flags.BoolVar(&req.Patch, "patch", false, "apply the product's patch.yml before building")
	flags.BoolVar(&noLogFilter, "no-log-filter", false, "echo every build output line")
	flags.StringVar(&metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile")
	return cmd
}
