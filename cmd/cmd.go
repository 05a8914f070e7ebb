// Package cmd implements the hb command line.
package cmd

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/MakeNowJust/heredoc"
	"github.com/spf13/cobra"

	"github.com/Azure/hb-kit/pkg/config"
	"github.com/Azure/hb-kit/pkg/logger"
	"github.com/Azure/hb-kit/pkg/runner"
)

// Version of the hb tool.
const Version = "0.4.4"

// app carries what every command needs; tests replace the fields.
type app struct {
	commands runner.CommandRunner
	getwd    func() (string, error)
	lookPath func(string) (string, error)
	out      io.Writer
	logLevel string
}

func newApp() *app {
	return &app{
		commands: &runner.DefaultCommandRunner{},
		getwd:    os.Getwd,
		out:      os.Stdout,
	}
}

// commandTable lists the hb subcommands in help order.
var commandTable = []func(a *app) *cobra.Command{
	newBuildCmd,
	newSetCmd,
	newEnvCmd,
	newCleanCmd,
	newDepsCmd,
	newHistoryCmd,
	newExtComponentCmd,
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "hb",
		Short:   "OHOS Build System version " + Version,
		Version: Version,
		Long: heredoc.Doc(`
			hb drives gn and ninja to build OpenHarmony lite products.

			Run it anywhere inside a source tree (a directory holding build/lite).
			Use "hb set" once to pick a product, then "hb build".
		`),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return logger.SetLevel(a.logLevel)
		},
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}
	rootCmd.SetVersionTemplate("[OHOS INFO] hb version {{.Version}}\n")
	rootCmd.SetOut(a.out)
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", getFirstNonEmpty(os.Getenv(config.EnvLogLevel), "info"),
		"Log level (debug, info, warn, error)")

	for _, newCmd := range commandTable {
		rootCmd.AddCommand(newCmd(a))
	}
	return rootCmd
}

// Execute runs hb and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newRootCmd(newApp()).ExecuteContext(ctx)
	return exitCode(err)
}

// loadConfig finds the source root above the working directory and loads
// its persisted settings and .env overrides.
func (a *app) loadConfig() (config.Config, *config.Store, error) {
	cwd, err := a.getwd()
	if err != nil {
		return config.Config{}, nil, err
	}
	root, err := config.FindRoot(cwd)
	if err != nil {
		return config.Config{}, nil, err
	}
	store := config.NewStore(root)
	cfg, err := store.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	if cfg.RootPath == "" {
		cfg.RootPath = root
	}
	cfg.LookPath = a.lookPath
	if err := cfg.LoadEnv(); err != nil {
		return config.Config{}, nil, err
	}
	return cfg, store, nil
}

func getFirstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
