package build

import (
	"context"
	"path/filepath"
	"time"

	"github.com/Azure/hb-kit/pkg/common/filesystem"
	"github.com/Azure/hb-kit/pkg/config"
	"github.com/Azure/hb-kit/pkg/device"
	"github.com/Azure/hb-kit/pkg/domain/errors"
	"github.com/Azure/hb-kit/pkg/logger"
	"github.com/Azure/hb-kit/pkg/pipeline"
	"github.com/Azure/hb-kit/pkg/registry"
	"github.com/Azure/hb-kit/pkg/runner"
)

// Request carries the build options of one "hb build" invocation.
type Request struct {
	// Component is resolved against the registry for the configured board
	// and kernel; its targets become ohos_build_target.
	Component string
	BuildType string
	// Compiler overrides the device's board_toolchain_type.
	Compiler string
	// Test is ["xts", <args>].
	Test     []string
	Dmverity bool
	Tee      bool
	// Product is name@company; it is selected before anything else.
	Product string
	Full    bool
	Ndk     bool
	Targets []string
	Verbose bool

	SignHapsByServer bool
	// GnOnly stops after graph generation.
	GnOnly    bool
	Patch     bool
	LogFilter bool
}

// Outcome describes a finished (or failed) build.
type Outcome struct {
	Config   config.Config
	OutPath  string
	LogPath  string
	Args     []string
	Decision Decision
	Report   *pipeline.RunReport
	Duration time.Duration
}

// Builder runs builds.
type Builder struct {
	Commands runner.CommandRunner
	// Observer receives per-stage results; optional.
	Observer pipeline.Observer
	// Store, when set, persists an explicit product selection.
	Store *config.Store
	// Getwd returns the working directory; os.Getwd when nil.
	Getwd func() (string, error)
}

// Build runs one build and returns its outcome. Tool failures are returned
// as *errors.ToolInvocationError alongside a non-nil Outcome.
func (b *Builder) Build(ctx context.Context, cfg config.Config, req Request) (*Outcome, error) {
	start := time.Now()
	outcome := &Outcome{}

	if req.Product != "" {
		name, company, err := ParseProduct(req.Product)
		if err != nil {
			return outcome, err
		}
		if cfg, err = SelectProduct(cfg, name, company); err != nil {
			return outcome, err
		}
		if b.Store != nil {
			if err := Persist(b.Store, cfg); err != nil {
				return outcome, err
			}
		}
	}
	outcome.Config = cfg

	bctx := NewContext(cfg)
	planner := &Planner{Commands: b.Commands, Getwd: b.Getwd}

	if req.Component != "" {
		if err := cfg.Require("root_path", "board", "kernel"); err != nil {
			return outcome, err
		}
		reg, err := registry.Load(cfg.RootPath)
		if err != nil {
			return outcome, err
		}
		component, err := reg.Resolve(req.Component, cfg.Board, cfg.Kernel)
		if err != nil {
			return outcome, err
		}
		bctx.RegisterList(TargetArg, component.Targets, true)
	}

	buildType := req.BuildType
	if buildType == "" {
		buildType = "debug"
	}
	bctx.Register("ohos_build_type", buildType, true)

	if len(req.Test) > 0 {
		if err := registerTest(bctx, req.Test); err != nil {
			return outcome, err
		}
	}
	if req.Dmverity {
		bctx.Register("enable_ohos_security_dmverity", "true", false)
		bctx.FsAttrs.Insert("dmverity_enable")
	}
	if req.Tee {
		bctx.Register("tee_enable", "true", false)
		bctx.FsAttrs.Insert("tee_enable")
	}

	if err := b.registerCompiler(bctx, cfg, planner, req.Compiler, len(req.Targets) == 0); err != nil {
		return outcome, err
	}
	if req.Ndk {
		bctx.Register("ohos_build_ndk", "true", false)
	}
	if len(req.Targets) > 0 {
		bctx.RegisterList(TargetArg, req.Targets, true)
	}

	toolArgs := pipeline.ToolArgs{}
	if req.Verbose {
		toolArgs.Add(pipeline.ToolGn, "-v")
		toolArgs.Add(pipeline.ToolNinja, "-v")
	}
	if req.SignHapsByServer {
		bctx.Register("ohos_sign_haps_by_server", "true", false)
	}

	plan, err := planner.Plan(bctx, cfg, PlanOptions{
		Ninja:     !req.GnOnly,
		Full:      req.Full,
		Patch:     req.Patch,
		LogFilter: req.LogFilter,
	})
	if err != nil {
		return outcome, err
	}
	outcome.OutPath = bctx.OutPath
	outcome.LogPath = bctx.LogPath()
	outcome.Decision = plan.Decision

	pr := pipeline.NewRunner(b.Commands, pipeline.RunnerOptions{Registrar: bctx, Observer: b.Observer})
	report, runErr := pr.Run(ctx, plan.Stages, toolArgs)
	outcome.Report = report
	outcome.Args = bctx.Args()
	outcome.Duration = time.Since(start)

	if report != nil && filesystem.IsDir(bctx.OutPath) {
		if err := pipeline.WriteReport(report, bctx.OutPath); err != nil {
			logger.Warnf("failed to write run report: %v", err)
		}
	}
	return outcome, runErr
}

// registerCompiler defaults to the toolchain of the device being built:
// the working directory when building a board in place, else the configured
// device.
func (b *Builder) registerCompiler(bctx *Context, cfg config.Config, planner *Planner, compiler string, deviceBuild bool) error {
	if compiler == "" {
		devicePath := cfg.DevicePath
		if dir, ok := planner.DeviceDir(bctx); ok && deviceBuild {
			devicePath = dir
		}
		if devicePath == "" {
			return errors.Configuration("device_path")
		}
		var err error
		if compiler, err = device.GetCompiler(devicePath); err != nil {
			return err
		}
	}
	bctx.Compiler = compiler
	bctx.Register("ohos_build_compiler_specified", compiler, true)
	if compiler == "clang" {
		clang, err := cfg.ClangPath()
		if err != nil {
			return err
		}
		bctx.Register("ohos_build_compiler_dir", clang, true)
	}
	return nil
}

func registerTest(bctx *Context, test []string) error {
	if test[0] != "xts" {
		return errors.New(errors.CodeInvalidParameter, "build", "Error: wrong input of test", nil)
	}
	if len(test) > 1 {
		bctx.Register("ohos_xts_test_args", test[1], true)
	}
	return nil
}

// Clean runs "gn clean" on outPath, or on the configured product's output
// directory when outPath is empty.
func Clean(ctx context.Context, commands runner.CommandRunner, cfg config.Config, outPath string) error {
	if outPath == "" {
		if err := cfg.Require("root_path", "board", "product"); err != nil {
			return err
		}
		outPath = filepath.Join(cfg.RootPath, "out", cfg.Board, cfg.Product)
	} else {
		abs, err := filepath.Abs(outPath)
		if err != nil {
			return err
		}
		outPath = abs
	}
	if !filesystem.IsDir(outPath) {
		logger.Warnf("%s not found", outPath)
		return nil
	}
	gn, err := cfg.GnPath()
	if err != nil {
		return err
	}
	buildPath, err := cfg.BuildPath()
	if err != nil {
		return err
	}
	args := []string{gn, "--root=" + cfg.RootPath, "--dotfile=" + filepath.Join(buildPath, ".gn"), "clean", outPath}
	return commands.Stream(ctx, runner.Invocation{Args: args, LogPath: filepath.Join(outPath, LogFileName)})
}
