package build

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Azure/hb-kit/pkg/common/filesystem"
	"github.com/Azure/hb-kit/pkg/config"
	"github.com/Azure/hb-kit/pkg/device"
	"github.com/Azure/hb-kit/pkg/domain/errors"
	"github.com/Azure/hb-kit/pkg/logger"
	"github.com/Azure/hb-kit/pkg/pipeline"
	"github.com/Azure/hb-kit/pkg/registry"
	"github.com/Azure/hb-kit/pkg/runner"
)

// PlanOptions are the caller's choices that shape the pipeline.
type PlanOptions struct {
	// Ninja runs ninja after gn; false generates the graph only.
	Ninja bool
	Full  bool
	Patch bool
	// LogFilter limits ninja console output to progress lines.
	LogFilter bool
}

// Plan is a decided pipeline bound to a build context.
type Plan struct {
	Decision Decision
	Stages   []pipeline.Stage
}

// Planner turns a build context into an ordered list of stages.
type Planner struct {
	Commands runner.CommandRunner
	// Getwd returns the working directory; os.Getwd when nil.
	Getwd func() (string, error)
}

// DeviceDir returns the working directory when the build should target the
// device found there: no explicit targets were registered and the directory
// holds a config.gni declaring kernel_type.
func (p *Planner) DeviceDir(bctx *Context) (string, bool) {
	if len(bctx.Targets) > 0 {
		return "", false
	}
	cwd, err := p.getwd()
	if err != nil {
		return "", false
	}
	return cwd, device.IsInDevice(cwd)
}

// Plan decides the out path and the stages, registers the remaining gn
// arguments and prepares the output directory.
func (p *Planner) Plan(bctx *Context, cfg config.Config, opts PlanOptions) (*Plan, error) {
	if cwd, ok := p.DeviceDir(bctx); ok {
		if err := p.planDevice(bctx, cwd); err != nil {
			return nil, err
		}
		cfg = cfg.WithRoot(bctx.RootPath)
	} else if err := p.planProduct(bctx, cfg); err != nil {
		return nil, err
	}

	graphExists := filesystem.IsFile(filepath.Join(bctx.OutPath, "build.ninja"))
	decision := DecidePipeline(opts.Ninja, graphExists, opts.Full, opts.Patch, bctx.PackagingRequired)
	bctx.Register(FullCompileArg, fmt.Sprintf("%t", decision.FullCompile), false)

	stages, err := p.stages(bctx, cfg, decision, opts)
	if err != nil {
		return nil, err
	}

	switch decision.DirAction {
	case DirCreate:
		err = filesystem.MakeDirs(bctx.OutPath, false)
	case DirRecreate:
		err = filesystem.MakeDirs(bctx.OutPath, true)
	}
	if err != nil {
		return nil, errors.New(errors.CodeIoError, "build", "failed to prepare output directory", err)
	}

	logger.Debugf("pipeline %v, full compile %t, out dir %s (%s)", decision.Stages, decision.FullCompile, bctx.OutPath, decision.DirAction)
	return &Plan{Decision: decision, Stages: stages}, nil
}

// planDevice builds the board found in cwd. The source root is the
// nearest directory above cwd holding build/lite.
func (p *Planner) planDevice(bctx *Context, cwd string) error {
	info, err := device.Parse(filepath.Join(cwd, device.ConfigName))
	if err != nil {
		return err
	}
	root, err := config.FindRoot(cwd)
	if err != nil {
		return err
	}
	board := info.BoardName
	if board == "" {
		board = filepath.Base(filepath.Dir(cwd))
	}
	bctx.RootPath = root
	bctx.Board = board
	bctx.Kernel = info.KernelType
	bctx.DevicePath = cwd
	bctx.OutPath = filepath.Join(bctx.RootPath, "out", board)

	bctx.RegisterList(TargetArg, []string{filepath.Dir(cwd)}, true)
	bctx.Register("device_path", cwd, true)
	bctx.Register("ohos_kernel_type", info.KernelType, true)
	return nil
}

func (p *Planner) planProduct(bctx *Context, cfg config.Config) error {
	if err := cfg.Require("root_path", "board", "kernel", "product", "product_path", "device_path"); err != nil {
		return err
	}
	bctx.Register("product_path", bctx.ProductPath, true)
	bctx.Register("device_path", bctx.DevicePath, true)
	bctx.Register("ohos_kernel_type", bctx.Kernel, true)

	productJSON, err := cfg.ProductJSON()
	if err != nil {
		return err
	}
	manifest, err := registry.LoadManifest(productJSON)
	if err != nil {
		return err
	}
	bctx.AddRaw(manifest.Features()...)
	bctx.OutPath = filepath.Join(bctx.RootPath, "out", bctx.Board, bctx.Product)
	return nil
}

func (p *Planner) stages(bctx *Context, cfg config.Config, d Decision, opts PlanOptions) ([]pipeline.Stage, error) {
	var stages []pipeline.Stage
	for _, kind := range d.Stages {
		switch kind {
		case StagePatch:
			stages = append(stages, &PatchStage{Ctx: bctx, Commands: p.Commands})
		case StageGenerate:
			gn, err := cfg.GnPath()
			if err != nil {
				return nil, err
			}
			buildPath, err := cfg.BuildPath()
			if err != nil {
				return nil, err
			}
			stages = append(stages, &GenerateStage{
				Ctx:       bctx,
				Commands:  p.Commands,
				GnPath:    gn,
				BuildPath: buildPath,
				Python:    cfg.ScriptExecutable(),
			})
		case StageExecute:
			ninja, err := cfg.NinjaPath()
			if err != nil {
				return nil, err
			}
			stages = append(stages, &ExecuteStage{Ctx: bctx, Commands: p.Commands, NinjaPath: ninja, LogFilter: opts.LogFilter})
		case StagePackage:
			stages = append(stages, &PackageStage{Ctx: bctx, Commands: p.Commands})
		}
	}
	return stages, nil
}

func (p *Planner) getwd() (string, error) {
	if p.Getwd != nil {
		return p.Getwd()
	}
	return os.Getwd()
}
