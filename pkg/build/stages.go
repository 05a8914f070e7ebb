package build

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/shlex"
	"gopkg.in/yaml.v3"
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/Azure/hb-kit/pkg/common/filesystem"
	"github.com/Azure/hb-kit/pkg/domain/errors"
	"github.com/Azure/hb-kit/pkg/logger"
	"github.com/Azure/hb-kit/pkg/pipeline"
	"github.com/Azure/hb-kit/pkg/runner"
)

const (
	PatchFileName = "patch.yml"
	FsFileName    = "fs.yml"
)

// GenerateStage wipes the output directory and runs "gn gen".
type GenerateStage struct {
	Ctx       *Context
	Commands  runner.CommandRunner
	GnPath    string
	BuildPath string
	Python    string
}

func (s *GenerateStage) Name() string { return string(StageGenerate) }

func (s *GenerateStage) Run(ctx context.Context, toolArgs pipeline.ToolArgs) error {
	if err := filesystem.MakeDirs(s.Ctx.OutPath, true); err != nil {
		return errors.New(errors.CodeIoError, "build", "failed to reset output directory", err)
	}
	args := []string{
		s.GnPath,
		"gen",
		s.Ctx.OutPath,
		"--root=" + s.Ctx.RootPath,
		"--dotfile=" + filepath.Join(s.BuildPath, ".gn"),
		"--script-executable=" + s.Python,
		"--args=" + s.Ctx.ArgsString(),
	}
	args = append(args, toolArgs[pipeline.ToolGn]...)
	return s.Commands.Stream(ctx, runner.Invocation{Args: args, LogPath: s.Ctx.LogPath()})
}

// ExecuteStage runs ninja on the generated graph.
type ExecuteStage struct {
	Ctx       *Context
	Commands  runner.CommandRunner
	NinjaPath string
	LogFilter bool
}

func (s *ExecuteStage) Name() string { return string(StageExecute) }

func (s *ExecuteStage) Run(ctx context.Context, toolArgs pipeline.ToolArgs) error {
	args := []string{s.NinjaPath, "-w", "dupbuild=warn", "-C", s.Ctx.OutPath}
	args = append(args, toolArgs[pipeline.ToolNinja]...)
	if err := s.Commands.Stream(ctx, runner.Invocation{Args: args, LogPath: s.Ctx.LogPath(), LogFilter: s.LogFilter}); err != nil {
		return err
	}
	logger.Infof("%s build success", filepath.Base(s.Ctx.OutPath))
	return nil
}

// PatchStage applies the patches listed in <product_path>/patch.yml. Each
// key is a directory relative to the root; its value lists patch files,
// also relative to the root, applied there with "git apply".
type PatchStage struct {
	Ctx      *Context
	Commands runner.CommandRunner
}

func (s *PatchStage) Name() string { return string(StagePatch) }

func (s *PatchStage) Run(ctx context.Context, _ pipeline.ToolArgs) error {
	patchFile := filepath.Join(s.Ctx.ProductPath, PatchFileName)
	if !filesystem.IsFile(patchFile) {
		logger.Warnf("%s not found, skip patching", patchFile)
		return nil
	}
	entries, err := readPatchFile(patchFile)
	if err != nil {
		return err
	}
	if err := filesystem.MakeDirs(s.Ctx.OutPath, false); err != nil {
		return err
	}
	for _, e := range entries {
		dir := filepath.Join(s.Ctx.RootPath, e.dir)
		for _, patch := range e.patches {
			args := []string{"git", "-C", dir, "apply", filepath.Join(s.Ctx.RootPath, patch)}
			if err := s.Commands.Stream(ctx, runner.Invocation{Args: args, LogPath: s.Ctx.LogPath()}); err != nil {
				return err
			}
		}
		logger.Infof("%s patched", e.dir)
	}
	return nil
}

type patchEntry struct {
	dir     string
	patches []string
}

// readPatchFile keeps the directory order of the file.
func readPatchFile(path string) ([]patchEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(errors.CodeIoError, "build", fmt.Sprintf("failed to read %s", path), err)
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.New(errors.CodeManifest, "build", fmt.Sprintf("%s load failed", path), err)
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, errors.New(errors.CodeManifest, "build", fmt.Sprintf("%s: expected a mapping of directory to patches", path), nil)
	}
	var entries []patchEntry
	for i := 0; i+1 < len(root.Content); i += 2 {
		var patches []string
		if err := root.Content[i+1].Decode(&patches); err != nil {
			return nil, errors.New(errors.CodeManifest, "build",
				fmt.Sprintf("%s load failed, error position: %d:%d", path, root.Content[i+1].Line, root.Content[i+1].Column), err)
		}
		entries = append(entries, patchEntry{dir: root.Content[i].Value, patches: patches})
	}
	return entries, nil
}

// FsConfig is one image description in <product_path>/fs.yml.
type FsConfig struct {
	DirName string              `yaml:"fs_dir_name"`
	MakeCmd []string            `yaml:"fs_make_cmd"`
	Attrs   map[string][]string `yaml:"fs_attr"`
}

// PackageStage builds the filesystem images described in fs.yml.
type PackageStage struct {
	Ctx      *Context
	Commands runner.CommandRunner
}

func (s *PackageStage) Name() string { return string(StagePackage) }

func (s *PackageStage) Run(ctx context.Context, _ pipeline.ToolArgs) error {
	fsFile := filepath.Join(s.Ctx.ProductPath, FsFileName)
	if !filesystem.IsFile(fsFile) {
		logger.Infof("%s not found, skip packaging", fsFile)
		return nil
	}
	data, err := os.ReadFile(fsFile)
	if err != nil {
		return errors.New(errors.CodeIoError, "build", fmt.Sprintf("failed to read %s", fsFile), err)
	}
	var images []FsConfig
	if err := yaml.Unmarshal(data, &images); err != nil {
		return errors.New(errors.CodeManifest, "build", fmt.Sprintf("%s load failed", fsFile), err)
	}

	for _, img := range images {
		fsDir := filepath.Join(s.Ctx.OutPath, img.DirName)
		vars := strings.NewReplacer(
			"${root_path}", s.Ctx.RootPath,
			"${out_path}", s.Ctx.OutPath,
			"${fs_dir}", fsDir,
		)
		cmds := append([]string{}, img.MakeCmd...)
		for _, attr := range sets.List(s.Ctx.FsAttrs) {
			cmds = append(cmds, img.Attrs[attr]...)
		}
		for _, cmd := range cmds {
			args, err := shlex.Split(vars.Replace(cmd))
			if err != nil {
				return errors.New(errors.CodeManifest, "build", fmt.Sprintf("cannot parse fs_make_cmd %q", cmd), err)
			}
			if len(args) == 0 {
				continue
			}
			if err := s.Commands.Stream(ctx, runner.Invocation{Args: args, LogPath: s.Ctx.LogPath()}); err != nil {
				return err
			}
		}
		logger.Infof("%s image done", img.DirName)
	}
	return nil
}
