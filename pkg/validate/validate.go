// Package validate builds every declared component of every product in an
// isolated workspace and reports which ones build on their own.
package validate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/Azure/hb-kit/pkg/build"
	"github.com/Azure/hb-kit/pkg/common/filesystem"
	"github.com/Azure/hb-kit/pkg/config"
	"github.com/Azure/hb-kit/pkg/domain/errors"
	"github.com/Azure/hb-kit/pkg/logger"
	"github.com/Azure/hb-kit/pkg/registry"
)

// Request selects what to validate. Empty filters select everything.
type Request struct {
	Subsystems []string
	// Products are product names, or name@company.
	Products []string
	// WorkPath is the scratch source tree builds run in. It must already
	// hold the build system (build/lite).
	WorkPath string
}

// Builder runs one build; *build.Builder implements it.
type Builder interface {
	Build(ctx context.Context, cfg config.Config, req build.Request) (*build.Outcome, error)
}

// Progress reports matrix progress to the user.
type Progress interface {
	Update(msg string)
	Stop()
}

// Observer is told about every finished component build.
type Observer interface {
	ObserveComponent(product, component string, passed bool)
}

// Validator runs the build matrix serially.
type Validator struct {
	Builder  Builder
	Progress Progress
	Observer Observer
	// IgnorePatterns are skipped when copying dirs into the workspace;
	// filesystem.DefaultIgnorePatterns when nil.
	IgnorePatterns []string
}

type matrixEntry struct {
	product   registry.Product
	cfg       config.Config
	subsystem string
	component *registry.Component
	// dirs are the component's own and dependency source dirs.
	dirs []string
}

// Validate builds each selected component of each selected product on its
// own inside req.WorkPath and writes the report there. Build failures are
// results; any other error stops the matrix and is returned with the
// results gathered so far.
func (v *Validator) Validate(ctx context.Context, cfg config.Config, req Request) (*Report, error) {
	if err := cfg.Require("root_path"); err != nil {
		return nil, err
	}
	workPath, err := filepath.Abs(req.WorkPath)
	if err != nil {
		return nil, err
	}
	if !filesystem.IsDir(workPath) {
		return nil, errors.New(errors.CodeInvalidParameter, "validate", fmt.Sprintf("%s is not a valid path", workPath), nil)
	}
	if v.Progress != nil {
		defer v.Progress.Stop()
	}

	entries, err := v.matrix(cfg, req)
	if err != nil {
		return nil, err
	}
	logger.Infof("validating %d component builds in %s", len(entries), workPath)

	report := &Report{WorkPath: workPath}
	for i, e := range entries {
		if v.Progress != nil {
			v.Progress.Update(fmt.Sprintf("[%d/%d] %s on %s", i+1, len(entries), e.component.Name, e.product))
		}
		result, err := v.buildOne(ctx, cfg.RootPath, workPath, e)
		if err != nil {
			return report, err
		}
		report.Results = append(report.Results, result)
		if v.Observer != nil {
			v.Observer.ObserveComponent(result.ProductID(), result.Component, result.Passed())
		}
	}

	if err := report.Write(); err != nil {
		return report, err
	}
	logger.Infof("component build report written to %s", report.JSONPath())
	return report, nil
}

// matrix lists the (product, component) builds in order: products as found
// under vendor/, then the product's subsystems and components in
// declaration order.
func (v *Validator) matrix(cfg config.Config, req Request) ([]matrixEntry, error) {
	reg, err := registry.Load(cfg.RootPath)
	if err != nil {
		return nil, err
	}
	vendorPath, err := cfg.VendorPath()
	if err != nil {
		return nil, err
	}
	products, err := registry.Products(vendorPath)
	if err != nil {
		return nil, err
	}

	wanted := sets.New(req.Products...)
	subsystems := sets.New(req.Subsystems...)
	var entries []matrixEntry
	for _, p := range products {
		if wanted.Len() > 0 && !wanted.Has(p.Name) && !wanted.Has(p.String()) {
			continue
		}
		pcfg, err := build.SelectProduct(cfg, p.Name, p.Company)
		if err != nil {
			return nil, err
		}
		manifest, err := registry.LoadManifest(p.ManifestPath())
		if err != nil {
			return nil, err
		}
		for _, group := range manifest.Components(subsystems) {
			for _, name := range group.Components {
				if reg.Lookup(name) == nil {
					logger.Warnf("%s declared by %s is not in the component registry, skipped", name, p)
					continue
				}
				c, err := reg.Resolve(name, pcfg.Board, pcfg.Kernel)
				if err != nil {
					return nil, err
				}
				entries = append(entries, matrixEntry{
					product:   p,
					cfg:       pcfg,
					subsystem: group.Subsystem,
					component: c,
					dirs:      reg.DepDirs(c),
				})
			}
		}
	}
	return entries, nil
}

// buildOne copies what the component needs into the workspace, builds it
// there and removes the copies again, whatever the outcome.
func (v *Validator) buildOne(ctx context.Context, srcRoot, workPath string, e matrixEntry) (result Result, err error) {
	result = Result{
		Subsystem: e.subsystem,
		Component: e.component.Name,
		Product:   e.product.Name,
		Company:   e.product.Company,
	}

	dirs := extraDirs(srcRoot, e)
	copied, copyErr := v.copyDirs(srcRoot, workPath, dirs)
	defer func() {
		if cleanupErr := removeDirs(copied); cleanupErr != nil && err == nil {
			err = cleanupErr
		}
	}()
	if copyErr != nil {
		return result, copyErr
	}

	logger.Infof("building %s for %s", e.component.Name, e.product)
	outcome, buildErr := v.Builder.Build(ctx, e.cfg.WithRoot(workPath), build.Request{
		Component: e.component.Name,
		BuildType: "debug",
		Full:      true,
		LogFilter: true,
	})
	if buildErr == nil {
		result.Status = StatusPassed
		return result, nil
	}

	tie, ok := errors.AsToolInvocation(buildErr)
	if !ok {
		return result, buildErr
	}
	result.Status = StatusFailed
	logPath := tie.LogPath
	if logPath == "" && outcome != nil {
		logPath = outcome.LogPath
	}
	if data, readErr := os.ReadFile(logPath); readErr == nil {
		result.Log = string(data)
	} else {
		logger.Warnf("failed to read build log %s: %v", logPath, readErr)
	}
	logger.Warnf("%s failed to build for %s", e.component.Name, e.product)
	return result, nil
}

// extraDirs are the source dirs of the component and its dependencies, the
// product dir and the device's board dir, relative to the root.
func extraDirs(srcRoot string, e matrixEntry) []string {
	dirs := append([]string{}, e.dirs...)
	return append(dirs,
		relTo(srcRoot, e.cfg.ProductPath),
		relTo(srcRoot, filepath.Dir(e.cfg.DevicePath)),
	)
}

func relTo(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return rel
}

// copyDirs copies every dir that is not yet in the workspace. It returns
// the topmost directory each copy created, so removing them restores the
// workspace.
func (v *Validator) copyDirs(srcRoot, workPath string, dirs []string) ([]string, error) {
	patterns := v.IgnorePatterns
	if patterns == nil {
		patterns = filesystem.DefaultIgnorePatterns
	}
	var copied []string
	for _, dir := range dirs {
		if dir == "." || dir == ".." || strings.HasPrefix(dir, ".."+string(filepath.Separator)) || filepath.IsAbs(dir) {
			logger.Warnf("%s is outside %s, not copied", dir, srcRoot)
			continue
		}
		dst := filepath.Join(workPath, dir)
		if filesystem.FileExists(dst) {
			continue
		}
		src := filepath.Join(srcRoot, dir)
		if !filesystem.IsDir(src) {
			logger.Warnf("%s not found in %s, not copied", dir, srcRoot)
			continue
		}
		copied = append(copied, topMissing(workPath, dst))
		if err := filesystem.CopyTree(src, dst, patterns); err != nil {
			return copied, errors.New(errors.CodeIoError, "validate", fmt.Sprintf("failed to copy %s", dir), err)
		}
	}
	return copied, nil
}

// topMissing returns the highest ancestor of dst below workPath that does
// not exist yet.
func topMissing(workPath, dst string) string {
	top := dst
	for parent := filepath.Dir(top); parent != workPath && len(parent) > len(workPath); parent = filepath.Dir(top) {
		if filesystem.FileExists(parent) {
			break
		}
		top = parent
	}
	return top
}

func removeDirs(dirs []string) error {
	var firstErr error
	for _, d := range dirs {
		if err := filesystem.RemovePath(d); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
