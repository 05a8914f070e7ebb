// Package config holds the persisted build settings (ohos_config.json) and
// the paths derived from them.
package config

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/joho/godotenv"

	"github.com/Azure/hb-kit/pkg/common/filesystem"
	"github.com/Azure/hb-kit/pkg/domain/errors"
)

const (
	// FileName is the persisted configuration file at the source root.
	FileName = "ohos_config.json"

	EnvGnPath    = "HB_GN_PATH"
	EnvNinjaPath = "HB_NINJA_PATH"
	EnvPython    = "HB_PYTHON"
	EnvLogLevel  = "HB_LOG_LEVEL"
)

// Config is a snapshot of the build settings. It is a plain value: callers
// that need a different root or product build a modified copy.
type Config struct {
	RootPath    string `json:"root_path"`
	Board       string `json:"board"`
	Kernel      string `json:"kernel"`
	Product     string `json:"product"`
	ProductPath string `json:"product_path"`
	DevicePath  string `json:"device_path"`

	// Env holds overrides read from <root>/.env.
	Env map[string]string `json:"-"`
	// LookPath resolves executables on PATH; exec.LookPath when nil.
	LookPath func(string) (string, error) `json:"-"`
}

// Require returns a configuration error for the first unset setting.
func (c Config) Require(settings ...string) error {
	values := map[string]string{
		"root_path":    c.RootPath,
		"board":        c.Board,
		"kernel":       c.Kernel,
		"product":      c.Product,
		"product_path": c.ProductPath,
		"device_path":  c.DevicePath,
	}
	for _, s := range settings {
		if values[s] == "" {
			return errors.Configuration(s)
		}
	}
	return nil
}

// WithRoot returns a copy of c rooted at root. Product and device paths
// under the old root are moved under the new one.
func (c Config) WithRoot(root string) Config {
	rebased := c
	rebased.RootPath = root
	rebased.ProductPath = rebase(c.ProductPath, c.RootPath, root)
	rebased.DevicePath = rebase(c.DevicePath, c.RootPath, root)
	return rebased
}

func rebase(path, oldRoot, newRoot string) string {
	if path == "" || oldRoot == "" {
		return path
	}
	rel, err := filepath.Rel(oldRoot, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return filepath.Join(newRoot, rel)
}

// BuildPath is <root>/build/lite; it must exist.
func (c Config) BuildPath() (string, error) {
	if err := c.Require("root_path"); err != nil {
		return "", err
	}
	p := filepath.Join(c.RootPath, "build", "lite")
	if !filesystem.IsDir(p) {
		return "", errors.New(errors.CodeConfiguration, "config", fmt.Sprintf("Invalid build path: %s", p), nil)
	}
	return p, nil
}

// VendorPath is <root>/vendor; it must exist.
func (c Config) VendorPath() (string, error) {
	if err := c.Require("root_path"); err != nil {
		return "", err
	}
	p := filepath.Join(c.RootPath, "vendor")
	if !filesystem.IsDir(p) {
		return "", errors.New(errors.CodeConfiguration, "config", fmt.Sprintf("Invalid vendor path: %s", p), nil)
	}
	return p, nil
}

// ProductJSON is the product manifest of the selected product.
func (c Config) ProductJSON() (string, error) {
	if err := c.Require("product_path"); err != nil {
		return "", err
	}
	return filepath.Join(c.ProductPath, "config.json"), nil
}

// RelPath returns path relative to the root, for gn ("//"-style) arguments
// and for copying between roots.
func (c Config) RelPath(path string) string {
	rel, err := filepath.Rel(c.RootPath, path)
	if err != nil {
		return path
	}
	return rel
}

// BuildToolsPath is the prebuilt tool directory for the host platform.
func (c Config) BuildToolsPath() (string, error) {
	var platform string
	switch runtime.GOOS {
	case "linux":
		platform = "linux-x86"
	case "windows":
		platform = "win-x86"
	default:
		return "", errors.New(errors.CodeConfiguration, "config", fmt.Sprintf("unidentified platform: %s", runtime.GOOS), nil)
	}
	return filepath.Join(c.RootPath, "prebuilts", "build-tools", platform, "bin"), nil
}

// GnPath locates gn: env override, then the prebuilt, then PATH.
func (c Config) GnPath() (string, error) {
	return c.toolPath("gn", EnvGnPath)
}

// NinjaPath locates ninja: env override, then the prebuilt, then PATH.
func (c Config) NinjaPath() (string, error) {
	return c.toolPath("ninja", EnvNinjaPath)
}

func (c Config) toolPath(tool, envKey string) (string, error) {
	if p := c.Getenv(envKey); p != "" {
		return p, nil
	}
	if tools, err := c.BuildToolsPath(); err == nil {
		if p := filepath.Join(tools, tool); filesystem.IsFile(p) {
			return p, nil
		}
	}
	if p, err := c.lookPath(tool); err == nil {
		return p, nil
	}
	return "", errors.New(errors.CodeConfiguration, "config", fmt.Sprintf("%s not found, install it please", tool), nil)
}

// ClangPath returns the clang toolchain root: the in-tree prebuilt as a
// "//" path, or the llvm directory above clang on PATH.
func (c Config) ClangPath() (string, error) {
	repoClang := filepath.Join("prebuilts", "clang", "ohos", "linux-x86_64", "llvm")
	if filesystem.IsDir(filepath.Join(c.RootPath, repoClang)) {
		return "//" + filepath.ToSlash(repoClang), nil
	}
	if bin, err := c.lookPath("clang"); err == nil {
		llvm, err := filepath.Abs(filepath.Join(filepath.Dir(bin), ".."))
		if err == nil && filepath.Base(llvm) == "llvm" {
			return llvm, nil
		}
	}
	return "", errors.New(errors.CodeConfiguration, "config", "clang not found, install it please", nil)
}

// ScriptExecutable is the interpreter gn runs build scripts with.
func (c Config) ScriptExecutable() string {
	if p := c.Getenv(EnvPython); p != "" {
		return p
	}
	for _, name := range []string{"python3", "python"} {
		if p, err := c.lookPath(name); err == nil {
			return p
		}
	}
	return "python3"
}

// Getenv reads key from the .env overrides, then the process environment.
func (c Config) Getenv(key string) string {
	return getFirstNonEmpty(c.Env[key], os.Getenv(key))
}

func (c Config) lookPath(file string) (string, error) {
	if c.LookPath != nil {
		return c.LookPath(file)
	}
	return exec.LookPath(file)
}

// LoadEnv reads <root>/.env into c.Env. A missing file is not an error.
func (c *Config) LoadEnv() error {
	if c.RootPath == "" {
		return nil
	}
	envFile := filepath.Join(c.RootPath, ".env")
	if !filesystem.IsFile(envFile) {
		return nil
	}
	env, err := godotenv.Read(envFile)
	if err != nil {
		return errors.New(errors.CodeConfiguration, "config", fmt.Sprintf("failed to load %s", envFile), err)
	}
	c.Env = env
	return nil
}

// FindRoot walks up from dir to the first directory that contains build/lite.
func FindRoot(dir string) (string, error) {
	cur, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		if filesystem.IsDir(filepath.Join(cur, "build", "lite")) {
			return cur, nil
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return "", errors.New(errors.CodeConfiguration, "config",
				"Please call hb utilities inside source root directory", nil)
		}
		cur = parent
	}
}

func getFirstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
