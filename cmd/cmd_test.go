package cmd

import (
	"bytes"
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Azure/hb-kit/pkg/common/filesystem"
	"github.com/Azure/hb-kit/pkg/config"
	"github.com/Azure/hb-kit/pkg/domain/errors"
	"github.com/Azure/hb-kit/pkg/logger"
	"github.com/Azure/hb-kit/pkg/registry"
	"github.com/Azure/hb-kit/pkg/registry/registrytest"
	"github.com/Azure/hb-kit/pkg/runner"
	"github.com/Azure/hb-kit/pkg/validate"
)

type testEnv struct {
	tree     *registrytest.Tree
	commands *runner.FakeCommandRunner
	out      *bytes.Buffer
	logs     *strings.Builder
	app      *app
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	t.Setenv(config.EnvGnPath, "")
	t.Setenv(config.EnvNinjaPath, "")
	t.Setenv(config.EnvPython, "")
	t.Setenv("CI", "true")

	logs := &strings.Builder{}
	logger.SetOutput(logs, logs)
	t.Cleanup(func() { logger.SetOutput(os.Stdout, os.Stderr) })

	tree := registrytest.New(t)
	tree.AddSubsystem("foo",
		registrytest.Decl{Component: "x", Dirs: []string{"foo/x"}, Targets: []string{"//foo/x:x"}},
		registrytest.Decl{Component: "y", Dirs: []string{"foo/y"}, Targets: []string{"//foo/y:y"}},
	)
	tree.AddDevice("acme", "b1", "liteos_a", "liteos_a", "", "gcc")
	tree.AddProduct("acme", "p1", registry.ProductManifest{
		ProductName:   "p1",
		Board:         "b1",
		KernelType:    "liteos_a",
		DeviceCompany: "acme",
		Subsystems: []registry.ProductSubsystem{{
			Subsystem:  "foo",
			Components: []registry.ProductComponent{{Component: "x"}, {Component: "y"}},
		}},
	})

	commands := &runner.FakeCommandRunner{}
	out := &bytes.Buffer{}
	return &testEnv{
		tree:     tree,
		commands: commands,
		out:      out,
		logs:     logs,
		app: &app{
			commands: commands,
			getwd:    func() (string, error) { return tree.Path("foo"), nil },
			lookPath: func(file string) (string, error) { return filepath.Join("/usr/bin", file), nil },
			out:      out,
		},
	}
}

func (e *testEnv) run(args ...string) error {
	root := newRootCmd(e.app)
	root.SetArgs(args)
	return root.ExecuteContext(context.Background())
}

func TestExitCode(t *testing.T) {
	logs := &strings.Builder{}
	logger.SetOutput(logs, logs)
	t.Cleanup(func() { logger.SetOutput(os.Stdout, os.Stderr) })

	assert.Equal(t, 0, exitCode(nil))
	assert.Equal(t, 130, exitCode(errors.UserAbort(context.Canceled)))
	assert.Contains(t, logs.String(), "[WARNING] User Abort")

	assert.Equal(t, 1, exitCode(&errors.ToolInvocationError{Command: "ninja -C out", ExitCode: 2}))
	assert.Contains(t, logs.String(), "ninja -C out failed, return code is 2")

	assert.Equal(t, 1, exitCode(errors.Configuration("product")))
	assert.Contains(t, logs.String(), "[ERROR] product is not set")

	assert.Equal(t, 1, exitCode(stderrors.New("boom")))
}

func TestSetSelectsProduct(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, env.run("set", "--product", "p1@acme"))

	cfg, err := config.NewStore(env.tree.Root).Load()
	require.NoError(t, err)
	assert.Equal(t, env.tree.Root, cfg.RootPath)
	assert.Equal(t, "p1", cfg.Product)
	assert.Equal(t, "b1", cfg.Board)
	assert.Equal(t, "liteos_a", cfg.Kernel)
	assert.Equal(t, env.tree.Path("vendor", "acme", "p1"), cfg.ProductPath)
	assert.Equal(t, env.tree.Path("device", "acme", "b1", "liteos_a"), cfg.DevicePath)

	require.NoError(t, env.run("env"))
	assert.Contains(t, env.out.String(), "product:")
	assert.Contains(t, env.out.String(), "p1")
}

func TestSetListsProducts(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, env.run("set"))
	assert.Contains(t, env.out.String(), "p1@acme")
	assert.FileExists(t, env.tree.Path(config.FileName))

	err := env.run("set", "--product", "p1")
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParameter))
}

func TestEnvDump(t *testing.T) {
	env := newTestEnv(t)
	env.tree.WriteFile(".env", "HB_PYTHON=/opt/python3\n")

	require.NoError(t, env.run("env", "--dump"))
	assert.Contains(t, env.out.String(), "/opt/python3")
	assert.Contains(t, env.out.String(), "RootPath")
}

func TestOutsideSourceTree(t *testing.T) {
	env := newTestEnv(t)
	env.app.getwd = func() (string, error) { return t.TempDir(), nil }

	err := env.run("build")
	assert.True(t, errors.IsCode(err, errors.CodeConfiguration))
}

func TestBuildAndHistory(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.run("set", "--product", "p1@acme"))

	metricsFile := filepath.Join(t.TempDir(), "hb.prom")
	require.NoError(t, env.run("build", "x", "--metrics-file", metricsFile))
	assert.Equal(t, []string{"gn", "ninja"}, env.commands.Tools())
	assert.FileExists(t, metricsFile)

	env.commands.ExitCodes = map[string]int{"ninja": 1}
	err := env.run("build")
	_, ok := errors.AsToolInvocation(err)
	require.True(t, ok)

	env.out.Reset()
	require.NoError(t, env.run("history", "--kind", "build"))
	lines := strings.Split(strings.TrimSpace(env.out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[1], "failure")
	assert.Contains(t, lines[2], "success")
	assert.Contains(t, lines[2], "x (p1)")

	require.NoError(t, env.run("history", "--prune", "1"))
	env.out.Reset()
	require.NoError(t, env.run("history"))
	assert.Len(t, strings.Split(strings.TrimSpace(env.out.String()), "\n"), 2)
}

func TestBuildUnsetProduct(t *testing.T) {
	env := newTestEnv(t)

	err := env.run("build")
	assert.True(t, errors.IsCode(err, errors.CodeConfiguration))
	assert.Empty(t, env.commands.Invocations)
}

func TestDeps(t *testing.T) {
	env := newTestEnv(t)
	work := t.TempDir()
	require.NoError(t, filesystem.CopyTree(env.tree.Path("build"), filepath.Join(work, "build"), nil))

	require.NoError(t, env.run("deps", "--work-path", work))

	data, err := os.ReadFile(filepath.Join(work, validate.ReportFileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"component_name": "x"`)
	assert.Contains(t, string(data), `"component_name": "y"`)
	assert.Contains(t, env.logs.String(), "2 of 2 component builds passed")

	err = env.run("deps")
	assert.Error(t, err, "--work-path is required")
}

func TestExtComponent(t *testing.T) {
	env := newTestEnv(t)
	dir := t.TempDir()
	target := filepath.Join(dir, "build.log")

	require.NoError(t, env.run("ext-component", "--path", dir, "--command", "make && make install", "--target_dir", target))
	assert.Equal(t, []string{"make", "make"}, env.commands.Tools())
	assert.FileExists(t, target)
}

func TestVersion(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.run("--version"))
	assert.Equal(t, "[OHOS INFO] hb version "+Version+"\n", env.out.String())
}
