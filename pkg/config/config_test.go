package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/Azure/hb-kit/pkg/domain/errors"
)

func notFound(string) (string, error) { return "", errors.New("not found") }

func mkdir(t *testing.T, parts ...string) string {
	t.Helper()
	p := filepath.Join(parts...)
	require.NoError(t, os.MkdirAll(p, 0755))
	return p
}

func TestFindRoot(t *testing.T) {
	root := t.TempDir()
	mkdir(t, root, "build", "lite")
	nested := mkdir(t, root, "device", "hisilicon", "hispark_taurus", "sdk_liteos")

	got, err := FindRoot(nested)
	require.NoError(t, err)
	want, _ := filepath.Abs(root)
	assert.Equal(t, want, got)

	_, err = FindRoot(t.TempDir())
	assert.True(t, domainerrors.IsCode(err, domainerrors.CodeConfiguration))
}

func TestRequire(t *testing.T) {
	cfg := Config{RootPath: "/src"}
	assert.NoError(t, cfg.Require("root_path"))

	err := cfg.Require("root_path", "product_path")
	require.Error(t, err)
	assert.True(t, domainerrors.IsCode(err, domainerrors.CodeConfiguration))
	assert.Contains(t, err.Error(), "product_path is not set")
}

func TestWithRoot(t *testing.T) {
	cfg := Config{
		RootPath:    "/src",
		Product:     "wifiiot",
		ProductPath: "/src/vendor/hisilicon/wifiiot",
		DevicePath:  "/opt/elsewhere/device",
	}
	rebased := cfg.WithRoot("/work")

	assert.Equal(t, "/work", rebased.RootPath)
	assert.Equal(t, "/work/vendor/hisilicon/wifiiot", rebased.ProductPath)
	assert.Equal(t, "/opt/elsewhere/device", rebased.DevicePath)
	assert.Equal(t, "/src", cfg.RootPath, "original value must not change")
}

func TestToolPathPrecedence(t *testing.T) {
	t.Setenv(EnvGnPath, "")
	root := t.TempDir()
	cfg := Config{RootPath: root, LookPath: func(f string) (string, error) { return "/usr/bin/" + f, nil }}

	p, err := cfg.GnPath()
	require.NoError(t, err)
	assert.Equal(t, "/usr/bin/gn", p)

	tools, err := cfg.BuildToolsPath()
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(tools, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(tools, "gn"), []byte("#!/bin/sh"), 0755))
	p, err = cfg.GnPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(tools, "gn"), p)

	cfg.Env = map[string]string{EnvGnPath: "/custom/gn"}
	p, err = cfg.GnPath()
	require.NoError(t, err)
	assert.Equal(t, "/custom/gn", p)
}

func TestNinjaPathMissing(t *testing.T) {
	t.Setenv(EnvNinjaPath, "")
	cfg := Config{RootPath: t.TempDir(), LookPath: notFound}
	_, err := cfg.NinjaPath()
	require.Error(t, err)
	assert.True(t, domainerrors.IsCode(err, domainerrors.CodeConfiguration))
	assert.Contains(t, err.Error(), "ninja not found, install it please")
}

func TestClangPath(t *testing.T) {
	root := t.TempDir()
	cfg := Config{RootPath: root, LookPath: notFound}
	_, err := cfg.ClangPath()
	assert.Error(t, err)

	llvm := mkdir(t, t.TempDir(), "llvm", "bin")
	cfg.LookPath = func(string) (string, error) { return filepath.Join(llvm, "clang"), nil }
	p, err := cfg.ClangPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Dir(llvm), p)

	mkdir(t, root, "prebuilts", "clang", "ohos", "linux-x86_64", "llvm")
	p, err = cfg.ClangPath()
	require.NoError(t, err)
	assert.Equal(t, "//prebuilts/clang/ohos/linux-x86_64/llvm", p)
}

func TestLoadEnv(t *testing.T) {
	t.Setenv(EnvPython, "")
	root := t.TempDir()
	cfg := Config{RootPath: root}
	require.NoError(t, cfg.LoadEnv())
	assert.Nil(t, cfg.Env)

	require.NoError(t, os.WriteFile(filepath.Join(root, ".env"), []byte("HB_PYTHON=/opt/python3\n"), 0644))
	require.NoError(t, cfg.LoadEnv())
	assert.Equal(t, "/opt/python3", cfg.ScriptExecutable())
}

func TestStoreSkeletonAndUpdate(t *testing.T) {
	root := t.TempDir()
	store := NewStore(root)

	require.NoError(t, store.Update("board", "hispark_taurus"))

	data, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	raw := map[string]interface{}{}
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Len(t, raw, len(Keys))
	assert.Equal(t, "hispark_taurus", raw["board"])
	assert.Nil(t, raw["product"])

	require.NoError(t, store.UpdateAll(map[string]string{"root_path": root, "product": "ipcamera"}))
	cfg, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, root, cfg.RootPath)
	assert.Equal(t, "hispark_taurus", cfg.Board)
	assert.Equal(t, "ipcamera", cfg.Product)

	err = store.Update("color", "blue")
	assert.True(t, domainerrors.IsCode(err, domainerrors.CodeInvalidParameter))
}

func TestStoreLoadMissing(t *testing.T) {
	root := t.TempDir()
	cfg, err := NewStore(root).Load()
	require.NoError(t, err)
	assert.Equal(t, root, cfg.RootPath)
	assert.Empty(t, cfg.Product)
}
