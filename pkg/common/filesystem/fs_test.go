package filesystem

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestCopyTree(t *testing.T) {
	src := t.TempDir()
	dst := filepath.Join(t.TempDir(), "copy")

	writeFile(t, filepath.Join(src, "BUILD.gn"), "group(\"foo\") {}")
	writeFile(t, filepath.Join(src, "src", "main.c"), "int main() {}")
	writeFile(t, filepath.Join(src, ".git", "HEAD"), "ref")
	writeFile(t, filepath.Join(src, "out", "build.log"), "stale")
	writeFile(t, filepath.Join(src, "tmp.bak"), "x")
	writeFile(t, filepath.Join(src, ".gitignore"), "*.bak\n")

	require.NoError(t, CopyTree(src, dst, DefaultIgnorePatterns))

	assert.True(t, IsFile(filepath.Join(dst, "BUILD.gn")))
	assert.True(t, IsFile(filepath.Join(dst, "src", "main.c")))
	assert.False(t, FileExists(filepath.Join(dst, ".git")))
	assert.False(t, FileExists(filepath.Join(dst, "out")))
	assert.False(t, FileExists(filepath.Join(dst, "tmp.bak")))
}

func TestMakeDirsReset(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out", "board")
	writeFile(t, filepath.Join(dir, "build.ninja"), "rule cc")

	require.NoError(t, MakeDirs(dir, false))
	assert.True(t, IsFile(filepath.Join(dir, "build.ninja")))

	require.NoError(t, MakeDirs(dir, true))
	assert.True(t, IsDir(dir))
	assert.False(t, FileExists(filepath.Join(dir, "build.ninja")))
}

func TestRemovePathMissing(t *testing.T) {
	assert.NoError(t, RemovePath(filepath.Join(t.TempDir(), "missing")))
}
