// Package registrytest builds throwaway source trees for tests: component
// declarations, product manifests and device configs under a temp root.
package registrytest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Azure/hb-kit/pkg/registry"
)

// Decl is a component declaration as written to components/<subsystem>.json.
type Decl struct {
	Component     string   `json:"component"`
	Dirs          []string `json:"dirs,omitempty"`
	Targets       []string `json:"targets,omitempty"`
	AdaptedBoard  []string `json:"adapted_board,omitempty"`
	AdaptedKernel []string `json:"adapted_kernel,omitempty"`
	Features      []string `json:"features,omitempty"`
	Deps          *Deps    `json:"deps,omitempty"`
}

type Deps struct {
	Components []string `json:"components,omitempty"`
	ThirdParty []string `json:"third_party,omitempty"`
}

// Tree is a source root with build/lite, vendor and device directories.
type Tree struct {
	Root string
	t    testing.TB
}

// New creates an empty source tree in a temp dir.
func New(t testing.TB) *Tree {
	t.Helper()
	tree := &Tree{Root: t.TempDir(), t: t}
	tree.WriteFile(filepath.Join("build", "lite", ".gn"), "buildconfig = \"//build/lite/config/BUILDCONFIG.gn\"\n")
	tree.Mkdir(filepath.Join("build", "lite", "components"))
	tree.Mkdir("vendor")
	tree.Mkdir("device")
	return tree
}

// Path joins rel onto the root.
func (tr *Tree) Path(rel ...string) string {
	return filepath.Join(append([]string{tr.Root}, rel...)...)
}

// Mkdir creates rel under the root.
func (tr *Tree) Mkdir(rel string) string {
	tr.t.Helper()
	p := tr.Path(rel)
	require.NoError(tr.t, os.MkdirAll(p, 0755))
	return p
}

// WriteFile writes content to rel under the root.
func (tr *Tree) WriteFile(rel, content string) string {
	tr.t.Helper()
	p := tr.Path(rel)
	require.NoError(tr.t, os.MkdirAll(filepath.Dir(p), 0755))
	require.NoError(tr.t, os.WriteFile(p, []byte(content), 0644))
	return p
}

func (tr *Tree) writeJSON(rel string, v interface{}) string {
	tr.t.Helper()
	data, err := json.MarshalIndent(v, "", "  ")
	require.NoError(tr.t, err)
	return tr.WriteFile(rel, string(data))
}

// AddSubsystem declares components for subsystem and creates each
// component's source dirs with a BUILD.gn.
func (tr *Tree) AddSubsystem(subsystem string, decls ...Decl) {
	tr.t.Helper()
	tr.writeJSON(filepath.Join("build", "lite", "components", subsystem+".json"), map[string]interface{}{"components": decls})
	for _, d := range decls {
		for _, dir := range d.Dirs {
			tr.WriteFile(filepath.Join(dir, "BUILD.gn"), fmt.Sprintf("group(%q) {}\n", d.Component))
		}
	}
}

// AddDevice writes device/<company>/<board>/<dir>/config.gni and returns the
// device path.
func (tr *Tree) AddDevice(company, board, dir, kernelType, kernelVersion, toolchain string) string {
	tr.t.Helper()
	content := fmt.Sprintf("kernel_type = %q\nkernel_version = %q\nboard_name = %q\nboard_toolchain_type = %q\n",
		kernelType, kernelVersion, board, toolchain)
	tr.WriteFile(filepath.Join("device", company, board, dir, "config.gni"), content)
	return tr.Path("device", company, board, dir)
}

// AddProduct writes vendor/<company>/<dir>/config.json and returns the
// product path.
func (tr *Tree) AddProduct(company, dir string, m registry.ProductManifest) string {
	tr.t.Helper()
	tr.writeJSON(filepath.Join("vendor", company, dir, "config.json"), m)
	return tr.Path("vendor", company, dir)
}
