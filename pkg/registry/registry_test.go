package registry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/Azure/hb-kit/pkg/domain/errors"
	"github.com/Azure/hb-kit/pkg/registry"
	"github.com/Azure/hb-kit/pkg/registry/registrytest"
)

func newTree(t *testing.T) *registrytest.Tree {
	tree := registrytest.New(t)
	tree.AddSubsystem("foo",
		registrytest.Decl{
			Component:     "x",
			Dirs:          []string{"foo/x"},
			Targets:       []string{"//foo/x:x_a", "//foo/x:x_b"},
			AdaptedBoard:  []string{"b1"},
			AdaptedKernel: []string{"liteos_a"},
		},
		registrytest.Decl{
			Component:     "x",
			Dirs:          []string{"foo/x_linux"},
			Targets:       []string{"//foo/x_linux:x"},
			AdaptedKernel: []string{"linux"},
		},
		registrytest.Decl{
			Component: "y",
			Dirs:      []string{"foo/y"},
			Targets:   []string{"//foo/y:y"},
			Deps:      &registrytest.Deps{Components: []string{"z"}, ThirdParty: []string{"bounds_checking_function"}},
		},
	)
	tree.AddSubsystem("bar",
		registrytest.Decl{Component: "z", Dirs: []string{"bar/z"}, Targets: []string{"//bar/z:z"}, Deps: &registrytest.Deps{Components: []string{"y"}}},
		registrytest.Decl{Component: "x", Dirs: []string{"bar/x"}, Targets: []string{"//bar/x:x"}},
	)
	return tree
}

func TestLoadOrdersSubsystemsByFileName(t *testing.T) {
	reg, err := registry.Load(newTree(t).Root)
	require.NoError(t, err)

	require.Len(t, reg.Subsystems, 2)
	assert.Equal(t, "bar", reg.Subsystems[0].Name)
	assert.Equal(t, "foo", reg.Subsystems[1].Name)
	assert.Equal(t, "foo", reg.Subsystem("foo").Components[0].Subsystem)
}

func TestResolve(t *testing.T) {
	reg, err := registry.Load(newTree(t).Root)
	require.NoError(t, err)

	tests := []struct {
		name      string
		component string
		board     string
		kernel    string
		targets   []string
		wantErr   bool
	}{
		{name: "unconstrained declaration in first subsystem wins", component: "x", board: "b1", kernel: "liteos_a", targets: []string{"//bar/x:x"}},
		{name: "unconstrained matches any board", component: "x", board: "b9", kernel: "linux", targets: []string{"//bar/x:x"}},
		{name: "dependency component", component: "z", board: "b2", kernel: "linux", targets: []string{"//bar/z:z"}},
		{name: "unknown component", component: "missing", board: "b1", kernel: "liteos_a", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := reg.Resolve(tt.component, tt.board, tt.kernel)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsCode(err, errors.CodeComponentNotFound))
				assert.Contains(t, err.Error(), "Component missing not found")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.targets, c.Targets)
		})
	}
}

func TestResolveRespectsAdaptation(t *testing.T) {
	tree := registrytest.New(t)
	tree.AddSubsystem("foo",
		registrytest.Decl{Component: "x", Targets: []string{"//a"}, AdaptedBoard: []string{"b1"}, AdaptedKernel: []string{"liteos_a"}},
		registrytest.Decl{Component: "x", Targets: []string{"//b"}, AdaptedKernel: []string{"linux"}},
	)
	reg, err := registry.Load(tree.Root)
	require.NoError(t, err)

	c, err := reg.Resolve("x", "b1", "liteos_a")
	require.NoError(t, err)
	assert.Equal(t, []string{"//a"}, c.Targets)

	c, err = reg.Resolve("x", "b1", "linux")
	require.NoError(t, err)
	assert.Equal(t, []string{"//b"}, c.Targets)

	_, err = reg.Resolve("x", "b2", "liteos_a")
	assert.True(t, errors.IsCode(err, errors.CodeComponentNotFound))

	// resolution is a pure function of its inputs
	first, _ := reg.Resolve("x", "b1", "liteos_a")
	second, _ := reg.Resolve("x", "b1", "liteos_a")
	assert.Same(t, first, second)
}

func TestDepDirsFollowsCycles(t *testing.T) {
	reg, err := registry.Load(newTree(t).Root)
	require.NoError(t, err)

	y := reg.Lookup("y")
	require.NotNil(t, y)
	assert.Equal(t, []string{"foo/y", "third_party/bounds_checking_function", "bar/z"}, reg.DepDirs(y))
}

func TestLoadAggregatesErrors(t *testing.T) {
	tree := registrytest.New(t)
	tree.WriteFile("build/lite/components/a.json", "{not json")
	tree.WriteFile("build/lite/components/b.json", `{"components":[{"dirs":["b"]}]}`)

	_, err := registry.Load(tree.Root)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeManifest))
	assert.Contains(t, err.Error(), "a.json")
	assert.Contains(t, err.Error(), "component without a name")
}

func TestLoadEmpty(t *testing.T) {
	_, err := registry.Load(registrytest.New(t).Root)
	assert.True(t, errors.IsCode(err, errors.CodeManifest))
}

func TestProducts(t *testing.T) {
	tree := registrytest.New(t)
	tree.AddProduct("hisilicon", "wifiiot", registry.ProductManifest{ProductName: "wifiiot_hispark_pegasus", Board: "hispark_pegasus"})
	tree.AddProduct("acme", "cam", registry.ProductManifest{ProductName: "ipcamera", Board: "b1"})
	tree.WriteFile("vendor/acme/broken/config.json", "{}")
	tree.WriteFile("vendor/README.md", "vendors")

	products, err := registry.Products(tree.Path("vendor"))
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "ipcamera@acme", products[0].String())
	assert.Equal(t, "wifiiot_hispark_pegasus@hisilicon", products[1].String())

	p, err := registry.FindProduct(tree.Path("vendor"), "ipcamera", "acme")
	require.NoError(t, err)
	assert.Equal(t, tree.Path("vendor", "acme", "cam"), p.Path)

	_, err = registry.FindProduct(tree.Path("vendor"), "ipcamera", "hisilicon")
	assert.True(t, errors.IsCode(err, errors.CodeManifest))
}

func TestManifestFeaturesAndComponents(t *testing.T) {
	m := &registry.ProductManifest{
		Subsystems: []registry.ProductSubsystem{
			{Subsystem: "foo", Components: []registry.ProductComponent{
				{Component: "x", Features: []string{"enable_x = true", ""}},
				{Component: "y"},
			}},
			{Subsystem: "bar", Components: []registry.ProductComponent{
				{Component: "z", Features: []string{"z_level = 3"}},
			}},
			{Subsystem: "foo", Components: []registry.ProductComponent{{Component: "w"}}},
		},
	}

	assert.Equal(t, []string{"enable_x = true", "z_level = 3"}, m.Features())

	all := m.Components(nil)
	require.Len(t, all, 2)
	assert.Equal(t, registry.SubsystemComponents{Subsystem: "foo", Components: []string{"x", "y", "w"}}, all[0])

	filtered := m.Components(sets.New("bar"))
	require.Len(t, filtered, 1)
	assert.Equal(t, []string{"z"}, filtered[0].Components)
}

func TestLoadManifestMissing(t *testing.T) {
	_, err := registry.LoadManifest(registrytest.New(t).Path("vendor", "nope", "config.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
