package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"
	"k8s.io/apimachinery/pkg/util/sets"
	"sigs.k8s.io/yaml"

	"github.com/Azure/hb-kit/pkg/domain/errors"
	"github.com/Azure/hb-kit/pkg/logger"
)

// ComponentsDir is where subsystem declarations live, relative to the root.
var ComponentsDir = filepath.Join("build", "lite", "components")

// Registry is the set of subsystems known to a source tree. Subsystems are
// kept in file-name order so that lookups are deterministic.
type Registry struct {
	Subsystems []*Subsystem
}

// Load reads every <root>/build/lite/components/*.json. Files that fail to
// parse are reported together after the rest have been read.
func Load(root string) (*Registry, error) {
	dir := filepath.Join(root, ComponentsDir)
	matches, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, errors.New(errors.CodeManifest, "registry", fmt.Sprintf("no component declarations found in %s", dir), nil)
	}
	sort.Strings(matches)

	reg := &Registry{}
	var errs []error
	for _, path := range matches {
		sub, err := loadSubsystem(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		reg.Subsystems = append(reg.Subsystems, sub)
	}
	if agg := utilerrors.NewAggregate(errs); agg != nil {
		return nil, errors.New(errors.CodeManifest, "registry", "failed to load component declarations", agg)
	}
	logger.Debugf("loaded %d subsystems from %s", len(reg.Subsystems), dir)
	return reg, nil
}

func loadSubsystem(path string) (*Subsystem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var file componentFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%s parsing error: %w", path, err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	sub := &Subsystem{Name: name}
	for _, decl := range file.Components {
		if decl.Component == "" {
			return nil, fmt.Errorf("%s: component without a name", path)
		}
		sub.Components = append(sub.Components, decl.toComponent(name))
	}
	return sub, nil
}

// Subsystem returns the subsystem called name, or nil.
func (r *Registry) Subsystem(name string) *Subsystem {
	for _, s := range r.Subsystems {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// Lookup returns the first component called name regardless of adaptation.
func (r *Registry) Lookup(name string) *Component {
	for _, s := range r.Subsystems {
		if c := s.Component(name); c != nil {
			return c
		}
	}
	return nil
}

// Resolve returns the first component called name that is adapted to board
// and kernel. Several adapted declarations are not an error: the first one
// in registry order wins.
func (r *Registry) Resolve(name, board, kernel string) (*Component, error) {
	for _, s := range r.Subsystems {
		for _, c := range s.Components {
			if c.Name == name && c.AdaptedTo(board, kernel) {
				return c, nil
			}
		}
	}
	return nil, errors.New(errors.CodeComponentNotFound, "registry", fmt.Sprintf("Component %s not found", name), nil)
}

// DepDirs returns the source dirs of c and, transitively, of every component
// it depends on, plus third_party/<name> for third-party deps. Each dir
// appears once, in discovery order.
func (r *Registry) DepDirs(c *Component) []string {
	seen := sets.New[string]()
	visited := sets.New[string]()
	var dirs []string
	add := func(dir string) {
		if dir != "" && !seen.Has(dir) {
			seen.Insert(dir)
			dirs = append(dirs, dir)
		}
	}

	var walk func(*Component)
	walk = func(cur *Component) {
		if visited.Has(cur.Name) {
			return
		}
		visited.Insert(cur.Name)
		for _, d := range cur.Dirs {
			add(d)
		}
		for _, tp := range cur.ThirdParty {
			add(filepath.Join("third_party", tp))
		}
		for _, dep := range cur.Deps {
			if next := r.Lookup(dep); next != nil {
				walk(next)
			} else {
				logger.Warnf("%s depends on unknown component %s", cur.Name, dep)
			}
		}
	}
	walk(c)
	return dirs
}
