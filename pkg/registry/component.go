// Package registry loads the subsystem/component declarations under
// build/lite/components and the product manifests under vendor/.
package registry

import (
	"k8s.io/apimachinery/pkg/util/sets"
)

// Component is one buildable unit of a subsystem. Empty AdaptedBoards or
// AdaptedKernels mean the component is not constrained on that axis.
type Component struct {
	Name           string
	Subsystem      string
	Targets        []string
	AdaptedBoards  sets.Set[string]
	AdaptedKernels sets.Set[string]
	Dirs           []string
	Deps           []string
	ThirdParty     []string
	Features       []string
}

// AdaptedTo reports whether the component can be built for board and kernel.
func (c *Component) AdaptedTo(board, kernel string) bool {
	if c.AdaptedBoards.Len() > 0 && !c.AdaptedBoards.Has(board) {
		return false
	}
	if c.AdaptedKernels.Len() > 0 && !c.AdaptedKernels.Has(kernel) {
		return false
	}
	return true
}

// Subsystem groups the components declared in one components/<name>.json.
type Subsystem struct {
	Name       string
	Components []*Component
}

// Component returns the first component called name, or nil.
func (s *Subsystem) Component(name string) *Component {
	for _, c := range s.Components {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// componentFile mirrors build/lite/components/<subsystem>.json.
type componentFile struct {
	Components []componentDecl `json:"components"`
}

type componentDecl struct {
	Component     string   `json:"component"`
	Description   string   `json:"description,omitempty"`
	Dirs          []string `json:"dirs,omitempty"`
	Targets       []string `json:"targets,omitempty"`
	AdaptedBoard  []string `json:"adapted_board,omitempty"`
	AdaptedKernel []string `json:"adapted_kernel,omitempty"`
	Features      []string `json:"features,omitempty"`
	Deps          struct {
		Components []string `json:"components,omitempty"`
		ThirdParty []string `json:"third_party,omitempty"`
	} `json:"deps,omitempty"`
}

func (d componentDecl) toComponent(subsystem string) *Component {
	return &Component{
		Name:           d.Component,
		Subsystem:      subsystem,
		Targets:        d.Targets,
		AdaptedBoards:  sets.New(d.AdaptedBoard...),
		AdaptedKernels: sets.New(d.AdaptedKernel...),
		Dirs:           d.Dirs,
		Deps:           d.Deps.Components,
		ThirdParty:     d.Deps.ThirdParty,
		Features:       d.Features,
	}
}
