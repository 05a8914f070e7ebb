package build

// StageKind names a pipeline stage.
type StageKind string

const (
	StagePatch    StageKind = "patch"
	StageGenerate StageKind = "gn"
	StageExecute  StageKind = "ninja"
	StagePackage  StageKind = "package"
)

// DirAction is what happens to the output directory before any stage runs.
type DirAction int

const (
	DirKeep DirAction = iota
	DirCreate
	DirRecreate
)

func (a DirAction) String() string {
	switch a {
	case DirCreate:
		return "create"
	case DirRecreate:
		return "recreate"
	default:
		return "keep"
	}
}

// Decision is the outcome of the pipeline table for one build.
type Decision struct {
	Stages      []StageKind
	FullCompile bool
	DirAction   DirAction
}

// DecidePipeline picks the stages to run.
//
//	ninja  graphExists  full | stages        full  dir
//	false  -            -    | gn            true  keep
//	true   false        -    | gn ninja      true  create
//	true   true         true | gn ninja      true  recreate
//	true   true         false| ninja         false keep
//
// patch prepends the patch stage; packaging appends the package stage once
// ninja runs, a graph alone has nothing to package.
func DecidePipeline(ninja, graphExists, full, patch, packaging bool) Decision {
	var d Decision
	switch {
	case !ninja:
		d = Decision{Stages: []StageKind{StageGenerate}, FullCompile: true}
	case !graphExists:
		d = Decision{Stages: []StageKind{StageGenerate, StageExecute}, FullCompile: true, DirAction: DirCreate}
	case full:
		d = Decision{Stages: []StageKind{StageGenerate, StageExecute}, FullCompile: true, DirAction: DirRecreate}
	default:
		d = Decision{Stages: []StageKind{StageExecute}, FullCompile: false}
	}
	if patch {
		d.Stages = append([]StageKind{StagePatch}, d.Stages...)
	}
	if packaging && ninja {
		d.Stages = append(d.Stages, StagePackage)
	}
	return d
}
