package history

import (
	"time"

	"github.com/Azure/hb-kit/pkg/build"
	"github.com/Azure/hb-kit/pkg/domain/errors"
	"github.com/Azure/hb-kit/pkg/validate"
)

type Kind string

const (
	KindBuild    Kind = "build"
	KindValidate Kind = "validate"
)

type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomeAborted Outcome = "aborted"
)

// Record is one hb build or hb deps run.
type Record struct {
	ID        string        `json:"id"`
	Kind      Kind          `json:"kind"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`
	Outcome   Outcome       `json:"outcome"`

	Product   string   `json:"product,omitempty"`
	Board     string   `json:"board,omitempty"`
	Component string   `json:"component,omitempty"`
	OutPath   string   `json:"out_path,omitempty"`
	Stages    []string `json:"stages,omitempty"`

	// Total and Failed count matrix entries of a validation run.
	Total  int `json:"total,omitempty"`
	Failed int `json:"failed,omitempty"`

	Error string `json:"error,omitempty"`
}

// Filter selects records in List.
type Filter func(Record) bool

func ByKind(kind Kind) Filter {
	return func(r Record) bool { return r.Kind == kind }
}

func ByOutcome(outcome Outcome) Filter {
	return func(r Record) bool { return r.Outcome == outcome }
}

func outcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.IsCode(err, errors.CodeUserAbort):
		return OutcomeAborted
	default:
		return OutcomeFailure
	}
}

// FromBuild records a finished build. outcome may be partially filled when
// the build failed early.
func FromBuild(component string, started time.Time, outcome *build.Outcome, err error) Record {
	rec := Record{
		Kind:      KindBuild,
		StartedAt: started,
		Duration:  time.Since(started),
		Outcome:   outcomeOf(err),
		Component: component,
	}
	if outcome != nil {
		rec.Product = outcome.Config.Product
		rec.Board = outcome.Config.Board
		rec.OutPath = outcome.OutPath
		if outcome.Duration > 0 {
			rec.Duration = outcome.Duration
		}
		if outcome.Report != nil {
			rec.Stages = outcome.Report.Stages()
		}
	}
	if err != nil {
		rec.Error = err.Error()
	}
	return rec
}

// FromValidation records a finished validation run.
func FromValidation(started time.Time, report *validate.Report, err error) Record {
	rec := Record{
		Kind:      KindValidate,
		StartedAt: started,
		Duration:  time.Since(started),
		Outcome:   outcomeOf(err),
	}
	if report != nil {
		rec.OutPath = report.WorkPath
		rec.Total = len(report.Results)
		rec.Failed = len(report.Failed())
		if err == nil && rec.Failed > 0 {
			rec.Outcome = OutcomeFailure
		}
	}
	if err != nil {
		rec.Error = err.Error()
	}
	return rec
}
