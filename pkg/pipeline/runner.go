package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/Azure/hb-kit/pkg/domain/errors"
	"github.com/Azure/hb-kit/pkg/logger"
	"github.com/Azure/hb-kit/pkg/runner"
)

// CCacheArg is registered, unquoted, when ccache is found on PATH.
const CCacheArg = "ohos_build_enable_ccache"

// NewRunner constructs a Runner. commands is used to look up ccache.
func NewRunner(commands runner.CommandRunner, opts RunnerOptions) *Runner {
	return &Runner{
		commands: commands,
		opts:     opts,
		now:      time.Now,
	}
}

// Run drives the stages in order. The first failing stage ends the run and
// its error is returned unchanged together with the partial report.
func (r *Runner) Run(ctx context.Context, stages []Stage, toolArgs ToolArgs) (*RunReport, error) {
	if len(stages) == 0 {
		return nil, errors.New(errors.CodeInvalidParameter, "pipeline", "no stages to run", nil)
	}
	if toolArgs == nil {
		toolArgs = ToolArgs{}
	}
	start := r.now()
	report := &RunReport{Outcome: RunOutcomeFailure}

	r.detectCCache()

	for _, stage := range stages {
		if ctx.Err() != nil {
			report.Outcome = RunOutcomeAborted
			report.Duration = r.now().Sub(start)
			return report, errors.UserAbort(ctx.Err())
		}

		logger.Debugf("running stage %s", stage.Name())
		stageStart := r.now()
		err := stage.Run(ctx, toolArgs)
		visit := StageVisit{
			StageID:  stage.Name(),
			Outcome:  stageOutcome(err),
			Duration: r.now().Sub(stageStart),
		}
		report.StageHistory = append(report.StageHistory, visit)
		if r.opts.Observer != nil {
			r.opts.Observer.ObserveStage(visit.StageID, visit.Outcome, visit.Duration)
		}

		if err != nil {
			if errors.IsCode(err, errors.CodeUserAbort) {
				report.Outcome = RunOutcomeAborted
			}
			report.Duration = r.now().Sub(start)
			return report, err
		}
	}

	report.Outcome = RunOutcomeSuccess
	report.Duration = r.now().Sub(start)
	logger.Infof("Cost time: %s", formatElapsed(report.Duration))
	return report, nil
}

func (r *Runner) detectCCache() {
	if r.commands == nil || r.opts.Registrar == nil {
		return
	}
	if _, err := r.commands.LookPath("ccache"); err != nil {
		logger.Debugf("ccache not found, ccache disabled")
		return
	}
	r.opts.Registrar.Register(CCacheArg, "true", false)
}

func stageOutcome(err error) StageOutcome {
	switch {
	case err == nil:
		return StageOutcomeSuccess
	case errors.IsCode(err, errors.CodeUserAbort):
		return StageOutcomeAborted
	default:
		return StageOutcomeFailure
	}
}

// formatElapsed renders d as H:MM:SS.
func formatElapsed(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second
	return fmt.Sprintf("%d:%02d:%02d", int(h), int(m), int(s))
}
