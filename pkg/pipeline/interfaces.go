package pipeline

import (
	"context"
	"time"

	"github.com/Azure/hb-kit/pkg/runner"
)

// Tool names keyed in ToolArgs.
const (
	ToolGn    = "gn"
	ToolNinja = "ninja"
)

// ToolArgs holds extra command line arguments per tool, appended to the
// tool's own invocation by the stage that runs it.
type ToolArgs map[string][]string

// Add appends args for tool.
func (t ToolArgs) Add(tool string, args ...string) {
	t[tool] = append(t[tool], args...)
}

// Stage is one step of a build: generate, execute, patch or package.
type Stage interface {
	// Name identifies the stage in logs and reports.
	Name() string

	// Run performs the stage. Tool failures are returned as
	// *errors.ToolInvocationError.
	Run(ctx context.Context, toolArgs ToolArgs) error
}

// Registrar receives build arguments discovered while running, such as the
// ccache switch.
type Registrar interface {
	Register(name, value string, quote bool)
}

// Observer is notified after every stage; metrics collectors implement it.
type Observer interface {
	ObserveStage(stage string, outcome StageOutcome, elapsed time.Duration)
}

// RunnerOptions configures a Runner.
type RunnerOptions struct {
	// Registrar receives ohos_build_enable_ccache when ccache is on PATH.
	Registrar Registrar
	// Observer, when set, is told about every stage run.
	Observer Observer
}

// Runner executes an ordered list of stages and stops at the first failure.
type Runner struct {
	commands runner.CommandRunner
	opts     RunnerOptions
	now      func() time.Time
}
