package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	domainerrors "github.com/Azure/hb-kit/pkg/domain/errors"
)

// FakeCommandRunner records invocations instead of spawning processes. Exit
// codes and stdout are scripted per tool base name ("gn", "ninja", ...).
type FakeCommandRunner struct {
	Output string
	ErrStr string

	ExitCodes map[string]int
	Stdout    map[string][]string
	Paths     map[string]string
	// ExitCodeFunc, when set, overrides ExitCodes.
	ExitCodeFunc func(inv Invocation) int
	// OnStream runs before the scripted result is produced.
	OnStream func(inv Invocation)

	Commands    [][]string
	Invocations []Invocation
}

var _ CommandRunner = &FakeCommandRunner{}

func (f *FakeCommandRunner) RunCommand(args ...string) (string, error) {
	f.Commands = append(f.Commands, args)
	if f.ErrStr != "" {
		return f.Output, errors.New(f.ErrStr)
	}
	return f.Output, nil
}

func (f *FakeCommandRunner) LookPath(file string) (string, error) {
	if p, ok := f.Paths[file]; ok {
		return p, nil
	}
	return "", &exec.Error{Name: file, Err: exec.ErrNotFound}
}

func (f *FakeCommandRunner) Stream(ctx context.Context, inv Invocation) error {
	f.Invocations = append(f.Invocations, inv)
	if f.OnStream != nil {
		f.OnStream(inv)
	}
	if ctx.Err() != nil {
		return domainerrors.UserAbort(ctx.Err())
	}

	tool := filepath.Base(inv.Args[0])
	if lines := f.Stdout[tool]; len(lines) > 0 && inv.LogPath != "" {
		if err := appendLines(inv.LogPath, lines); err != nil {
			return err
		}
	}

	code := f.ExitCodes[tool]
	if f.ExitCodeFunc != nil {
		code = f.ExitCodeFunc(inv)
	}
	if code != 0 {
		if inv.LogPath != "" {
			_ = appendLines(inv.LogPath, []string{fmt.Sprintf("%s failed with exit code %d", tool, code)})
		}
		return &domainerrors.ToolInvocationError{Command: inv.Command(), ExitCode: code, LogPath: inv.LogPath}
	}
	return nil
}

// Tools returns the base names of the streamed tools in call order.
func (f *FakeCommandRunner) Tools() []string {
	tools := make([]string, 0, len(f.Invocations))
	for _, inv := range f.Invocations {
		tools = append(tools, filepath.Base(inv.Args[0]))
	}
	return tools
}

func appendLines(path string, lines []string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteString(strings.Join(lines, "\n") + "\n")
	return err
}
