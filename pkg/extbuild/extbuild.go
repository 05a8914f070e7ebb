// Package extbuild builds components that live outside the gn graph by
// running their own build commands.
package extbuild

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/shlex"

	"github.com/Azure/hb-kit/pkg/common/filesystem"
	"github.com/Azure/hb-kit/pkg/domain/errors"
	"github.com/Azure/hb-kit/pkg/logger"
	"github.com/Azure/hb-kit/pkg/runner"
)

// Options mirror the flags gn passes to the external-component action.
type Options struct {
	// Path is the directory the commands run in; nothing runs without it.
	Path      string
	Prebuilts string
	// Command may chain several commands with "&&".
	Command string
	// Enable set to "false" as its first value turns the action off.
	Enable []string
	// TargetFile receives the combined output on success, ErrorFile on
	// failure.
	TargetFile string
	ErrorFile  string
}

func (o Options) enabled() bool {
	return len(o.Enable) == 0 || o.Enable[0] != "false"
}

// Commands splits prebuilts and the "&&" chain into argument lists, in
// run order.
func (o Options) Commands() ([][]string, error) {
	var lines []string
	if o.Prebuilts != "" {
		lines = append(lines, o.Prebuilts)
	}
	if o.Command != "" {
		lines = append(lines, strings.Split(o.Command, "&&")...)
	}

	var cmds [][]string
	for _, line := range lines {
		args, err := shlex.Split(line)
		if err != nil {
			return nil, errors.New(errors.CodeInvalidParameter, "extbuild", fmt.Sprintf("cannot parse command %q", line), err)
		}
		if len(args) > 0 {
			cmds = append(cmds, args)
		}
	}
	return cmds, nil
}

// Run executes the commands in opts.Path, collecting their output in one
// log. The first failing command stops the run and its log is copied to
// ErrorFile.
func Run(ctx context.Context, commands runner.CommandRunner, opts Options) error {
	if !opts.enabled() || opts.Path == "" {
		logger.Debugf("external component build skipped")
		return nil
	}
	if !filesystem.IsDir(opts.Path) {
		return errors.New(errors.CodeInvalidParameter, "extbuild", fmt.Sprintf("%s is not a directory", opts.Path), nil)
	}
	cmds, err := opts.Commands()
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp("", "hb-ext-*.log")
	if err != nil {
		return errors.New(errors.CodeIoError, "extbuild", "failed to create output log", err)
	}
	logPath := tmp.Name()
	_ = tmp.Close()
	defer os.Remove(logPath)

	for _, args := range cmds {
		runErr := commands.Stream(ctx, runner.Invocation{Args: args, Dir: opts.Path, LogPath: logPath, LogFilter: true})
		if runErr == nil {
			continue
		}
		if _, ok := errors.AsToolInvocation(runErr); ok && opts.ErrorFile != "" {
			if err := filesystem.CopyFile(logPath, opts.ErrorFile); err != nil {
				logger.Warnf("failed to copy log to %s: %v", opts.ErrorFile, err)
			}
		}
		return runErr
	}

	if opts.TargetFile != "" {
		if err := filesystem.CopyFile(logPath, opts.TargetFile); err != nil {
			return errors.New(errors.CodeIoError, "extbuild", fmt.Sprintf("failed to write %s", opts.TargetFile), err)
		}
	}
	return nil
}
