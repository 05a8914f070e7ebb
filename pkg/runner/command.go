package runner

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/Azure/hb-kit/pkg/domain/errors"
	"github.com/Azure/hb-kit/pkg/logger"
)

const (
	// ErrorLogName is the sibling of the build log that build actions write
	// their own failures to.
	ErrorLogName = "error.log"

	ninjaWarning = "ninja: warning"
	buildStopped = "ninja: build stopped"
)

var (
	usefulInfoPattern = regexp.MustCompile(`\[\d+/\d+\].+`)
	progressMarker    = regexp.MustCompile(`\[\d+/\d+\]`)
)

// Invocation describes one streamed tool run.
type Invocation struct {
	Args []string
	Dir  string
	Env  []string
	// LogPath is opened in append mode and receives every output line.
	LogPath string
	// LogFilter limits console output to "[done/total] ..." progress lines
	// and, on failure, surfaces only the FAILED blocks of the log.
	LogFilter bool
}

// Command returns the invocation as a single command line.
func (i Invocation) Command() string {
	return strings.Join(i.Args, " ")
}

// CommandRunner is an interface for executing commands and getting the output/error
type CommandRunner interface {
	RunCommand(...string) (string, error)
	Stream(ctx context.Context, inv Invocation) error
	LookPath(file string) (string, error)
}

type DefaultCommandRunner struct{}

var _ CommandRunner = &DefaultCommandRunner{}

func (d *DefaultCommandRunner) RunCommand(args ...string) (string, error) {
	logger.Debugf("Running command: %s", args)
	cmd := exec.Command(args[0], args[1:]...)
	out, err := cmd.CombinedOutput()
	logger.Debugf("Command output: %s", string(out))
	return string(out), err
}

func (d *DefaultCommandRunner) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

// Stream runs the tool, copying stdout line by line to the console and the
// log. Stderr is only inspected when the tool fails.
func (d *DefaultCommandRunner) Stream(ctx context.Context, inv Invocation) error {
	if len(inv.Args) == 0 {
		return errors.New(errors.CodeInvalidParameter, "runner", "empty command", nil)
	}
	logger.Debugf("Running command: %s", inv.Command())

	logFile, err := os.OpenFile(inv.LogPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return errors.New(errors.CodeIoError, "runner", fmt.Sprintf("failed to open build log %s", inv.LogPath), err)
	}
	defer logFile.Close()

	cmd := exec.CommandContext(ctx, inv.Args[0], inv.Args[1:]...)
	cmd.Dir = inv.Dir
	if len(inv.Env) > 0 {
		cmd.Env = append(os.Environ(), inv.Env...)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("failed to get stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		if ctx.Err() != nil {
			return errors.UserAbort(ctx.Err())
		}
		logger.Errorf("failed to start %s: %v", inv.Args[0], err)
		return &errors.ToolInvocationError{Command: inv.Command(), ExitCode: -1, LogPath: inv.LogPath, Cause: err}
	}

	streamErr := StreamOutput(stdout, logFile, inv.LogFilter)
	waitErr := cmd.Wait()

	if ctx.Err() != nil {
		return errors.UserAbort(ctx.Err())
	}
	if streamErr != nil {
		return errors.New(errors.CodeIoError, "runner", "failed to stream tool output", streamErr)
	}
	if waitErr == nil {
		return nil
	}

	exitCode := -1
	if exitErr, ok := waitErr.(*exec.ExitError); ok {
		exitCode = exitErr.ExitCode()
	}
	return ReportFailure(inv, exitCode, &stderr, logFile)
}

// StreamOutput copies r to log line by line, echoing lines to the console.
// With filter set only progress lines reach the console.
func StreamOutput(r io.Reader, log io.Writer, filter bool) error {
	reader := bufio.NewReader(r)
	for {
		line, err := reader.ReadString('\n')
		if line != "" {
			if filter {
				if info := usefulInfoPattern.FindString(line); info != "" {
					logger.Info(strings.TrimRight(info, "\r\n"))
				}
			} else {
				logger.Info(strings.TrimRight(line, "\r\n"))
			}
			if _, werr := io.WriteString(log, line); werr != nil {
				return werr
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// ReportFailure drains the failed tool's stderr into the log and console and
// returns the ToolInvocationError for it. Isolated ninja warnings are only
// written to the log.
func ReportFailure(inv Invocation, exitCode int, stderr io.Reader, log io.Writer) error {
	scanner := bufio.NewScanner(stderr)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.Contains(line, ninjaWarning) {
			logger.Error(line)
		}
		_, _ = io.WriteString(log, line+"\n")
	}

	if inv.LogFilter {
		if syncer, ok := log.(interface{ Sync() error }); ok {
			_ = syncer.Sync()
		}
		printFailedLog(inv.LogPath)
	}

	logger.Errorf("you can check build log in %s", inv.LogPath)
	return &errors.ToolInvocationError{Command: inv.Command(), ExitCode: exitCode, LogPath: inv.LogPath}
}

func printFailedLog(logPath string) {
	data, err := os.ReadFile(logPath)
	if err != nil {
		logger.Warnf("failed to read build log %s: %v", logPath, err)
		return
	}
	for _, block := range FailedBlocks(string(data)) {
		logger.ErrorLines(block)
	}

	errorLog := filepath.Join(filepath.Dir(logPath), ErrorLogName)
	if content, err := os.ReadFile(errorLog); err == nil {
		logger.ErrorLines(string(content))
	}
}

// FailedBlocks returns the "[done/total] ..." blocks of a ninja log that
// contain "FAILED:". A block runs from its progress marker up to the next
// marker or "ninja: build stopped"; an unterminated trailing block is not
// returned.
func FailedBlocks(log string) []string {
	type marker struct{ start, end int }
	var markers []marker
	for _, loc := range progressMarker.FindAllStringIndex(log, -1) {
		markers = append(markers, marker{loc[0], loc[1]})
	}

	var blocks []string
	for i, m := range markers {
		end := -1
		if i+1 < len(markers) {
			end = markers[i+1].start
		}
		if stop := strings.Index(log[m.end:], buildStopped); stop >= 0 {
			if s := m.end + stop; end < 0 || s < end {
				end = s
			}
		}
		if end < 0 {
			continue
		}
		block := log[m.start:end]
		if strings.Contains(block, "FAILED:") {
			blocks = append(blocks, block)
		}
	}
	return blocks
}
