package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

var (
	logger zerolog.Logger
	level  = zerolog.InfoLevel
)

func init() {
	SetOutput(os.Stdout, os.Stderr)
}

// SetOutput rebuilds the package logger so that debug/info/warn records go to
// stdout and error records go to stderr.
func SetOutput(stdout, stderr io.Writer) {
	writer := zerolog.MultiLevelWriter(
		SpecificLevelWriter{
			Writer: consoleWriter(stdout),
			Levels: []zerolog.Level{
				zerolog.DebugLevel, zerolog.InfoLevel, zerolog.WarnLevel,
			},
		},
		SpecificLevelWriter{
			Writer: consoleWriter(stderr),
			Levels: []zerolog.Level{
				zerolog.ErrorLevel, zerolog.FatalLevel, zerolog.PanicLevel,
			},
		},
	)
	logger = zerolog.New(writer).Level(level)
}

// consoleWriter renders records as "[INFO] message" with no timestamp, the
// format build output is expected in.
func consoleWriter(out io.Writer) zerolog.ConsoleWriter {
	return zerolog.ConsoleWriter{
		Out:         out,
		NoColor:     true,
		PartsOrder:  []string{zerolog.LevelFieldName, zerolog.MessageFieldName},
		FormatLevel: formatLevel,
		FormatFieldName: func(i interface{}) string {
			return fmt.Sprintf("%s=", i)
		},
	}
}

func formatLevel(i interface{}) string {
	name, _ := i.(string)
	switch name {
	case zerolog.LevelWarnValue:
		return "[WARNING]"
	case "":
		return "[INFO]"
	default:
		return "[" + strings.ToUpper(name) + "]"
	}
}

// SetLevel parses a level name ("debug", "info", "warn", "error"). Unknown
// names leave the level unchanged and return an error.
func SetLevel(name string) error {
	lvl, err := zerolog.ParseLevel(strings.ToLower(name))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", name, err)
	}
	level = lvl
	logger = logger.Level(lvl)
	return nil
}

func Info(msg string) {
	logger.Info().Msg(msg)
}

func Infof(format string, args ...interface{}) {
	logger.Info().Msgf(format, args...)
}

func Warn(msg string) {
	logger.Warn().Msg(msg)
}

func Warnf(format string, args ...interface{}) {
	logger.Warn().Msgf(format, args...)
}

func Error(msg string) {
	logger.Error().Msg(msg)
}

func Errorf(format string, args ...interface{}) {
	logger.Error().Msgf(format, args...)
}

func Debug(msg string) {
	logger.Debug().Msg(msg)
}

func Debugf(format string, args ...interface{}) {
	logger.Debug().Msgf(format, args...)
}

// ErrorLines logs every line of a multi-line message separately at error level,
// so each line carries its own prefix.
func ErrorLines(msg string) {
	for _, line := range strings.Split(strings.TrimRight(msg, "\n"), "\n") {
		logger.Error().Msg(line)
	}
}

// multilevel writer from https://stackoverflow.com/questions/76858037/how-to-use-zerolog-to-filter-info-logs-to-stdout-and-error-logs-to-stderr
type SpecificLevelWriter struct {
	io.Writer
	Levels []zerolog.Level
}

func (w SpecificLevelWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	for _, l := range w.Levels {
		if l == level {
			return w.Write(p)
		}
	}
	return len(p), nil
}
