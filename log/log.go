package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/term"
)

var IsVerbose bool

// IsStdout reports whether stdout is attached to a terminal. Message payloads get a
// trailing newline only in that case, so piped output stays byte-exact.
var IsStdout = !isStdoutRedirected()

var (
	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

// SetOutput redirects the print helpers and returns a function that restores the
// previous writers.
func SetOutput(out, errOut io.Writer) (restore func()) {
	prevOut, prevErr := stdout, stderr
	stdout, stderr = out, errOut
	return func() { stdout, stderr = prevOut, prevErr }
}

func Info(s string, args ...any) {
	if len(args) > 0 {
		fmt.Fprintf(stdout, s, args...)
	} else {
		fmt.Fprintln(stdout, s)
	}
}

func Error(s string, args ...any) {
	if len(args) > 0 {
		fmt.Fprintf(stderr, s, args...)
	} else {
		fmt.Fprintln(stderr, s)
	}
}

func Verbose(s string, args ...any) {
	if IsVerbose {
		Info(s, args...)
	}
}

// Setup configures the global structured logger. Console output goes to stderr;
// when logFile is set, records are also appended to that file.
func Setup(level string, logFile string) (zerolog.Logger, error) {
	if IsVerbose && level == "" {
		level = zerolog.LevelDebugValue
	}
	if level == "" {
		level = zerolog.LevelWarnValue
	}

	parsedLevel, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("failed to parse log level: %w", err)
	}

	var output io.Writer = zerolog.ConsoleWriter{Out: os.Stderr}

	if logFile != "" {
		if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
			return zerolog.Nop(), fmt.Errorf("failed to create log directory: %w", err)
		}

		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("failed to open log file: %w", err)
		}

		output = io.MultiWriter(zerolog.ConsoleWriter{Out: os.Stderr}, file)
	}

	zlog.Logger = zlog.Output(output).Level(parsedLevel).With().Timestamp().Logger()

	return zlog.Logger, nil
}

func isStdoutRedirected() bool {
	return !term.IsTerminal(int(os.Stdout.Fd()))
}
