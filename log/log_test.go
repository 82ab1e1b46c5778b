package log

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func captureOutput(t *testing.T) (*bytes.Buffer, *bytes.Buffer) {
	t.Helper()

	var out, errOut bytes.Buffer
	t.Cleanup(SetOutput(&out, &errOut))

	return &out, &errOut
}

func TestInfo_WithArgs(t *testing.T) {
	out, _ := captureOutput(t)

	Info("hello %s %d", "world", 42)

	if got := out.String(); got != "hello world 42" {
		t.Errorf("Info() = %q, want %q", got, "hello world 42")
	}
}

func TestInfo_WithoutArgs(t *testing.T) {
	out, _ := captureOutput(t)

	Info("simple message")

	if got := strings.TrimSpace(out.String()); got != "simple message" {
		t.Errorf("Info() = %q, want %q", got, "simple message")
	}
}

func TestError_WithArgs(t *testing.T) {
	_, errOut := captureOutput(t)

	Error("error: %s", "something failed")

	if got := errOut.String(); got != "error: something failed" {
		t.Errorf("Error() = %q, want %q", got, "error: something failed")
	}
}

func TestError_WithoutArgs(t *testing.T) {
	_, errOut := captureOutput(t)

	Error("plain error")

	if got := strings.TrimSpace(errOut.String()); got != "plain error" {
		t.Errorf("Error() = %q, want %q", got, "plain error")
	}
}

func TestVerbose_WhenEnabled(t *testing.T) {
	out, _ := captureOutput(t)

	origVerbose := IsVerbose
	IsVerbose = true
	defer func() { IsVerbose = origVerbose }()

	Verbose("debug: %d", 123)

	if got := out.String(); got != "debug: 123" {
		t.Errorf("Verbose() = %q, want %q", got, "debug: 123")
	}
}

func TestVerbose_WhenDisabled(t *testing.T) {
	out, _ := captureOutput(t)

	origVerbose := IsVerbose
	IsVerbose = false
	defer func() { IsVerbose = origVerbose }()

	Verbose("should not appear")

	if got := out.String(); got != "" {
		t.Errorf("Verbose() when disabled = %q, want empty", got)
	}
}

func TestSetup_ParsesLevel(t *testing.T) {
	logger, err := Setup("debug", "")
	if err != nil {
		t.Fatalf("Setup() error: %v", err)
	}
	if logger.GetLevel() != zerolog.DebugLevel {
		t.Errorf("level = %v, want %v", logger.GetLevel(), zerolog.DebugLevel)
	}
}

func TestSetup_DefaultsToWarn(t *testing.T) {
	origVerbose := IsVerbose
	IsVerbose = false
	defer func() { IsVerbose = origVerbose }()

	logger, err := Setup("", "")
	if err != nil {
		t.Fatalf("Setup() error: %v", err)
	}
	if logger.GetLevel() != zerolog.WarnLevel {
		t.Errorf("level = %v, want %v", logger.GetLevel(), zerolog.WarnLevel)
	}
}

func TestSetup_VerboseRaisesDefaultLevel(t *testing.T) {
	origVerbose := IsVerbose
	IsVerbose = true
	defer func() { IsVerbose = origVerbose }()

	logger, err := Setup("", "")
	if err != nil {
		t.Fatalf("Setup() error: %v", err)
	}
	if logger.GetLevel() != zerolog.DebugLevel {
		t.Errorf("level = %v, want %v", logger.GetLevel(), zerolog.DebugLevel)
	}
}

func TestSetup_InvalidLevel(t *testing.T) {
	if _, err := Setup("loud", ""); err == nil {
		t.Fatal("expected error for invalid level, got nil")
	}
}

func TestSetup_WritesLogFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "logs", "mqk.log")

	logger, err := Setup("info", logFile)
	if err != nil {
		t.Fatalf("Setup() error: %v", err)
	}
	logger.Info().Str("queue", "DEV.QUEUE.1").Msg("file sink")

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "file sink") {
		t.Errorf("log file = %q, want it to contain %q", string(data), "file sink")
	}
}

func TestIsStdoutRedirected_WithPipe(t *testing.T) {
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	old := os.Stdout
	os.Stdout = w
	defer func() {
		os.Stdout = old
		w.Close()
	}()

	if !isStdoutRedirected() {
		t.Error("expected isStdoutRedirected() = true when stdout is a pipe")
	}
}
