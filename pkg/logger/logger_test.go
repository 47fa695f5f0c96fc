package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitAndLevelString(t *testing.T) {
	for in, want := range map[string]string{
		"debug":    "debug",
		"WARN":     "warn",
		"Error":    "error",
		"fatal":    "fatal",
		"nonsense": "info",
		"":         "info",
	} {
		Init(in)
		require.Equal(t, want, LevelString(), "Init(%q)", in)
	}
	Init("info")
}

func TestInitFileWritesRotatingLog(t *testing.T) {
	orig := Output()
	defer SetOutput(orig)

	path := filepath.Join(t.TempDir(), "neubio.log")
	InitFile(path, 1, 1)
	Init("info")
	Infof("boot source=%s", "snapshot")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "boot source=snapshot")
}

func TestLevelFilteringAndPrintln(t *testing.T) {
	var buf bytes.Buffer
	orig := Output()
	SetOutput(&buf)
	defer SetOutput(orig)

	Init("warn")
	Debugf("debug-msg")
	Infof("info-msg")
	Warnf("warn-msg")
	Errorf("error-msg")

	out := buf.String()
	if strings.Contains(out, "debug-msg") {
		t.Fatalf("debug messages should be suppressed at warn level")
	}
	if strings.Contains(out, "info-msg") {
		t.Fatalf("info messages should be suppressed at warn level")
	}
	if !strings.Contains(out, "warn-msg") {
		t.Fatalf("warn message missing: %q", out)
	}
	if !strings.Contains(out, "error-msg") {
		t.Fatalf("error message missing: %q", out)
	}

	buf.Reset()
	Println("hello")
	if strings.Contains(buf.String(), "hello") {
		t.Fatalf("Println should be suppressed at warn level")
	}

	Init("info")
	buf.Reset()
	Println("hello")
	if !strings.Contains(buf.String(), "hello") {
		t.Fatalf("Println expected at info level, got: %q", buf.String())
	}
}

func TestOutputIsStructured(t *testing.T) {
	var buf bytes.Buffer
	orig := Output()
	SetOutput(&buf)
	defer SetOutput(orig)

	Init("debug")
	Warnf("push failed: %s", "conflict")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line))
	require.Equal(t, "warn", line["level"])
	require.Equal(t, "push failed: conflict", line["message"])
	require.Contains(t, line, "time")

	buf.Reset()
	Timed("pull")()
	require.Contains(t, buf.String(), `"operation":"pull"`)
	Init("info")
}
