// ABOUTME: Tests for the funcdeck CLI help display covering usage, flags, and env detection.
// ABOUTME: Checks that every mode and FUNCDECK_* variable is listed.
package main

import (
	"bytes"
	"strings"
	"testing"
)

func TestPrintHelpContents(t *testing.T) {
	var buf bytes.Buffer
	printHelp(&buf, "1.2.3")
	out := buf.String()

	for _, want := range []string{
		"funcdeck 1.2.3",
		"Usage:",
		"-validate",
		"-export-yaml",
		"-export-dot",
		"-tui",
		"-server",
		"-data-dir",
		"127.0.0.1:7771",
		"FUNCDECK_AUTH_TOKEN",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("help missing %q", want)
		}
	}
}

func TestEnvStatus(t *testing.T) {
	t.Setenv("FUNCDECK_TEST_SET", "value")
	t.Setenv("FUNCDECK_TEST_EMPTY", "")

	if got := envStatus("FUNCDECK_TEST_SET"); got != "[set]" {
		t.Errorf("envStatus(set) = %q", got)
	}
	if got := envStatus("FUNCDECK_TEST_EMPTY"); got != "[not set]" {
		t.Errorf("envStatus(empty) = %q", got)
	}
}

func TestPrintHelpReportsEnv(t *testing.T) {
	t.Setenv("FUNCDECK_HOME", "/data")
	var buf bytes.Buffer
	printHelp(&buf, "dev")
	for _, line := range strings.Split(buf.String(), "\n") {
		if strings.Contains(line, "FUNCDECK_HOME") && strings.Contains(line, "[set]") {
			return
		}
	}
	t.Error("FUNCDECK_HOME not reported as set")
}
