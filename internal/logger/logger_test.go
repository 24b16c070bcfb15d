package logger

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestInfo_Success_Warn_Error_NoPanic(t *testing.T) {
	// Redirect stdout so we don't spam the test output
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w
	defer func() { os.Stdout = old }()

	Info("TAG", "message")
	Success("TAG", "message")
	Warn("TAG", "message")
	Error("TAG", "message")

	w.Close()
	var buf bytes.Buffer
	buf.ReadFrom(r)
}

func TestBanner_NoPanic(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(nil)

	Banner("v1.0.0")
	Banner("")

	if !strings.Contains(buf.String(), "v1.0.0") || !strings.Contains(buf.String(), "dev") {
		t.Fatalf("banner output = %q", buf.String())
	}
}

func TestSectionAndStats(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(nil)

	Section("Test")
	Stats("key", 42)
	if !strings.Contains(buf.String(), "key:") || !strings.Contains(buf.String(), "42") {
		t.Fatalf("stats output = %q", buf.String())
	}
}

func TestQuietSuppressesInfoOnly(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetQuiet(true)
	defer func() {
		SetQuiet(false)
		SetOutput(nil)
	}()

	Info("SCAN", "hidden")
	Success("SCAN", "hidden")
	Warn("SCAN", "shown")

	got := buf.String()
	if strings.Contains(got, "hidden") {
		t.Errorf("quiet mode printed info line: %q", got)
	}
	if !strings.Contains(got, "[SCAN] shown") {
		t.Errorf("quiet mode dropped warning: %q", got)
	}
}
