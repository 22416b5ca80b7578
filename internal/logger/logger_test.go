package logger

import (
	"bytes"
	"os"
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
	// Just ensure we didn't panic; output is environment-dependent (colors, etc.)
}

func TestBanner_NoPanic(t *testing.T) {
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w
	defer func() { os.Stdout = old }()

	Banner("v1.0.0")
	Banner("")

	w.Close()
	var buf bytes.Buffer
	buf.ReadFrom(r)
}

func TestSectionAndStats_NoPanic(t *testing.T) {
	old := os.Stdout
	_, w, _ := os.Pipe()
	os.Stdout = w
	defer func() { os.Stdout = old }()
	Section("Test")
	Stats("key", 42)
	w.Close()
}

func TestSetLevelFiltersBelowThreshold(t *testing.T) {
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w
	defer func() {
		os.Stdout = old
		SetLevel("INFO")
	}()

	if err := SetLevel("ERROR"); err != nil {
		t.Fatalf("SetLevel: %v", err)
	}
	Info("TAG", "hidden")
	Warn("TAG", "hidden")
	Error("TAG", "visible")

	w.Close()
	var buf bytes.Buffer
	buf.ReadFrom(r)
	out := buf.String()
	if bytes.Contains([]byte(out), []byte("hidden")) {
		t.Fatalf("suppressed lines leaked: %q", out)
	}
	if !bytes.Contains([]byte(out), []byte("visible")) {
		t.Fatalf("error line missing: %q", out)
	}
}

func TestSetLevelRejectsUnknownName(t *testing.T) {
	if err := SetLevel("LOUD"); err == nil {
		t.Fatal("expected error for unknown level name")
	}
}
