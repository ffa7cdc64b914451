package deps

import (
	"os"
	"path/filepath"
	"testing"

	"cogstream/internal/config"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Blank", Command: "  "},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Path != present {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[0].Detail != "" {
		t.Fatalf("unexpected detail for available dependency: %s", results[0].Detail)
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary to be unavailable with detail, got %#v", results[1])
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}
	if results[2].Detail != "command not configured" {
		t.Fatalf("blank command detail = %q", results[2].Detail)
	}
}

func TestRequirementsUploaderOptionalForLocalBucket(t *testing.T) {
	cfg := config.Default()
	cfg.Uploader.Bucket = "/mnt/archive"
	reqs := Requirements(&cfg)
	if len(reqs) != 3 || !reqs[1].Optional || !reqs[2].Optional {
		t.Fatalf("requirements = %+v", reqs)
	}
	cfg.Uploader.Bucket = "s3://bucket"
	if Requirements(&cfg)[1].Optional {
		t.Fatal("uploader must be required for a remote bucket")
	}
}
