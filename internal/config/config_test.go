package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"cogstream/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("COGSTREAM_BUCKET", "")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantJobs := filepath.Join(tempHome, ".local", "share", "cogstream", "jobs")
	if cfg.Paths.JobDir != wantJobs {
		t.Fatalf("unexpected job dir: got %q want %q", cfg.Paths.JobDir, wantJobs)
	}
	if cfg.Pipeline.QueueLimit != 16 || cfg.Pipeline.TransformWorkers != 7 || cfg.Pipeline.PublishWorkers != 7 {
		t.Fatalf("unexpected pipeline defaults: %+v", cfg.Pipeline)
	}
	if cfg.Logging.Format != "auto" {
		t.Fatalf("unexpected log format: %q", cfg.Logging.Format)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.JobDir, cfg.Paths.QueueDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "cogstream.toml")
	t.Setenv("COGSTREAM_BUCKET", "")

	type payload struct {
		Paths struct {
			JobDir   string `toml:"job_dir"`
			QueueDir string `toml:"queue_dir"`
		} `toml:"paths"`
		Pipeline struct {
			QueueLimit     int `toml:"queue_limit"`
			PublishWorkers int `toml:"publish_workers"`
		} `toml:"pipeline"`
		Uploader struct {
			Bucket string `toml:"bucket"`
		} `toml:"uploader"`
		Logging struct {
			Format string `toml:"format"`
		} `toml:"logging"`
	}
	custom := payload{}
	custom.Paths.JobDir = filepath.Join(tempDir, "jobs")
	custom.Paths.QueueDir = filepath.Join(tempDir, "queue")
	custom.Pipeline.QueueLimit = 4
	custom.Pipeline.PublishWorkers = 2
	custom.Uploader.Bucket = "s3://dea-public-data"
	custom.Logging.Format = "JSON"
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("unexpected resolution: %q exists=%v", resolved, exists)
	}
	if cfg.Pipeline.QueueLimit != 4 || cfg.Pipeline.PublishWorkers != 2 {
		t.Fatalf("expected pipeline overrides, got %+v", cfg.Pipeline)
	}
	if cfg.Pipeline.TransformWorkers != config.Default().Pipeline.TransformWorkers {
		t.Fatalf("expected default transform workers, got %d", cfg.Pipeline.TransformWorkers)
	}
	if cfg.Uploader.Bucket != "s3://dea-public-data" {
		t.Fatalf("unexpected bucket %q", cfg.Uploader.Bucket)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected normalized log format, got %q", cfg.Logging.Format)
	}
}

func TestBucketEnvOverridesFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "cogstream.toml")
	if err := os.WriteFile(configPath, []byte("[uploader]\nbucket = \"s3://from-file\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("COGSTREAM_BUCKET", "s3://from-env")

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Uploader.Bucket != "s3://from-env" {
		t.Fatalf("expected env bucket, got %q", cfg.Uploader.Bucket)
	}
}

func TestNotificationsNormalized(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "cogstream.toml")
	content := "[notifications]\nntfy_topic = \"  https://ntfy.sh/streams  \"\nrequest_timeout_seconds = 0\n"
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Notifications.NtfyTopic != "https://ntfy.sh/streams" {
		t.Fatalf("topic = %q", cfg.Notifications.NtfyTopic)
	}
	if cfg.Notifications.RequestTimeoutSeconds != 10 {
		t.Fatalf("timeout = %d, want default", cfg.Notifications.RequestTimeoutSeconds)
	}
}

func TestValidatorDefaultsAndOverrides(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "cogstream.toml")
	content := "[validator]\ncommand = \" cogcheck \"\npattern = \"\"\nmetadata_pattern = \"\"\n"
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Validator.Command != "cogcheck" {
		t.Fatalf("command = %q", cfg.Validator.Command)
	}
	if cfg.Validator.Pattern != "**/*.{tif,tiff,TIF,TIFF}" {
		t.Fatalf("pattern = %q, want default", cfg.Validator.Pattern)
	}
	if cfg.Validator.MetadataPattern != "" {
		t.Fatalf("metadata pattern = %q, want disabled", cfg.Validator.MetadataPattern)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "cogstream.toml")
	if err := os.WriteFile(configPath, []byte("[pipeline]\nqueue_size = 3\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(configPath); err == nil {
		t.Fatal("expected error for unknown key")
	}
}

func TestLoadMissingExplicitPath(t *testing.T) {
	_, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"queue limit", func(c *config.Config) { c.Pipeline.QueueLimit = 0 }, "queue_limit"},
		{"transform workers", func(c *config.Config) { c.Pipeline.TransformWorkers = -1 }, "transform_workers"},
		{"publish workers", func(c *config.Config) { c.Pipeline.PublishWorkers = 0 }, "publish_workers"},
		{"converter", func(c *config.Config) { c.Converter.Command = "" }, "converter.command"},
		{"log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"validator timeout", func(c *config.Config) { c.Validator.TimeoutSeconds = -1 }, "validator.timeout_seconds"},
		{"queue equals job", func(c *config.Config) { c.Paths.QueueDir = c.Paths.JobDir }, "queue_dir"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestSampleConfigParses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	t.Setenv("HOME", t.TempDir())
	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("sample config should load cleanly: %v", err)
	}
}
