package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	JobDir       string `toml:"job_dir"`
	QueueDir     string `toml:"queue_dir"`
	LogDir       string `toml:"log_dir"`
	ProductsFile string `toml:"products_file"`
	CatalogPath  string `toml:"catalog_path"`
}

// Pipeline contains pool sizes and the hand-off queue capacity.
type Pipeline struct {
	QueueLimit         int `toml:"queue_limit"`
	TransformWorkers   int `toml:"transform_workers"`
	PublishWorkers     int `toml:"publish_workers"`
	EnumerateWorkers   int `toml:"enumerate_workers"`
	PollIntervalMillis int `toml:"poll_interval_ms"`
}

// Converter describes the external transform command. Args may reference
// {input} and {output} placeholders.
type Converter struct {
	Command        string   `toml:"command"`
	Args           []string `toml:"args"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
}

// Uploader describes the external publish command. Args may reference {src}
// and {dest} placeholders. Bucket is the destination root; a bare path or
// file:// URL switches to a local verified copy instead of the command.
type Uploader struct {
	Command        string   `toml:"command"`
	Args           []string `toml:"args"`
	Bucket         string   `toml:"bucket"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
}

// Validator describes the external command that checks one converted
// artifact. Args may reference {path}. Pattern selects the artifacts to
// check; MetadataPattern, when set, must match a file next to each of them.
type Validator struct {
	Command         string   `toml:"command"`
	Args            []string `toml:"args"`
	Pattern         string   `toml:"pattern"`
	MetadataPattern string   `toml:"metadata_pattern"`
	TimeoutSeconds  int      `toml:"timeout_seconds"`
}

// Notifications configures optional ntfy run notices. An empty topic
// disables them.
type Notifications struct {
	NtfyTopic             string `toml:"ntfy_topic"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for cogstream.
//
// Configuration sections by subsystem:
//   - Paths: job control, staging queue, logs, product definitions, catalog
//   - Pipeline: queue capacity and worker pool sizes
//   - Converter: external transform command
//   - Uploader: external publish command and destination bucket
//   - Validator: artifact check used by verify
//   - Notifications: ntfy run notices
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Pipeline      Pipeline      `toml:"pipeline"`
	Converter     Converter     `toml:"converter"`
	Uploader      Uploader      `toml:"uploader"`
	Validator     Validator     `toml:"validator"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/cogstream/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		info, err := os.Stat(expanded)
		if err != nil {
			if os.IsNotExist(err) {
				return "", false, fmt.Errorf("config file %s not found", expanded)
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		if info.IsDir() {
			return "", false, fmt.Errorf("config path %s is a directory", expanded)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("cogstream.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the job control, queue, and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.JobDir, c.Paths.QueueDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
