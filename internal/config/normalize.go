package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizePipeline()
	c.normalizeCommands()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.JobDir, err = expandPath(c.Paths.JobDir); err != nil {
		return fmt.Errorf("paths.job_dir: %w", err)
	}
	if c.Paths.QueueDir, err = expandPath(c.Paths.QueueDir); err != nil {
		return fmt.Errorf("paths.queue_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.CatalogPath) == "" {
		c.Paths.CatalogPath = defaultCatalogPath
	}
	if c.Paths.CatalogPath, err = expandPath(c.Paths.CatalogPath); err != nil {
		return fmt.Errorf("paths.catalog_path: %w", err)
	}
	if c.Paths.ProductsFile, err = expandPath(strings.TrimSpace(c.Paths.ProductsFile)); err != nil {
		return fmt.Errorf("paths.products_file: %w", err)
	}
	return nil
}

func (c *Config) normalizePipeline() {
	if c.Pipeline.EnumerateWorkers <= 0 {
		c.Pipeline.EnumerateWorkers = defaultEnumerateWorkers
	}
	if c.Pipeline.PollIntervalMillis <= 0 {
		c.Pipeline.PollIntervalMillis = defaultPollIntervalMillis
	}
}

func (c *Config) normalizeCommands() {
	c.Converter.Command = strings.TrimSpace(c.Converter.Command)
	c.Uploader.Command = strings.TrimSpace(c.Uploader.Command)
	c.Uploader.Bucket = strings.TrimSpace(c.Uploader.Bucket)
	c.Validator.Command = strings.TrimSpace(c.Validator.Command)
	c.Validator.Pattern = strings.TrimSpace(c.Validator.Pattern)
	if c.Validator.Pattern == "" {
		c.Validator.Pattern = defaultValidatorPattern
	}
	c.Validator.MetadataPattern = strings.TrimSpace(c.Validator.MetadataPattern)
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeoutSeconds <= 0 {
		c.Notifications.RequestTimeoutSeconds = defaultNtfyTimeoutSeconds
	}
	if value, ok := os.LookupEnv("COGSTREAM_BUCKET"); ok && strings.TrimSpace(value) != "" {
		c.Uploader.Bucket = strings.TrimSpace(value)
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
