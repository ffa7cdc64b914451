package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if c.Converter.Command == "" {
		return errors.New("converter.command must be set")
	}
	if c.Converter.TimeoutSeconds < 0 {
		return errors.New("converter.timeout_seconds must be >= 0")
	}
	if c.Uploader.TimeoutSeconds < 0 {
		return errors.New("uploader.timeout_seconds must be >= 0")
	}
	if c.Validator.TimeoutSeconds < 0 {
		return errors.New("validator.timeout_seconds must be >= 0")
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.JobDir == "" {
		return errors.New("paths.job_dir must be set")
	}
	if c.Paths.QueueDir == "" {
		return errors.New("paths.queue_dir must be set")
	}
	if c.Paths.QueueDir == c.Paths.JobDir {
		return errors.New("paths.queue_dir must differ from paths.job_dir; the queue directory is purged on every run")
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.QueueLimit <= 0 {
		return errors.New("pipeline.queue_limit must be positive")
	}
	if c.Pipeline.TransformWorkers <= 0 {
		return errors.New("pipeline.transform_workers must be positive")
	}
	if c.Pipeline.PublishWorkers <= 0 {
		return errors.New("pipeline.publish_workers must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "auto", "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q (use auto, console, or json)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
