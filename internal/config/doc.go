// Package config loads, normalizes, and validates cogstream configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// COGSTREAM_BUCKET. The Config type centralizes the directories, pool sizes,
// and external tool commands the CLI and pipeline need.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
