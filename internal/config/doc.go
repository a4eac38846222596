// Package config loads, normalizes, and validates rigdna configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files from the conventional locations. The
// Config type centralizes every knob the CLI and pipeline need, from
// mapper tolerances to archive retention.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
