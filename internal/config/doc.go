// Package config loads, normalizes, and validates piperun configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and resolves the `${tmp}` and `${home}`
// placeholders used by the pipe path template. The Config type centralizes
// every knob the daemon and CLI need so the state directory, pipe location,
// workspace, and notification settings are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
