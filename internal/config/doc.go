// Package config loads, normalizes, and validates vigil configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks for object
// storage credentials. The Config type centralizes every knob the daemon and
// CLI need: detection thresholds, recording layout, compression ladder
// bounds, storage credentials, and notification routing.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths and clear validation errors before any camera loop starts.
package config
