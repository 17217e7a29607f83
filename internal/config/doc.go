// Package config loads, normalizes, and validates Curator configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// CURATOR_LIBRARY_DIR. The Config type centralizes every knob the daemon and
// CLI need: where the library lives, where catalog state is kept, how many
// descriptor parses may run at once, and how logs are emitted.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
