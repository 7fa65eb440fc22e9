// Package config loads, normalizes, and validates packrat configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// PACKRAT_BASE_URL. The Config type centralizes every knob the pipeline and
// CLI need: output and state directories, the target site, browser launch
// options, timeouts, and journal settings.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
