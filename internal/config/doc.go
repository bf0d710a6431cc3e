// Package config loads, normalizes, and validates zipp configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// ZIPP_ENGINE. The Config type centralizes every knob the extract and flatten
// commands need, so engine resolution, worker counts, and state directories are
// discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
