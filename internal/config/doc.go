// Package config loads, normalizes, and validates Stagehand configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// STAGEHAND_API_BIND. The Config type centralizes every knob the server and CLI
// need so the record store, position cache, notifier, and HTTP listener are
// discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
