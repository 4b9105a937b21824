// Package config loads, normalizes, and validates Hoist configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// HOIST_API_TOKEN and HOIST_NTFY_TOPIC. A .env file in the working directory is
// read before fallbacks are applied so local secrets never need to live in the
// TOML file.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
