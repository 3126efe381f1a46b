// Package config loads, normalizes, and validates dccpub configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// DCCPUB_PROJECT and DCCPUB_HOST. The Config type centralizes the knobs the
// CLI needs: where staging directories, session stores, logs, studio
// settings, and the asset database live, which host adapter to drive, and
// the editorial frame-rate fallback.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths and clear validation errors.
package config
