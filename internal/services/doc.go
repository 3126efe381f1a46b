// Package services defines shared utilities consumed by creators, extractors,
// and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp instance IDs, plugin names, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper that translate failures
//     into the pipeline taxonomy (configuration, unknown asset, host mutation,
//     extraction) used by publish reports.
//
// Use these helpers when wiring new plugin logic so error handling and
// observability stay uniform across hosts.
package services
