// Package logging assembles structured slog loggers and formatting helpers used
// across dccpub.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so creators and extractors
// automatically tag log lines with instance IDs, families, plugin names, and
// correlation IDs. A no-op logger is provided for tests and wiring code that
// cannot fail.
package logging
