// Package main hosts the dccpub CLI entrypoint and command graph.
//
// Commands open the host session for the configured scene, run creators and
// the publish pass against it, and report results as tables or JSON. Session
// wiring lives in context.go so subcommands only describe the user-facing
// behavior.
package main
