// Package hostctx persists the instances registered in a host session, the
// equivalent of the metadata a DCC application keeps inside its document.
//
// Memory backs a single in-process session. SQLite keeps one database per
// scene so the CLI can register instances in one invocation and publish them
// in the next; Session wraps it with an exclusive lock file so only one
// editing process owns a scene's instances at a time.
package hostctx
