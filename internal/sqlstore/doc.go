// Package sqlstore opens the SQLite databases dccpub keeps on disk (session
// instance stores and the local asset database) with a shared set of pragmas,
// schema version checks, and busy retry helpers.
package sqlstore
