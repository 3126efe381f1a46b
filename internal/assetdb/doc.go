// Package assetdb resolves asset and task names against the project
// database. The Database interface is what creators consume; SQLite is the
// local implementation, Memory serves fixtures, and Cached adds a
// time-bounded lookup cache in front of either.
package assetdb
