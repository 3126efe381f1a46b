// Package host defines the narrow contract dccpub needs from a DCC
// application: node lookup and creation, parameter edits, selection, the
// viewport refresh flag, and selection export.
//
// Selection and refresh are process-global in every supported host. Code that
// changes them acquires the state through MaintainedSelection or
// SuspendedRefresh (or the With* closure forms) so the previous state is put
// back on every exit path, including panics.
package host
