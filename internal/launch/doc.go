// Package launch prepares host application launches. Prelaunch hooks rewrite
// the launch arguments and environment before the host process starts.
package launch
