// Package scene is an in-process scene graph that satisfies host.Adapter.
// Scenes load from and save to YAML documents, which lets the CLI drive the
// creation and publish protocol against a recorded scene and lets tests run
// without a DCC application. Selection export is delegated to an Exporter.
package scene
