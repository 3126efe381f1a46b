// Package instance holds the publish instance record and the representation
// descriptors extractors attach to it.
//
// An Instance is one unit of publishable work: a render layer, a camera, an
// editorial cut, a clip. Its family is fixed at construction and selects
// which extractors apply. Representations are append-only: there is no API
// to remove or replace one, and every appended representation must point at
// files that already exist in its staging directory.
//
// The Manifest type is the JSON document handed to the downstream
// integration stage; its field names are a stable wire format.
package instance
