// Package publish runs the extraction pass over the instances registered in
// a host context.
//
// Each instance is processed in isolation: a failing extractor stops the
// remaining extractors for that instance only. After every extractor the
// host selection and refresh state are compared with the state before it
// ran; a leak is reported and the state is forced back. Updated instances
// are persisted to the host context and, when extraction succeeded, their
// representation manifest is written into the staging directory.
package publish
