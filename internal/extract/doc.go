// Package extract defines the publish extractors. An extractor exports one
// instance's content into its staging directory and appends the matching
// representation. Extractors are matched to instances by family and host
// and run in ascending Order.
package extract
