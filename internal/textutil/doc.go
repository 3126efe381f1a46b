// Package textutil sanitizes names for safe use as file names and path
// segments.
package textutil
