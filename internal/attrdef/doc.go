// Package attrdef declares typed, named options used to build creator
// pre-create and instance attribute forms.
//
// A Set is an ordered, key-unique collection of definitions. Duplicate keys
// are rejected when the set is built, never when it is used, so a broken
// creator fails at registration before any instance work begins. Resolve
// turns user-supplied values into a complete option map: unknown keys are
// dropped and missing keys take their defaults.
package attrdef
