// Package unit defines processing units, the caller-visible wrappers around
// engine images.
//
// A unit owns its native image and a reference set of arena buffers. The set
// only grows: Adopt unions new handles in and never replaces what a unit
// already carries from its own construction. Close gives every reference back.
package unit
