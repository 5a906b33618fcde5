// Package organizer moves finished audiobooks into the library.
//
// Clean narrations land at library/<Author>/<Title>.<ext>, with existing
// files preserved through numbered suffixes unless overwrite is enabled.
// Books whose synthesis report lists degraded chunks are parked in the
// review directory instead: the audio is complete but some passages fell
// back to their best failed take, and a person should listen before the
// book reaches the shelf. Organization is also where staging artifacts
// are reclaimed.
package organizer
