// Package transcript implements the append-only discussion log.
//
// A Transcript is owned by exactly one writer (the orchestrator). Readers
// get a View: an immutable snapshot bounded to the messages present when
// it was taken, so personas and the termination detector can read without
// locks while the writer keeps appending.
package transcript
