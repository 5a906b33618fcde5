// Package synthesis runs the narration stage for queue items.
//
// It launches the speech engine sidecar, fans the planned chunks out over
// the synthesis pipeline, streams assembled audio into a staging spool,
// and records the chapter timelines and degraded-chunk list in the
// synthesis report for export and organization to consume. Worker count
// follows the engine's declared concurrency safety; degraded chunks are
// kept, never dropped, so the run produces a complete narration even when
// individual chunks exhaust their retries.
package synthesis
