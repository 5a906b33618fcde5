// Package export packages the narration spool into a distributable
// audiobook container.
//
// Synthesis leaves behind a raw f32le spool plus a report describing its
// chapter timeline. Export verifies the spool against the report, then
// either muxes an M4B through ffmpeg (AAC audio, chapter marks from an
// ffmetadata side file) or writes an uncompressed WAV directly. When
// export.validate_output is enabled the finished container is probed
// with ffprobe and checked against the report before the stage
// completes.
package export
