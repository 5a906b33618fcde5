// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// This package has no lector-specific dependencies and could be extracted
// as a standalone library.
//
// Key types:
//   - Result: parsed ffprobe output containing streams, chapters, and format metadata
//   - Stream: individual stream properties (codec, sample rate, channels)
//   - Chapter: container chapter marks with start/end times and titles
//   - Format: container-level metadata (duration, size, bitrate)
//
// Primary entry point:
//   - Inspect: executes ffprobe and returns parsed Result
//
// Helper methods on Result cover the checks export validation needs:
// stream counts, the primary audio stream, duration, and chapter spans.
package ffprobe
