package export

import (
	"context"

	"lector/internal/media/ffprobe"
)

// ffmpegRun executes the ffmpeg invocation used to mux M4B output.
// It is a package-level variable so tests can override it.
var ffmpegRun = runFFmpeg

// SetFFmpegForTests overrides the ffmpeg runner during tests.
func SetFFmpegForTests(fn func(ctx context.Context, binary string, args []string) error) func() {
	previous := ffmpegRun
	ffmpegRun = fn
	return func() {
		ffmpegRun = previous
	}
}

// exportProbe is the ffprobe function used to validate finished audiobooks.
// It is a package-level variable so tests can override it.
var exportProbe = ffprobe.Inspect

// SetProbeForTests overrides the ffprobe runner during tests.
func SetProbeForTests(fn func(context.Context, string, string) (ffprobe.Result, error)) func() {
	previous := exportProbe
	exportProbe = fn
	return func() {
		exportProbe = previous
	}
}
