package export

import (
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// writeWAV streams a spool into a mono 16-bit PCM WAV container. Samples
// pass through in blocks so the container write stays incremental.
func writeWAV(spoolPath, outPath string, sampleRate int) error {
	reader, err := OpenSpool(spoolPath)
	if err != nil {
		return err
	}
	defer reader.Close()

	out, err := os.Create(outPath)
	if err != nil {
		return fmt.Errorf("create wav: %w", err)
	}
	defer out.Close()

	enc := wav.NewEncoder(out, sampleRate, 16, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		SourceBitDepth: 16,
	}

	block := make([]float32, spoolBlockSamples)
	ints := make([]int, spoolBlockSamples)
	for {
		n, readErr := reader.Read(block)
		if n > 0 {
			for i, sample := range block[:n] {
				ints[i] = clampPCM16(sample)
			}
			buf.Data = ints[:n]
			if err := enc.Write(buf); err != nil {
				return fmt.Errorf("write wav: %w", err)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return readErr
		}
	}

	if err := enc.Close(); err != nil {
		return fmt.Errorf("close wav encoder: %w", err)
	}
	return out.Close()
}

// clampPCM16 converts a float sample in [-1, 1] to a 16-bit integer,
// clamping out-of-range values instead of wrapping.
func clampPCM16(sample float32) int {
	value := float64(sample)
	if value > 1 {
		value = 1
	} else if value < -1 {
		value = -1
	}
	return int(value * 32767)
}
