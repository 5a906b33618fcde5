// Package assemble turns the ordered chunk result stream into chaptered
// audio with timing metadata.
//
// Samples are pushed to the export sink as each chunk arrives, so a
// multi-hour book never sits in memory as raw PCM. A short silence gap
// separates chunks within a chapter and a longer one separates
// chapters; the gap between two chapters is accounted to the earlier
// chapter, so seeking to a chapter mark lands on speech. All timing is
// tracked as an integer sample count and converted to seconds only for
// the timeline records, keeping chapter boundaries exact.
package assemble

import (
	"errors"
	"fmt"
	"math"

	"log/slog"

	"lector/internal/logging"
	"lector/internal/synth"
)

// Sink is the downstream export collaborator. Write receives PCM
// incrementally in playback order; Finalize is called exactly once with
// the complete timeline. Implementations must not retain the samples
// slice after Write returns.
type Sink interface {
	Write(chapterID int, samples []float32) error
	Finalize(timelines []ChapterTimeline, totalDurationS float64) error
}

// Segment records one chunk's audio span in book time.
type Segment struct {
	ChunkIndex int     `json:"chunk_index"`
	StartS     float64 `json:"start_s"`
	EndS       float64 `json:"end_s"`
}

// ChapterTimeline records one chapter's span. Timelines are contiguous:
// each chapter starts exactly where the previous one ends, the
// inter-chapter gap included in the earlier chapter.
type ChapterTimeline struct {
	ChapterID      int       `json:"chapter_id"`
	Title          string    `json:"title,omitempty"`
	StartS         float64   `json:"start_s"`
	EndS           float64   `json:"end_s"`
	TotalDurationS float64   `json:"total_duration_s"`
	Segments       []Segment `json:"segments,omitempty"`
}

// Options configures an Assembler. Gap lengths are rounded to whole
// samples once, up front.
type Options struct {
	SampleRate        int
	ChunkGapSeconds   float64
	ChapterGapSeconds float64
}

// Assembler consumes chunk results strictly in book order and feeds the
// export sink. It is not safe for concurrent use; the coordinator's
// delivery callback is already serialized.
type Assembler struct {
	sink   Sink
	rate   int
	logger *slog.Logger

	chunkGapSamples   int
	chapterGapSamples int
	silence           []float32

	open      bool
	current   ChapterTimeline
	written   int64
	timelines []ChapterTimeline
	finalized bool
}

func New(sink Sink, opts Options, logger *slog.Logger) (*Assembler, error) {
	if sink == nil {
		return nil, errors.New("assemble: sink required")
	}
	if opts.SampleRate <= 0 {
		return nil, fmt.Errorf("assemble: invalid sample rate %d", opts.SampleRate)
	}
	if opts.ChunkGapSeconds < 0 || opts.ChapterGapSeconds < 0 {
		return nil, errors.New("assemble: silence gaps cannot be negative")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Assembler{
		sink:              sink,
		rate:              opts.SampleRate,
		logger:            logger,
		chunkGapSamples:   int(math.Round(opts.ChunkGapSeconds * float64(opts.SampleRate))),
		chapterGapSamples: int(math.Round(opts.ChapterGapSeconds * float64(opts.SampleRate))),
	}, nil
}

// Deliver appends one chunk's audio. A chapter id different from the
// current chapter's closes the running chapter (writing the
// inter-chapter gap into it) and opens a new one. Degraded chunks are
// concatenated like any other so downstream timing stays intact.
func (a *Assembler) Deliver(chapterID int, title string, result synth.Result) error {
	if a.finalized {
		return errors.New("assemble: deliver after finalize")
	}
	if result.SampleRate != 0 && result.SampleRate != a.rate {
		return fmt.Errorf("assemble: chunk %d sample rate %d does not match output rate %d",
			result.ChunkIndex, result.SampleRate, a.rate)
	}

	if !a.open || a.current.ChapterID != chapterID {
		if err := a.closeChapter(true); err != nil {
			return err
		}
		a.current = ChapterTimeline{
			ChapterID: chapterID,
			Title:     title,
			StartS:    a.seconds(a.written),
		}
		a.open = true
	} else if len(a.current.Segments) > 0 {
		if err := a.writeSilence(chapterID, a.chunkGapSamples); err != nil {
			return err
		}
	}

	start := a.seconds(a.written)
	if len(result.Samples) > 0 {
		if err := a.sink.Write(chapterID, result.Samples); err != nil {
			return fmt.Errorf("assemble: write chunk %d: %w", result.ChunkIndex, err)
		}
		a.written += int64(len(result.Samples))
	} else {
		a.logger.Warn("chunk produced no audio",
			logging.Int(logging.FieldChapter, chapterID),
			logging.Int(logging.FieldChunk, result.ChunkIndex),
		)
	}
	a.current.Segments = append(a.current.Segments, Segment{
		ChunkIndex: result.ChunkIndex,
		StartS:     start,
		EndS:       a.seconds(a.written),
	})
	return nil
}

// Finalize closes the last chapter, hands the sink the full timeline,
// and returns it along with the total duration in seconds.
func (a *Assembler) Finalize() ([]ChapterTimeline, float64, error) {
	if a.finalized {
		return nil, 0, errors.New("assemble: finalize called twice")
	}
	if err := a.closeChapter(false); err != nil {
		return nil, 0, err
	}
	a.finalized = true
	total := a.seconds(a.written)
	if err := a.sink.Finalize(a.timelines, total); err != nil {
		return nil, 0, fmt.Errorf("assemble: finalize: %w", err)
	}
	return a.timelines, total, nil
}

// TotalDuration reports the seconds of audio written so far.
func (a *Assembler) TotalDuration() float64 {
	return a.seconds(a.written)
}

// Timelines returns the chapters closed so far.
func (a *Assembler) Timelines() []ChapterTimeline {
	return a.timelines
}

func (a *Assembler) closeChapter(gapFollows bool) error {
	if !a.open {
		return nil
	}
	if gapFollows {
		if err := a.writeSilence(a.current.ChapterID, a.chapterGapSamples); err != nil {
			return err
		}
	}
	a.current.EndS = a.seconds(a.written)
	a.current.TotalDurationS = a.current.EndS - a.current.StartS
	a.timelines = append(a.timelines, a.current)
	a.open = false
	return nil
}

func (a *Assembler) writeSilence(chapterID int, count int) error {
	if count <= 0 {
		return nil
	}
	if len(a.silence) < count {
		a.silence = make([]float32, count)
	}
	if err := a.sink.Write(chapterID, a.silence[:count]); err != nil {
		return fmt.Errorf("assemble: write silence: %w", err)
	}
	a.written += int64(count)
	return nil
}

func (a *Assembler) seconds(samples int64) float64 {
	return float64(samples) / float64(a.rate)
}
