// Package synth renders individual text chunks into PCM through the
// speech engine.
//
// Each chunk gets a prompt envelope built from the voice description, a
// deterministic sampling seed, and up to a configured number of
// attempts. Before every generation the engine's sampler state is reset
// so one chunk's audio can never bleed into the next; for engines that
// cannot serve concurrent requests the reset+generate pair runs under a
// mutex so parallel callers cannot interleave inside it. Attempts whose
// audio falls below the RMS floor, and attempts the engine itself
// rejects, are retried with a fresh seed; when every attempt falls
// short the chunk is returned with QualityOK=false rather than an
// error, and the pipeline carries on.
package synth

import (
	"context"
	"errors"
	"fmt"
	"hash/crc32"
	"math"
	"strconv"
	"strings"
	"sync"

	"log/slog"

	"lector/internal/logging"
	"lector/internal/services/maya"
	"lector/internal/snac"
)

const (
	// DefaultMaxAttempts bounds per-chunk retries.
	DefaultMaxAttempts = 3
	// DefaultMinRMS is the silence floor below which an attempt is
	// considered failed.
	DefaultMinRMS = 1e-3

	// The decoder's first samples carry a warmup transient; outputs
	// longer than this are trimmed by this many samples.
	warmupTrimSamples = 2048
)

// Result captures one chunk's synthesis outcome. It is created once per
// chunk and never mutated afterwards.
type Result struct {
	ChunkIndex   int
	Samples      []float32
	SampleRate   int
	RMS          float64
	AttemptsUsed int
	QualityOK    bool
	EngineError  string
}

// Options configures a Synthesizer. Zero values fall back to the engine
// handshake (token parameters) or package defaults (attempts, RMS floor).
type Options struct {
	Voice             string
	MaxAttempts       int
	MinRMS            float64
	Temperature       float64
	TopP              float64
	RepetitionPenalty float64
	MaxTokens         int
	TokenBase         int
	AlphabetSize      int
}

// Synthesizer renders chunks against one engine handle. It is safe for
// concurrent use; whether calls actually overlap inside the engine is
// governed by the engine's concurrency capability.
type Synthesizer struct {
	engine  maya.Engine
	decoder maya.Decoder
	opts    Options
	logger  *slog.Logger

	// Held across the reset+generate pair when the engine cannot take
	// concurrent requests. Nil for concurrency-safe engines.
	engineMu *sync.Mutex
}

// New builds a Synthesizer over an engine and decoder handle. It fails
// when the engine does not declare sampler state reset support, because
// without reset one chunk's audio can be contaminated by the previous
// chunk's context.
func New(engine maya.Engine, decoder maya.Decoder, opts Options, logger *slog.Logger) (*Synthesizer, error) {
	if engine == nil {
		return nil, errors.New("synth: engine required")
	}
	if decoder == nil {
		return nil, errors.New("synth: decoder required")
	}
	info := engine.Info()
	if !info.SupportsStateReset {
		return nil, errors.New("synth: engine does not support sampler state reset")
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.MinRMS <= 0 {
		opts.MinRMS = DefaultMinRMS
	}
	if opts.TokenBase <= 0 {
		opts.TokenBase = info.TokenBase
	}
	if opts.AlphabetSize <= 0 {
		opts.AlphabetSize = info.AlphabetSize
	}
	if opts.AlphabetSize <= 0 {
		return nil, errors.New("synth: token alphabet size unknown")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Synthesizer{engine: engine, decoder: decoder, opts: opts, logger: logger}
	if !info.ConcurrencySafe {
		s.engineMu = &sync.Mutex{}
	}
	return s, nil
}

// ConcurrencySafe reports whether the underlying engine accepts
// concurrent generation requests.
func (s *Synthesizer) ConcurrencySafe() bool {
	return s.engineMu == nil
}

// Synthesize renders one chunk. Attempts that fail the quality gate or
// that the engine rejects are retried with a fresh deterministic seed;
// after the last attempt the most recent result is returned with
// QualityOK=false. The returned error is non-nil only for failures that
// make further work pointless: context cancellation or the engine
// process dying.
func (s *Synthesizer) Synthesize(ctx context.Context, chunkIndex int, text string) (Result, error) {
	prompt := PromptEnvelope(s.opts.Voice, text)
	var last Result
	for attempt := 1; attempt <= s.opts.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return Result{ChunkIndex: chunkIndex}, err
		}
		result, err := s.attempt(ctx, chunkIndex, prompt, text, attempt)
		if err != nil {
			return Result{ChunkIndex: chunkIndex}, err
		}
		if result.QualityOK {
			return result, nil
		}
		last = result
		s.logger.Warn("synthesis attempt rejected",
			logging.Int(logging.FieldChunk, chunkIndex),
			logging.Int("attempt", attempt),
			logging.Int("max_attempts", s.opts.MaxAttempts),
			logging.Float64("rms", result.RMS),
			logging.Float64("rms_floor", s.opts.MinRMS),
			logging.String("engine_error", result.EngineError),
		)
	}
	s.logger.Warn("chunk synthesis exhausted retries; keeping degraded audio",
		logging.Int(logging.FieldChunk, chunkIndex),
		logging.Int("attempts", last.AttemptsUsed),
	)
	return last, nil
}

func (s *Synthesizer) attempt(ctx context.Context, chunkIndex int, prompt, text string, attempt int) (Result, error) {
	result := Result{ChunkIndex: chunkIndex, AttemptsUsed: attempt}
	req := maya.GenerateRequest{
		Prompt:            prompt,
		Seed:              Seed(text, s.opts.Voice, attempt),
		MaxTokens:         s.opts.MaxTokens,
		Temperature:       s.opts.Temperature,
		TopP:              s.opts.TopP,
		RepetitionPenalty: s.opts.RepetitionPenalty,
	}

	tokens, err := s.resetAndGenerate(ctx, req)
	if err != nil {
		var remote *maya.RemoteError
		if errors.As(err, &remote) {
			result.EngineError = remote.Message
			return result, nil
		}
		return Result{}, err
	}

	code, dropped := snac.Unpack(tokens, s.opts.TokenBase, s.opts.AlphabetSize)
	if dropped > 0 {
		s.logger.Warn("engine emitted tokens outside the audio range",
			logging.Int(logging.FieldChunk, chunkIndex),
			logging.Int("dropped_tokens", dropped),
			logging.Int("frames", code.Frames()),
		)
	}
	if code.Empty() {
		result.EngineError = "no audio frames produced"
		return result, nil
	}

	samples, rate, err := s.decoder.Decode(ctx, code)
	if err != nil {
		var remote *maya.RemoteError
		if errors.As(err, &remote) {
			result.EngineError = remote.Message
			return result, nil
		}
		return Result{}, err
	}

	result.Samples = trimWarmup(samples)
	result.SampleRate = rate
	result.RMS = rms(result.Samples)
	result.QualityOK = result.RMS >= s.opts.MinRMS
	return result, nil
}

// resetAndGenerate performs the mandatory state reset directly followed
// by generation. The pair is atomic with respect to other callers when
// the engine is not concurrency safe.
func (s *Synthesizer) resetAndGenerate(ctx context.Context, req maya.GenerateRequest) ([]int, error) {
	if s.engineMu != nil {
		s.engineMu.Lock()
		defer s.engineMu.Unlock()
	}
	if err := s.engine.Reset(ctx); err != nil {
		return nil, err
	}
	return s.engine.Generate(ctx, req)
}

// PromptEnvelope wraps a voice description and chunk text in the inline
// prompt format the speech model was trained on.
func PromptEnvelope(voice, text string) string {
	return `<description="` + strings.TrimSpace(voice) + `"> ` + strings.TrimSpace(text)
}

// Seed derives the sampling seed for an attempt. The first attempt
// hashes only the voice and text, so rerunning a book reproduces
// identical audio; retries mix in the attempt number for a different
// but equally reproducible draw.
func Seed(text, voice string, attempt int) int64 {
	data := voice + "\n" + text
	if attempt > 1 {
		data += "\n" + strconv.Itoa(attempt)
	}
	return int64(crc32.ChecksumIEEE([]byte(data)) & 0x7FFFFFFF)
}

func trimWarmup(samples []float32) []float32 {
	if len(samples) > warmupTrimSamples {
		return samples[warmupTrimSamples:]
	}
	return samples
}

func rms(samples []float32) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, sample := range samples {
		sum += float64(sample) * float64(sample)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// Describe renders a short human-readable attempt summary for progress
// displays.
func Describe(result Result) string {
	if result.QualityOK {
		if result.AttemptsUsed > 1 {
			return fmt.Sprintf("ok after %d attempts", result.AttemptsUsed)
		}
		return "ok"
	}
	if result.EngineError != "" {
		return fmt.Sprintf("degraded after %d attempts (%s)", result.AttemptsUsed, result.EngineError)
	}
	return fmt.Sprintf("degraded after %d attempts (rms %.2g)", result.AttemptsUsed, result.RMS)
}
