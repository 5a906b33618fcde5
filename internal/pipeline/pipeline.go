// Package pipeline coordinates parallel chunk synthesis for one book.
//
// A bounded worker pool pulls chunks in book order and synthesizes them
// independently; a reorder buffer re-sequences completions so results
// reach the assembler strictly in chunk-index order no matter which
// worker finishes first. Cancellation is cooperative: it is observed
// before each dispatch, never mid-inference, so in-flight chunks run to
// completion and a cancelled job still ends with a clean contiguous
// prefix of the book delivered.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"log/slog"

	"lector/internal/book"
	"lector/internal/logging"
	"lector/internal/synth"
)

// ChunkState tracks one chunk through the coordinator.
type ChunkState string

const (
	ChunkQueued     ChunkState = "queued"
	ChunkAttempting ChunkState = "attempting"
	ChunkDelivered  ChunkState = "delivered"
	ChunkExhausted  ChunkState = "exhausted"
)

// JobState is the terminal state of one coordinator run.
type JobState string

const (
	JobCompleted JobState = "completed"
	JobCancelled JobState = "cancelled"
)

const (
	defaultWorkers = 4
	previewRunes   = 60
)

// Synthesizer renders one chunk of text. Implementations own their own
// retry policy; the coordinator only distinguishes results from fatal
// errors.
type Synthesizer interface {
	Synthesize(ctx context.Context, chunkIndex int, text string) (synth.Result, error)
}

// DeliverFunc receives results strictly in chunk order, exactly once per
// delivered chunk. Returning an error aborts the job.
type DeliverFunc func(chunk book.ChunkPlan, result synth.Result) error

// ProgressFunc is invoked once per delivered chunk, in delivery order.
type ProgressFunc func(completed, total int, preview string)

// StateFunc observes chunk state transitions. Calls may come from
// multiple goroutines; attempts carries the attempt count where the
// state implies one and zero otherwise.
type StateFunc func(chunkIndex int, state ChunkState, attempts int)

// Options configures a Coordinator.
type Options struct {
	// Workers sizes the synthesis pool; use WorkerCount to derive it
	// from the engine's concurrency capability. Values below 1 mean a
	// single worker.
	Workers  int
	Deliver  DeliverFunc
	Progress ProgressFunc
	OnState  StateFunc
	Logger   *slog.Logger
}

// Summary is the outcome of one Run. FailedChunks lists the book-order
// indices of chunks delivered with degraded audio.
type Summary struct {
	State        JobState
	Delivered    int
	Total        int
	FailedChunks []int
}

// WorkerCount derives the synthesis pool size from configuration and
// the engine's concurrency capability. Engines that cannot take
// concurrent requests always get a single worker.
func WorkerCount(configured int, concurrencySafe bool) int {
	if !concurrencySafe {
		return 1
	}
	if configured > 0 {
		return configured
	}
	return defaultWorkers
}

// Coordinator fans chunks out to a worker pool and re-sequences the
// results. One Coordinator runs one job at a time.
type Coordinator struct {
	synth   Synthesizer
	workers int
	opts    Options
	logger  *slog.Logger
}

// New builds a Coordinator. The delivery callback is required; it is
// where the assembler hooks in.
func New(s Synthesizer, opts Options) (*Coordinator, error) {
	if s == nil {
		return nil, errors.New("pipeline: synthesizer required")
	}
	if opts.Deliver == nil {
		return nil, errors.New("pipeline: deliver callback required")
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Coordinator{synth: s, workers: workers, opts: opts, logger: logger}, nil
}

type workItem struct {
	pos   int
	chunk book.ChunkPlan
}

type workResult struct {
	pos int
	res synth.Result
	err error
}

// Run synthesizes every chunk and hands results to the delivery
// callback strictly in slice order. Cancelling ctx stops dispatch at
// the next chunk boundary; chunks already in flight finish and, when
// they extend the delivered prefix, are still handed over. The returned
// error is non-nil only for fatal failures (engine death, delivery
// failure); cancellation and degraded chunks are reported through the
// Summary instead.
func (c *Coordinator) Run(ctx context.Context, chunks []book.ChunkPlan) (Summary, error) {
	total := len(chunks)
	summary := Summary{State: JobCancelled, Total: total}
	if total == 0 {
		summary.State = JobCompleted
		return summary, nil
	}

	c.logger.Info("chunk synthesis started",
		logging.Int("chunks", total),
		logging.Int("workers", c.workers),
	)

	for _, chunk := range chunks {
		c.state(chunk.Index, ChunkQueued, 0)
	}

	// runCtx stops dispatch; the synthesis context deliberately does not
	// propagate cancellation so in-flight inference is never interrupted.
	runCtx, cancelRun := context.WithCancel(ctx)
	defer cancelRun()
	synthCtx := context.WithoutCancel(ctx)

	jobs := make(chan workItem)
	results := make(chan workResult, c.workers)

	go func() {
		defer close(jobs)
		for pos, chunk := range chunks {
			if runCtx.Err() != nil {
				return
			}
			select {
			case jobs <- workItem{pos: pos, chunk: chunk}:
			case <-runCtx.Done():
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < c.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range jobs {
				c.state(item.chunk.Index, ChunkAttempting, 1)
				res, err := c.synth.Synthesize(synthCtx, item.chunk.Index, item.chunk.Text)
				results <- workResult{pos: item.pos, res: res, err: err}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	var (
		buffer = make(map[int]synth.Result, c.workers)
		expect int
		fatal  error
	)
	for item := range results {
		if item.err != nil {
			if errors.Is(item.err, context.Canceled) || errors.Is(item.err, context.DeadlineExceeded) {
				c.state(chunks[item.pos].Index, ChunkQueued, 0)
				continue
			}
			if fatal == nil {
				fatal = fmt.Errorf("chunk %d: %w", chunks[item.pos].Index, item.err)
				cancelRun()
			}
			continue
		}
		if fatal != nil {
			continue
		}
		buffer[item.pos] = item.res
		for {
			res, ok := buffer[expect]
			if !ok {
				break
			}
			delete(buffer, expect)
			chunk := chunks[expect]
			if err := c.opts.Deliver(chunk, res); err != nil {
				fatal = fmt.Errorf("deliver chunk %d: %w", chunk.Index, err)
				cancelRun()
				break
			}
			expect++
			summary.Delivered++
			if res.QualityOK {
				c.state(chunk.Index, ChunkDelivered, res.AttemptsUsed)
			} else {
				summary.FailedChunks = append(summary.FailedChunks, chunk.Index)
				c.state(chunk.Index, ChunkExhausted, res.AttemptsUsed)
				c.logger.Warn("chunk delivered with degraded audio",
					logging.Int(logging.FieldChunk, chunk.Index),
					logging.Int("attempts", res.AttemptsUsed),
					logging.String("engine_error", res.EngineError),
				)
			}
			if c.opts.Progress != nil {
				c.opts.Progress(summary.Delivered, total, Preview(chunk.Text))
			}
		}
	}

	if fatal != nil {
		return summary, fatal
	}
	if summary.Delivered == total {
		summary.State = JobCompleted
	}
	c.logger.Info("chunk synthesis finished",
		logging.String("state", string(summary.State)),
		logging.Int("delivered", summary.Delivered),
		logging.Int("total", total),
		logging.Int("degraded", len(summary.FailedChunks)),
	)
	return summary, nil
}

func (c *Coordinator) state(chunkIndex int, state ChunkState, attempts int) {
	if c.opts.OnState != nil {
		c.opts.OnState(chunkIndex, state, attempts)
	}
}

// Preview shortens chunk text for progress displays.
func Preview(text string) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) <= previewRunes {
		return text
	}
	return string(runes[:previewRunes]) + "…"
}
