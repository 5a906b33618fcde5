package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"lector/internal/book"
	"lector/internal/synth"
)

// fakeSynth scripts per-chunk outcomes and records call order. The hook
// runs after the delay, before the outcome is returned.
type fakeSynth struct {
	delays  map[int]time.Duration
	results map[int]synth.Result
	errs    map[int]error
	hook    func(chunkIndex int)

	mu    sync.Mutex
	calls []int
}

func (f *fakeSynth) Synthesize(ctx context.Context, chunkIndex int, text string) (synth.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, chunkIndex)
	f.mu.Unlock()
	if delay := f.delays[chunkIndex]; delay > 0 {
		time.Sleep(delay)
	}
	if f.hook != nil {
		f.hook(chunkIndex)
	}
	if err := f.errs[chunkIndex]; err != nil {
		return synth.Result{}, err
	}
	if res, ok := f.results[chunkIndex]; ok {
		return res, nil
	}
	return okResult(chunkIndex), nil
}

func (f *fakeSynth) callOrder() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.calls...)
}

func okResult(chunkIndex int) synth.Result {
	return synth.Result{
		ChunkIndex:   chunkIndex,
		Samples:      []float32{0.25, 0.25},
		SampleRate:   24000,
		RMS:          0.25,
		AttemptsUsed: 1,
		QualityOK:    true,
	}
}

func degradedResult(chunkIndex int) synth.Result {
	return synth.Result{
		ChunkIndex:   chunkIndex,
		Samples:      []float32{0},
		SampleRate:   24000,
		AttemptsUsed: 3,
		EngineError:  "no audio frames produced",
	}
}

func makeChunks(n int) []book.ChunkPlan {
	chunks := make([]book.ChunkPlan, n)
	for i := range chunks {
		text := fmt.Sprintf("Chunk %d carries a short sentence.", i)
		chunks[i] = book.ChunkPlan{Index: i, Text: text, Words: 6, Chars: len(text)}
	}
	return chunks
}

// stateRecorder collects observer callbacks, which arrive from several
// goroutines.
type stateRecorder struct {
	mu     sync.Mutex
	states map[int][]ChunkState
	last   map[int]int
}

func newStateRecorder() *stateRecorder {
	return &stateRecorder{states: make(map[int][]ChunkState), last: make(map[int]int)}
}

func (r *stateRecorder) record(chunkIndex int, state ChunkState, attempts int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states[chunkIndex] = append(r.states[chunkIndex], state)
	r.last[chunkIndex] = attempts
}

func (r *stateRecorder) sequence(chunkIndex int) []ChunkState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ChunkState(nil), r.states[chunkIndex]...)
}

func TestWorkerCount(t *testing.T) {
	cases := []struct {
		configured int
		safe       bool
		want       int
	}{
		{0, false, 1},
		{8, false, 1},
		{0, true, defaultWorkers},
		{-2, true, defaultWorkers},
		{3, true, 3},
	}
	for _, tc := range cases {
		if got := WorkerCount(tc.configured, tc.safe); got != tc.want {
			t.Errorf("WorkerCount(%d, %v) = %d, want %d", tc.configured, tc.safe, got, tc.want)
		}
	}
}

func TestPreview(t *testing.T) {
	if got := Preview("  Hello there.  "); got != "Hello there." {
		t.Fatalf("Preview = %q", got)
	}
	long := strings.Repeat("ab", 60)
	got := Preview(long)
	runes := []rune(got)
	if len(runes) != previewRunes+1 || !strings.HasSuffix(got, "…") {
		t.Fatalf("long preview = %q (%d runes)", got, len(runes))
	}
	if string(runes[:previewRunes]) != long[:previewRunes] {
		t.Fatalf("preview body diverged from source: %q", got)
	}
}

func TestNewValidation(t *testing.T) {
	deliver := func(book.ChunkPlan, synth.Result) error { return nil }
	if _, err := New(nil, Options{Deliver: deliver}); err == nil {
		t.Fatal("expected error for nil synthesizer")
	}
	if _, err := New(&fakeSynth{}, Options{}); err == nil {
		t.Fatal("expected error for nil deliver callback")
	}
}

func TestRunEmptyChunkList(t *testing.T) {
	called := false
	coord, err := New(&fakeSynth{}, Options{
		Deliver: func(book.ChunkPlan, synth.Result) error {
			called = true
			return nil
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	summary, err := coord.Run(context.Background(), nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.State != JobCompleted || summary.Delivered != 0 {
		t.Fatalf("summary = %+v, want completed empty job", summary)
	}
	if called {
		t.Fatal("deliver callback fired for empty job")
	}
}

func TestRunDeliversInOrderUnderRandomDelays(t *testing.T) {
	const total = 12
	rng := rand.New(rand.NewSource(7))
	fake := &fakeSynth{delays: make(map[int]time.Duration)}
	for i := 0; i < total; i++ {
		fake.delays[i] = time.Duration(rng.Intn(25)) * time.Millisecond
	}

	chunks := makeChunks(total)
	var (
		delivered []int
		completed []int
		previews  []string
	)
	coord, err := New(fake, Options{
		Workers: 4,
		Deliver: func(chunk book.ChunkPlan, result synth.Result) error {
			delivered = append(delivered, chunk.Index)
			if result.ChunkIndex != chunk.Index {
				t.Errorf("result for chunk %d delivered under index %d", result.ChunkIndex, chunk.Index)
			}
			return nil
		},
		Progress: func(done, tot int, preview string) {
			completed = append(completed, done)
			previews = append(previews, preview)
			if tot != total {
				t.Errorf("progress total = %d, want %d", tot, total)
			}
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	summary, err := coord.Run(context.Background(), chunks)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.State != JobCompleted || summary.Delivered != total || len(summary.FailedChunks) != 0 {
		t.Fatalf("summary = %+v, want clean completion", summary)
	}
	if len(delivered) != total {
		t.Fatalf("delivered %d chunks, want %d", len(delivered), total)
	}
	for i, idx := range delivered {
		if idx != i {
			t.Fatalf("delivery order %v is not chunk order", delivered)
		}
	}
	for i, done := range completed {
		if done != i+1 {
			t.Fatalf("progress counts %v are not monotone delivery counts", completed)
		}
		if previews[i] != Preview(chunks[i].Text) {
			t.Fatalf("progress preview %q does not match chunk %d", previews[i], i)
		}
	}
}

func TestRunSingleWorkerSlowMiddleChunk(t *testing.T) {
	fake := &fakeSynth{delays: map[int]time.Duration{2: 40 * time.Millisecond}}
	chunks := makeChunks(5)
	var delivered []int
	coord, err := New(fake, Options{
		Workers: 1,
		Deliver: func(chunk book.ChunkPlan, result synth.Result) error {
			delivered = append(delivered, chunk.Index)
			return nil
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	summary, err := coord.Run(context.Background(), chunks)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.State != JobCompleted {
		t.Fatalf("summary = %+v", summary)
	}
	want := []int{0, 1, 2, 3, 4}
	for i, idx := range delivered {
		if idx != want[i] {
			t.Fatalf("delivery order %v, want %v", delivered, want)
		}
	}
	if calls := fake.callOrder(); len(calls) != 5 {
		t.Fatalf("synthesized %d chunks, want 5", len(calls))
	} else {
		for i, idx := range calls {
			if idx != i {
				t.Fatalf("single worker pulled chunks out of order: %v", calls)
			}
		}
	}
}

func TestRunDegradedChunkStillDelivered(t *testing.T) {
	fake := &fakeSynth{results: map[int]synth.Result{1: degradedResult(1)}}
	chunks := makeChunks(4)
	rec := newStateRecorder()
	var delivered []int
	coord, err := New(fake, Options{
		Workers: 2,
		Deliver: func(chunk book.ChunkPlan, result synth.Result) error {
			delivered = append(delivered, chunk.Index)
			return nil
		},
		OnState: rec.record,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	summary, err := coord.Run(context.Background(), chunks)
	if err != nil {
		t.Fatalf("degraded chunk must not abort the job: %v", err)
	}
	if summary.State != JobCompleted || summary.Delivered != 4 {
		t.Fatalf("summary = %+v, want full completion", summary)
	}
	if len(summary.FailedChunks) != 1 || summary.FailedChunks[0] != 1 {
		t.Fatalf("FailedChunks = %v, want [1]", summary.FailedChunks)
	}
	if len(delivered) != 4 {
		t.Fatalf("delivered %v, want all four chunks", delivered)
	}
	seq := rec.sequence(1)
	if len(seq) == 0 || seq[len(seq)-1] != ChunkExhausted {
		t.Fatalf("degraded chunk states = %v, want terminal exhausted", seq)
	}
	seq = rec.sequence(0)
	if len(seq) == 0 || seq[len(seq)-1] != ChunkDelivered {
		t.Fatalf("clean chunk states = %v, want terminal delivered", seq)
	}
}

func TestRunCancelObservedAtDispatchBoundary(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Cancel while chunk 3 is in flight; the pause keeps the worker busy
	// long enough for the dispatcher to observe the cancellation before
	// chunk 4 could be handed out.
	fake := &fakeSynth{hook: func(chunkIndex int) {
		if chunkIndex == 3 {
			cancel()
			time.Sleep(30 * time.Millisecond)
		}
	}}
	chunks := makeChunks(6)
	var delivered []int
	coord, err := New(fake, Options{
		Workers: 1,
		Deliver: func(chunk book.ChunkPlan, result synth.Result) error {
			delivered = append(delivered, chunk.Index)
			return nil
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	summary, err := coord.Run(ctx, chunks)
	if err != nil {
		t.Fatalf("cancellation must not surface as an error: %v", err)
	}
	if summary.State != JobCancelled {
		t.Fatalf("summary = %+v, want cancelled", summary)
	}
	want := []int{0, 1, 2, 3}
	if len(delivered) != len(want) {
		t.Fatalf("delivered %v, want the in-flight chunk included: %v", delivered, want)
	}
	for i, idx := range delivered {
		if idx != want[i] {
			t.Fatalf("delivered %v, want %v", delivered, want)
		}
	}
	if calls := fake.callOrder(); len(calls) != 4 {
		t.Fatalf("synthesized %v; chunks after the cancel boundary must not dispatch", calls)
	}
}

func TestRunFatalSynthesizerError(t *testing.T) {
	fake := &fakeSynth{errs: map[int]error{2: errors.New("engine exited: signal: killed")}}
	chunks := makeChunks(5)
	var delivered []int
	coord, err := New(fake, Options{
		Workers: 1,
		Deliver: func(chunk book.ChunkPlan, result synth.Result) error {
			delivered = append(delivered, chunk.Index)
			return nil
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	summary, err := coord.Run(context.Background(), chunks)
	if err == nil {
		t.Fatal("engine death must abort the job")
	}
	if !strings.Contains(err.Error(), "chunk 2") {
		t.Fatalf("error %q does not name the failing chunk", err)
	}
	if summary.State == JobCompleted {
		t.Fatalf("summary = %+v after fatal error", summary)
	}
	if len(delivered) != 2 || delivered[0] != 0 || delivered[1] != 1 {
		t.Fatalf("delivered %v, want the prefix before the failure", delivered)
	}
}

func TestRunFatalDeliverError(t *testing.T) {
	fake := &fakeSynth{}
	chunks := makeChunks(4)
	var delivered []int
	coord, err := New(fake, Options{
		Workers: 1,
		Deliver: func(chunk book.ChunkPlan, result synth.Result) error {
			if chunk.Index == 1 {
				return errors.New("sink full")
			}
			delivered = append(delivered, chunk.Index)
			return nil
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	summary, err := coord.Run(context.Background(), chunks)
	if err == nil {
		t.Fatal("delivery failure must abort the job")
	}
	if !strings.Contains(err.Error(), "deliver chunk 1") {
		t.Fatalf("error %q does not name the delivery failure", err)
	}
	if summary.Delivered != 1 || len(delivered) != 1 || delivered[0] != 0 {
		t.Fatalf("delivered %v (count %d), want only chunk 0", delivered, summary.Delivered)
	}
}

func TestRunEmitsStateTransitions(t *testing.T) {
	fake := &fakeSynth{results: map[int]synth.Result{2: degradedResult(2)}}
	chunks := makeChunks(3)
	rec := newStateRecorder()
	coord, err := New(fake, Options{
		Workers: 2,
		Deliver: func(book.ChunkPlan, synth.Result) error { return nil },
		OnState: rec.record,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := coord.Run(context.Background(), chunks); err != nil {
		t.Fatalf("Run: %v", err)
	}

	for idx := 0; idx < 3; idx++ {
		terminal := ChunkDelivered
		if idx == 2 {
			terminal = ChunkExhausted
		}
		want := []ChunkState{ChunkQueued, ChunkAttempting, terminal}
		got := rec.sequence(idx)
		if len(got) != len(want) {
			t.Fatalf("chunk %d states = %v, want %v", idx, got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("chunk %d states = %v, want %v", idx, got, want)
			}
		}
	}
	rec.mu.Lock()
	attempts := rec.last[2]
	rec.mu.Unlock()
	if attempts != 3 {
		t.Fatalf("exhausted chunk reported %d attempts, want 3", attempts)
	}
}
