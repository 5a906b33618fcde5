package synthesis_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"lector/internal/book"
	"lector/internal/export"
	"lector/internal/notifications"
	"lector/internal/report"
	"lector/internal/services"
	"lector/internal/services/maya"
	"lector/internal/snac"
	"lector/internal/synthesis"
	"lector/internal/testsupport"
)

// Engine output is trimmed of its warm-up transient before assembly, so
// each decoded wave must be longer than that trim to contribute audio.
const (
	warmupSamples = 2048
	keptSamples   = 1200
)

type fakeSession struct {
	info   maya.Info
	tokens []int

	mu            sync.Mutex
	generates     int
	resets        int
	inFlight      int
	maxInFlight   int
	closed        bool
	degradedMarks int
}

func (f *fakeSession) Info() maya.Info { return f.info }

func (f *fakeSession) Generate(_ context.Context, req maya.GenerateRequest) ([]int, error) {
	f.mu.Lock()
	f.generates++
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	degraded := strings.Contains(req.Prompt, "mumbles")
	if degraded {
		f.degradedMarks++
	}
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()

	if degraded {
		// Tokens below the audio range unpack to nothing.
		return []int{1, 2, 3}, nil
	}
	return append([]int(nil), f.tokens...), nil
}

func (f *fakeSession) Reset(context.Context) error {
	f.mu.Lock()
	f.resets++
	f.mu.Unlock()
	return nil
}

func (f *fakeSession) Decode(_ context.Context, _ snac.Code) ([]float32, int, error) {
	wave := make([]float32, warmupSamples+keptSamples)
	for i := range wave {
		wave[i] = 0.5
	}
	return wave, f.info.SampleRate, nil
}

func (f *fakeSession) Ping(context.Context) error { return nil }

func (f *fakeSession) StderrTail() string { return "" }

func (f *fakeSession) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func newFakeSession(t *testing.T, concurrencySafe bool) *fakeSession {
	t.Helper()
	info := maya.Info{
		Model:              "maya1",
		SampleRate:         24000,
		TokenBase:          128266,
		AlphabetSize:       4096,
		ConcurrencySafe:    concurrencySafe,
		SupportsStateReset: true,
	}
	tokens, err := snac.Pack(snac.Code{L1: []int{1}, L2: []int{2, 3}, L3: []int{4, 5, 6, 7}}, info.TokenBase, info.AlphabetSize)
	if err != nil {
		t.Fatalf("snac.Pack: %v", err)
	}
	return &fakeSession{info: info, tokens: tokens}
}

type recordingNotifier struct {
	mu       sync.Mutex
	events   []notifications.Event
	payloads []notifications.Payload
}

func (r *recordingNotifier) Publish(_ context.Context, event notifications.Event, payload notifications.Payload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	r.payloads = append(r.payloads, payload)
	return nil
}

func testPlan(t *testing.T, secondChunkText string) string {
	t.Helper()
	plan := book.Plan{
		Version:  book.PlanVersion,
		Title:    "Test Book",
		Voice:    "calm narrator",
		MaxWords: 70,
		MaxChars: 350,
		Chapters: []book.ChapterPlan{
			{Index: 1, Title: "One", Chunks: []book.ChunkPlan{
				{Index: 0, Text: "First chunk speaks plainly.", Words: 4, Chars: 27},
				{Index: 1, Text: secondChunkText, Words: 4, Chars: len(secondChunkText)},
			}},
			{Index: 2, Title: "Two", Chunks: []book.ChunkPlan{
				{Index: 2, Text: "Third chunk closes the book.", Words: 5, Chars: 28},
			}},
		},
	}
	raw, err := plan.Encode()
	if err != nil {
		t.Fatalf("plan.Encode: %v", err)
	}
	return raw
}

func TestExecuteProducesReportAndSpool(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithVoice("calm narrator"), testsupport.WithWorkers(2))
	cfg.Export.ChunkGapSeconds = 0.25
	cfg.Export.ChapterGapSeconds = 2.0
	store := testsupport.MustOpenStore(t, cfg)
	item := testsupport.NewBook(t, store, "/inbox/test-book.txt", "fp-narrate-1")
	item.PlanJSON = testPlan(t, "Second chunk continues calmly.")

	session := newFakeSession(t, true)
	notifier := &recordingNotifier{}
	handler := synthesis.NewSynthesizerWithDependencies(cfg, store, nil, func(context.Context) (synthesis.EngineSession, error) {
		return session, nil
	}, notifier)

	ctx := context.Background()
	if err := handler.Prepare(ctx, item); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	if err := handler.Execute(ctx, item); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	rep, err := report.Parse(item.ReportJSON)
	if err != nil {
		t.Fatalf("report.Parse failed: %v", err)
	}
	if rep.SampleRate != 24000 || rep.ChunkCount != 3 || rep.Workers != 2 {
		t.Fatalf("unexpected report header: %+v", rep)
	}
	if rep.Degraded() {
		t.Fatalf("expected clean narration, got failed chunks %v", rep.FailedChunks)
	}
	if len(rep.Chapters) != 2 {
		t.Fatalf("expected 2 chapter timelines, got %d", len(rep.Chapters))
	}
	if rep.Chapters[1].StartS != rep.Chapters[0].EndS {
		t.Fatalf("chapter timelines are not contiguous: %+v", rep.Chapters)
	}

	// Two kept chunks plus one inter-chunk gap plus the chapter gap in
	// chapter one, one kept chunk in chapter two.
	expectSamples := int64(keptSamples + 6000 + keptSamples + 48000 + keptSamples)
	got, err := export.SpoolSamples(rep.SpoolPath)
	if err != nil {
		t.Fatalf("SpoolSamples failed: %v", err)
	}
	if got != expectSamples {
		t.Fatalf("expected %d spool samples, got %d", expectSamples, got)
	}
	if want := float64(expectSamples) / float64(24000); rep.TotalDurationS != want {
		t.Fatalf("expected total duration %v, got %v", want, rep.TotalDurationS)
	}

	if item.ProgressStage != "Synthesized" || item.ProgressPercent != 100 {
		t.Fatalf("unexpected final progress: %q at %.0f%%", item.ProgressStage, item.ProgressPercent)
	}
	if session.resets != 3 || session.generates != 3 {
		t.Fatalf("expected one reset+generate per chunk, got %d resets %d generates", session.resets, session.generates)
	}
	if !session.closed {
		t.Fatal("expected the engine session to be closed")
	}

	if len(notifier.events) != 2 ||
		notifier.events[0] != notifications.EventSynthesisStarted ||
		notifier.events[1] != notifications.EventSynthesisCompleted {
		t.Fatalf("unexpected notification sequence: %v", notifier.events)
	}
	if notifier.payloads[1]["degraded"] != "0" {
		t.Fatalf("unexpected completion payload: %v", notifier.payloads[1])
	}
}

func TestExecuteKeepsDegradedChunks(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithVoice("calm narrator"), testsupport.WithWorkers(2))
	cfg.Export.ChunkGapSeconds = 0.25
	cfg.Export.ChapterGapSeconds = 2.0
	cfg.Synthesis.MaxAttempts = 3
	store := testsupport.MustOpenStore(t, cfg)
	item := testsupport.NewBook(t, store, "/inbox/test-book.txt", "fp-narrate-2")
	item.PlanJSON = testPlan(t, "Second chunk mumbles quietly.")

	session := newFakeSession(t, true)
	notifier := &recordingNotifier{}
	handler := synthesis.NewSynthesizerWithDependencies(cfg, store, nil, func(context.Context) (synthesis.EngineSession, error) {
		return session, nil
	}, notifier)

	if err := handler.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	rep, err := report.Parse(item.ReportJSON)
	if err != nil {
		t.Fatalf("report.Parse failed: %v", err)
	}
	if len(rep.FailedChunks) != 1 || rep.FailedChunks[0] != 1 {
		t.Fatalf("expected chunk 1 to be degraded, got %v", rep.FailedChunks)
	}
	if session.degradedMarks != 3 {
		t.Fatalf("expected 3 attempts on the degraded chunk, got %d", session.degradedMarks)
	}

	// The degraded chunk contributes no audio but keeps its slot: gaps
	// still surround it and chapter two still starts after the chapter gap.
	expectSamples := int64(keptSamples + 6000 + 0 + 48000 + keptSamples)
	got, err := export.SpoolSamples(rep.SpoolPath)
	if err != nil {
		t.Fatalf("SpoolSamples failed: %v", err)
	}
	if got != expectSamples {
		t.Fatalf("expected %d spool samples, got %d", expectSamples, got)
	}

	if item.NeedsReview {
		t.Fatal("synthesis should not flag review; organization decides that")
	}
	if notifier.payloads[len(notifier.payloads)-1]["degraded"] != "1" {
		t.Fatalf("expected degraded count in completion payload: %v", notifier.payloads)
	}
}

func TestExecuteRequiresPlan(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	item := testsupport.NewBook(t, store, "/inbox/test-book.txt", "fp-narrate-3")

	handler := synthesis.NewSynthesizerWithDependencies(cfg, store, nil, func(context.Context) (synthesis.EngineSession, error) {
		t.Fatal("engine must not start without a plan")
		return nil, nil
	}, nil)

	err := handler.Execute(context.Background(), item)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestExecuteEngineStartFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	item := testsupport.NewBook(t, store, "/inbox/test-book.txt", "fp-narrate-4")
	item.PlanJSON = testPlan(t, "Second chunk continues calmly.")

	handler := synthesis.NewSynthesizerWithDependencies(cfg, store, nil, func(context.Context) (synthesis.EngineSession, error) {
		return nil, errors.New("model weights missing")
	}, nil)

	err := handler.Execute(context.Background(), item)
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	if item.ReportJSON != "" {
		t.Fatalf("no report should be recorded on failure, got %q", item.ReportJSON)
	}
}

func TestExecuteSerializesUnsafeEngine(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithVoice("calm narrator"), testsupport.WithWorkers(4))
	store := testsupport.MustOpenStore(t, cfg)
	item := testsupport.NewBook(t, store, "/inbox/test-book.txt", "fp-narrate-5")
	item.PlanJSON = testPlan(t, "Second chunk continues calmly.")

	session := newFakeSession(t, false)
	handler := synthesis.NewSynthesizerWithDependencies(cfg, store, nil, func(context.Context) (synthesis.EngineSession, error) {
		return session, nil
	}, nil)

	if err := handler.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	rep, err := report.Parse(item.ReportJSON)
	if err != nil {
		t.Fatalf("report.Parse failed: %v", err)
	}
	if rep.Workers != 1 {
		t.Fatalf("expected a single worker for a concurrency-unsafe engine, got %d", rep.Workers)
	}
	if session.maxInFlight != 1 {
		t.Fatalf("expected serialized generate calls, observed %d in flight", session.maxInFlight)
	}
}
