package synthesis

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"lector/internal/assemble"
	"lector/internal/book"
	"lector/internal/export"
	"lector/internal/logging"
	"lector/internal/notifications"
	"lector/internal/pipeline"
	"lector/internal/queue"
	"lector/internal/report"
	"lector/internal/services"
	"lector/internal/stage"
	"lector/internal/synth"
)

const progressPersistInterval = 2 * time.Second

// Execute narrates every planned chunk and records the synthesis report.
func (s *Synthesizer) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, s.logger)
	stageStart := time.Now()

	plan, err := stage.ParsePlan(item.PlanJSON)
	if err != nil {
		return err
	}
	chunks := plan.AllChunks()
	if len(chunks) == 0 {
		return services.Wrap(
			services.ErrValidation,
			"synthesis",
			"validate plan",
			"Chunk plan contains no narratable chunks",
			nil,
		)
	}

	stagingRoot := item.StagingRoot(s.cfg.Paths.StagingDir)
	if stagingRoot == "" {
		stagingRoot = filepath.Join(strings.TrimSpace(s.cfg.Paths.StagingDir), fmt.Sprintf("queue-%d", item.ID))
	}
	audioDir := filepath.Join(stagingRoot, "audio")
	if err := os.RemoveAll(audioDir); err != nil {
		return services.Wrap(
			services.ErrTransient,
			"synthesis",
			"clean audio dir",
			"Failed to clear previous narration artifacts",
			err,
		)
	}
	if err := os.MkdirAll(audioDir, 0o755); err != nil {
		return services.Wrap(
			services.ErrConfiguration,
			"synthesis",
			"ensure audio dir",
			"Failed to create narration directory; set staging_dir to a writable path",
			err,
		)
	}

	if s.notifier != nil {
		if err := s.notifier.Publish(ctx, notifications.EventSynthesisStarted, notifications.Payload{
			"title":  item.Title,
			"chunks": strconv.Itoa(len(chunks)),
		}); err != nil {
			logger.Debug("synthesis start notification failed", logging.Error(err))
		}
	}

	logger.Info("starting speech engine", logging.String("binary", s.cfg.EngineBinary()))
	session, err := s.launch(ctx)
	if err != nil {
		return services.Wrap(
			services.ErrExternalTool,
			"synthesis",
			"start engine",
			"Speech engine failed to start; check engine.binary and engine.model_dir in config",
			err,
		)
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.Debug("engine shutdown", logging.Error(err))
		}
	}()

	info := session.Info()
	sampleRate := s.cfg.Engine.SampleRate
	if sampleRate <= 0 {
		sampleRate = info.SampleRate
	}
	if sampleRate <= 0 {
		return services.Wrap(
			services.ErrExternalTool,
			"synthesis",
			"resolve sample rate",
			"Engine did not report a sample rate and none is configured",
			nil,
		)
	}

	workers := pipeline.WorkerCount(s.cfg.Synthesis.Workers, info.ConcurrencySafe)
	logger.Info(
		"engine ready",
		logging.String("model", info.Model),
		logging.Int("sample_rate", sampleRate),
		logging.Bool("concurrency_safe", info.ConcurrencySafe),
		logging.Int("workers", workers),
	)

	chunkSynth, err := synth.New(session, session, synth.Options{
		Voice:             plan.Voice,
		MaxAttempts:       s.cfg.Synthesis.MaxAttempts,
		MinRMS:            s.cfg.Synthesis.MinRMS,
		Temperature:       s.cfg.Synthesis.Temperature,
		TopP:              s.cfg.Synthesis.TopP,
		RepetitionPenalty: s.cfg.Synthesis.RepetitionPenalty,
		MaxTokens:         s.cfg.Synthesis.MaxTokens,
		TokenBase:         s.cfg.Engine.TokenBase,
		AlphabetSize:      s.cfg.Engine.AlphabetSize,
	}, logger)
	if err != nil {
		return services.Wrap(
			services.ErrExternalTool,
			"synthesis",
			"configure engine",
			"Speech engine lacks required capabilities",
			err,
		)
	}

	spoolPath := filepath.Join(audioDir, export.SpoolName)
	spool, err := export.CreateSpool(spoolPath)
	if err != nil {
		return services.Wrap(
			services.ErrTransient,
			"synthesis",
			"create spool",
			"Failed to create narration spool file",
			err,
		)
	}
	defer spool.Close()

	asm, err := assemble.New(spool, assemble.Options{
		SampleRate:        sampleRate,
		ChunkGapSeconds:   s.cfg.Export.ChunkGapSeconds,
		ChapterGapSeconds: s.cfg.Export.ChapterGapSeconds,
	}, logger)
	if err != nil {
		return services.Wrap(
			services.ErrConfiguration,
			"synthesis",
			"configure assembler",
			"Invalid sample rate or gap settings",
			err,
		)
	}

	summary, err := s.narrate(ctx, item, plan, chunks, chunkSynth, asm, workers, logger)
	if err != nil {
		if tail := strings.TrimSpace(session.StderrTail()); tail != "" {
			logger.Error("engine stderr tail", logging.String("stderr", tail))
		}
		return err
	}
	if summary.State == pipeline.JobCancelled {
		if err := ctx.Err(); err != nil {
			return err
		}
		return services.Wrap(
			services.ErrTransient,
			"synthesis",
			"narrate",
			"Narration stopped before completing",
			nil,
		)
	}

	timelines, totalS, err := asm.Finalize()
	if err != nil {
		return services.Wrap(
			services.ErrTransient,
			"synthesis",
			"finalize spool",
			"Failed to finalize narration audio",
			err,
		)
	}

	rep := report.Report{
		Version:        report.Version,
		Voice:          plan.Voice,
		Model:          info.Model,
		SampleRate:     sampleRate,
		SpoolPath:      spoolPath,
		TotalDurationS: totalS,
		Chapters:       timelines,
		FailedChunks:   summary.FailedChunks,
		ChunkCount:     len(chunks),
		Workers:        workers,
		SynthesisS:     time.Since(stageStart).Seconds(),
	}
	encoded, err := rep.Encode()
	if err != nil {
		return services.Wrap(
			services.ErrTransient,
			"synthesis",
			"encode report",
			"Failed to serialize the synthesis report",
			err,
		)
	}
	item.ReportJSON = encoded

	item.ProgressStage = "Synthesized"
	item.ProgressPercent = 100
	message := fmt.Sprintf("Narrated %d chunks (%s of audio)", len(chunks), formatAudioDuration(totalS))
	if len(summary.FailedChunks) > 0 {
		message = fmt.Sprintf("%s, %d degraded", message, len(summary.FailedChunks))
	}
	item.ProgressMessage = message

	logger.Info(
		"narration complete",
		logging.String(logging.FieldBookTitle, item.Title),
		logging.Int("chunks", len(chunks)),
		logging.Int("degraded_chunks", len(summary.FailedChunks)),
		logging.Float64("audio_seconds", totalS),
		logging.Duration("elapsed", time.Since(stageStart)),
		logging.Float64("realtime_factor", rep.RealtimeFactor()),
	)

	if s.notifier != nil {
		if err := s.notifier.Publish(ctx, notifications.EventSynthesisCompleted, notifications.Payload{
			"title":    item.Title,
			"chunks":   strconv.Itoa(len(chunks)),
			"degraded": strconv.Itoa(len(summary.FailedChunks)),
		}); err != nil {
			logger.Debug("synthesis notification failed", logging.Error(err))
		}
	}
	return nil
}

// narrate wires the chunk synthesizer, ordered delivery into the
// assembler, and progress persistence, then runs the pipeline.
func (s *Synthesizer) narrate(ctx context.Context, item *queue.Item, plan book.Plan, chunks []book.ChunkPlan, chunkSynth *synth.Synthesizer, asm *assemble.Assembler, workers int, logger *slog.Logger) (pipeline.Summary, error) {
	chapters := make(map[int]*book.ChapterPlan, len(chunks))
	for i := range plan.Chapters {
		chapter := &plan.Chapters[i]
		for _, chunk := range chapter.Chunks {
			chapters[chunk.Index] = chapter
		}
	}

	deliver := func(chunk book.ChunkPlan, result synth.Result) error {
		chapter := chapters[chunk.Index]
		if chapter == nil {
			return fmt.Errorf("chunk %d missing from chapter plan", chunk.Index)
		}
		return asm.Deliver(chapter.Index, chapter.Title, result)
	}

	var lastPersisted time.Time
	sampler := logging.NewProgressSampler(5)
	progress := func(completed, total int, preview string) {
		percent := float64(completed) / float64(total) * 100
		copy := *item
		copy.ProgressPercent = percent
		copy.ProgressMessage = fmt.Sprintf("Narrated %d/%d chunks", completed, total)
		if sampler.ShouldLog(percent, copy.ProgressStage, copy.ProgressMessage) {
			logger.Info(
				"narration progress",
				logging.Float64(logging.FieldProgressPercent, percent),
				logging.Int("chunks_done", completed),
				logging.Int("chunks_total", total),
				logging.String("preview", preview),
			)
		}
		now := time.Now()
		if completed < total && !lastPersisted.IsZero() && now.Sub(lastPersisted) < progressPersistInterval {
			*item = copy
			return
		}
		lastPersisted = now
		if s.store != nil {
			if err := s.store.UpdateProgress(ctx, &copy); err != nil {
				logger.Warn("failed to persist narration progress", logging.Error(err))
			}
		}
		*item = copy
	}

	onState := func(chunkIndex int, state pipeline.ChunkState, attempts int) {
		switch state {
		case pipeline.ChunkExhausted:
			logger.Warn(
				"chunk kept with degraded audio",
				logging.Int(logging.FieldChunk, chunkIndex),
				logging.Int("attempts", attempts),
			)
		case pipeline.ChunkDelivered:
			if attempts > 1 {
				logger.Info(
					"chunk recovered after retry",
					logging.Int(logging.FieldChunk, chunkIndex),
					logging.Int("attempts", attempts),
				)
			}
		}
	}

	coordinator, err := pipeline.New(chunkSynth, pipeline.Options{
		Workers:  workers,
		Deliver:  deliver,
		Progress: progress,
		OnState:  onState,
		Logger:   logger,
	})
	if err != nil {
		return pipeline.Summary{}, services.Wrap(
			services.ErrConfiguration,
			"synthesis",
			"configure pipeline",
			"Invalid synthesis pipeline options",
			err,
		)
	}
	summary, err := coordinator.Run(ctx, chunks)
	if err != nil {
		return summary, services.Wrap(
			services.ErrExternalTool,
			"synthesis",
			"narrate",
			"Speech engine failed during narration",
			err,
		)
	}
	return summary, nil
}

// formatAudioDuration renders whole seconds of audio as a compact
// duration like "1h12m5s".
func formatAudioDuration(seconds float64) string {
	d := time.Duration(seconds * float64(time.Second))
	return d.Round(time.Second).String()
}
