package api

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"lector/internal/book"
	"lector/internal/config"
	"lector/internal/export"
	"lector/internal/fileutil"
	"lector/internal/logging"
	"lector/internal/notifications"
	"lector/internal/organizer"
	"lector/internal/planner"
	"lector/internal/queue"
	"lector/internal/services"
	"lector/internal/stageexec"
	"lector/internal/synthesis"
)

type PlanBookRequest struct {
	Config     *config.Config
	SourcePath string
	Voice      string
	Logger     *slog.Logger
}

type PlanBookResult struct {
	SourcePath string
	Item       *queue.Item
	Plan       book.Plan
}

type PlanBookAssessment struct {
	Title           string
	Author          string
	Series          string
	Narrator        string
	MetadataPresent bool
	LibraryFilename string
	ReviewRequired  bool
	ReviewReason    string
	Outcome         string
	OutcomeMessage  string
}

// AssessPlanBook derives CLI-facing planning outcomes from queue state.
func AssessPlanBook(item *queue.Item) PlanBookAssessment {
	if item == nil {
		return PlanBookAssessment{
			Title:          "Unknown",
			Author:         "Unknown",
			Outcome:        "failed",
			OutcomeMessage: "❌ Planning failed. Check the logs above for details.",
		}
	}

	meta := parseMetadataFields(item.MetadataJSON)
	assessment := PlanBookAssessment{
		Title:           meta.title,
		Author:          meta.author,
		Series:          meta.series,
		Narrator:        meta.narrator,
		MetadataPresent: strings.TrimSpace(item.MetadataJSON) != "",
		ReviewRequired:  item.NeedsReview,
		ReviewReason:    strings.TrimSpace(item.ReviewReason),
	}
	if meta.filename != "" {
		assessment.LibraryFilename = meta.filename + ".m4b"
	} else if assessment.Title != "Unknown" {
		assessment.LibraryFilename = assessment.Title + ".m4b"
	}

	switch {
	case assessment.MetadataPresent && !assessment.ReviewRequired:
		assessment.Outcome = "success"
		assessment.OutcomeMessage = "📖 Planning successful! Book would proceed to synthesis."
	case assessment.ReviewRequired:
		assessment.Outcome = "review"
		assessment.OutcomeMessage = "⚠️  Planning requires manual review. Check the logs above for details."
	default:
		assessment.Outcome = "failed"
		assessment.OutcomeMessage = "❌ Planning failed. Check the logs above for details."
	}

	return assessment
}

// PlanBook loads and chunks a book without touching the queue database. It
// backs the chunk-preview CLI command: the returned plan carries every
// chapter and chunk boundary the synthesizer would see.
func PlanBook(ctx context.Context, req PlanBookRequest) (PlanBookResult, error) {
	cfg := req.Config
	if cfg == nil {
		return PlanBookResult{}, fmt.Errorf("configuration is required")
	}
	logger := req.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	source, err := resolveBookSource(req.SourcePath)
	if err != nil {
		return PlanBookResult{}, err
	}

	item := &queue.Item{
		SourcePath: source,
		Title:      strings.TrimSuffix(filepath.Base(source), filepath.Ext(source)),
		Voice:      strings.TrimSpace(req.Voice),
		Status:     queue.StatusPending,
	}

	handler := planner.NewPlannerWithNotifier(cfg, nil, logger, nil)
	if err := handler.Prepare(ctx, item); err != nil {
		return PlanBookResult{}, fmt.Errorf("prepare planning: %w", err)
	}
	if err := handler.Execute(ctx, item); err != nil {
		return PlanBookResult{}, fmt.Errorf("execute planning: %w", err)
	}

	plan, err := book.ParsePlan(item.PlanJSON)
	if err != nil {
		return PlanBookResult{}, fmt.Errorf("parse generated plan: %w", err)
	}

	return PlanBookResult{
		SourcePath: source,
		Item:       item,
		Plan:       plan,
	}, nil
}

type SynthesizeBookRequest struct {
	Config         *config.Config
	SourcePath     string
	Voice          string
	AllowDuplicate bool
	Logger         *slog.Logger
}

type SynthesizeBookResult struct {
	ItemID          int64
	Title           string
	Author          string
	FinalFile       string
	ReviewRequired  bool
	ReviewReason    string
	Degraded        bool
	DurationSeconds float64
}

// SynthesizeBook narrates a single book end to end: plan, synthesize, export,
// organize. It drives the same stage handlers the daemon runs, against the
// shared queue database, so it is intended for use without a running daemon.
func SynthesizeBook(ctx context.Context, req SynthesizeBookRequest) (SynthesizeBookResult, error) {
	cfg := req.Config
	if cfg == nil {
		return SynthesizeBookResult{}, fmt.Errorf("configuration is required")
	}
	logger := req.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	source, err := resolveBookSource(req.SourcePath)
	if err != nil {
		return SynthesizeBookResult{}, err
	}

	fingerprint, err := fileutil.Fingerprint(source)
	if err != nil {
		return SynthesizeBookResult{}, fmt.Errorf("fingerprint book: %w", err)
	}

	store, err := queue.Open(cfg)
	if err != nil {
		return SynthesizeBookResult{}, fmt.Errorf("open queue store: %w", err)
	}
	defer store.Close()

	if existing, err := store.FindByFingerprint(ctx, fingerprint); err != nil {
		return SynthesizeBookResult{}, fmt.Errorf("check existing queue item: %w", err)
	} else if existing != nil && !req.AllowDuplicate {
		return SynthesizeBookResult{}, fmt.Errorf("book already queued as item %d (status %s); use --allow-duplicate to narrate it again", existing.ID, existing.Status)
	}

	item, err := store.NewBook(ctx, source, fingerprint, strings.TrimSpace(req.Voice))
	if err != nil {
		return SynthesizeBookResult{}, fmt.Errorf("create queue item: %w", err)
	}
	baseCtx := services.WithItemID(ctx, item.ID)

	notifier := notifications.NewService(cfg)
	stages := []struct {
		name       string
		handler    stageexec.Handler
		processing queue.Status
		done       queue.Status
	}{
		{"planner", planner.NewPlannerWithNotifier(cfg, store, logger, notifier), queue.StatusPlanning, queue.StatusPlanned},
		{"synthesizer", synthesis.NewSynthesizer(cfg, store, logger), queue.StatusSynthesizing, queue.StatusSynthesized},
		{"exporter", export.NewExporterWithNotifier(cfg, store, logger, notifier), queue.StatusExporting, queue.StatusExported},
		{"organizer", organizer.NewOrganizerWithNotifier(cfg, store, logger, notifier), queue.StatusOrganizing, queue.StatusCompleted},
	}

	for _, stg := range stages {
		if err := stageexec.Run(baseCtx, stageexec.Options{
			Logger:     logger,
			Store:      store,
			Notifier:   notifier,
			Handler:    stg.handler,
			StageName:  stg.name,
			Processing: stg.processing,
			Done:       stg.done,
			Item:       item,
		}); err != nil {
			return SynthesizeBookResult{}, err
		}
		if item.Status == queue.StatusFailed {
			return SynthesizeBookResult{}, fmt.Errorf("%s failed: %s", stg.name, strings.TrimSpace(item.ErrorMessage))
		}
		if item.Status == queue.StatusReview {
			// The organizer parks degraded narrations for review with the
			// audio already rendered; that is a result, not an error.
			if stg.name == "organizer" {
				break
			}
			return SynthesizeBookResult{}, fmt.Errorf("%s requires review: %s", stg.name, strings.TrimSpace(item.ReviewReason))
		}
	}

	result := SynthesizeBookResult{
		ItemID:         item.ID,
		Title:          item.Title,
		Author:         item.Author,
		FinalFile:      item.FinalFile,
		ReviewRequired: item.NeedsReview,
		ReviewReason:   strings.TrimSpace(item.ReviewReason),
	}
	if rep, ok := parseReportJSON(item.ReportJSON); ok {
		result.Degraded = rep.Degraded()
		result.DurationSeconds = rep.TotalDurationS
	}
	return result, nil
}

func resolveBookSource(path string) (string, error) {
	source := strings.TrimSpace(path)
	if source == "" {
		return "", fmt.Errorf("book file path is required")
	}
	source, _ = filepath.Abs(source)
	info, err := os.Stat(source)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("book file %q not found", source)
		}
		return "", fmt.Errorf("stat book file: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("book path %q is a directory", source)
	}
	if !book.SupportedExtension(source) {
		return "", fmt.Errorf("unsupported book format %q (expected .epub, .txt, or .md)", filepath.Ext(source))
	}
	return source, nil
}
