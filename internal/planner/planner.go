package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"lector/internal/book"
	"lector/internal/chunker"
	"lector/internal/config"
	"lector/internal/logging"
	"lector/internal/notifications"
	"lector/internal/queue"
	"lector/internal/services"
	"lector/internal/stage"
	"lector/internal/voice"
)

// Planner is the stage handler that turns a book source into a chunk plan.
type Planner struct {
	store    *queue.Store
	cfg      *config.Config
	logger   *slog.Logger
	notifier notifications.Service
}

// NewPlanner creates a new stage handler.
func NewPlanner(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Planner {
	return NewPlannerWithNotifier(cfg, store, logger, notifications.NewService(cfg))
}

// NewPlannerWithNotifier allows injecting the notification service (used in tests).
func NewPlannerWithNotifier(cfg *config.Config, store *queue.Store, logger *slog.Logger, notifier notifications.Service) *Planner {
	return &Planner{
		store:    store,
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "planner"),
		notifier: notifier,
	}
}

// SetLogger updates the stage logger, matching the workflow manager contract.
func (p *Planner) SetLogger(logger *slog.Logger) {
	if p == nil {
		return
	}
	p.logger = logging.NewComponentLogger(logger, "planner")
}

// Prepare initializes progress messaging prior to Execute.
func (p *Planner) Prepare(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, p.logger)
	if item.ProgressStage == "" {
		item.ProgressStage = "Planning"
	}
	item.ProgressMessage = "Loading book"
	item.ProgressPercent = 0

	logger.Info(
		"starting book planning",
		logging.String("source_path", strings.TrimSpace(item.SourcePath)),
	)
	return nil
}

// Execute loads the source file, chunks each chapter, and stores the plan.
func (p *Planner) Execute(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, p.logger)

	source := strings.TrimSpace(item.SourcePath)
	if source == "" {
		return services.Wrap(services.ErrValidation, "planning", "locate source", "Queue item has no source file", nil)
	}
	if _, err := os.Stat(source); err != nil {
		return services.Wrap(services.ErrNotFound, "planning", "locate source", "Book source file is missing", err)
	}

	parsed, err := book.Load(source)
	if err != nil {
		return services.Wrap(services.ErrValidation, "planning", "load book", "Could not parse the book source", err)
	}

	// Embedded book metadata beats the filename-derived placeholder the
	// queue assigned at intake.
	if title := strings.TrimSpace(parsed.Title); title != "" {
		item.Title = title
	}
	if author := strings.TrimSpace(parsed.Author); author != "" {
		item.Author = author
	}

	requested := strings.TrimSpace(item.Voice)
	if requested == "" {
		requested = strings.TrimSpace(p.cfg.Synthesis.Voice)
	}
	description := voice.Resolve(requested)
	if description == "" {
		return services.Wrap(services.ErrConfiguration, "planning", "resolve voice", "No narrator voice configured", nil)
	}

	p.persistMetadata(item, parsed, requested)

	plan, err := p.buildPlan(ctx, item, parsed, description)
	if err != nil {
		return err
	}

	encoded, err := plan.Encode()
	if err != nil {
		return services.Wrap(services.ErrValidation, "planning", "encode plan", "Failed to serialize the chunk plan", err)
	}
	item.PlanJSON = encoded

	chunkCount := plan.ChunkCount()
	item.SetProgressComplete("Planned", fmt.Sprintf("Planned %d chunks across %d chapters", chunkCount, len(plan.Chapters)))

	logger.Info(
		"book planned",
		logging.String(logging.FieldBookTitle, item.Title),
		logging.String(logging.FieldVoice, requested),
		logging.Int("chapters", len(plan.Chapters)),
		logging.Int("chunks", chunkCount),
		logging.Int("words", plan.WordCount()),
	)

	if p.notifier != nil {
		if err := p.notifier.Publish(ctx, notifications.EventPlanCompleted, notifications.Payload{
			"title":    item.Title,
			"chapters": strconv.Itoa(len(plan.Chapters)),
			"chunks":   strconv.Itoa(chunkCount),
		}); err != nil {
			logger.Warn("plan notification failed", logging.Error(err))
		}
	}
	return nil
}

// persistMetadata merges what the book revealed into the item's shelving
// metadata. Existing values win so user-supplied series overrides survive a
// replan.
func (p *Planner) persistMetadata(item *queue.Item, parsed *book.Book, voiceName string) {
	meta := queue.MetadataFromJSON(item.MetadataJSON, item.Title)
	if strings.TrimSpace(meta.TitleValue) == "" {
		meta.TitleValue = item.Title
	}
	if strings.TrimSpace(meta.AuthorValue) == "" {
		meta.AuthorValue = item.Author
	}
	if strings.TrimSpace(meta.Language) == "" {
		meta.Language = strings.TrimSpace(parsed.Language)
	}
	if strings.TrimSpace(meta.Narrator) == "" {
		meta.Narrator = voiceName
	}
	if strings.TrimSpace(meta.SeriesTitle) == "" && strings.TrimSpace(parsed.Series) != "" {
		meta.SeriesTitle = strings.TrimSpace(parsed.Series)
		meta.SeriesIndex = parsed.SeriesIndex
	}
	encoded, err := json.Marshal(meta)
	if err != nil {
		return
	}
	item.MetadataJSON = string(encoded)
}

// buildPlan chunks every chapter and assigns global chunk indices in reading
// order. Chapters that contain no narratable text are dropped; chapter indices
// keep their original one-based positions so timelines stay traceable to the
// source book.
func (p *Planner) buildPlan(ctx context.Context, item *queue.Item, parsed *book.Book, description string) (book.Plan, error) {
	plan := book.Plan{
		Version:  book.PlanVersion,
		Title:    item.Title,
		Author:   item.Author,
		Language: parsed.Language,
		Voice:    description,
		MaxWords: p.cfg.Chunking.MaxWords,
		MaxChars: p.cfg.Chunking.MaxChars,
	}

	next := 0
	for i, chapter := range parsed.Chapters {
		if err := ctx.Err(); err != nil {
			return book.Plan{}, err
		}
		chunks := chunker.Split(chapter.Text, plan.MaxWords, plan.MaxChars)
		if len(chunks) == 0 {
			continue
		}
		chapterPlan := book.ChapterPlan{
			Index: i + 1,
			Title: strings.TrimSpace(chapter.Title),
		}
		for _, chunk := range chunks {
			chapterPlan.Chunks = append(chapterPlan.Chunks, book.ChunkPlan{
				Index: next,
				Text:  chunk.Text,
				Words: chunk.Words,
				Chars: chunk.Chars,
			})
			next++
		}
		plan.Chapters = append(plan.Chapters, chapterPlan)
		item.ProgressPercent = float64(i+1) / float64(len(parsed.Chapters)) * 100
		item.ProgressMessage = fmt.Sprintf("Chunked chapter %d of %d", i+1, len(parsed.Chapters))
	}

	if len(plan.Chapters) == 0 {
		return book.Plan{}, services.Wrap(services.ErrValidation, "planning", "chunk book", "Book contains no narratable text", nil)
	}
	return plan, nil
}

// HealthCheck reports readiness of the planning stage.
func (p *Planner) HealthCheck(ctx context.Context) stage.Health {
	const name = "planner"
	if p.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	if strings.TrimSpace(voice.Resolve(p.cfg.Synthesis.Voice)) == "" {
		return stage.Unhealthy(name, "no narrator voice configured")
	}
	return stage.Healthy(name)
}
