package synthesis

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"lector/internal/config"
	"lector/internal/logging"
	"lector/internal/notifications"
	"lector/internal/queue"
	"lector/internal/services/maya"
	"lector/internal/stage"
)

// EngineSession is one running speech engine process. *maya.Sidecar is
// the production implementation; tests substitute fakes.
type EngineSession interface {
	maya.Engine
	maya.Decoder
	Ping(ctx context.Context) error
	StderrTail() string
	Close() error
}

// EngineLauncher starts an engine session for one synthesis run.
type EngineLauncher func(ctx context.Context) (EngineSession, error)

// Synthesizer manages narration of planned chunks for queue items.
type Synthesizer struct {
	store    *queue.Store
	cfg      *config.Config
	logger   *slog.Logger
	notifier notifications.Service
	launch   EngineLauncher
}

// NewSynthesizer constructs the synthesis handler backed by the engine
// sidecar configured under [engine].
func NewSynthesizer(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Synthesizer {
	launch := func(ctx context.Context) (EngineSession, error) {
		opts := []maya.Option{maya.WithLogger(logger)}
		if dir := strings.TrimSpace(cfg.Engine.ModelDir); dir != "" {
			opts = append(opts, maya.WithModelDir(dir))
		}
		if cfg.Engine.StartupTimeout > 0 {
			opts = append(opts, maya.WithStartupTimeout(time.Duration(cfg.Engine.StartupTimeout)*time.Second))
		}
		return maya.Start(ctx, cfg.EngineBinary(), opts...)
	}
	return NewSynthesizerWithDependencies(cfg, store, logger, launch, notifications.NewService(cfg))
}

// NewSynthesizerWithDependencies allows injecting the engine launcher and
// notifier (used in tests).
func NewSynthesizerWithDependencies(cfg *config.Config, store *queue.Store, logger *slog.Logger, launch EngineLauncher, notifier notifications.Service) *Synthesizer {
	return &Synthesizer{
		store:    store,
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "synthesizer"),
		notifier: notifier,
		launch:   launch,
	}
}

// SetLogger updates the stage logger, matching the workflow manager contract.
func (s *Synthesizer) SetLogger(logger *slog.Logger) {
	if s == nil {
		return
	}
	s.logger = logging.NewComponentLogger(logger, "synthesizer")
}

// Prepare initializes progress messaging prior to Execute.
func (s *Synthesizer) Prepare(ctx context.Context, item *queue.Item) error {
	logger := logging.WithContext(ctx, s.logger)
	item.InitProgress("Synthesizing", "Starting narration")
	logger.Debug("starting synthesis preparation")
	return nil
}

// HealthCheck reports readiness of the synthesis stage.
func (s *Synthesizer) HealthCheck(ctx context.Context) stage.Health {
	const name = "synthesizer"
	if s.cfg == nil {
		return stage.Unhealthy(name, "configuration unavailable")
	}
	if strings.TrimSpace(s.cfg.Paths.StagingDir) == "" {
		return stage.Unhealthy(name, "staging directory not configured")
	}
	if s.launch == nil {
		return stage.Unhealthy(name, "engine launcher unavailable")
	}
	binary := strings.TrimSpace(s.cfg.EngineBinary())
	if binary == "" {
		return stage.Unhealthy(name, "engine binary not configured")
	}
	if _, err := exec.LookPath(binary); err != nil {
		return stage.Unhealthy(name, fmt.Sprintf("engine binary %q not found", binary))
	}
	return stage.Healthy(name)
}
