package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/fsnotify/fsnotify"

	"lector/internal/book"
	"lector/internal/config"
	"lector/internal/fileutil"
	"lector/internal/logging"
	"lector/internal/notifications"
)

// inboxSettleDelay is how long a file must sit unchanged before intake runs.
// Copies into the inbox arrive as a stream of writes; fingerprinting a file
// mid-copy would queue a truncated book.
const inboxSettleDelay = 2 * time.Second

// inboxWatcher feeds books dropped into the inbox directory to the queue. It
// combines fsnotify events with a periodic rescan so files survive missed
// events, and holds every file until it stops changing.
type inboxWatcher struct {
	cfg      *config.Config
	logger   *slog.Logger
	intake   *bookIntake
	notifier notifications.Service

	dir          string
	settleDelay  time.Duration
	scanInterval time.Duration

	mu      sync.Mutex
	running bool
	pending map[string]time.Time
	seen    map[string]struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func newInboxWatcher(cfg *config.Config, intake *bookIntake, logger *slog.Logger, notifier notifications.Service) *inboxWatcher {
	if cfg == nil || intake == nil {
		return nil
	}

	dir := strings.TrimSpace(cfg.Paths.InboxDir)
	if dir == "" {
		return nil
	}

	scan := time.Duration(cfg.Workflow.InboxScanInterval) * time.Second
	if scan <= 0 {
		scan = 10 * time.Second
	}

	return &inboxWatcher{
		cfg:          cfg,
		logger:       logging.NewComponentLogger(logger, "inbox-watcher"),
		intake:       intake,
		notifier:     notifier,
		dir:          dir,
		settleDelay:  inboxSettleDelay,
		scanInterval: scan,
		pending:      make(map[string]time.Time),
		seen:         make(map[string]struct{}),
	}
}

func (w *inboxWatcher) Start(ctx context.Context) error {
	if w == nil {
		return errors.New("inbox watcher unavailable")
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return errors.New("inbox watcher already running")
	}

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create inbox directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create inbox watcher: %w", err)
	}
	if err := watcher.Add(w.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch inbox directory: %w", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	w.ctx = runCtx
	w.cancel = cancel
	w.running = true

	w.wg.Add(1)
	go w.loop(watcher)

	w.logger.Info("watching inbox", logging.String("directory", w.dir))
	return nil
}

func (w *inboxWatcher) Stop() {
	if w == nil {
		return
	}
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	cancel := w.cancel
	w.running = false
	w.cancel = nil
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	w.wg.Wait()
}

func (w *inboxWatcher) loop(watcher *fsnotify.Watcher) {
	defer w.wg.Done()
	defer watcher.Close()

	w.scanInbox()

	settle := time.NewTicker(time.Second)
	defer settle.Stop()
	rescan := time.NewTicker(w.scanInterval)
	defer rescan.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("inbox watch error",
				logging.Error(err),
				logging.String(logging.FieldEventType, "inbox_watch_error"),
			)
		case <-settle.C:
			w.processSettled()
		case <-rescan.C:
			w.scanInbox()
		}
	}
}

func (w *inboxWatcher) handleEvent(event fsnotify.Event) {
	path := event.Name
	if !candidateBookPath(path) {
		return
	}

	switch {
	case event.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		// Rename reports the old name; the new name arrives as a Create.
		w.forget(path)
	case event.Op&(fsnotify.Create|fsnotify.Write) != 0:
		w.markPending(path)
	}
}

// scanInbox sweeps the directory for candidate files the event stream missed.
// It also runs once at startup to pick up files that predate the watcher.
func (w *inboxWatcher) scanInbox() {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.logger.Warn("inbox scan failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "inbox_scan_failed"),
			logging.String(logging.FieldErrorHint, "check inbox directory permissions"),
		)
		return
	}

	current := make(map[string]struct{}, len(entries))
	now := time.Now()

	w.mu.Lock()
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(w.dir, entry.Name())
		if !candidateBookPath(path) {
			continue
		}
		current[path] = struct{}{}
		if _, ok := w.seen[path]; ok {
			continue
		}
		if _, ok := w.pending[path]; ok {
			continue
		}
		w.pending[path] = now
	}
	// Files that vanished without a Remove event drop out of the seen set so
	// a later copy under the same name is picked up again.
	for path := range w.seen {
		if _, ok := current[path]; !ok {
			delete(w.seen, path)
		}
	}
	w.mu.Unlock()
}

// processSettled runs intake for every pending file that has been quiet for
// at least the settle delay.
func (w *inboxWatcher) processSettled() {
	cutoff := time.Now().Add(-w.settleDelay)

	w.mu.Lock()
	var due []string
	for path, last := range w.pending {
		if !last.After(cutoff) {
			due = append(due, path)
			delete(w.pending, path)
		}
	}
	w.mu.Unlock()

	if len(due) == 0 {
		return
	}
	sort.Strings(due)
	for _, path := range due {
		w.processPath(path)
	}
}

func (w *inboxWatcher) processPath(path string) {
	ctx := w.ctx
	if ctx == nil {
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			w.logger.Warn("inbox file inaccessible",
				logging.String("source", filepath.Base(path)),
				logging.Error(err),
				logging.String(logging.FieldEventType, "inbox_file_unreadable"),
				logging.String(logging.FieldErrorHint, "check file permissions in the inbox directory"),
			)
		}
		return
	}
	if info.IsDir() {
		w.markSeen(path)
		return
	}
	if info.Size() == 0 {
		// Some tools create the file before writing any bytes.
		w.markPending(path)
		return
	}

	fingerprint, err := fileutil.Fingerprint(path)
	if err != nil {
		w.logger.Warn("inbox fingerprint failed; will retry",
			logging.String("source", filepath.Base(path)),
			logging.Error(err),
			logging.String(logging.FieldEventType, "inbox_fingerprint_failed"),
			logging.String(logging.FieldErrorHint, "verify the file is readable and fully copied"),
		)
		w.notifyError(ctx, path, err)
		return
	}

	item, queued, err := w.intake.Process(ctx, path, "", fingerprint, w.logger)
	if err != nil {
		w.logger.Warn("inbox intake failed; will retry",
			logging.String("source", filepath.Base(path)),
			logging.Error(err),
			logging.String(logging.FieldEventType, "inbox_intake_failed"),
			logging.String(logging.FieldErrorHint, "check queue database health and daemon logs"),
		)
		w.notifyError(ctx, path, err)
		return
	}

	w.markSeen(path)
	if !queued {
		return
	}

	w.logger.Info("book detected in inbox",
		logging.Int64(logging.FieldItemID, item.ID),
		logging.String(logging.FieldBookTitle, item.Title),
		logging.String("source", filepath.Base(path)),
		logging.String(logging.FieldEventType, "book_detected"),
	)
	if w.notifier != nil {
		payload := notifications.Payload{"title": item.Title}
		if err := w.notifier.Publish(ctx, notifications.EventBookDetected, payload); err != nil {
			w.logger.Debug("book detected notification failed", logging.Error(err))
		}
	}
}

func (w *inboxWatcher) notifyError(ctx context.Context, path string, cause error) {
	if w.notifier == nil {
		return
	}
	payload := notifications.Payload{
		"context": filepath.Base(path),
		"error":   cause.Error(),
	}
	if err := w.notifier.Publish(ctx, notifications.EventError, payload); err != nil {
		w.logger.Debug("error notification failed", logging.Error(err))
	}
}

func (w *inboxWatcher) markPending(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending[path] = time.Now()
	delete(w.seen, path)
}

func (w *inboxWatcher) markSeen(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.pending, path)
	w.seen[path] = struct{}{}
}

func (w *inboxWatcher) forget(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.pending, path)
	delete(w.seen, path)
}

// candidateBookPath reports whether a path looks like a book the pipeline can
// ingest. Hidden files and unsupported extensions are ignored outright.
func candidateBookPath(path string) bool {
	base := filepath.Base(path)
	if base == "" || strings.HasPrefix(base, ".") {
		return false
	}
	return book.SupportedExtension(base)
}
